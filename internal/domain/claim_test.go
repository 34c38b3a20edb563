package domain

import (
	"regexp"
	"testing"
	"time"
)

func TestDeriveClaimID(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		a := DeriveClaimID("521585", "2015-01-25", 71610)
		b := DeriveClaimID("521585", "2015-01-25", 71610)
		if a != b {
			t.Errorf("same inputs produced different ids: %s vs %s", a, b)
		}
	})

	t.Run("Format", func(t *testing.T) {
		id := DeriveClaimID("521585", "2015-01-25", 71610)
		if ok, _ := regexp.MatchString(`^CLAIM_[0-9A-F]{8}$`, id); !ok {
			t.Errorf("unexpected id format: %s", id)
		}
	})

	t.Run("DistinctInputs", func(t *testing.T) {
		base := DeriveClaimID("521585", "2015-01-25", 71610)
		for name, id := range map[string]string{
			"policy": DeriveClaimID("521586", "2015-01-25", 71610),
			"date":   DeriveClaimID("521585", "2015-01-26", 71610),
			"amount": DeriveClaimID("521585", "2015-01-25", 71611),
		} {
			if id == base {
				t.Errorf("changing %s did not change the id", name)
			}
		}
	})

	t.Run("AmountFormatting", func(t *testing.T) {
		// Integral floats must hash the same regardless of how the caller
		// produced them.
		if DeriveClaimID("521585", "2015-01-25", 71610.0) != DeriveClaimID("521585", "2015-01-25", float64(71610)) {
			t.Error("equal amounts produced different ids")
		}
	})
}

func TestClaimNormalize(t *testing.T) {
	t.Run("FillsDefaults", func(t *testing.T) {
		c := &Claim{
			PolicyNumber:     "521585",
			IncidentDate:     "2015-01-25",
			TotalClaimAmount: 71610,
		}
		c.Normalize()

		if c.ClaimID != DeriveClaimID("521585", "2015-01-25", 71610) {
			t.Errorf("unexpected claim id %s", c.ClaimID)
		}
		if c.FraudReported != "N" {
			t.Errorf("fraud_reported = %q, want N", c.FraudReported)
		}
		if c.Status != ClaimStatusSubmitted {
			t.Errorf("status = %q, want %q", c.Status, ClaimStatusSubmitted)
		}
		if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
			t.Error("timestamps not set")
		}
	})

	t.Run("PreservesExistingID", func(t *testing.T) {
		c := &Claim{ClaimID: "CLAIM_DEADBEEF", PolicyNumber: "521585"}
		c.Normalize()
		if c.ClaimID != "CLAIM_DEADBEEF" {
			t.Errorf("existing id was replaced: %s", c.ClaimID)
		}
	})

	t.Run("PreservesExistingStatus", func(t *testing.T) {
		c := &Claim{Status: ClaimStatusApproved}
		c.Normalize()
		if c.Status != ClaimStatusApproved {
			t.Errorf("status = %q, want %q", c.Status, ClaimStatusApproved)
		}
	})

	t.Run("RefreshesUpdatedAt", func(t *testing.T) {
		created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		c := &Claim{CreatedAt: created, UpdatedAt: created}
		c.Normalize()
		if !c.CreatedAt.Equal(created) {
			t.Errorf("created_at changed: %v", c.CreatedAt)
		}
		if !c.UpdatedAt.After(created) {
			t.Errorf("updated_at not refreshed: %v", c.UpdatedAt)
		}
	})
}

func TestClaimFeatures(t *testing.T) {
	hour := 3
	witnesses := 2
	c := &Claim{
		PolicyNumber:         "521585",
		PolicyState:          "OH",
		TotalClaimAmount:     71610,
		AutoYear:             2004,
		IncidentHourOfTheDay: &hour,
		Witnesses:            &witnesses,
	}
	f := c.Features()

	if f["policy_state"] != "OH" {
		t.Errorf("policy_state = %v", f["policy_state"])
	}
	if f["total_claim_amount"] != 71610.0 {
		t.Errorf("total_claim_amount = %v", f["total_claim_amount"])
	}
	if f["incident_hour_of_the_day"] != 3 {
		t.Errorf("incident_hour_of_the_day = %v", f["incident_hour_of_the_day"])
	}
	if f["witnesses"] != 2 {
		t.Errorf("witnesses = %v", f["witnesses"])
	}

	// Optional fields stay absent when unset so the adapter can apply its
	// own fill strategy.
	f = (&Claim{}).Features()
	if _, ok := f["incident_hour_of_the_day"]; ok {
		t.Error("unset incident hour should be absent from features")
	}
	if _, ok := f["witnesses"]; ok {
		t.Error("unset witnesses should be absent from features")
	}
}

func TestRiskLevelFor(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0, RiskMinimal},
		{19.999, RiskMinimal},
		{20, RiskLow},
		{39.999, RiskLow},
		{40, RiskMedium},
		{59.999, RiskMedium},
		{60, RiskHigh},
		{79.999, RiskHigh},
		{80, RiskVeryHigh},
		{100, RiskVeryHigh},
	}
	for _, tc := range cases {
		if got := RiskLevelFor(tc.score); got != tc.want {
			t.Errorf("RiskLevelFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
