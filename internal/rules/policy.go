package rules

import "github.com/clearclaim/heron/internal/domain"

// DefaultRules returns the standard heuristic scoring policy. The amount
// threshold is a strict greater-than: a claim of exactly 50000 does not
// fire the high-amount rule.
func DefaultRules() []domain.ScoringRule {
	return []domain.ScoringRule{
		{
			ID:         "high-amount",
			Name:       "High claim amount",
			Expression: "total_claim_amount > 50000.0",
			Points:     25,
			Reason:     "Total claim amount exceeds $50,000",
		},
		{
			ID:         "late-night",
			Name:       "Late-night incident",
			Expression: "incident_hour <= 4 || incident_hour >= 22",
			Points:     15,
			Reason:     "Incident occurred during late-night hours",
		},
		{
			ID:         "no-corroboration",
			Name:       "No witnesses, no police report",
			Expression: `witnesses == 0 && police_report_available == "NO"`,
			Points:     20,
			Reason:     "No witnesses and no police report available",
		},
		{
			ID:         "cross-state",
			Name:       "Cross-state incident",
			Expression: "incident_state != policy_state",
			Points:     10,
			Reason:     "Incident state differs from policy state",
		},
		{
			ID:         "old-vehicle-high-claim",
			Name:       "Old vehicle with high claim",
			Expression: "(current_year - auto_year) > 15 && total_claim_amount > 30000.0",
			Points:     20,
			Reason:     "Vehicle older than 15 years with claim above $30,000",
		},
	}
}
