package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Claim represents one insurance claim submitted for fraud evaluation.
// Field names follow the original dataset schema (snake_case on the wire).
type Claim struct {
	ClaimID string `json:"claim_id"`

	// Policy attributes
	MonthsAsCustomer    int     `json:"months_as_customer"`
	PolicyNumber        string  `json:"policy_number"`
	PolicyBindDate      string  `json:"policy_bind_date"`
	PolicyState         string  `json:"policy_state"`
	PolicyCSL           string  `json:"policy_csl"`
	PolicyDeductible    float64 `json:"policy_deductable"`
	PolicyAnnualPremium float64 `json:"policy_annual_premium"`
	UmbrellaLimit       float64 `json:"umbrella_limit"`

	// Insured-person attributes
	Age                   int     `json:"age"`
	InsuredZip            int     `json:"insured_zip"`
	InsuredSex            string  `json:"insured_sex"`
	InsuredEducationLevel string  `json:"insured_education_level"`
	InsuredOccupation     string  `json:"insured_occupation"`
	InsuredHobbies        string  `json:"insured_hobbies"`
	InsuredRelationship   string  `json:"insured_relationship"`
	CapitalGains          float64 `json:"capital_gains"`
	CapitalLoss           float64 `json:"capital_loss"`

	// Incident attributes
	IncidentDate             string `json:"incident_date"`
	IncidentType             string `json:"incident_type"`
	CollisionType            string `json:"collision_type"`
	IncidentSeverity         string `json:"incident_severity"`
	AuthoritiesContacted     string `json:"authorities_contacted"`
	IncidentState            string `json:"incident_state"`
	IncidentCity             string `json:"incident_city"`
	IncidentLocation         string `json:"incident_location"`
	IncidentHourOfTheDay     *int   `json:"incident_hour_of_the_day"`
	NumberOfVehiclesInvolved int    `json:"number_of_vehicles_involved"`

	// Evidentiary attributes
	PropertyDamage        string `json:"property_damage"`
	BodilyInjuries        int    `json:"bodily_injuries"`
	Witnesses             *int   `json:"witnesses"`
	PoliceReportAvailable string `json:"police_report_available"`

	// Financial attributes
	TotalClaimAmount float64 `json:"total_claim_amount"`
	InjuryClaim      float64 `json:"injury_claim"`
	PropertyClaim    float64 `json:"property_claim"`
	VehicleClaim     float64 `json:"vehicle_claim"`

	// Vehicle attributes
	AutoMake  string `json:"auto_make"`
	AutoModel string `json:"auto_model"`
	AutoYear  int    `json:"auto_year"`

	FraudReported string    `json:"fraud_reported"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Claim status values accepted by UpdateClaimStatus.
const (
	ClaimStatusSubmitted          = "submitted"
	ClaimStatusApproved           = "approved"
	ClaimStatusRejected           = "rejected"
	ClaimStatusUnderInvestigation = "under_investigation"
)

// DeriveClaimID computes a content-addressed claim identifier from the
// (policy number, incident date, total claim amount) triple. The same triple
// always yields the same id; collision resistance is best-effort, not
// guaranteed.
func DeriveClaimID(policyNumber, incidentDate string, totalClaimAmount float64) string {
	amount := strconv.FormatFloat(totalClaimAmount, 'f', -1, 64)
	sum := md5.Sum([]byte(policyNumber + incidentDate + amount))
	return "CLAIM_" + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// Normalize fills in the derived identifier and timestamps. An identifier
// already present is never replaced. UpdatedAt is refreshed on every call.
func (c *Claim) Normalize() {
	now := time.Now().UTC()
	if c.ClaimID == "" {
		c.ClaimID = DeriveClaimID(c.PolicyNumber, c.IncidentDate, c.TotalClaimAmount)
	}
	if c.FraudReported == "" {
		c.FraudReported = "N"
	}
	if c.Status == "" {
		c.Status = ClaimStatusSubmitted
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

// Features flattens the claim into the named feature map consumed by the
// classifier adapter. Keys match the training dataset columns.
func (c *Claim) Features() map[string]any {
	f := map[string]any{
		"months_as_customer":          c.MonthsAsCustomer,
		"age":                         c.Age,
		"policy_number":               c.PolicyNumber,
		"policy_bind_date":            c.PolicyBindDate,
		"policy_state":                c.PolicyState,
		"policy_csl":                  c.PolicyCSL,
		"policy_deductable":           c.PolicyDeductible,
		"policy_annual_premium":       c.PolicyAnnualPremium,
		"umbrella_limit":              c.UmbrellaLimit,
		"insured_zip":                 c.InsuredZip,
		"insured_sex":                 c.InsuredSex,
		"insured_education_level":     c.InsuredEducationLevel,
		"insured_occupation":          c.InsuredOccupation,
		"insured_hobbies":             c.InsuredHobbies,
		"insured_relationship":        c.InsuredRelationship,
		"capital_gains":               c.CapitalGains,
		"capital_loss":                c.CapitalLoss,
		"incident_date":               c.IncidentDate,
		"incident_type":               c.IncidentType,
		"collision_type":              c.CollisionType,
		"incident_severity":           c.IncidentSeverity,
		"authorities_contacted":       c.AuthoritiesContacted,
		"incident_state":              c.IncidentState,
		"incident_city":               c.IncidentCity,
		"incident_location":           c.IncidentLocation,
		"number_of_vehicles_involved": c.NumberOfVehiclesInvolved,
		"property_damage":             c.PropertyDamage,
		"bodily_injuries":             c.BodilyInjuries,
		"police_report_available":     c.PoliceReportAvailable,
		"total_claim_amount":          c.TotalClaimAmount,
		"injury_claim":                c.InjuryClaim,
		"property_claim":              c.PropertyClaim,
		"vehicle_claim":               c.VehicleClaim,
		"auto_make":                   c.AutoMake,
		"auto_model":                  c.AutoModel,
		"auto_year":                   c.AutoYear,
	}
	if c.IncidentHourOfTheDay != nil {
		f["incident_hour_of_the_day"] = *c.IncidentHourOfTheDay
	}
	if c.Witnesses != nil {
		f["witnesses"] = *c.Witnesses
	}
	return f
}
