package domain

// ScoringRule is one heuristic fraud indicator. Expression is a CEL boolean
// over the normalized claim activation; Points is added to the rule score
// when the expression evaluates true.
type ScoringRule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Points     int    `json:"points"`
	Reason     string `json:"reason"`
}

// RuleHit records a scoring rule that fired for a claim.
type RuleHit struct {
	RuleID string `json:"rule_id"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}
