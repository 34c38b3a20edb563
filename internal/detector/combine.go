package detector

// Rule and classifier blend weights. Fixed by the scoring policy.
const (
	ruleWeight       = 0.6
	classifierWeight = 0.4
)

// Combine blends the heuristic rule score with the classifier probability
// into a 0-100 score. Deterministic, no state: zero iff both inputs are
// zero, 100 iff the rule score is 100 and the probability is 1.
func Combine(ruleScore int, probability float64) float64 {
	return (ruleWeight*(float64(ruleScore)/100.0) + classifierWeight*probability) * 100.0
}
