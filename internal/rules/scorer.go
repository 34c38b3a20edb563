// Package rules provides the CEL-Go based heuristic fraud scorer.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/clearclaim/heron/internal/domain"
)

// Scorer evaluates the fixed heuristic scoring policy against a claim.
// Rules are compiled once at construction; scoring is pure and makes no
// external calls.
type Scorer struct {
	env      *cel.Env
	compiled []compiledRule
}

type compiledRule struct {
	cfg     domain.ScoringRule
	program cel.Program
}

// MaxScore is the upper clamp for the heuristic score.
const MaxScore = 100

// NewScorer compiles the given scoring rules. Pass DefaultRules() for the
// standard policy.
func NewScorer(ruleSet []domain.ScoringRule) (*Scorer, error) {
	env, err := cel.NewEnv(
		cel.Variable("total_claim_amount", cel.DoubleType),
		cel.Variable("incident_hour", cel.IntType),
		cel.Variable("witnesses", cel.IntType),
		cel.Variable("police_report_available", cel.StringType),
		cel.Variable("incident_state", cel.StringType),
		cel.Variable("policy_state", cel.StringType),
		cel.Variable("auto_year", cel.IntType),
		cel.Variable("current_year", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	s := &Scorer{env: env}
	for _, cfg := range ruleSet {
		ast, issues := env.Compile(cfg.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
		}
		s.compiled = append(s.compiled, compiledRule{cfg: cfg, program: program})
	}

	return s, nil
}

// Score returns the heuristic fraud score in [0,100] for a claim. Additive
// over the fired rules, order-independent, clamped at MaxScore.
func (s *Scorer) Score(claim *domain.Claim) int {
	score := 0
	for _, hit := range s.Explain(claim) {
		score += hit.Points
	}
	if score > MaxScore {
		score = MaxScore
	}
	return score
}

// Explain returns the rules that fired for a claim, with their points and
// reasons. A rule whose expression errors is treated as not fired.
func (s *Scorer) Explain(claim *domain.Claim) []domain.RuleHit {
	activation := buildActivation(claim)

	var hits []domain.RuleHit
	for _, rule := range s.compiled {
		out, _, err := rule.program.Eval(activation)
		if err != nil {
			continue
		}
		if fired, ok := out.(types.Bool); ok && bool(fired) {
			hits = append(hits, domain.RuleHit{
				RuleID: rule.cfg.ID,
				Points: rule.cfg.Points,
				Reason: rule.cfg.Reason,
			})
		}
	}
	return hits
}

// Rules returns the configured scoring policy.
func (s *Scorer) Rules() []domain.ScoringRule {
	out := make([]domain.ScoringRule, 0, len(s.compiled))
	for _, rule := range s.compiled {
		out = append(out, rule.cfg)
	}
	return out
}

// buildActivation normalizes a claim into the CEL activation. Absent fields
// get neutral values so missing data never fires a rule: amount 0, hour 12,
// one witness, police report available, matching states and a current-year
// vehicle.
func buildActivation(claim *domain.Claim) map[string]any {
	currentYear := time.Now().Year()

	hour := 12
	if claim.IncidentHourOfTheDay != nil {
		hour = *claim.IncidentHourOfTheDay
	}

	witnesses := 1
	if claim.Witnesses != nil {
		witnesses = *claim.Witnesses
	}

	policeReport := strings.ToUpper(strings.TrimSpace(claim.PoliceReportAvailable))
	if policeReport == "" {
		policeReport = "YES"
	}

	incidentState := claim.IncidentState
	policyState := claim.PolicyState
	if incidentState == "" || policyState == "" {
		incidentState, policyState = "", ""
	}

	autoYear := claim.AutoYear
	if autoYear == 0 {
		autoYear = currentYear
	}

	return map[string]any{
		"total_claim_amount":      claim.TotalClaimAmount,
		"incident_hour":           hour,
		"witnesses":               witnesses,
		"police_report_available": policeReport,
		"incident_state":          incidentState,
		"policy_state":            policyState,
		"auto_year":               autoYear,
		"current_year":            currentYear,
	}
}
