// Package detector orchestrates the claim fraud-analysis pipeline.
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/clearclaim/heron/internal/domain"
	"github.com/clearclaim/heron/internal/narrative"
)

// Pipeline stages, in order. Any stage can escape to stageErrored; the
// pipeline still produces and persists a best-effort result.
const (
	stageReceived    = "received"
	stagePersisted   = "persisted"
	stageRuleScored  = "rule-scored"
	stageModelScored = "model-scored"
	stageCombined    = "combined"
	stageNarrated    = "narrated"
	stageFinalized   = "finalized"
	stageErrored     = "errored"
)

// RuleScorer is the heuristic scoring contract.
type RuleScorer interface {
	Score(claim *domain.Claim) int
	Explain(claim *domain.Claim) []domain.RuleHit
}

// Predictor is the classifier contract. Implementations never fail; they
// degrade to the error label.
type Predictor interface {
	Predict(claim *domain.Claim) domain.ClassifierResult
}

// Explainer is the narrative-reasoning contract.
type Explainer interface {
	Explain(ctx context.Context, claim *domain.Claim, ev narrative.Evidence) (*narrative.Verdict, error)
}

// Detector wires the pipeline components. Handles are initialized once at
// process start and passed in explicitly so each can be substituted with a
// fake in tests.
type Detector struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	scorer    RuleScorer
	predictor Predictor
	explainer Explainer

	// SummaryTTL bounds how long dashboard summaries are served from cache.
	SummaryTTL time.Duration
}

// New creates a detector. repo and scorer are required; cache, bus,
// predictor and explainer may be nil and their stages degrade accordingly.
func New(repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer RuleScorer, predictor Predictor, explainer Explainer) *Detector {
	return &Detector{
		repo:       repo,
		cache:      cache,
		bus:        bus,
		scorer:     scorer,
		predictor:  predictor,
		explainer:  explainer,
		SummaryTTL: 30 * time.Second,
	}
}

// ProcessClaim runs one claim through the full pipeline. It never returns
// an error: every component failure is converted to a degraded-but-valid
// result, and the end-to-end latency is attached either way.
func (d *Detector) ProcessClaim(ctx context.Context, claim *domain.Claim) (result *domain.AnalysisResult) {
	start := time.Now()
	stage := stageReceived

	defer func() {
		if r := recover(); r != nil {
			slog.Error("claim processing panicked", "stage", stage, "panic", r)
			result = d.erroredResult(ctx, claim, start, fmt.Errorf("panic at stage %s: %v", stage, r))
		}
	}()

	if claim == nil {
		return d.erroredResult(ctx, nil, start, fmt.Errorf("nil claim"))
	}
	claim.Normalize()

	// Persist the incoming claim. A write failure is transient: the claim
	// is still analyzed, the result just may outlive its record.
	if err := d.repo.SaveClaim(ctx, claim); err != nil {
		slog.Warn("failed to save claim", "claim_id", claim.ClaimID, "error", err)
	} else {
		stage = stagePersisted
	}

	ruleScore := d.scorer.Score(claim)
	ruleHits := d.scorer.Explain(claim)
	stage = stageRuleScored

	prediction := domain.ClassifierResult{Label: domain.LabelError}
	if d.predictor != nil {
		prediction = d.predictor.Predict(claim)
	}
	stage = stageModelScored

	combined := Combine(ruleScore, prediction.Probability)
	stage = stageCombined

	evidence := narrative.Evidence{
		RuleScore:        ruleScore,
		ClassifierResult: prediction,
		CombinedScore:    combined,
	}

	verdict := d.narrate(ctx, claim, evidence)
	stage = stageNarrated

	result = &domain.AnalysisResult{
		ClaimID:               claim.ClaimID,
		RuleScore:             ruleScore,
		ClassifierProbability: prediction.Probability,
		CombinedScore:         combined,
		FraudScore:            verdict.FraudScore,
		Explanation:           verdict.Explanation,
		Action:                verdict.Action,
		Recommendations:       verdict.Recommendations,
		RiskLevel:             domain.RiskLevelFor(verdict.FraudScore),
		Reasons:               verdict.KeyRiskFactors,
		AnalysisTimestamp:     time.Now().UTC(),
		ProcessingMs:          time.Since(start).Milliseconds(),
	}
	if len(result.Reasons) == 0 {
		for _, hit := range ruleHits {
			result.Reasons = append(result.Reasons, hit.Reason)
		}
	}

	if err := d.repo.SaveAnalysis(ctx, result); err != nil {
		slog.Warn("failed to save analysis", "claim_id", claim.ClaimID, "error", err)
	}

	d.publish(ctx, result)
	stage = stageFinalized

	slog.Info("claim processed",
		"claim_id", claim.ClaimID,
		"rule_score", ruleScore,
		"classifier_label", prediction.Label,
		"combined_score", combined,
		"risk_level", result.RiskLevel,
		"action", result.Action,
		"duration_ms", result.ProcessingMs,
	)

	return result
}

// narrate calls the reasoning endpoint and falls back to the combined
// algorithmic score on any failure.
func (d *Detector) narrate(ctx context.Context, claim *domain.Claim, ev narrative.Evidence) *narrative.Verdict {
	if d.explainer == nil {
		return narrative.FallbackVerdict(ev.CombinedScore, fmt.Errorf("no reasoning endpoint configured"))
	}

	verdict, err := d.explainer.Explain(ctx, claim, ev)
	if err != nil {
		slog.Warn("narrative analysis failed", "claim_id", claim.ClaimID, "error", err)
		return narrative.FallbackVerdict(ev.CombinedScore, err)
	}
	return verdict
}

// erroredResult is the top-level failure contract: a best-effort analysis
// is still produced and persisted so no claim is left unanalyzed.
func (d *Detector) erroredResult(ctx context.Context, claim *domain.Claim, start time.Time, cause error) *domain.AnalysisResult {
	claimID := ""
	if claim != nil {
		claimID = claim.ClaimID
	}

	result := &domain.AnalysisResult{
		ClaimID:           claimID,
		RuleScore:         0,
		CombinedScore:     0,
		FraudScore:        50,
		Explanation:       fmt.Sprintf("Processing error: %v", cause),
		Action:            domain.ActionEscalate,
		Recommendations:   []string{"Manual review required due to system error"},
		RiskLevel:         domain.RiskMedium,
		Reasons:           []string{"System error"},
		AnalysisTimestamp: time.Now().UTC(),
		ProcessingMs:      time.Since(start).Milliseconds(),
	}

	if claimID != "" {
		if err := d.repo.SaveAnalysis(ctx, result); err != nil {
			slog.Warn("failed to save errored analysis", "claim_id", claimID, "error", err)
		}
	}

	return result
}

// publish emits analysis events. High and very-high risk claims get an
// additional alert event.
func (d *Detector) publish(ctx context.Context, result *domain.AnalysisResult) {
	if d.bus == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := d.bus.Publish(ctx, domain.TopicClaimAnalyzed, payload); err != nil {
		slog.Warn("failed to publish analysis event", "claim_id", result.ClaimID, "error", err)
	}

	if result.RiskLevel == domain.RiskHigh || result.RiskLevel == domain.RiskVeryHigh {
		if err := d.bus.Publish(ctx, domain.TopicClaimAlert, payload); err != nil {
			slog.Warn("failed to publish alert event", "claim_id", result.ClaimID, "error", err)
		}
	}
}

// GetClaimHistory returns all stored claims for a policy number. A lookup
// failure degrades to an empty history.
func (d *Detector) GetClaimHistory(ctx context.Context, policyNumber string) []*domain.Claim {
	claims, err := d.repo.GetClaimsByPolicy(ctx, policyNumber)
	if err != nil {
		slog.Warn("failed to load claim history", "policy_number", policyNumber, "error", err)
		return []*domain.Claim{}
	}
	return claims
}

// GetDashboardSummary aggregates analyses with combined score at or above
// the threshold. Summaries are cached briefly to keep repeated dashboard
// refreshes off the database.
func (d *Detector) GetDashboardSummary(ctx context.Context, threshold float64) *domain.DashboardSummary {
	cacheKey := fmt.Sprintf("dashboard:%.1f", threshold)

	if d.cache != nil {
		if cached, err := d.cache.GetSummary(ctx, cacheKey); err == nil && cached != nil {
			return cached
		}
	}

	entries, err := d.repo.ListHighRisk(ctx, threshold)
	if err != nil {
		slog.Warn("failed to load high-risk analyses", "threshold", threshold, "error", err)
		return &domain.DashboardSummary{
			TopClaims:   []*domain.AnalysisResult{},
			GeneratedAt: time.Now().UTC(),
		}
	}

	summary := &domain.DashboardSummary{
		HighRiskCount: len(entries),
		GeneratedAt:   time.Now().UTC(),
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Analysis.CombinedScore > entries[j].Analysis.CombinedScore
	})

	for _, e := range entries {
		summary.TotalAmountAtRisk += e.TotalClaimAmount
		if len(summary.TopClaims) < 10 {
			summary.TopClaims = append(summary.TopClaims, e.Analysis)
		}
	}
	if summary.TopClaims == nil {
		summary.TopClaims = []*domain.AnalysisResult{}
	}

	if d.cache != nil {
		if err := d.cache.SetSummary(ctx, cacheKey, summary, d.SummaryTTL); err != nil {
			slog.Warn("failed to cache dashboard summary", "error", err)
		}
	}

	return summary
}

// UpdateClaimStatus sets a claim's status and refreshes its update
// timestamp. Returns false when the claim does not exist or the write
// fails.
func (d *Detector) UpdateClaimStatus(ctx context.Context, claimID, status string) bool {
	if claimID == "" || status == "" {
		return false
	}

	if err := d.repo.UpdateClaimStatus(ctx, claimID, status); err != nil {
		slog.Warn("failed to update claim status", "claim_id", claimID, "status", status, "error", err)
		return false
	}

	// Status changes invalidate any cached dashboard view lazily via TTL;
	// no explicit purge is needed for a single keyed write.
	slog.Info("claim status updated", "claim_id", claimID, "status", status)
	return true
}

// GetClaim returns one stored claim.
func (d *Detector) GetClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	return d.repo.GetClaim(ctx, claimID)
}

// GetAnalysis returns the stored analysis for a claim.
func (d *Detector) GetAnalysis(ctx context.Context, claimID string) (*domain.AnalysisResult, error) {
	return d.repo.GetAnalysis(ctx, claimID)
}
