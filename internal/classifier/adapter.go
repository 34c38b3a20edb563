package classifier

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/clearclaim/heron/internal/domain"
)

// FraudThreshold is the probability at or above which a claim is labeled
// fraud.
const FraudThreshold = 0.5

// UnknownCategory is the sentinel for absent categorical values.
const UnknownCategory = "Unknown"

// Adapter normalizes claims into the feature layout the loaded model
// expects and converts its probability into a labeled result. A classifier
// failure never propagates; it degrades to the error label.
type Adapter struct {
	model domain.Model
}

// NewAdapter wraps a loaded model.
func NewAdapter(model domain.Model) *Adapter {
	return &Adapter{model: model}
}

// Predict runs the model for one claim. On any internal failure it returns
// the error label with zero probability and confidence.
func (a *Adapter) Predict(claim *domain.Claim) domain.ClassifierResult {
	result, err := a.predict(claim)
	if err != nil {
		slog.Warn("classifier prediction failed", "claim_id", claim.ClaimID, "error", err)
		return domain.ClassifierResult{Label: domain.LabelError, Probability: 0, Confidence: 0}
	}
	return result
}

func (a *Adapter) predict(claim *domain.Claim) (domain.ClassifierResult, error) {
	if a.model == nil {
		return domain.ClassifierResult{}, fmt.Errorf("no model loaded")
	}

	rows := a.alignRows([]map[string]any{claim.Features()})
	prob, err := a.model.PredictProbability(rows[0])
	if err != nil {
		return domain.ClassifierResult{}, err
	}

	label := domain.LabelNotFraud
	if prob >= FraudThreshold {
		label = domain.LabelFraud
	}

	return domain.ClassifierResult{
		Label:       label,
		Probability: prob,
		Confidence:  math.Abs(prob-FraudThreshold) * 2,
	}, nil
}

// alignRows reshapes raw feature maps into exactly the columns the model
// expects. Expected columns absent from a row are filled with sentinels
// (Unknown for categoricals, 0 for numerics); categorical values are
// coerced to strings; missing numerics take the column median across the
// batch.
func (a *Adapter) alignRows(raw []map[string]any) []map[string]any {
	features := a.model.FeatureNames()
	categorical := make(map[string]bool)
	for _, c := range a.model.CategoricalFeatures() {
		categorical[c] = true
	}

	aligned := make([]map[string]any, len(raw))
	for i := range aligned {
		aligned[i] = make(map[string]any, len(features))
	}

	for _, col := range features {
		if categorical[col] {
			for i, row := range raw {
				val, ok := row[col]
				if !ok || val == nil || val == "" {
					aligned[i][col] = UnknownCategory
					continue
				}
				aligned[i][col] = coerceString(val)
			}
			continue
		}

		// Numeric column: collect present values, then median-fill.
		present := make([]float64, 0, len(raw))
		for _, row := range raw {
			if f, ok := numericValue(row[col]); ok {
				present = append(present, f)
			}
		}
		fill := median(present) // 0 when the column is entirely absent

		for i, row := range raw {
			if f, ok := numericValue(row[col]); ok {
				aligned[i][col] = f
			} else {
				aligned[i][col] = fill
			}
		}
	}

	return aligned
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func numericValue(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
