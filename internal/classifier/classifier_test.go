package classifier

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clearclaim/heron/internal/domain"
)

// testArtifact is a two-tree ensemble small enough to compute by hand:
// tree 0 splits on total_claim_amount < 50000 (-2 left, +2 right) and
// tree 1 splits on incident_severity == "Major Damage" (+1 left, -1 right).
const testArtifact = `{
	"feature_names": ["total_claim_amount", "incident_severity"],
	"categorical_features": ["incident_severity"],
	"base_score": 0,
	"trees": [
		{"nodes": [
			{"feature": "total_claim_amount", "threshold": 50000, "left": 1, "right": 2},
			{"value": -2},
			{"value": 2}
		]},
		{"nodes": [
			{"feature": "incident_severity", "category": "Major Damage", "left": 1, "right": 2},
			{"value": 1},
			{"value": -1}
		]}
	]
}`

func loadTestArtifact(t *testing.T) *Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(testArtifact), 0o644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
	a, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load artifact: %v", err)
	}
	return a
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestLoad(t *testing.T) {
	t.Run("ValidArtifact", func(t *testing.T) {
		a := loadTestArtifact(t)
		if got := a.FeatureNames(); len(got) != 2 || got[0] != "total_claim_amount" {
			t.Errorf("unexpected feature names: %v", got)
		}
		if got := a.CategoricalFeatures(); len(got) != 1 || got[0] != "incident_severity" {
			t.Errorf("unexpected categorical features: %v", got)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		os.WriteFile(path, []byte("{not json"), 0o644)
		if _, err := Load(path); err == nil {
			t.Error("expected error for malformed artifact")
		}
	})

	t.Run("SelfReferencingNode", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cyclic.json")
		os.WriteFile(path, []byte(`{
			"feature_names": ["x"],
			"trees": [{"nodes": [
				{"feature": "x", "threshold": 10, "left": 0, "right": 0}
			]}]
		}`), 0o644)
		if _, err := Load(path); err == nil {
			t.Error("expected error for node pointing at itself")
		}
	})

	t.Run("BackwardChildIndex", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backward.json")
		os.WriteFile(path, []byte(`{
			"feature_names": ["x"],
			"trees": [{"nodes": [
				{"feature": "x", "threshold": 10, "left": 1, "right": 2},
				{"feature": "x", "threshold": 5, "left": 0, "right": 2},
				{"value": 1}
			]}]
		}`), 0o644)
		if _, err := Load(path); err == nil {
			t.Error("expected error for child index pointing backward")
		}
	})

	t.Run("ChildIndexOutOfRange", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "oob.json")
		os.WriteFile(path, []byte(`{
			"feature_names": ["x"],
			"trees": [{"nodes": [
				{"feature": "x", "threshold": 10, "left": 1, "right": 9},
				{"value": 1}
			]}]
		}`), 0o644)
		if _, err := Load(path); err == nil {
			t.Error("expected error for child index past the node array")
		}
	})

	t.Run("NoFeatures", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.json")
		os.WriteFile(path, []byte(`{"feature_names": [], "trees": []}`), 0o644)
		if _, err := Load(path); err == nil {
			t.Error("expected error for artifact without features")
		}
	})
}

func TestArtifactPredictProbability(t *testing.T) {
	a := loadTestArtifact(t)

	cases := []struct {
		name   string
		row    map[string]any
		margin float64
	}{
		{"HighAmountMajorDamage", map[string]any{"total_claim_amount": 60000.0, "incident_severity": "Major Damage"}, 2 + 1},
		{"LowAmountMinorDamage", map[string]any{"total_claim_amount": 10000.0, "incident_severity": "Minor Damage"}, -2 - 1},
		{"ThresholdIsExclusive", map[string]any{"total_claim_amount": 50000.0, "incident_severity": "Minor Damage"}, 2 - 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.PredictProbability(tc.row)
			if err != nil {
				t.Fatalf("predict failed: %v", err)
			}
			want := 1.0 / (1.0 + math.Exp(-tc.margin))
			if !almostEqual(got, want) {
				t.Errorf("probability = %v, want %v", got, want)
			}
		})
	}

	t.Run("MissingFeature", func(t *testing.T) {
		if _, err := a.PredictProbability(map[string]any{"total_claim_amount": 60000.0}); err == nil {
			t.Error("expected error for row missing a feature")
		}
	})

	t.Run("WrongCategoricalType", func(t *testing.T) {
		row := map[string]any{"total_claim_amount": 60000.0, "incident_severity": 7}
		if _, err := a.PredictProbability(row); err == nil {
			t.Error("expected error for non-string categorical value")
		}
	})

	t.Run("CyclicTreeErrorsInsteadOfHanging", func(t *testing.T) {
		// Bypasses Load to hit the walk bound directly.
		cyclic := &Artifact{
			Features: []string{"x"},
			Trees: []Tree{{Nodes: []Node{
				{Feature: "x", Threshold: floatPtr(10), Left: 0, Right: 0},
			}}},
			categoricalSet: map[string]bool{},
		}

		done := make(chan error, 1)
		go func() {
			_, err := cyclic.PredictProbability(map[string]any{"x": 5.0})
			done <- err
		}()

		select {
		case err := <-done:
			if err == nil {
				t.Error("expected error for cyclic tree")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("prediction on cyclic tree did not return")
		}
	})
}

func floatPtr(f float64) *float64 { return &f }

func TestAdapterPredict(t *testing.T) {
	adapter := NewAdapter(loadTestArtifact(t))

	t.Run("FraudLabel", func(t *testing.T) {
		claim := &domain.Claim{TotalClaimAmount: 60000, IncidentSeverity: "Major Damage"}
		got := adapter.Predict(claim)

		wantProb := 1.0 / (1.0 + math.Exp(-3.0))
		if got.Label != domain.LabelFraud {
			t.Errorf("label = %s, want %s", got.Label, domain.LabelFraud)
		}
		if !almostEqual(got.Probability, wantProb) {
			t.Errorf("probability = %v, want %v", got.Probability, wantProb)
		}
		if !almostEqual(got.Confidence, (wantProb-0.5)*2) {
			t.Errorf("confidence = %v, want %v", got.Confidence, (wantProb-0.5)*2)
		}
	})

	t.Run("NotFraudLabel", func(t *testing.T) {
		claim := &domain.Claim{TotalClaimAmount: 10000, IncidentSeverity: "Minor Damage"}
		got := adapter.Predict(claim)
		if got.Label != domain.LabelNotFraud {
			t.Errorf("label = %s, want %s", got.Label, domain.LabelNotFraud)
		}
		if got.Probability >= FraudThreshold {
			t.Errorf("probability %v at or above threshold", got.Probability)
		}
	})

	t.Run("MissingCategoricalFilledWithUnknown", func(t *testing.T) {
		// Unknown never matches "Major Damage", so tree 1 contributes -1.
		claim := &domain.Claim{TotalClaimAmount: 60000}
		got := adapter.Predict(claim)
		wantProb := 1.0 / (1.0 + math.Exp(-1.0))
		if !almostEqual(got.Probability, wantProb) {
			t.Errorf("probability = %v, want %v", got.Probability, wantProb)
		}
	})

	t.Run("FailingModelDegrades", func(t *testing.T) {
		adapter := NewAdapter(&failingModel{})
		got := adapter.Predict(&domain.Claim{ClaimID: "CLAIM_TEST0001"})
		if got.Label != domain.LabelError || got.Probability != 0 || got.Confidence != 0 {
			t.Errorf("unexpected degraded result: %+v", got)
		}
	})

	t.Run("NilModelDegrades", func(t *testing.T) {
		adapter := NewAdapter(nil)
		got := adapter.Predict(&domain.Claim{ClaimID: "CLAIM_TEST0002"})
		if got.Label != domain.LabelError {
			t.Errorf("label = %s, want %s", got.Label, domain.LabelError)
		}
	})
}

type failingModel struct{}

func (*failingModel) FeatureNames() []string        { return []string{"total_claim_amount"} }
func (*failingModel) CategoricalFeatures() []string { return nil }
func (*failingModel) PredictProbability(map[string]any) (float64, error) {
	return 0, fmt.Errorf("artifact corrupted")
}
