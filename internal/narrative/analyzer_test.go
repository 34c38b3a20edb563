package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clearclaim/heron/internal/domain"
)

const validVerdictJSON = `{
	"fraud_score": 78,
	"explanation": "Late-night incident with no corroboration and a high claim amount.",
	"action": "escalate_investigation",
	"confidence": 0.85,
	"key_risk_factors": ["late-night incident", "no police report"],
	"recommendations": ["Request police report", "Interview the insured"]
}`

// completionServer returns an httptest server speaking the chat-completions
// wire protocol, replying with the given message content.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("missing bearer token, got %q", auth)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected message layout: %+v", req.Messages)
		}

		resp := map[string]any{
			"id":    "cmpl-test",
			"model": req.Model,
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestAnalyzer(t *testing.T, baseURL string) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(domain.NarrativeConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "sonar",
	})
	if err != nil {
		t.Fatalf("failed to build analyzer: %v", err)
	}
	return a
}

func testEvidence() Evidence {
	return Evidence{
		RuleScore: 60,
		ClassifierResult: domain.ClassifierResult{
			Label:       domain.LabelFraud,
			Probability: 0.8,
			Confidence:  0.6,
		},
		CombinedScore: 68,
	}
}

func TestNewAnalyzer(t *testing.T) {
	t.Run("RequiresAPIKey", func(t *testing.T) {
		if _, err := NewAnalyzer(domain.NarrativeConfig{}); err == nil {
			t.Error("expected error for missing API key")
		}
	})

	t.Run("AppliesDefaults", func(t *testing.T) {
		a, err := NewAnalyzer(domain.NarrativeConfig{APIKey: "test-key"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.model != "sonar" {
			t.Errorf("default model = %q, want sonar", a.model)
		}
		if a.maxTokens != 800 {
			t.Errorf("default max tokens = %d, want 800", a.maxTokens)
		}
	})
}

func TestAnalyzerExplain(t *testing.T) {
	ctx := context.Background()
	claim := &domain.Claim{ClaimID: "CLAIM_AB12CD34", PolicyNumber: "521585", TotalClaimAmount: 71610}

	t.Run("ParsesVerdict", func(t *testing.T) {
		srv := completionServer(t, validVerdictJSON)
		defer srv.Close()

		v, err := newTestAnalyzer(t, srv.URL).Explain(ctx, claim, testEvidence())
		if err != nil {
			t.Fatalf("explain failed: %v", err)
		}
		if v.FraudScore != 78 {
			t.Errorf("fraud score = %v, want 78", v.FraudScore)
		}
		if v.Action != domain.ActionEscalate {
			t.Errorf("action = %s, want %s", v.Action, domain.ActionEscalate)
		}
		if len(v.KeyRiskFactors) != 2 || len(v.Recommendations) != 2 {
			t.Errorf("factors/recommendations not parsed: %+v", v)
		}
	})

	t.Run("StripsCodeFences", func(t *testing.T) {
		srv := completionServer(t, "```json\n"+validVerdictJSON+"\n```")
		defer srv.Close()

		v, err := newTestAnalyzer(t, srv.URL).Explain(ctx, claim, testEvidence())
		if err != nil {
			t.Fatalf("explain failed: %v", err)
		}
		if v.FraudScore != 78 {
			t.Errorf("fraud score = %v, want 78", v.FraudScore)
		}
	})

	t.Run("UpstreamError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		if _, err := newTestAnalyzer(t, srv.URL).Explain(ctx, claim, testEvidence()); err == nil {
			t.Error("expected error for non-2xx upstream response")
		}
	})

	t.Run("UnreachableEndpoint", func(t *testing.T) {
		srv := completionServer(t, validVerdictJSON)
		srv.Close()

		if _, err := newTestAnalyzer(t, srv.URL).Explain(ctx, claim, testEvidence()); err == nil {
			t.Error("expected error for closed endpoint")
		}
	})
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"PlainJSON", validVerdictJSON, false},
		{"FencedJSON", "```json\n" + validVerdictJSON + "\n```", false},
		{"BareFence", "```\n" + validVerdictJSON + "\n```", false},
		{"LeadingWhitespace", "\n\n  " + validVerdictJSON, false},
		{"NotJSON", "I cannot assess this claim.", true},
		{"UnknownAction", `{"fraud_score": 50, "action": "ignore"}`, true},
		{"ScoreAboveRange", `{"fraud_score": 150, "action": "reject"}`, true},
		{"ScoreBelowRange", `{"fraud_score": -5, "action": "accept"}`, true},
		{"EmptyAction", `{"fraud_score": 50}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := parseVerdict(tc.content)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected parse error, got %+v", v)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFallbackVerdict(t *testing.T) {
	v := FallbackVerdict(68, fmt.Errorf("upstream timeout"))

	if v.FraudScore != 68 {
		t.Errorf("fraud score = %v, want 68", v.FraudScore)
	}
	if v.Action != domain.ActionEscalate {
		t.Errorf("action = %s, want %s", v.Action, domain.ActionEscalate)
	}
	if v.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", v.Confidence)
	}
	if !strings.Contains(v.Explanation, "upstream timeout") {
		t.Errorf("explanation should carry the cause: %q", v.Explanation)
	}
	if len(v.KeyRiskFactors) != 1 || v.KeyRiskFactors[0] != "AI analysis unavailable" {
		t.Errorf("unexpected risk factors: %v", v.KeyRiskFactors)
	}
	if len(v.Recommendations) != 1 || v.Recommendations[0] != "Manual review required" {
		t.Errorf("unexpected recommendations: %v", v.Recommendations)
	}

	v = FallbackVerdict(10, nil)
	if strings.Contains(v.Explanation, "%!") || v.Explanation == "" {
		t.Errorf("bad explanation without cause: %q", v.Explanation)
	}
}
