// Package narrative obtains a natural-language fraud verdict from an
// external reasoning endpoint, with a deterministic local fallback.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/clearclaim/heron/internal/domain"
)

// Verdict is the structured assessment parsed from the reasoning endpoint.
type Verdict struct {
	FraudScore      float64  `json:"fraud_score"`
	Explanation     string   `json:"explanation"`
	Action          string   `json:"action"`
	Confidence      float64  `json:"confidence"`
	KeyRiskFactors  []string `json:"key_risk_factors"`
	Recommendations []string `json:"recommendations"`
}

// Evidence carries the algorithmic scores handed to the reasoning endpoint.
type Evidence struct {
	RuleScore        int                     `json:"rule_based_score"`
	ClassifierResult domain.ClassifierResult `json:"classifier_result"`
	CombinedScore    float64                 `json:"combined_score"`
}

// Analyzer calls an OpenAI-compatible chat-completions endpoint.
type Analyzer struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewAnalyzer builds an analyzer from configuration. The API key is
// required; base URL selects the concrete provider (the default targets the
// Perplexity API, which speaks the same wire protocol).
func NewAnalyzer(cfg domain.NarrativeConfig) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("reasoning API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "sonar"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 800
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Analyzer{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}, nil
}

const systemPrompt = `You are an expert insurance fraud investigation assistant with access to multiple detection systems.

You receive:
- Claim details from the customer
- Rule-based fraud detection score (0-100)
- ML model prediction and probability
- Combined algorithmic score

Your task is to provide a final assessment considering all evidence.

Fraud score interpretation:
- 0-20: Very low risk (likely genuine)
- 21-40: Low risk (minor concerns)
- 41-60: Medium risk (requires attention)
- 61-80: High risk (likely fraudulent)
- 81-100: Very high risk (almost certainly fraudulent)

Actions:
- "accept": Low risk, approve claim
- "request_documents": Medium risk, need more evidence
- "escalate_investigation": High risk, human investigation needed
- "reject": Very high risk, deny claim

Respond ONLY with a JSON object in this exact format:
{
  "fraud_score": number (0-100),
  "explanation": "detailed reasoning",
  "action": "accept|request_documents|escalate_investigation|reject",
  "confidence": number (0-1),
  "key_risk_factors": ["factor1", "factor2"],
  "recommendations": ["rec1", "rec2"]
}`

// Explain sends claim and evidence to the reasoning endpoint and parses the
// structured verdict. Any transport or parse failure is returned as an
// error; callers branch to FallbackVerdict rather than aborting.
func (a *Analyzer) Explain(ctx context.Context, claim *domain.Claim, ev Evidence) (*Verdict, error) {
	payload, err := json.Marshal(map[string]any{
		"claim_details": claim,
		"evidence":      ev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		MaxTokens:   a.maxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("reasoning endpoint error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("reasoning endpoint returned no choices")
	}

	return parseVerdict(resp.Choices[0].Message.Content)
}

// parseVerdict decodes the completion text as a Verdict, tolerating markdown
// code fences around the JSON body.
func parseVerdict(content string) (*Verdict, error) {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("malformed verdict JSON: %w", err)
	}

	switch v.Action {
	case domain.ActionAccept, domain.ActionRequestDocuments, domain.ActionEscalate, domain.ActionReject:
	default:
		return nil, fmt.Errorf("verdict has unknown action %q", v.Action)
	}
	if v.FraudScore < 0 || v.FraudScore > 100 {
		return nil, fmt.Errorf("verdict fraud score %.2f out of range", v.FraudScore)
	}

	return &v, nil
}

// FallbackVerdict synthesizes a verdict from the combined algorithmic score
// when the reasoning endpoint is unavailable. The claim is routed to human
// investigation.
func FallbackVerdict(combinedScore float64, reason error) *Verdict {
	explanation := "AI analysis failed. Using algorithmic score."
	if reason != nil {
		explanation = fmt.Sprintf("AI analysis failed: %v. Using algorithmic score.", reason)
	}
	return &Verdict{
		FraudScore:      combinedScore,
		Explanation:     explanation,
		Action:          domain.ActionEscalate,
		Confidence:      0.3,
		KeyRiskFactors:  []string{"AI analysis unavailable"},
		Recommendations: []string{"Manual review required"},
	}
}
