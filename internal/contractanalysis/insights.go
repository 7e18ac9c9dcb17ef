package contractanalysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const insightsSystemPrompt = "You are a legal analyst reviewing structured findings produced by an automated contract analysis pipeline. Provide clear, practical guidance for business users. Respond with strict JSON only."

const insightsSchemaPrompt = `Required JSON schema:
{
  "legal_insights": "string (50-3000 chars): key implications, unusual terms, overall fairness",
  "recommendations": ["string (1-10 entries, each 10-300 chars, actionable)"],
  "risk_explanations": [
    {
      "risk_id": "string (echo the risk id given in the input)",
      "severity": "high | medium | low",
      "explanation": "string (plain-language business impact)",
      "mitigation_suggestions": ["string (1-5 entries)"]
    }
  ],
  "compliance_check": {
    "assessment": "string (compliance concerns and missing standard clauses)",
    "compliance_score": "float (0.0-1.0)"
  }
}`

// Prompt payload bounds. The synthesizer never sees the raw document.
const (
	promptSummaryChars = 1200
	promptEntryChars   = 200
	promptMaxClauses   = 30
	promptMaxRisks     = 30
)

type llmFailureClass int

const (
	failureTimeout llmFailureClass = iota
	failureRateLimit
	failureServer
	failureClient
)

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// NewAnthropicCallerFromEnv returns a caller backed by the Anthropic API, or
// an error when no credential is configured. Callers treat the error as
// "LLM stage unavailable", not as fatal.
func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey)}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: insightsSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

type SynthesizerConfig struct {
	Timeout     time.Duration
	MaxAttempts int
}

// InsightSynthesizer is the optional LLM stage. Any failure here is soft:
// the caller logs it and returns the structural result without insights.
type InsightSynthesizer struct {
	caller LLMCaller
	cfg    SynthesizerConfig
}

func NewInsightSynthesizer(caller LLMCaller, cfg SynthesizerConfig) *InsightSynthesizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	return &InsightSynthesizer{caller: caller, cfg: cfg}
}

func (s *InsightSynthesizer) Synthesize(ctx context.Context, overallSummary string, clauses []ClauseRecord, risks []RiskRecord) (*LLMInsights, error) {
	prompt := buildInsightPrompt(overallSummary, clauses, risks)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		raw, err := s.caller.GenerateJSON(callCtx, prompt)
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			switch classifyTransportError(err) {
			case failureTimeout, failureRateLimit, failureServer:
				if attempt < s.cfg.MaxAttempts {
					time.Sleep(backoffDelay(attempt))
					continue
				}
			}
			return nil, fmt.Errorf("llm transport failure: %w", err)
		}

		insights, err := parseInsights(raw)
		if err != nil {
			return nil, fmt.Errorf("llm response parse: %w", err)
		}
		return insights, nil
	}
	return nil, fmt.Errorf("llm failed after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}

func buildInsightPrompt(overallSummary string, clauses []ClauseRecord, risks []RiskRecord) string {
	var b strings.Builder
	b.WriteString("Synthesize legal insights from this contract analysis.\n\n")
	b.WriteString(insightsSchemaPrompt)
	b.WriteString("\n\nDocument summary:\n")
	b.WriteString(clip(overallSummary, promptSummaryChars))

	b.WriteString("\n\nClauses:\n")
	for i, c := range clauses {
		if i >= promptMaxClauses {
			fmt.Fprintf(&b, "- (%d more clauses omitted)\n", len(clauses)-promptMaxClauses)
			break
		}
		fmt.Fprintf(&b, "- [%s] (confidence %.2f) %s\n", c.Type, c.Confidence, clip(c.Summary, promptEntryChars))
	}

	b.WriteString("\nRisks:\n")
	if len(risks) == 0 {
		b.WriteString("- none detected\n")
	}
	for i, r := range risks {
		if i >= promptMaxRisks {
			fmt.Fprintf(&b, "- (%d more risks omitted)\n", len(risks)-promptMaxRisks)
			break
		}
		fmt.Fprintf(&b, "- id=%s severity=%s confidence=%.2f: %s\n", riskID(r), r.Severity, r.Confidence, clip(r.Text, promptEntryChars))
	}

	b.WriteString("\nRespond with only valid JSON matching the schema.")
	return b.String()
}

func riskID(r RiskRecord) string {
	return fmt.Sprintf("%s@%d", r.Category, r.SegmentIndex)
}

func parseInsights(raw string) (*LLMInsights, error) {
	clean := stripCodeFences(raw)
	if strings.TrimSpace(clean) == "" {
		return nil, errors.New("empty response")
	}
	var out LLMInsights
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, err
	}
	if err := validateInsights(out); err != nil {
		return nil, err
	}
	return &out, nil
}

func validateInsights(in LLMInsights) error {
	if strings.TrimSpace(in.LegalInsights) == "" {
		return errors.New("legal_insights is empty")
	}
	if len(in.Recommendations) == 0 || len(in.Recommendations) > 10 {
		return fmt.Errorf("recommendations count %d out of range", len(in.Recommendations))
	}
	for _, r := range in.Recommendations {
		if strings.TrimSpace(r) == "" {
			return errors.New("empty recommendation entry")
		}
	}
	for _, e := range in.RiskExplanations {
		if strings.TrimSpace(e.RiskID) == "" {
			return errors.New("risk explanation missing risk_id")
		}
		switch e.Severity {
		case SeverityHigh, SeverityMedium, SeverityLow:
		default:
			return fmt.Errorf("invalid severity %q in risk explanation", e.Severity)
		}
	}
	if in.ComplianceCheck.ComplianceScore < 0 || in.ComplianceCheck.ComplianceScore > 1 {
		return fmt.Errorf("compliance_score %v out of range", in.ComplianceCheck.ComplianceScore)
	}
	return nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func classifyTransportError(err error) llmFailureClass {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	switch {
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, "status code: 4"):
		return failureClient
	default:
		return failureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:runeSafeCut(s, max)] + "..."
}
