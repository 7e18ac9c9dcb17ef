package contractanalysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeCaller struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	var resp string
	if idx < len(f.responses) {
		resp = f.responses[idx]
	}
	return resp, err
}

const validInsightsJSON = `{
	"legal_insights": "The contract is broadly one-sided in favor of the provider.",
	"recommendations": ["Negotiate a liability cap", "Remove the auto-renewal clause"],
	"risk_explanations": [
		{
			"risk_id": "auto_renewal@0",
			"severity": "high",
			"explanation": "The contract renews without an opt-in.",
			"mitigation_suggestions": ["Require written renewal confirmation"]
		}
	],
	"compliance_check": {
		"assessment": "No major compliance gaps, but a data-processing addendum is missing.",
		"compliance_score": 0.7
	}
}`

func sampleClausesAndRisks() ([]ClauseRecord, []RiskRecord) {
	clauses := []ClauseRecord{
		{SegmentIndex: 0, Type: ClauseTermination, Summary: "Auto-renews annually.", Confidence: 0.8},
	}
	risks := []RiskRecord{
		{SegmentIndex: 0, Category: RiskAutoRenewal, Severity: SeverityHigh, Text: "automatically renew", Confidence: 0.9},
	}
	return clauses, risks
}

func TestSynthesizeParsesValidResponse(t *testing.T) {
	caller := &fakeCaller{responses: []string{validInsightsJSON}}
	s := NewInsightSynthesizer(caller, SynthesizerConfig{})
	clauses, risks := sampleClausesAndRisks()

	got, err := s.Synthesize(context.Background(), "A services agreement.", clauses, risks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LegalInsights == "" || len(got.Recommendations) != 2 {
		t.Errorf("insights not populated: %+v", got)
	}
	if got.ComplianceCheck.ComplianceScore != 0.7 {
		t.Errorf("compliance score = %v, want 0.7", got.ComplianceCheck.ComplianceScore)
	}
	if caller.calls != 1 {
		t.Errorf("caller invoked %d times, want 1", caller.calls)
	}
}

func TestSynthesizeStripsCodeFences(t *testing.T) {
	caller := &fakeCaller{responses: []string{"```json\n" + validInsightsJSON + "\n```"}}
	s := NewInsightSynthesizer(caller, SynthesizerConfig{})
	clauses, risks := sampleClausesAndRisks()

	if _, err := s.Synthesize(context.Background(), "summary", clauses, risks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSynthesizePromptCarriesStructuralFindings(t *testing.T) {
	caller := &fakeCaller{responses: []string{validInsightsJSON}}
	s := NewInsightSynthesizer(caller, SynthesizerConfig{})
	clauses, risks := sampleClausesAndRisks()

	if _, err := s.Synthesize(context.Background(), "A services agreement.", clauses, risks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := caller.prompts[0]
	for _, want := range []string{"A services agreement.", "Termination", "auto_renewal@0"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSynthesizeRetriesTransientFailure(t *testing.T) {
	caller := &fakeCaller{
		errs:      []error{errors.New("request failed with status code: 503")},
		responses: []string{"", validInsightsJSON},
	}
	s := NewInsightSynthesizer(caller, SynthesizerConfig{Timeout: time.Second})
	clauses, risks := sampleClausesAndRisks()

	got, err := s.Synthesize(context.Background(), "summary", clauses, risks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected insights after retry")
	}
	if caller.calls != 2 {
		t.Errorf("caller invoked %d times, want 2", caller.calls)
	}
}

// blockingCaller hangs until the per-attempt deadline fires.
type blockingCaller struct {
	calls int
}

func (b *blockingCaller) GenerateJSON(ctx context.Context, _ string) (string, error) {
	b.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestSynthesizeTimeoutExhaustsRetries(t *testing.T) {
	caller := &blockingCaller{}
	s := NewInsightSynthesizer(caller, SynthesizerConfig{Timeout: 20 * time.Millisecond})
	clauses, risks := sampleClausesAndRisks()

	if _, err := s.Synthesize(context.Background(), "summary", clauses, risks); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if caller.calls != 2 {
		t.Errorf("caller invoked %d times, want 2", caller.calls)
	}
}

func TestSynthesizeDoesNotRetryClientError(t *testing.T) {
	caller := &fakeCaller{errs: []error{errors.New("request failed with status code: 400")}}
	s := NewInsightSynthesizer(caller, SynthesizerConfig{Timeout: time.Second})
	clauses, risks := sampleClausesAndRisks()

	if _, err := s.Synthesize(context.Background(), "summary", clauses, risks); err == nil {
		t.Fatal("expected error")
	}
	if caller.calls != 1 {
		t.Errorf("caller invoked %d times, want 1 for non-transient failure", caller.calls)
	}
}

func TestSynthesizeRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "this is prose, not JSON"},
		{"empty insights", `{"legal_insights":"","recommendations":["x"],"compliance_check":{"assessment":"a","compliance_score":0.5}}`},
		{"no recommendations", `{"legal_insights":"ok","recommendations":[],"compliance_check":{"assessment":"a","compliance_score":0.5}}`},
		{"bad severity", `{"legal_insights":"ok","recommendations":["x"],"risk_explanations":[{"risk_id":"r","severity":"critical","explanation":"e"}],"compliance_check":{"assessment":"a","compliance_score":0.5}}`},
		{"score out of range", `{"legal_insights":"ok","recommendations":["x"],"compliance_check":{"assessment":"a","compliance_score":1.5}}`},
	}
	clauses, risks := sampleClausesAndRisks()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewInsightSynthesizer(&fakeCaller{responses: []string{tt.body}}, SynthesizerConfig{})
			if _, err := s.Synthesize(context.Background(), "summary", clauses, risks); err == nil {
				t.Error("expected parse/validation error")
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	if got := stripCodeFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Errorf("got %q", got)
	}
	if got := stripCodeFences(`{"a":1}`); got != `{"a":1}` {
		t.Errorf("unfenced input changed: %q", got)
	}
}
