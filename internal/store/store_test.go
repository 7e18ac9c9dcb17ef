package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/joelkehle/legalscope/internal/contractanalysis"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testResult(filename string) contractanalysis.AnalysisResult {
	return contractanalysis.AnalysisResult{
		Filename:       filename,
		OverallSummary: "A short services agreement.",
		Clauses: []contractanalysis.ClauseRecord{
			{SegmentIndex: 0, Type: contractanalysis.ClauseTermination, Summary: "Auto-renews.", Confidence: 0.8},
		},
		Risks: []contractanalysis.RiskRecord{
			{SegmentIndex: 0, Category: contractanalysis.RiskAutoRenewal, Severity: contractanalysis.SeverityHigh, Text: "automatically renew", Confidence: 0.9},
		},
		TotalClauses: 1,
		RiskCount:    1,
		RiskSummary: contractanalysis.RiskSummary{
			TotalRisks: 1, HighRisks: 1,
			Categories:       map[contractanalysis.RiskCategory]int{contractanalysis.RiskAutoRenewal: 1},
			OverallRiskLevel: contractanalysis.SeverityHigh,
		},
		Disclaimer: contractanalysis.Disclaimer,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "id-1", testResult("msa.txt")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Filename != "msa.txt" || got.TotalClauses != 1 || got.RiskCount != 1 {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.Risks[0].Category != contractanalysis.RiskAutoRenewal {
		t.Errorf("risk category = %s", got.Risks[0].Category)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, id, testResult(id+".txt")); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	records, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for _, rec := range records {
		if rec.RiskLevel != "high" {
			t.Errorf("record %s risk level = %q", rec.ID, rec.RiskLevel)
		}
		if rec.CreatedAt.IsZero() {
			t.Errorf("record %s has zero created_at", rec.ID)
		}
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "id-1", testResult("msa.txt")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(ctx, "id-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "id-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "id-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
