package contractanalysis

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

type fakeStance struct {
	score float64
	err   error

	mu    sync.Mutex
	calls int
}

func (f *fakeStance) ScoreSentiment(_ context.Context, _ string) (float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.score, f.err
}

func TestDetectSegmentAutoRenewal(t *testing.T) {
	stance := &fakeStance{score: -0.8}
	d := NewRiskDetector(stance)
	seg := sampleSegment("This agreement shall automatically renew for successive one-year terms unless either party provides notice.")

	got, err := d.DetectSegment(context.Background(), seg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d risks, want 1", len(got))
	}
	r := got[0]
	if r.Category != RiskAutoRenewal {
		t.Errorf("category = %s, want %s", r.Category, RiskAutoRenewal)
	}
	if r.Severity != SeverityHigh {
		t.Errorf("severity = %s, want high", r.Severity)
	}
	if r.Confidence <= 0.8 {
		t.Errorf("confidence = %v, want confirmation above the 0.8 base for unfavorable language", r.Confidence)
	}
	if stance.calls != 1 {
		t.Errorf("stance scored %d times, want 1 per segment", stance.calls)
	}
}

func TestDetectSegmentNoHitsSkipsStance(t *testing.T) {
	stance := &fakeStance{score: -1}
	d := NewRiskDetector(stance)
	seg := sampleSegment("Notices must be delivered in writing to the addresses listed above.")

	got, err := d.DetectSegment(context.Background(), seg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("got %d risks, want none", len(got))
	}
	if stance.calls != 0 {
		t.Errorf("stance scored %d times for a segment without hits, want 0", stance.calls)
	}
}

func TestDetectSegmentMultipleCategories(t *testing.T) {
	d := NewRiskDetector(&fakeStance{score: 0})
	seg := sampleSegment("The provider may modify terms at any time in its sole discretion, and disputes go to binding arbitration.")

	got, err := d.DetectSegment(context.Background(), seg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d risks, want 2", len(got))
	}
	// Ordered by category within the segment.
	if got[0].Category != RiskMandatoryArbitration || got[1].Category != RiskUnilateralChanges {
		t.Errorf("categories = %s, %s", got[0].Category, got[1].Category)
	}
}

func TestDetectSegmentExcerptKeepsRunesIntact(t *testing.T) {
	d := NewRiskDetector(&fakeStance{score: -0.5})
	// Multi-byte section signs around the match push both excerpt edges
	// into the middle of a rune unless the cut snaps to a boundary.
	text := strings.Repeat("§", 60) + " unlimited liability " + strings.Repeat("§", 60)
	seg := sampleSegment(text)

	got, err := d.DetectSegment(context.Background(), seg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d risks, want 1", len(got))
	}
	if !utf8.ValidString(got[0].Text) {
		t.Errorf("excerpt contains a split rune: %q", got[0].Text)
	}
	if !strings.Contains(got[0].Text, "unlimited liability") {
		t.Errorf("excerpt = %q, want the matched phrase included", got[0].Text)
	}
}

func TestDetectSegmentStanceError(t *testing.T) {
	wantErr := errors.New("stance model down")
	d := NewRiskDetector(&fakeStance{err: wantErr})
	seg := sampleSegment("This agreement includes unlimited liability for the customer.")
	if _, err := d.DetectSegment(context.Background(), seg); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestConfirmConfidence(t *testing.T) {
	tests := []struct {
		name   string
		base   float64
		stance float64
		want   float64
	}{
		{"neutral stance keeps base", 0.8, 0, 0.8},
		{"fully unfavorable boosts", 0.8, -1, 0.96},
		{"fully favorable dampens", 0.8, 1, 0.6},
		{"boost saturates at one", 0.9, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := confirmConfidence(tt.base, tt.stance)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("confirmConfidence(%v, %v) = %v, want %v", tt.base, tt.stance, got, tt.want)
			}
		})
	}
}

func TestDedupRisks(t *testing.T) {
	in := []RiskRecord{
		{SegmentIndex: 2, Category: RiskPenaltyFee, Confidence: 0.7},
		{SegmentIndex: 0, Category: RiskAutoRenewal, Confidence: 0.9},
		{SegmentIndex: 0, Category: RiskAutoRenewal, Confidence: 0.5},
		{SegmentIndex: 0, Category: RiskJurisdiction, Confidence: 0.6},
	}
	got := DedupRisks(in)
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Category != RiskAutoRenewal || got[0].Confidence != 0.9 {
		t.Errorf("first record = %+v, want the first auto_renewal kept", got[0])
	}
	if got[1].Category != RiskJurisdiction {
		t.Errorf("second record = %+v", got[1])
	}
	if got[2].SegmentIndex != 2 {
		t.Errorf("third record = %+v, want segment 2 last", got[2])
	}
}
