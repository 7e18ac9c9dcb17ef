package contractanalysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/joelkehle/legalscope/internal/inference"
)

const riskExcerptContext = 100

type riskRule struct {
	category RiskCategory
	base     float64
	patterns []*regexp.Regexp
}

// One rule per category. Pattern hits are candidates only; the confirmation
// phase shapes the final confidence from the stance score.
var riskRules = []riskRule{
	{
		category: RiskAutoRenewal,
		base:     0.8,
		patterns: compile(
			`(?i)\bauto(?:mat(?:ic(?:ally)?)?)?[- ]renew(?:al|s|ing)?\b`,
			`(?i)\bautomatically\s+renews?\b`,
			`(?i)\bcontinue\s+unless\s+terminated\b`,
			`(?i)\broll(?:ing)?\s*over\b`,
			`(?i)\bperpetual\b`,
		),
	},
	{
		category: RiskPenaltyFee,
		base:     0.7,
		patterns: compile(
			`(?i)\bpenalt(?:y|ies)\b`,
			`(?i)\blate\s+fee\b`,
			`(?i)\bdefault\s+fee\b`,
			`(?i)\bliquidated\s+damages\b`,
		),
	},
	{
		category: RiskUnlimitedLiability,
		base:     0.9,
		patterns: compile(
			`(?i)\bunlimited\s+liability\b`,
			`(?i)\bno\s+limit(?:ation)?\s+on\s+liability\b`,
			`(?i)\bunlimited\s+damages\b`,
			`(?i)\bwithout\s+limitation\s+of\s+liability\b`,
		),
	},
	{
		category: RiskDataOwnership,
		base:     0.6,
		patterns: compile(
			`(?i)\bdata\s+ownership\b`,
			`(?i)\bownership\s+of\s+(?:all\s+)?data\b`,
			`(?i)\bwork\s+product\b`,
			`(?i)\bderivative\s+works\b`,
		),
	},
	{
		category: RiskTerminationPenalty,
		base:     0.7,
		patterns: compile(
			`(?i)\bearly\s+termination\s+fee\b`,
			`(?i)\bcancellation\s+fee\b`,
			`(?i)\bexit\s+fee\b`,
			`(?i)\btermination\s+penalt(?:y|ies)\b`,
		),
	},
	{
		category: RiskExclusiveTerms,
		base:     0.6,
		patterns: compile(
			`(?i)\bexclusive(?:ly)?\s+(?:deal|provider|supplier|licens)`,
			`(?i)\bexclusivity\b`,
			`(?i)\bshall\s+not\s+engage\s+any\s+other\b`,
		),
	},
	{
		category: RiskUnilateralChanges,
		base:     0.7,
		patterns: compile(
			`(?i)\bunilateral(?:ly)?\b`,
			`(?i)\bsole\s+discretion\b`,
			`(?i)\bmodify\s+(?:these\s+)?terms\s+(?:at\s+any\s+time|without\s+notice)\b`,
		),
	},
	{
		category: RiskConfidentialityBreach,
		base:     0.6,
		patterns: compile(
			`(?i)\bbreach\s+of\s+confidentiality\b`,
			`(?i)\bunauthorized\s+disclosure\b`,
		),
	},
	{
		category: RiskJurisdiction,
		base:     0.6,
		patterns: compile(
			`(?i)\bexclusive\s+jurisdiction\b`,
			`(?i)\bsubmit\s+to\s+the\s+jurisdiction\b`,
			`(?i)\bvenue\s+shall\s+(?:be|lie)\b`,
		),
	},
	{
		category: RiskMandatoryArbitration,
		base:     0.7,
		patterns: compile(
			`(?i)\bbinding\s+arbitration\b`,
			`(?i)\bmandatory\s+arbitration\b`,
			`(?i)\bwaives?\s+(?:\w+\s+){0,5}jury\s+trial\b`,
		),
	},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// RiskDetector runs the two-phase scan: rule matching per segment, then
// confirmation via the stance scorer.
type RiskDetector struct {
	stance inference.SentimentScorer
}

func NewRiskDetector(stance inference.SentimentScorer) *RiskDetector {
	return &RiskDetector{stance: stance}
}

// DetectSegment returns the confirmed risks for a single segment. Multiple
// categories may fire; duplicates within a category collapse to one record.
func (d *RiskDetector) DetectSegment(ctx context.Context, seg ClauseSegment) ([]RiskRecord, error) {
	type hit struct {
		rule riskRule
		loc  []int
	}
	var hits []hit
	for _, rule := range riskRules {
		for _, p := range rule.patterns {
			if loc := p.FindStringIndex(seg.Text); loc != nil {
				hits = append(hits, hit{rule: rule, loc: loc})
				break
			}
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	stance, err := d.stance.ScoreSentiment(ctx, seg.Text)
	if err != nil {
		return nil, fmt.Errorf("stance scoring: %w", err)
	}

	records := make([]RiskRecord, 0, len(hits))
	for _, h := range hits {
		records = append(records, RiskRecord{
			SegmentIndex: seg.Index,
			Category:     h.rule.category,
			Severity:     SeverityFor(h.rule.category),
			Text:         excerpt(seg.Text, h.loc),
			Confidence:   confirmConfidence(h.rule.base, stance),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Category < records[j].Category })
	return records, nil
}

// confirmConfidence folds the stance score into the rule's base confidence.
// stance is in [-1, 1]; fully unfavorable language pushes the confidence up
// to min(base*1.25, 1), fully favorable pulls it down to base*0.75.
func confirmConfidence(base, stance float64) float64 {
	unfavorable := (1 - stance) / 2 // [0, 1]
	c := base * (0.75 + 0.5*unfavorable)
	if c > 1 {
		c = 1
	}
	if floor := base * 0.5; c < floor {
		c = floor
	}
	return c
}

func excerpt(text string, loc []int) string {
	start := loc[0] - riskExcerptContext
	end := loc[1] + riskExcerptContext
	prefix, suffix := "", ""
	if start > 0 {
		start = runeSafeCut(text, start)
		prefix = "..."
	} else {
		start = 0
	}
	if end < len(text) {
		end = runeSafeCut(text, end)
		suffix = "..."
	} else {
		end = len(text)
	}
	return prefix + text[start:end] + suffix
}

// DedupRisks collapses records sharing (segmentIndex, category), keeping the
// first, and orders the result by segment then category.
func DedupRisks(records []RiskRecord) []RiskRecord {
	type key struct {
		segment  int
		category RiskCategory
	}
	seen := map[key]bool{}
	out := make([]RiskRecord, 0, len(records))
	for _, r := range records {
		k := key{r.SegmentIndex, r.Category}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SegmentIndex != out[j].SegmentIndex {
			return out[i].SegmentIndex < out[j].SegmentIndex
		}
		return out[i].Category < out[j].Category
	})
	return out
}
