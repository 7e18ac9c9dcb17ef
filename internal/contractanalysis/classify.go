package contractanalysis

import (
	"context"
	"fmt"

	"github.com/joelkehle/legalscope/internal/inference"
)

type Classification struct {
	Type       ClauseType `json:"type"`
	Confidence float64    `json:"confidence"`
}

// Classifier assigns each segment a clause type from the fixed taxonomy by
// delegating scoring to a zero-shot collaborator and taking the argmax.
// Stateless between calls.
type Classifier struct {
	scorer   inference.ZeroShotClassifier
	taxonomy []ClauseType
}

func NewClassifier(scorer inference.ZeroShotClassifier) *Classifier {
	return &Classifier{scorer: scorer, taxonomy: ClauseTaxonomy}
}

// Classify scores a segment against the taxonomy. A result below the
// confidence floor is tagged "Other" with the confidence still reported;
// the floor itself is accepted.
func (c *Classifier) Classify(ctx context.Context, seg ClauseSegment) (Classification, error) {
	if len(c.taxonomy) == 0 {
		return Classification{}, fmt.Errorf("empty clause taxonomy")
	}

	text := seg.Text
	if len(text) > MaxSegmentChars {
		text = text[:runeSafeCut(text, MaxSegmentChars)]
	}

	labels := make([]string, len(c.taxonomy))
	for i, t := range c.taxonomy {
		labels[i] = string(t)
	}
	scores, err := c.scorer.ClassifyZeroShot(ctx, text, labels)
	if err != nil {
		return Classification{}, fmt.Errorf("zero-shot scoring: %w", err)
	}

	// Argmax in taxonomy order so ties resolve the same way every run.
	best := Classification{Type: ClauseOther, Confidence: -1}
	for _, t := range c.taxonomy {
		if score, ok := scores[string(t)]; ok && score > best.Confidence {
			best = Classification{Type: t, Confidence: score}
		}
	}
	if best.Confidence < 0 {
		return Classification{}, fmt.Errorf("zero-shot scores missing all taxonomy labels")
	}
	if best.Confidence < ClassifierConfidenceFloor {
		best.Type = ClauseOther
	}
	return best, nil
}
