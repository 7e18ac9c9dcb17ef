// Package inference defines the model-inference collaborators the analysis
// pipeline depends on. The pipeline treats these as opaque scoring functions;
// implementations must be safe for concurrent use.
package inference

import "context"

// ZeroShotClassifier scores a text against an arbitrary candidate label set
// and returns a probability per label.
type ZeroShotClassifier interface {
	ClassifyZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error)
}

// Summarizer produces an abstractive summary bounded by maxWords.
type Summarizer interface {
	SummarizeText(ctx context.Context, text string, maxWords int) (string, error)
}

// SentimentScorer estimates how favorable a text reads, in [-1, 1] where -1
// is maximally unfavorable.
type SentimentScorer interface {
	ScoreSentiment(ctx context.Context, text string) (float64, error)
}
