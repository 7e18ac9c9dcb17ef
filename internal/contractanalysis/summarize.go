package contractanalysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/joelkehle/legalscope/internal/inference"
)

// Text shorter than this is returned verbatim instead of being sent to the
// summarization model.
const minSummarizeChars = 100

// SummaryWriter produces abstractive summaries via the summarization
// collaborator. Input beyond the collaborator's budget is chunked on
// sentence boundaries, summarized per chunk, and the concatenation is
// re-summarized so nothing is silently truncated.
type SummaryWriter struct {
	summarizer inference.Summarizer
}

func NewSummaryWriter(s inference.Summarizer) *SummaryWriter {
	return &SummaryWriter{summarizer: s}
}

func (w *SummaryWriter) SummarizeClause(ctx context.Context, text string) (string, error) {
	return w.summarize(ctx, text, ClauseSummaryMaxWords)
}

func (w *SummaryWriter) SummarizeDocument(ctx context.Context, normalized string) (string, error) {
	return w.summarize(ctx, normalized, DocumentSummaryMaxWords)
}

func (w *SummaryWriter) summarize(ctx context.Context, text string, maxWords int) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) < minSummarizeChars {
		return text, nil
	}

	for pass := 0; pass < 3; pass++ {
		if len(text) <= MaxSegmentChars {
			out, err := w.summarizer.SummarizeText(ctx, text, maxWords)
			if err != nil {
				return "", fmt.Errorf("summarize: %w", err)
			}
			return polishSummary(out), nil
		}
		chunks := chunkText(text)
		parts := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			part, err := w.summarizer.SummarizeText(ctx, chunk, maxWords)
			if err != nil {
				return "", fmt.Errorf("summarize chunk: %w", err)
			}
			parts = append(parts, strings.TrimSpace(part))
		}
		text = strings.Join(parts, " ")
	}

	if len(text) > MaxSegmentChars {
		text = text[:runeSafeCut(text, MaxSegmentChars)]
	}
	out, err := w.summarizer.SummarizeText(ctx, text, maxWords)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return polishSummary(out), nil
}

// chunkText splits text into sentence-aligned chunks within the segment
// size budget.
func chunkText(text string) []string {
	spans := subSplit(text, span{0, len(text)})
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		chunk := strings.TrimSpace(text[sp.start:sp.end])
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func polishSummary(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
