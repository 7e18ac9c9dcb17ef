package contractanalysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func StageNameFromError(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "pipeline"
}

type StageProgressFn func(stage, message string)

func emit(progress StageProgressFn, stage, message string) {
	if progress != nil {
		progress(stage, message)
	}
}

// Pipeline wires the stages together: normalize, segment, then the
// per-segment fan-out (classify, summarize, risk scan), a document summary,
// aggregation, and the optional insight synthesis. The synthesizer may be
// nil; Options.EnableLLM is then ignored.
type Pipeline struct {
	classifier  *Classifier
	summaries   *SummaryWriter
	risks       *RiskDetector
	synthesizer *InsightSynthesizer
	concurrency int
}

func NewPipeline(classifier *Classifier, summaries *SummaryWriter, risks *RiskDetector, synthesizer *InsightSynthesizer) *Pipeline {
	return &Pipeline{
		classifier:  classifier,
		summaries:   summaries,
		risks:       risks,
		synthesizer: synthesizer,
		concurrency: DefaultSegmentConcurrency,
	}
}

// SetConcurrency bounds the per-segment fan-out. Values below 1 are ignored.
func (p *Pipeline) SetConcurrency(n int) {
	if n >= 1 {
		p.concurrency = n
	}
}

func (p *Pipeline) Analyze(ctx context.Context, filename, rawText string, opts Options) (AnalysisResult, error) {
	return p.analyzeWithProgress(ctx, filename, rawText, opts, nil)
}

func (p *Pipeline) AnalyzeWithProgress(ctx context.Context, filename, rawText string, opts Options, progress StageProgressFn) (AnalysisResult, error) {
	return p.analyzeWithProgress(ctx, filename, rawText, opts, progress)
}

// segmentOutput collects the per-segment stage results so the fan-out can
// write by index and the aggregator can read in document order.
type segmentOutput struct {
	classification Classification
	summary        string
	risks          []RiskRecord
}

func (p *Pipeline) analyzeWithProgress(ctx context.Context, filename, rawText string, opts Options, progress StageProgressFn) (AnalysisResult, error) {
	res := AnalysisResult{
		Filename:   filename,
		Disclaimer: Disclaimer,
		Metadata:   AnalysisMetadata{StartedAt: time.Now()},
	}

	truncated := false
	if len(rawText) > MaxRawTextChars {
		rawText = rawText[:runeSafeCut(rawText, MaxRawTextChars)]
		truncated = true
	}
	res.Metadata.InputTruncated = truncated

	emit(progress, "normalize", "Normalizing document text...")
	normalized, err := Normalize(rawText)
	if err != nil {
		if errors.Is(err, ErrEmptyDocument) {
			// An empty document is a valid, empty analysis.
			res.Metadata.EmptyInput = true
			res.Metadata.LLMSkippedReason = "empty input"
			return p.finalize(res, nil, nil), nil
		}
		return res, &StageError{Stage: "normalize", Err: err}
	}

	emit(progress, "segment", "Segmenting into candidate clauses...")
	segments := Segment(normalized)
	res.Metadata.SegmentCount = len(segments)
	emit(progress, "segment", fmt.Sprintf("Found %d candidate clauses", len(segments)))

	emit(progress, "analyze_segments", "Classifying, summarizing, and scanning segments...")
	outputs := make([]segmentOutput, len(segments))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, p.concurrency)

	// Document summary runs alongside the per-segment work.
	var docSummary string
	var docErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		docSummary, docErr = p.summaries.SummarizeDocument(ctx, normalized)
	}()

	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg ClauseSegment) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, err := p.analyzeSegment(ctx, seg)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			outputs[i] = out
		}(i, seg)
	}
	wg.Wait()

	if firstErr != nil {
		return res, firstErr
	}
	if docErr != nil {
		return res, &StageError{Stage: "summarize", Err: docErr}
	}
	if err := ctx.Err(); err != nil {
		return res, &StageError{Stage: "analyze_segments", Err: err}
	}
	res.OverallSummary = docSummary

	clauses := make([]ClauseRecord, 0, len(segments))
	var allRisks []RiskRecord
	for i := range outputs {
		// Below-floor segments carry the Other tag: they stay visible to
		// the risk scan but never enter the clause list.
		if outputs[i].classification.Type != ClauseOther {
			clauses = append(clauses, ClauseRecord{
				SegmentIndex: segments[i].Index,
				Type:         outputs[i].classification.Type,
				Summary:      outputs[i].summary,
				Confidence:   outputs[i].classification.Confidence,
			})
		}
		allRisks = append(allRisks, outputs[i].risks...)
	}
	riskRecords := DedupRisks(allRisks)

	if opts.EnableLLM && p.synthesizer != nil {
		emit(progress, "synthesize", "Generating legal insights...")
		insights, err := p.synthesizer.Synthesize(ctx, docSummary, clauses, riskRecords)
		if err != nil {
			if ctx.Err() != nil {
				return res, &StageError{Stage: "synthesize", Err: ctx.Err()}
			}
			// Soft degradation: the structural result stands on its own.
			res.Metadata.LLMSkippedReason = fmt.Sprintf("synthesis failed: %v", err)
			emit(progress, "synthesize", "Insight synthesis unavailable, continuing without it")
		} else {
			res.LLMAnalysis = insights
		}
	} else if opts.EnableLLM {
		res.Metadata.LLMSkippedReason = "no LLM caller configured"
	} else {
		res.Metadata.LLMSkippedReason = "disabled"
	}

	return p.finalize(res, clauses, riskRecords), nil
}

func (p *Pipeline) analyzeSegment(ctx context.Context, seg ClauseSegment) (segmentOutput, error) {
	var out segmentOutput

	cls, err := p.classifier.Classify(ctx, seg)
	if err != nil {
		return out, &StageError{Stage: "classify", Err: fmt.Errorf("segment %d: %w", seg.Index, err)}
	}
	out.classification = cls

	// Dropped segments never surface a summary, so skip the model call.
	if cls.Type != ClauseOther {
		summary, err := p.summaries.SummarizeClause(ctx, seg.Text)
		if err != nil {
			return out, &StageError{Stage: "summarize", Err: fmt.Errorf("segment %d: %w", seg.Index, err)}
		}
		out.summary = summary
	}

	risks, err := p.risks.DetectSegment(ctx, seg)
	if err != nil {
		return out, &StageError{Stage: "risk_detect", Err: fmt.Errorf("segment %d: %w", seg.Index, err)}
	}
	out.risks = risks
	return out, nil
}

func (p *Pipeline) finalize(res AnalysisResult, clauses []ClauseRecord, risks []RiskRecord) AnalysisResult {
	if clauses == nil {
		clauses = []ClauseRecord{}
	}
	if risks == nil {
		risks = []RiskRecord{}
	}
	res.Clauses = clauses
	res.Risks = risks
	res.TotalClauses = len(clauses)
	res.RiskCount = len(risks)
	res.RiskSummary = summarizeRisks(risks)
	res.ClauseStats = summarizeClauses(clauses)
	res.Metadata.CompletedAt = time.Now()
	return res
}

// summarizeRisks rolls the individual findings into counts and an overall
// level: high if any high finding exists, medium when more than two medium
// findings pile up, otherwise low.
func summarizeRisks(risks []RiskRecord) RiskSummary {
	s := RiskSummary{
		TotalRisks: len(risks),
		Categories: map[RiskCategory]int{},
	}
	for _, r := range risks {
		s.Categories[r.Category]++
		switch r.Severity {
		case SeverityHigh:
			s.HighRisks++
		case SeverityMedium:
			s.MediumRisks++
		default:
			s.LowRisks++
		}
	}
	switch {
	case s.HighRisks > 0:
		s.OverallRiskLevel = SeverityHigh
	case s.MediumRisks > 2:
		s.OverallRiskLevel = SeverityMedium
	default:
		s.OverallRiskLevel = SeverityLow
	}
	return s
}

func summarizeClauses(clauses []ClauseRecord) ClauseStats {
	stats := ClauseStats{TypeDistribution: map[ClauseType]int{}}
	for _, c := range clauses {
		stats.TypeDistribution[c.Type]++
	}
	if len(stats.TypeDistribution) == 0 {
		return stats
	}
	types := make([]ClauseType, 0, len(stats.TypeDistribution))
	for t := range stats.TypeDistribution {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	best := types[0]
	for _, t := range types[1:] {
		if stats.TypeDistribution[t] > stats.TypeDistribution[best] {
			best = t
		}
	}
	stats.MostCommonType = best
	return stats
}
