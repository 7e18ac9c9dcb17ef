package contractanalysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// BuildReportMarkdown renders an analysis result as a standalone markdown
// report suitable for HTML or PDF rendering.
func BuildReportMarkdown(res AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Contract Analysis Report\n\n")
	fmt.Fprintf(&b, "- Document: %s\n", sanitizeLine(res.Filename))
	fmt.Fprintf(&b, "- Analyzed: %s\n", res.Metadata.CompletedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- Clauses: %d\n", res.TotalClauses)
	fmt.Fprintf(&b, "- Risks: %d (overall level: **%s**)\n\n", res.RiskCount, res.RiskSummary.OverallRiskLevel)
	fmt.Fprintf(&b, "%s\n\n", res.Disclaimer)

	fmt.Fprintf(&b, "## Document Summary\n\n")
	if strings.TrimSpace(res.OverallSummary) == "" {
		fmt.Fprintf(&b, "No summary available.\n\n")
	} else {
		fmt.Fprintf(&b, "%s\n\n", res.OverallSummary)
	}

	fmt.Fprintf(&b, "## Risk Overview\n\n")
	if res.RiskCount == 0 {
		fmt.Fprintf(&b, "No risk indicators were detected.\n\n")
	} else {
		fmt.Fprintf(&b, "| Severity | Count |\n|---|---|\n")
		fmt.Fprintf(&b, "| High | %d |\n", res.RiskSummary.HighRisks)
		fmt.Fprintf(&b, "| Medium | %d |\n", res.RiskSummary.MediumRisks)
		fmt.Fprintf(&b, "| Low | %d |\n\n", res.RiskSummary.LowRisks)
		for _, cat := range sortedCategories(res.RiskSummary.Categories) {
			fmt.Fprintf(&b, "- `%s`: %d finding(s)\n", cat, res.RiskSummary.Categories[cat])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Detected Risks\n\n")
	for _, r := range res.Risks {
		fmt.Fprintf(&b, "### %s (%s)\n\n", r.Category, r.Severity)
		fmt.Fprintf(&b, "- Clause: %d\n", r.SegmentIndex+1)
		fmt.Fprintf(&b, "- Confidence: %.2f\n", r.Confidence)
		fmt.Fprintf(&b, "- Excerpt: %s\n\n", sanitizeLine(r.Text))
	}
	if res.RiskCount == 0 {
		fmt.Fprintf(&b, "None.\n\n")
	}

	fmt.Fprintf(&b, "## Clause Breakdown\n\n")
	for _, c := range res.Clauses {
		fmt.Fprintf(&b, "### Clause %d: %s\n\n", c.SegmentIndex+1, c.Type)
		fmt.Fprintf(&b, "- Confidence: %.2f\n", c.Confidence)
		fmt.Fprintf(&b, "- Summary: %s\n\n", sanitizeLine(c.Summary))
	}
	if res.TotalClauses == 0 {
		fmt.Fprintf(&b, "No clauses were identified.\n\n")
	}

	if res.LLMAnalysis != nil {
		appendInsights(&b, res.LLMAnalysis)
	} else if res.Metadata.LLMSkippedReason != "" {
		fmt.Fprintf(&b, "## Legal Insights\n\n")
		fmt.Fprintf(&b, "Not generated (%s).\n\n", res.Metadata.LLMSkippedReason)
	}

	fmt.Fprintf(&b, "## Appendix\n\n")
	fmt.Fprintf(&b, "### Analysis Metadata (JSON)\n\n```json\n%s\n```\n", prettyJSON(res.Metadata))
	return b.String()
}

func appendInsights(b *strings.Builder, in *LLMInsights) {
	fmt.Fprintf(b, "## Legal Insights\n\n")
	fmt.Fprintf(b, "%s\n\n", in.LegalInsights)

	fmt.Fprintf(b, "### Recommendations\n\n")
	for i, r := range in.Recommendations {
		fmt.Fprintf(b, "%d. %s\n", i+1, sanitizeLine(r))
	}
	b.WriteString("\n")

	if len(in.RiskExplanations) > 0 {
		fmt.Fprintf(b, "### Risk Explanations\n\n")
		for _, e := range in.RiskExplanations {
			fmt.Fprintf(b, "- **%s** (%s): %s\n", e.RiskID, e.Severity, sanitizeLine(e.Explanation))
			for _, m := range e.MitigationSuggestions {
				fmt.Fprintf(b, "  - Mitigation: %s\n", sanitizeLine(m))
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "### Compliance Check\n\n")
	fmt.Fprintf(b, "- Score: %.2f\n", in.ComplianceCheck.ComplianceScore)
	fmt.Fprintf(b, "- Assessment: %s\n\n", sanitizeLine(in.ComplianceCheck.Assessment))
}

func sortedCategories(m map[RiskCategory]int) []RiskCategory {
	out := make([]RiskCategory, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sanitizeLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if s == "" {
		return "-"
	}
	return s
}
