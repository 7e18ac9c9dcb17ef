package contractanalysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Section markers: a numbered heading ("3. Termination", "10.2) Fees"), an
// all-caps heading line, or an Article/Section/Clause heading.
var reSectionMarker = regexp.MustCompile(`(?m)^(?:\d+(?:\.\d+)*[.)] +\S|[A-Z][A-Z0-9 &/,'\-]{2,}[.:]? *$|(?i:article|section|clause) +(?:\d+|[IVXLC]+)\b)`)

var reSentenceEnd = regexp.MustCompile(`[.!?]+(?: +|\n|$)`)

type span struct {
	start, end int
}

// Segment splits normalized text into ordered, non-overlapping candidate
// clause spans. Primary split is on explicit section markers; documents with
// fewer than two markers fall back to paragraph boundaries. Spans over the
// size budget are sub-split on sentence boundaries. A document with no
// detectable boundary at all yields one segment spanning the whole text.
func Segment(normalized string) []ClauseSegment {
	if normalized == "" {
		return nil
	}

	var spans []span
	markers := reSectionMarker.FindAllStringIndex(normalized, -1)
	if len(markers) >= 2 {
		spans = splitAtMarkers(normalized, markers)
	} else {
		spans = splitParagraphs(normalized)
	}

	var out []ClauseSegment
	for _, sp := range spans {
		for _, sub := range subSplit(normalized, sp) {
			trimmed := trimSpan(normalized, sub)
			if trimmed.end-trimmed.start < MinSegmentChars {
				continue
			}
			out = append(out, ClauseSegment{
				Index:       len(out),
				StartOffset: trimmed.start,
				EndOffset:   trimmed.end,
				Text:        normalized[trimmed.start:trimmed.end],
			})
		}
	}

	// Every non-empty document yields at least one segment.
	if len(out) == 0 {
		out = append(out, ClauseSegment{
			Index:       0,
			StartOffset: 0,
			EndOffset:   len(normalized),
			Text:        normalized,
		})
	}
	return out
}

func splitAtMarkers(text string, markers [][]int) []span {
	bounds := make([]int, 0, len(markers)+2)
	bounds = append(bounds, 0)
	for _, m := range markers {
		if m[0] != 0 {
			bounds = append(bounds, m[0])
		}
	}
	bounds = append(bounds, len(text))

	spans := make([]span, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		if bounds[i] < bounds[i+1] {
			spans = append(spans, span{bounds[i], bounds[i+1]})
		}
	}
	return spans
}

func splitParagraphs(text string) []span {
	var spans []span
	start := 0
	for {
		idx := strings.Index(text[start:], "\n\n")
		if idx < 0 {
			spans = append(spans, span{start, len(text)})
			return spans
		}
		spans = append(spans, span{start, start + idx})
		start += idx + 2
	}
}

// subSplit breaks a span exceeding the size budget on sentence boundaries,
// packing sentences until the budget would overflow. A single sentence over
// the budget is hard-cut at the budget.
func subSplit(text string, sp span) []span {
	if sp.end-sp.start <= MaxSegmentChars {
		return []span{sp}
	}

	body := text[sp.start:sp.end]
	ends := reSentenceEnd.FindAllStringIndex(body, -1)

	var cuts []int
	for _, e := range ends {
		cuts = append(cuts, e[1])
	}
	if len(cuts) == 0 || cuts[len(cuts)-1] != len(body) {
		cuts = append(cuts, len(body))
	}

	var out []span
	chunkStart := 0
	prev := 0
	for _, cut := range cuts {
		if cut-chunkStart > MaxSegmentChars && prev > chunkStart {
			out = append(out, span{sp.start + chunkStart, sp.start + prev})
			chunkStart = prev
		}
		// A lone oversized sentence gets hard-cut at a rune boundary.
		for cut-chunkStart > MaxSegmentChars {
			hard := runeSafeCut(body, chunkStart+MaxSegmentChars)
			out = append(out, span{sp.start + chunkStart, sp.start + hard})
			chunkStart = hard
		}
		prev = cut
	}
	if chunkStart < len(body) {
		out = append(out, span{sp.start + chunkStart, sp.end})
	}
	return out
}

func trimSpan(text string, sp span) span {
	start, end := sp.start, sp.end
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return span{start, end}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}

// runeSafeCut backs i off to the nearest rune start so slicing at the
// returned index never splits a multi-byte character.
func runeSafeCut(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
