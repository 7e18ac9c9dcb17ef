package contractanalysis

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrEmptyDocument signals that the input contained no analyzable text.
var ErrEmptyDocument = errors.New("document contains no analyzable text")

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans raw extracted text for segmentation. Redundant whitespace
// collapses to single spaces, non-printable extraction artifacts are dropped,
// and paragraph boundaries (blank lines) survive because the segmenter keys
// on them.
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyDocument
	}

	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "§", "Section ")
	s = strings.ReplaceAll(s, "¶", "Paragraph ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsPrint(r):
			b.WriteRune(r)
		}
	}
	s = b.String()

	s = reSpaces.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	s = strings.Join(lines, "\n")
	s = reNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyDocument
	}
	return s, nil
}
