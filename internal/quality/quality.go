package quality

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLines is the line count above which a CS1 submission is flagged as too long.
const DefaultMaxLines = 60

// Signals holds the objective style measurements of a submission.
type Signals struct {
	Lines        int // non-empty lines
	CodeLines    int
	CommentLines int
	LongestLine  int
}

// HasComments reports whether any comment was found.
func (s Signals) HasComments() bool {
	return s.CommentLines > 0
}

// Scorer computes style heuristics for submissions. It never calls out to a
// generation service, so its verdict is available even when every model call fails.
type Scorer struct {
	MaxLines int
}

// NewScorer returns a Scorer; maxLines <= 0 selects DefaultMaxLines.
func NewScorer(maxLines int) *Scorer {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Scorer{MaxLines: maxLines}
}

// Inspect measures code.
func (s *Scorer) Inspect(code string) Signals {
	var sig Signals
	inBlock := false
	for _, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		sig.Lines++
		if n := utf8.RuneCountInString(strings.TrimRight(raw, " \t\r")); n > sig.LongestLine {
			sig.LongestLine = n
		}

		switch {
		case inBlock:
			sig.CommentLines++
			if closesBlock(line) {
				inBlock = false
			}
		case isLineComment(line):
			sig.CommentLines++
		case blockOpener(line) != "":
			sig.CommentLines++
			inBlock = !closesBlock(strings.TrimPrefix(line, blockOpener(line)))
		default:
			sig.CodeLines++
			if hasTrailingComment(line) {
				sig.CommentLines++
			}
		}
	}
	return sig
}

// NeedsImprovement reports whether code trips the style heuristic: it is longer
// than MaxLines or contains no comments at all.
func (s *Scorer) NeedsImprovement(code string) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	sig := s.Inspect(code)
	return sig.Lines > s.MaxLines || !sig.HasComments()
}

func isLineComment(line string) bool {
	for _, p := range []string{"#", "//", "--"} {
		if strings.HasPrefix(line, p) {
			// "#include" and friends are preprocessor directives, not comments.
			if p == "#" && (strings.HasPrefix(line, "#include") || strings.HasPrefix(line, "#define")) {
				return false
			}
			return true
		}
	}
	return false
}

// blockOpener returns the block comment opener line starts with, or "".
func blockOpener(line string) string {
	for _, p := range []string{"/*", `"""`, "'''"} {
		if strings.HasPrefix(line, p) {
			return p
		}
	}
	return ""
}

func closesBlock(line string) bool {
	return strings.Contains(line, "*/") || strings.Contains(line, `"""`) || strings.Contains(line, "'''")
}

func hasTrailingComment(line string) bool {
	return strings.Contains(line, " //") || strings.Contains(line, " # ") || strings.Contains(line, "/*")
}
