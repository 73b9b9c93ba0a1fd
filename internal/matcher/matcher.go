package matcher

import (
	"bytes"
	"regexp"

	"github.com/standardbeagle/tgrep/internal/errors"
	"github.com/standardbeagle/tgrep/internal/searchtypes"
)

// Matcher is a compiled search pattern. Implementations answer both the
// boolean "does this line match" query and the byte-range query used for
// highlighting.
type Matcher interface {
	IsMatch(line []byte) bool
	FindRanges(line []byte) []searchtypes.ByteRange
}

// Compile builds a matcher from a pattern string and options. Fixed-string
// mode escapes all regex metacharacters before compilation so a literal
// query is never reinterpreted as regex. Returns a PatternError carrying
// the regexp diagnostic when the expression is invalid.
func Compile(pattern string, opts searchtypes.MatchOptions) (Matcher, error) {
	// Plain case-sensitive literal search gets the substring fast path
	if opts.FixedString && !opts.WholeWord && !opts.CaseInsensitive {
		return &literalMatcher{needle: []byte(pattern)}, nil
	}

	expr := pattern
	if opts.FixedString {
		expr = regexp.QuoteMeta(pattern)
	}
	if opts.WholeWord {
		expr = `\b(?:` + expr + `)\b`
	}
	if opts.CaseInsensitive {
		expr = `(?i)` + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.NewPatternError(pattern, err)
	}
	return &regexMatcher{re: re}, nil
}

// regexMatcher wraps a compiled Go regexp
type regexMatcher struct {
	re *regexp.Regexp
}

// IsMatch reports whether the line contains a match
func (m *regexMatcher) IsMatch(line []byte) bool {
	return m.re.Match(line)
}

// FindRanges returns the byte spans of all non-overlapping matches
func (m *regexMatcher) FindRanges(line []byte) []searchtypes.ByteRange {
	locs := m.re.FindAllIndex(line, -1)
	if len(locs) == 0 {
		return nil
	}
	ranges := make([]searchtypes.ByteRange, len(locs))
	for i, loc := range locs {
		ranges[i] = searchtypes.ByteRange{Start: loc[0], End: loc[1]}
	}
	return ranges
}

// literalMatcher performs case-sensitive substring search without regex
// machinery. An empty needle matches every line.
type literalMatcher struct {
	needle []byte
}

// IsMatch reports whether the line contains the needle
func (m *literalMatcher) IsMatch(line []byte) bool {
	return bytes.Contains(line, m.needle)
}

// FindRanges returns the byte spans of all non-overlapping occurrences
func (m *literalMatcher) FindRanges(line []byte) []searchtypes.ByteRange {
	if len(m.needle) == 0 {
		return []searchtypes.ByteRange{{Start: 0, End: 0}}
	}

	var ranges []searchtypes.ByteRange
	offset := 0
	for {
		idx := bytes.Index(line[offset:], m.needle)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(m.needle)
		ranges = append(ranges, searchtypes.ByteRange{Start: start, End: end})
		offset = end
	}
	return ranges
}
