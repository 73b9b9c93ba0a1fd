package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgerrors "github.com/standardbeagle/tgrep/internal/errors"
	"github.com/standardbeagle/tgrep/internal/searchtypes"
)

// TestCompile_InvalidPattern verifies regex compilation failures surface as
// PatternError carrying the regexp diagnostic
func TestCompile_InvalidPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{name: "unbalanced group", pattern: "foo("},
		{name: "unbalanced bracket", pattern: "[a-z"},
		{name: "bad repeat", pattern: "*foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern, searchtypes.MatchOptions{})
			require.Error(t, err)

			var pe *tgerrors.PatternError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.pattern, pe.Pattern)
			assert.Error(t, pe.Unwrap())
			assert.Contains(t, pe.Error(), tt.pattern)
		})
	}
}

// TestCompile_FixedStringNeverFails verifies fixed-string mode escapes
// every metacharacter, so any literal compiles and matches only literally
func TestCompile_FixedStringEscaping(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		line    string
		matches bool
	}{
		{name: "dot is literal", pattern: "a.b", line: "axb", matches: false},
		{name: "dot matches itself", pattern: "a.b", line: "a.b and more", matches: true},
		{name: "unbalanced group compiles", pattern: "foo(", line: "call foo(x)", matches: true},
		{name: "star is literal", pattern: "x*y", line: "xxxy", matches: false},
		{name: "star matches itself", pattern: "x*y", line: "ax*yb", matches: true},
		{name: "brackets literal", pattern: "[ok]", line: "status [ok] done", matches: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.pattern, searchtypes.MatchOptions{FixedString: true})
			require.NoError(t, err)
			assert.Equal(t, tt.matches, m.IsMatch([]byte(tt.line)))
		})
	}
}

// TestFindRanges_FixedString verifies every reported range equals an
// occurrence of the literal pattern
func TestFindRanges_FixedString(t *testing.T) {
	patterns := []string{"TODO", "a.b", "(", "x"}
	lines := []string{
		"a TODO here and a TODO there",
		"a.b a.b a.b",
		"f(g(h()))",
		"xxxxx",
		"no occurrences at all",
	}

	for _, pattern := range patterns {
		m, err := Compile(pattern, searchtypes.MatchOptions{FixedString: true})
		require.NoError(t, err)

		for _, line := range lines {
			ranges := m.FindRanges([]byte(line))
			for _, r := range ranges {
				assert.Equal(t, pattern, line[r.Start:r.End],
					"range %v in %q must equal the pattern", r, line)
			}
			// Non-overlapping count must equal strings.Count
			assert.Len(t, ranges, strings.Count(line, pattern))
			assert.Equal(t, len(ranges) > 0, m.IsMatch([]byte(line)))
		}
	}
}

// TestCompile_CaseInsensitive covers the (?i) path for both modes
func TestCompile_CaseInsensitive(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		opts    searchtypes.MatchOptions
		line    string
		matches bool
	}{
		{
			name:    "literal folded",
			pattern: "todo",
			opts:    searchtypes.MatchOptions{FixedString: true, CaseInsensitive: true},
			line:    "a TODO here",
			matches: true,
		},
		{
			name:    "literal not folded",
			pattern: "todo",
			opts:    searchtypes.MatchOptions{FixedString: true},
			line:    "a TODO here",
			matches: false,
		},
		{
			name:    "regex folded",
			pattern: "to+do",
			opts:    searchtypes.MatchOptions{CaseInsensitive: true},
			line:    "TOOODO item",
			matches: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.pattern, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.matches, m.IsMatch([]byte(tt.line)))
		})
	}
}

// TestCompile_WholeWord verifies word-boundary wrapping on both sides
func TestCompile_WholeWord(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		opts    searchtypes.MatchOptions
		line    string
		matches bool
	}{
		{
			name:    "word isolated",
			pattern: "main",
			opts:    searchtypes.MatchOptions{FixedString: true, WholeWord: true},
			line:    "int main()",
			matches: true,
		},
		{
			name:    "word embedded",
			pattern: "main",
			opts:    searchtypes.MatchOptions{FixedString: true, WholeWord: true},
			line:    "domain logic",
			matches: false,
		},
		{
			name:    "alternation wrapped as group",
			pattern: "cat|dog",
			opts:    searchtypes.MatchOptions{WholeWord: true},
			line:    "hotdog stand",
			matches: false,
		},
		{
			name:    "alternation matches isolated word",
			pattern: "cat|dog",
			opts:    searchtypes.MatchOptions{WholeWord: true},
			line:    "walk the dog now",
			matches: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.pattern, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.matches, m.IsMatch([]byte(tt.line)))
		})
	}
}

// TestFindRanges_Regex verifies spans for regex matches
func TestFindRanges_Regex(t *testing.T) {
	m, err := Compile(`[0-9]+`, searchtypes.MatchOptions{})
	require.NoError(t, err)

	line := "port 8080 and port 9090"
	ranges := m.FindRanges([]byte(line))
	require.Len(t, ranges, 2)
	assert.Equal(t, "8080", line[ranges[0].Start:ranges[0].End])
	assert.Equal(t, "9090", line[ranges[1].Start:ranges[1].End])
}

// TestMatcher_EmptyInputs pins down edge behavior on empty lines and
// empty patterns
func TestMatcher_EmptyInputs(t *testing.T) {
	literal, err := Compile("", searchtypes.MatchOptions{FixedString: true})
	require.NoError(t, err)
	assert.True(t, literal.IsMatch([]byte("anything")))
	assert.True(t, literal.IsMatch(nil))

	re, err := Compile("x+", searchtypes.MatchOptions{})
	require.NoError(t, err)
	assert.False(t, re.IsMatch(nil))
	assert.Empty(t, re.FindRanges(nil))
}
