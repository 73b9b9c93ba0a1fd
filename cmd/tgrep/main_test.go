package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/tgrep/internal/searchtypes"
)

func TestSplitRoots(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{name: "empty", values: nil, want: nil},
		{name: "single", values: []string{"src"}, want: []string{"src"}},
		{name: "semicolon list", values: []string{"src;docs;vendor"}, want: []string{"src", "docs", "vendor"}},
		{name: "repeated flags", values: []string{"src", "docs"}, want: []string{"src", "docs"}},
		{name: "mixed", values: []string{"a;b", "c"}, want: []string{"a", "b", "c"}},
		{name: "blank segments dropped", values: []string{"a;;  ;b"}, want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitRoots(tt.values))
		})
	}
}

func TestSplitGlobs(t *testing.T) {
	tests := []struct {
		name    string
		globs   string
		include []string
		exclude []string
	}{
		{name: "empty", globs: ""},
		{name: "includes only", globs: "*.go *.md", include: []string{"*.go", "*.md"}},
		{name: "mixed", globs: "*.rs !target/** !*.lock", include: []string{"*.rs"}, exclude: []string{"target/**", "*.lock"}},
		{name: "bare bang dropped", globs: "! *.c", include: []string{"*.c"}},
		{name: "extra whitespace", globs: "  *.go   !vendor/**  ", include: []string{"*.go"}, exclude: []string{"vendor/**"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc, exc := splitGlobs(tt.globs)
			assert.Equal(t, tt.include, inc)
			assert.Equal(t, tt.exclude, exc)
		})
	}
}

func TestParseStageSpec(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want searchtypes.StageSpec
	}{
		{
			name: "plain literal",
			spec: "helper",
			want: searchtypes.StageSpec{
				Pattern: "helper",
				Options: searchtypes.MatchOptions{FixedString: true},
			},
		},
		{
			name: "invert prefix",
			spec: "v:helper",
			want: searchtypes.StageSpec{
				Pattern: "helper",
				Options: searchtypes.MatchOptions{FixedString: true, InvertMatch: true},
			},
		},
		{
			name: "combined prefix",
			spec: "ivw:main",
			want: searchtypes.StageSpec{
				Pattern: "main",
				Options: searchtypes.MatchOptions{
					FixedString:     true,
					CaseInsensitive: true,
					InvertMatch:     true,
					WholeWord:       true,
				},
			},
		},
		{
			name: "regex prefix disables literal mode",
			spec: "r:fn\\s+\\w+",
			want: searchtypes.StageSpec{
				Pattern: "fn\\s+\\w+",
				Options: searchtypes.MatchOptions{},
			},
		},
		{
			name: "unknown prefix is part of the pattern",
			spec: "x:value",
			want: searchtypes.StageSpec{
				Pattern: "x:value",
				Options: searchtypes.MatchOptions{FixedString: true},
			},
		},
		{
			name: "colon later in pattern is untouched",
			spec: "key:value:pair",
			want: searchtypes.StageSpec{
				Pattern: "key:value:pair",
				Options: searchtypes.MatchOptions{FixedString: true},
			},
		},
		{
			name: "leading colon keeps whole value",
			spec: ":anchored",
			want: searchtypes.StageSpec{
				Pattern: ":anchored",
				Options: searchtypes.MatchOptions{FixedString: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseStageSpec(tt.spec))
		})
	}
}
