package filter

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// IgnoreRules holds the parsed patterns of one ignore file (.gitignore).
// Rules apply to paths relative to the directory containing the file.
type IgnoreRules struct {
	// BaseDir is the directory the rules were loaded from, relative to
	// the search root ("" for the root itself), slash-separated.
	BaseDir  string
	patterns []ignorePattern
}

type ignorePattern struct {
	raw      string
	negate   bool
	dirOnly  bool
	anchored bool
	compiled *regexp.Regexp // nil for literal patterns
}

// LoadIgnoreRules reads a .gitignore file from dir on the given filesystem.
// A missing file yields nil rules, which is not an error.
func LoadIgnoreRules(fs afero.Fs, dir, baseDir string) (*IgnoreRules, error) {
	content, err := afero.ReadFile(fs, filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil, nil // no ignore file here
	}
	return ParseIgnoreRules(content, baseDir), nil
}

// ParseIgnoreRules parses ignore-file content. Empty lines and comments
// are skipped.
func ParseIgnoreRules(content []byte, baseDir string) *IgnoreRules {
	rules := &IgnoreRules{BaseDir: baseDir}

	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules.patterns = append(rules.patterns, parseIgnorePattern(line))
	}
	return rules
}

// Empty reports whether the file contained no usable patterns
func (r *IgnoreRules) Empty() bool {
	return r == nil || len(r.patterns) == 0
}

func parseIgnorePattern(line string) ignorePattern {
	p := ignorePattern{}

	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	// A slash anywhere except the end anchors the pattern to the base dir
	if strings.HasPrefix(line, "/") {
		line = line[1:]
		p.anchored = true
	} else if strings.Contains(line, "/") {
		p.anchored = true
	}

	p.raw = line
	if strings.ContainsAny(line, "*?[") {
		p.compiled = compileIgnoreGlob(line)
	}
	return p
}

// compileIgnoreGlob converts a gitignore glob to an anchored regexp.
// "**" crosses directory separators, "*" and "?" do not.
func compileIgnoreGlob(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("^")

	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				sb.WriteString(".*")
				i += 2
				// collapse "**/" so "a/**/b" also matches "a/b"
				if i < len(pattern) && pattern[i] == '/' {
					sb.WriteString("/?")
					i++
				}
				continue
			}
			sb.WriteString("[^/]*")
		case '?':
			sb.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				sb.WriteString(regexp.QuoteMeta(string(c)))
			} else {
				sb.WriteString(pattern[i : i+end+1])
				i += end + 1
				continue
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
		i++
	}

	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil
	}
	return re
}

// Match evaluates the rules against a path relative to BaseDir
// (slash-separated). It returns whether the path is ignored and whether any
// pattern matched at all; the last matching pattern wins, so a negation
// later in the file can re-include an earlier exclusion.
func (r *IgnoreRules) Match(rel string, isDir bool) (ignored, decided bool) {
	if r == nil {
		return false, false
	}
	for _, p := range r.patterns {
		if p.matches(rel, isDir) {
			ignored = !p.negate
			decided = true
		}
	}
	return ignored, decided
}

func (p *ignorePattern) matches(rel string, isDir bool) bool {
	if p.dirOnly {
		// Directory patterns match the directory itself and anything below
		if p.matchPath(rel) && isDir {
			return true
		}
		return p.matchAncestor(rel)
	}
	if p.matchPath(rel) {
		return true
	}
	// A plain file pattern also shadows everything under a matching directory
	return p.matchAncestor(rel)
}

// matchAncestor reports whether any ancestor directory of rel matches
func (p *ignorePattern) matchAncestor(rel string) bool {
	for {
		idx := strings.LastIndexByte(rel, '/')
		if idx < 0 {
			return false
		}
		rel = rel[:idx]
		if p.matchPath(rel) {
			return true
		}
	}
}

func (p *ignorePattern) matchPath(rel string) bool {
	if p.anchored {
		return p.matchComponent(rel)
	}
	// Unanchored patterns match against every path suffix component
	if p.matchComponent(rel) {
		return true
	}
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if p.matchComponent(strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

func (p *ignorePattern) matchComponent(s string) bool {
	if p.compiled != nil {
		return p.compiled.MatchString(s)
	}
	return p.raw == s
}
