// Path filtering for directory traversal: decides which directories are
// descended into and which files are handed to scan workers.
package filter

import (
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/standardbeagle/tgrep/internal/debug"
)

// Verdict is the per-file decision of the filter
type Verdict int

const (
	// VerdictScan means the file should be dispatched to a scan worker
	VerdictScan Verdict = iota
	// VerdictSkip means the file is filtered out silently
	VerdictSkip
	// VerdictBinary means the file looks binary and warrants a diagnostic
	VerdictBinary
)

// Options configures a PathFilter. Precedence, highest first: explicit
// include globs, explicit exclude globs, ignore-file rules, hidden-file
// policy, binary heuristic.
type Options struct {
	Include        []string // doublestar globs; non-empty list restricts scanning
	Exclude        []string // doublestar globs
	IncludeHidden  bool     // scan dotfiles and descend into dot-directories
	ScanBinary     bool     // force scanning of binary-looking files
	RespectIgnores bool     // honor .gitignore files discovered per directory
	MaxFileSize    int64    // 0 = unlimited
}

// PathFilter applies the filtering policy for one search session.
// It is immutable after construction; per-directory ignore state lives in
// DirScope values produced during traversal.
type PathFilter struct {
	fs       afero.Fs
	opts     Options
	detector *BinaryDetector
}

// NewPathFilter creates a filter over the given filesystem
func NewPathFilter(fs afero.Fs, opts Options) *PathFilter {
	return &PathFilter{
		fs:       fs,
		opts:     opts,
		detector: NewBinaryDetector(),
	}
}

// DirScope carries the cumulative ignore-rule chain for one directory.
// Scopes form a tree mirroring the traversal: each child directory derives
// its scope from the parent's, appending any .gitignore found there.
type DirScope struct {
	filter *PathFilter
	rel    string // slash-separated path relative to the root, "" at root
	abs    string // absolute directory path on the filter's filesystem
	chain  []*IgnoreRules
}

// RootScope creates the scope for a search root, loading its .gitignore
func (f *PathFilter) RootScope(root string) *DirScope {
	scope := &DirScope{filter: f, rel: "", abs: root}
	scope.loadIgnores(root, "")
	return scope
}

// Enter derives the scope for a child directory named name
func (s *DirScope) Enter(name string) *DirScope {
	rel := name
	if s.rel != "" {
		rel = s.rel + "/" + name
	}
	abs := filepath.Join(s.abs, name)

	child := &DirScope{
		filter: s.filter,
		rel:    rel,
		abs:    abs,
		chain:  s.chain,
	}
	child.loadIgnores(abs, rel)
	return child
}

func (s *DirScope) loadIgnores(dir, baseRel string) {
	if !s.filter.opts.RespectIgnores {
		return
	}
	rules, err := LoadIgnoreRules(s.filter.fs, dir, baseRel)
	if err != nil || rules.Empty() {
		return
	}
	debug.LogWalk("loaded %s/.gitignore (%d patterns)", dir, len(rules.patterns))
	// Copy-on-append so sibling scopes never share backing arrays
	chain := make([]*IgnoreRules, len(s.chain), len(s.chain)+1)
	copy(chain, s.chain)
	s.chain = append(chain, rules)
}

// ShouldDescend decides whether traversal enters the child directory named
// name. Symlink policy is enforced by the walker, not here: the filter only
// sees real directories.
func (s *DirScope) ShouldDescend(name string) bool {
	rel := name
	if s.rel != "" {
		rel = s.rel + "/" + name
	}

	if s.filter.matchesGlobs(s.filter.opts.Exclude, rel) {
		return false
	}

	// With explicit includes in play, ignore rules and the hidden policy
	// must not prune directories: an include glob may select files below.
	if len(s.filter.opts.Include) > 0 {
		return true
	}

	if !s.filter.opts.IncludeHidden && isHiddenName(name) {
		return false
	}
	if s.ignored(rel, true) {
		return false
	}
	return true
}

// ShouldScan decides whether the file named name in this directory is
// dispatched for scanning. size comes from the directory entry metadata.
func (s *DirScope) ShouldScan(name string, size int64) Verdict {
	rel := name
	if s.rel != "" {
		rel = s.rel + "/" + name
	}

	if s.filter.matchesGlobs(s.filter.opts.Exclude, rel) {
		return VerdictSkip
	}

	if len(s.filter.opts.Include) > 0 {
		if !s.filter.matchesGlobs(s.filter.opts.Include, rel) {
			return VerdictSkip
		}
		// Explicit include overrides ignore rules and hidden policy,
		// but not the size cap or the binary heuristic
	} else {
		if !s.filter.opts.IncludeHidden && isHiddenName(name) {
			return VerdictSkip
		}
		if s.ignored(rel, false) {
			return VerdictSkip
		}
	}

	if s.filter.opts.MaxFileSize > 0 && size > s.filter.opts.MaxFileSize {
		debug.LogWalk("skipping %s: %d bytes over size cap", rel, size)
		return VerdictSkip
	}

	if !s.filter.opts.ScanBinary && s.filter.looksBinary(filepath.Join(s.abs, name)) {
		return VerdictBinary
	}
	return VerdictScan
}

// ignored evaluates the ignore chain for a root-relative path. Rules from
// deeper directories win over rules inherited from parents.
func (s *DirScope) ignored(rel string, isDir bool) bool {
	for i := len(s.chain) - 1; i >= 0; i-- {
		rules := s.chain[i]
		sub := rel
		if rules.BaseDir != "" {
			sub = strings.TrimPrefix(rel, rules.BaseDir+"/")
		}
		if ignored, decided := rules.Match(sub, isDir); decided {
			return ignored
		}
	}
	return false
}

// matchesGlobs tests a root-relative path against user globs. A pattern
// matches the full relative path or, for convenience, the basename alone,
// so "*.go" selects Go files at any depth.
func (f *PathFilter) matchesGlobs(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if matched, err := doublestar.Match(pattern, path.Base(rel)); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// looksBinary applies the extension check and, when that is inconclusive,
// probes the file's leading bytes.
func (f *PathFilter) looksBinary(abs string) bool {
	if f.detector.IsBinaryByExtension(abs) {
		return true
	}

	file, err := f.fs.Open(abs)
	if err != nil {
		// Leave unreadable files to the scanner, which reports them
		return false
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	return f.detector.IsBinaryContent(buf[:n])
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
