package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/standardbeagle/tgrep/internal/debug"
	"github.com/standardbeagle/tgrep/internal/errors"
	"github.com/standardbeagle/tgrep/internal/filter"
)

// walker performs the parallel traversal for one session. Directory
// expansions and file scans are tasks on the same pool, so idle scan
// capacity is immediately available for expansion and vice versa.
type walker struct {
	session *Session
	filter  *filter.PathFilter
	roots   []string
	osFS    bool

	// rootsExpanded counts roots whose enumeration actually started;
	// zero at quiesce means traversal could not start at all
	rootsExpanded atomic.Int64

	// visited holds xxhash digests of resolved paths already dispatched,
	// guaranteeing no directory is expanded and no file scanned twice
	// even with overlapping roots or symlinked files
	visitedMu sync.Mutex
	visited   map[uint64]struct{}
}

func newWalker(s *Session, roots []string) *walker {
	_, osFS := s.fsys.(*afero.OsFs)
	return &walker{
		session: s,
		roots:   roots,
		osFS:    osFS,
		visited: make(map[uint64]struct{}),
		filter: filter.NewPathFilter(s.fsys, filter.Options{
			Include:        s.request.Include,
			Exclude:        s.request.Exclude,
			IncludeHidden:  s.request.IncludeHidden,
			ScanBinary:     s.request.SearchBinary,
			RespectIgnores: !s.request.SkipVCSIgnores,
			MaxFileSize:    s.request.MaxFileSize,
		}),
	}
}

// start dispatches one expansion task per root
func (w *walker) start() {
	for _, root := range w.roots {
		root := root
		w.session.submit("walk", root, func() {
			w.expandRoot(root)
		})
	}
}

func (w *walker) expandRoot(root string) {
	fi, err := w.session.fsys.Stat(root)
	if err != nil {
		w.session.report(errors.NewDiagnostic(errors.ErrorTypeRootUnreadable, root, err.Error()))
		return
	}

	if !fi.IsDir() {
		w.rootsExpanded.Add(1)
		if w.markVisited(root) {
			w.scanFile(root)
		}
		return
	}
	if !w.markVisited(root) {
		w.rootsExpanded.Add(1)
		return // another root already covers this directory
	}
	if w.expandDir(root, w.filter.RootScope(root)) {
		w.rootsExpanded.Add(1)
	}
}

// expandDir enumerates one directory, dispatching child expansions and
// file scans as further pool tasks. Returns whether enumeration succeeded.
func (w *walker) expandDir(dir string, scope *filter.DirScope) bool {
	entries, err := afero.ReadDir(w.session.fsys, dir)
	if err != nil {
		w.session.report(errors.NewDiagnostic(errors.ErrorTypeDirectoryUnreadable, dir, err.Error()))
		return false
	}
	debug.LogWalk("expanding %s (%d entries)", dir, len(entries))

	for _, entry := range entries {
		if w.session.ctx.Err() != nil {
			return true
		}

		name := entry.Name()
		full := filepath.Join(dir, name)
		size := entry.Size()
		isDir := entry.IsDir()

		// Symlinked directories are never descended into; traversal
		// termination on cyclic links depends on it. Symlinked files
		// are scanned through their target, at most once.
		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := w.session.fsys.Stat(full)
			if err != nil {
				debug.LogWalk("skipping unresolvable symlink %s: %v", full, err)
				continue
			}
			if target.IsDir() {
				debug.LogWalk("not descending into symlinked directory %s", full)
				continue
			}
			isDir = false
			size = target.Size()
		}

		if isDir {
			if !scope.ShouldDescend(name) {
				continue
			}
			if !w.markVisited(full) {
				continue
			}
			child := scope.Enter(name)
			w.session.submit("walk", full, func() {
				w.expandDir(full, child)
			})
			continue
		}

		switch scope.ShouldScan(name, size) {
		case filter.VerdictBinary:
			w.session.report(errors.NewDiagnostic(errors.ErrorTypeFileBinary, full, "binary file skipped"))
		case filter.VerdictScan:
			if !w.markVisited(full) {
				continue
			}
			w.session.submit("scan", full, func() {
				w.scanFile(full)
			})
		}
	}
	return true
}

// scanFile runs the scanner over one file and publishes its result
func (w *walker) scanFile(path string) {
	result, err := w.session.scanner.ScanFile(w.session.ctx, path)
	if err != nil {
		if err == context.Canceled || w.session.ctx.Err() != nil {
			return
		}
		w.session.report(errors.DiagnosticFromError(err))
		return
	}
	if result != nil {
		w.session.publish(result)
	}
}

// markVisited records a path's resolved identity; false means it was
// already dispatched within this session
func (w *walker) markVisited(path string) bool {
	key := xxhash.Sum64String(w.resolve(path))

	w.visitedMu.Lock()
	defer w.visitedMu.Unlock()
	if _, seen := w.visited[key]; seen {
		return false
	}
	w.visited[key] = struct{}{}
	return true
}

// resolve maps a path to its physical identity so hardlinked roots and
// file symlinks deduplicate correctly. Only meaningful on the real
// filesystem; in-memory filesystems have no symlinks to resolve.
func (w *walker) resolve(path string) string {
	if w.osFS {
		if real, err := filepath.EvalSymlinks(path); err == nil {
			return real
		}
	}
	return path
}
