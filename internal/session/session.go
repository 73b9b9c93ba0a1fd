// Session orchestration: one Session owns one search from Start to a
// terminal state, aggregating worker output into a pollable result stream.
package session

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"

	"github.com/standardbeagle/tgrep/internal/debug"
	"github.com/standardbeagle/tgrep/internal/errors"
	"github.com/standardbeagle/tgrep/internal/scanner"
	"github.com/standardbeagle/tgrep/internal/searchtypes"
)

// PollResult is the non-blocking drain of a session: everything that
// accumulated since the previous Poll call plus the current state.
type PollResult struct {
	Results     []*searchtypes.FileResult
	Diagnostics []errors.Diagnostic
	State       searchtypes.SessionState
	Elapsed     time.Duration
}

// Session runs one cancellable search over a set of roots. Workers append
// finished FileResults and diagnostics; a single consumer drains them with
// Poll. State transitions are monotonic: Running is left exactly once.
type Session struct {
	request *searchtypes.SearchRequest
	fsys    afero.Fs
	scanner *scanner.Scanner
	walker  *walker

	ctx    context.Context
	cancel context.CancelFunc

	state           atomic.Int32
	cancelRequested atomic.Bool

	pool      *ants.Pool
	ownedPool bool
	tasks     sync.WaitGroup
	quiesced  chan struct{}

	mu          sync.Mutex
	pending     []*searchtypes.FileResult
	diagnostics []errors.Diagnostic

	started   time.Time
	closeOnce sync.Once
}

// Option configures a Session at start time
type Option func(*Session)

// WithFilesystem substitutes the filesystem the session reads from.
// Default is the operating system filesystem.
func WithFilesystem(fsys afero.Fs) Option {
	return func(s *Session) { s.fsys = fsys }
}

// WithPool runs the session on a shared worker pool instead of a private
// one. The pool must be created with ants.WithNonblocking(true) so that
// saturation falls back to inline execution instead of blocking a worker.
// The session will not release a shared pool on Close.
func WithPool(pool *ants.Pool) Option {
	return func(s *Session) {
		s.pool = pool
		s.ownedPool = false
	}
}

// Start validates the request and launches the search. The pattern is
// compiled before any filesystem I/O; an invalid pattern returns a
// PatternError. A request whose roots are all unreadable returns a
// RootsError. Per-root failures with at least one readable root remaining
// become diagnostics instead.
func Start(request *searchtypes.SearchRequest, opts ...Option) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		request:   request,
		fsys:      afero.NewOsFs(),
		ctx:       ctx,
		cancel:    cancel,
		quiesced:  make(chan struct{}),
		started:   time.Now(),
		ownedPool: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	sc, err := scanner.New(s.fsys, request)
	if err != nil {
		cancel()
		return nil, err
	}
	s.scanner = sc

	roots, rootDiags, err := s.checkRoots()
	if err != nil {
		cancel()
		return nil, err
	}
	s.diagnostics = rootDiags

	if s.pool == nil {
		workers := request.Workers
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		pool, err := ants.NewPool(workers,
			ants.WithNonblocking(true),
			ants.WithPanicHandler(func(v interface{}) {
				debug.LogSession("worker panic reached pool handler: %v", v)
			}))
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create worker pool: %w", err)
		}
		s.pool = pool
	}

	s.state.Store(int32(searchtypes.StateRunning))
	s.walker = newWalker(s, roots)
	s.walker.start()

	// Completion watcher: fires exactly once, after the last task finishes
	go func() {
		s.tasks.Wait()
		s.finish()
		close(s.quiesced)
	}()

	debug.LogSession("started: pattern=%q roots=%v workers=%d stages=%d",
		request.Pattern, roots, s.pool.Cap(), len(request.Stages))
	return s, nil
}

// checkRoots stats every requested root. Unreadable roots degrade to
// diagnostics; zero readable roots is fatal to session start.
func (s *Session) checkRoots() ([]string, []errors.Diagnostic, error) {
	var readable []string
	var diags []errors.Diagnostic
	var lastErr error

	for _, root := range s.request.Roots {
		if _, err := s.fsys.Stat(root); err != nil {
			lastErr = err
			diags = append(diags, errors.NewDiagnostic(
				errors.ErrorTypeRootUnreadable, root, err.Error()))
			continue
		}
		readable = append(readable, root)
	}

	if len(readable) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no roots given")
		}
		return nil, nil, errors.NewRootsError(s.request.Roots, lastErr)
	}
	return readable, diags, nil
}

// finish moves the session to its terminal state once all workers have
// quiesced
func (s *Session) finish() {
	switch {
	case s.cancelRequested.Load():
		s.transition(searchtypes.StateCancelled)
	case s.walker.rootsExpanded.Load() == 0:
		// Every root passed Stat but failed enumeration afterwards
		s.transition(searchtypes.StateFailed)
	default:
		s.transition(searchtypes.StateCompleted)
	}
	debug.LogSession("finished: state=%s elapsed=%s", s.State(), time.Since(s.started))
}

// transition moves Running to a terminal state; terminal states are final
func (s *Session) transition(next searchtypes.SessionState) bool {
	return s.state.CompareAndSwap(int32(searchtypes.StateRunning), int32(next))
}

// State returns the current session state
func (s *Session) State() searchtypes.SessionState {
	return searchtypes.SessionState(s.state.Load())
}

// Elapsed returns the time since the session started
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.started)
}

// Poll drains accumulated results and diagnostics without blocking. Safe
// to call repeatedly from a single consumer while workers produce. A
// FileResult appears here only after its worker finished appending every
// line, so consumers never observe a partial file.
func (s *Session) Poll() PollResult {
	s.mu.Lock()
	results := s.pending
	diags := s.diagnostics
	s.pending = nil
	s.diagnostics = nil
	s.mu.Unlock()

	return PollResult{
		Results:     results,
		Diagnostics: diags,
		State:       s.State(),
		Elapsed:     time.Since(s.started),
	}
}

// Cancel requests cooperative cancellation. Idempotent; a no-op on a
// session already in a terminal state. Workers observe the request at
// their next check point and the state becomes Cancelled once all of them
// have quiesced.
func (s *Session) Cancel() {
	if s.State().Terminal() {
		return
	}
	if s.cancelRequested.CompareAndSwap(false, true) {
		debug.LogSession("cancel requested")
	}
	s.cancel()
}

// Close cancels the session and blocks until every worker has observed
// the cancellation and released its file handles, then releases the pool
// if the session owns it. Always safe to call, including on completed
// sessions; callers should defer it.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if !s.State().Terminal() {
			s.Cancel()
		}
		<-s.quiesced
		s.cancel()
		if s.ownedPool {
			s.pool.Release()
		}
	})
}

// Done returns a channel closed once the session reaches a terminal state
// and all workers have quiesced
func (s *Session) Done() <-chan struct{} {
	return s.quiesced
}

// publish appends a finalized FileResult to the stream
func (s *Session) publish(result *searchtypes.FileResult) {
	s.mu.Lock()
	s.pending = append(s.pending, result)
	s.mu.Unlock()
}

// report records a non-fatal diagnostic on the session
func (s *Session) report(diag errors.Diagnostic) {
	s.mu.Lock()
	s.diagnostics = append(s.diagnostics, diag)
	s.mu.Unlock()
}

// submit schedules fn on the worker pool. Tasks spawned from inside other
// tasks run inline when the pool is saturated, so recursive directory
// expansion can never deadlock on pool capacity. Every task is tracked by
// the session WaitGroup and shielded by a panic recovery boundary.
func (s *Session) submit(kind, path string, fn func()) {
	s.tasks.Add(1)
	wrapped := func() {
		defer s.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				s.report(errors.NewDiagnostic(errors.ErrorTypeFileUnreadable, path,
					fmt.Sprintf("%s worker panic: %v", kind, r)))
			}
		}()
		if s.ctx.Err() != nil {
			return
		}
		fn()
	}

	if err := s.pool.Submit(wrapped); err != nil {
		// Pool released or overloaded: run the task in the caller
		wrapped()
	}
}
