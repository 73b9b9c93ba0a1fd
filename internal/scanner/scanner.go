// File scanning: applies the compiled matchers line-by-line to one file,
// producing the ordered match/context sequence for the result stream.
package scanner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/standardbeagle/tgrep/internal/debug"
	"github.com/standardbeagle/tgrep/internal/errors"
	"github.com/standardbeagle/tgrep/internal/matcher"
	"github.com/standardbeagle/tgrep/internal/searchtypes"
)

const (
	// Lines processed between cancellation checks. Bounds cancellation
	// latency to one chunk of work, not one file.
	cancelCheckInterval = 256

	// Line buffer limits for bufio.Scanner
	initialLineBuffer = 64 * 1024
	maxLineLength     = 4 * 1024 * 1024
)

// stage pairs a compiled matcher with its per-stage options
type stage struct {
	matcher matcher.Matcher
	invert  bool
}

// Scanner scans files for one search request. It is immutable after
// construction and safe for concurrent use by many workers: the compiled
// matchers are shared, all per-file state is local to ScanFile.
type Scanner struct {
	fs     afero.Fs
	stages []stage
	before int
	after  int
}

// New compiles the request's primary pattern and every pipeline stage.
// Fails with a PatternError before any I/O happens when a pattern is
// invalid.
func New(fs afero.Fs, req *searchtypes.SearchRequest) (*Scanner, error) {
	s := &Scanner{
		fs:     fs,
		before: req.ContextBefore,
		after:  req.ContextAfter,
	}

	primary, err := matcher.Compile(req.Pattern, req.Options)
	if err != nil {
		return nil, err
	}
	s.stages = append(s.stages, stage{matcher: primary, invert: req.Options.InvertMatch})

	for _, spec := range req.Stages {
		m, err := matcher.Compile(spec.Pattern, spec.Options)
		if err != nil {
			return nil, err
		}
		s.stages = append(s.stages, stage{matcher: m, invert: spec.Options.InvertMatch})
	}
	return s, nil
}

// ScanFile scans one file and returns its result, or nil when nothing
// matched. Unreadable or binary files return a PathError; cancellation
// returns the context error. Context checks happen once per line chunk so
// a cancel never waits on a whole file.
func (s *Scanner) ScanFile(ctx context.Context, path string) (*searchtypes.FileResult, error) {
	file, err := s.fs.Open(path)
	if err != nil {
		return nil, errors.NewPathError(errors.ErrorTypeFileUnreadable, "open", path, err)
	}
	defer file.Close()

	first := s.stages[0]
	emitter := newContextEmitter(path, s.before, s.after)

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, initialLineBuffer), maxLineLength)

	lineNumber := 0
	sawMatch := false
	for sc.Scan() {
		lineNumber++

		if lineNumber%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		line := sc.Bytes()

		// Filters only saw path and metadata; content gets re-checked.
		// A null byte before the first match marks the file binary.
		if !sawMatch && bytes.IndexByte(line, 0) >= 0 {
			return nil, errors.NewPathError(errors.ErrorTypeFileBinary, "scan", path,
				fmt.Errorf("null byte at line %d", lineNumber))
		}

		matched := first.matcher.IsMatch(line) != first.invert
		if matched {
			sawMatch = true
			var ranges []searchtypes.ByteRange
			if !first.invert {
				ranges = first.matcher.FindRanges(line)
			}
			emitter.emitMatch(lineNumber, string(line), ranges)
		} else {
			emitter.emitMiss(lineNumber, string(line))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewPathError(errors.ErrorTypeFileUnreadable, "read", path, err)
	}

	lines := emitter.finish()
	for _, st := range s.stages[1:] {
		if len(lines) == 0 {
			break
		}
		lines = applyStage(path, lines, st, s.before, s.after)
	}

	if !hasMatch(lines) {
		return nil, nil
	}
	debug.LogScan("%s: %d output lines", path, len(lines))
	return &searchtypes.FileResult{Path: path, Lines: lines}, nil
}

// applyStage runs a refinement stage over the materialized line sequence of
// the prior stage. No file I/O happens here: the stage sees prior output
// lines only, with the same match/context semantics.
func applyStage(path string, input []searchtypes.MatchLine, st stage, before, after int) []searchtypes.MatchLine {
	emitter := newContextEmitter(path, before, after)

	for _, ml := range input {
		line := []byte(ml.Text)
		matched := st.matcher.IsMatch(line) != st.invert
		if matched {
			var ranges []searchtypes.ByteRange
			if !st.invert {
				ranges = st.matcher.FindRanges(line)
			}
			emitter.emitMatch(ml.LineNumber, ml.Text, ranges)
		} else {
			emitter.emitMiss(ml.LineNumber, ml.Text)
		}
	}
	return emitter.finish()
}

func hasMatch(lines []searchtypes.MatchLine) bool {
	for _, ml := range lines {
		if ml.IsMatch {
			return true
		}
	}
	return false
}
