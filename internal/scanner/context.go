package scanner

import (
	"github.com/standardbeagle/tgrep/internal/searchtypes"
)

// contextEmitter accumulates the output line sequence for one file,
// handling before/after context selection and the merging of overlapping
// context blocks. Output line numbers are strictly increasing by
// construction: a line is appended at most once, in input order.
type contextEmitter struct {
	path   string
	before int
	after  int

	out []searchtypes.MatchLine

	// ring holds the most recent non-emitted lines as before-context
	// candidates, oldest first
	ring []pendingLine

	// afterLeft counts how many upcoming misses still belong to the
	// after-context of the last match
	afterLeft int

	// lastEmitted is the line number of the newest appended line
	lastEmitted int
}

type pendingLine struct {
	number int
	text   string
}

func newContextEmitter(path string, before, after int) *contextEmitter {
	return &contextEmitter{path: path, before: before, after: after}
}

// emitMatch appends pending before-context and the match line itself
func (e *contextEmitter) emitMatch(number int, text string, ranges []searchtypes.ByteRange) {
	for _, p := range e.ring {
		// Lines already emitted as earlier context are not repeated;
		// this is what merges overlapping context blocks.
		if p.number > e.lastEmitted {
			e.append(searchtypes.MatchLine{
				Path:       e.path,
				LineNumber: p.number,
				Text:       p.text,
			})
		}
	}
	e.ring = e.ring[:0]

	e.append(searchtypes.MatchLine{
		Path:       e.path,
		LineNumber: number,
		Text:       text,
		Ranges:     ranges,
		IsMatch:    true,
	})
	e.afterLeft = e.after
}

// emitMiss records a non-matching line as after-context or as a
// before-context candidate
func (e *contextEmitter) emitMiss(number int, text string) {
	if e.afterLeft > 0 {
		e.afterLeft--
		e.append(searchtypes.MatchLine{
			Path:       e.path,
			LineNumber: number,
			Text:       text,
		})
		return
	}
	if e.before == 0 {
		return
	}
	if len(e.ring) == e.before {
		copy(e.ring, e.ring[1:])
		e.ring = e.ring[:e.before-1]
	}
	e.ring = append(e.ring, pendingLine{number: number, text: text})
}

func (e *contextEmitter) append(ml searchtypes.MatchLine) {
	e.out = append(e.out, ml)
	e.lastEmitted = ml.LineNumber
}

// finish returns the accumulated sequence
func (e *contextEmitter) finish() []searchtypes.MatchLine {
	return e.out
}
