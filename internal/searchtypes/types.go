package searchtypes

// ByteRange marks a matched span within a line, as byte offsets.
// End is exclusive.
type ByteRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MatchLine is one output line of a scan: either a primary match or a
// context line adjacent to one.
type MatchLine struct {
	Path       string      `json:"path"`
	LineNumber int         `json:"line"` // 1-based
	Text       string      `json:"text"`
	Ranges     []ByteRange `json:"ranges,omitempty"` // match spans, empty for context lines
	IsMatch    bool        `json:"is_match"`
}

// FileResult is the ordered set of output lines for one file. Line numbers
// are strictly increasing. A FileResult is immutable once it reaches the
// consumer: workers finish appending before publishing it.
type FileResult struct {
	Path  string      `json:"path"`
	Lines []MatchLine `json:"lines"`
}

// MatchCount returns the number of primary match lines in the result
func (fr *FileResult) MatchCount() int {
	count := 0
	for _, line := range fr.Lines {
		if line.IsMatch {
			count++
		}
	}
	return count
}

// SessionState tracks the lifecycle of one search session.
// Transitions are monotonic: Running is the only non-terminal state.
type SessionState int32

const (
	StateRunning SessionState = iota
	StateCancelled
	StateCompleted
	StateFailed
)

// String returns the display name of the state
func (s SessionState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state permits no further transitions
func (s SessionState) Terminal() bool {
	return s != StateRunning
}

// MatchOptions configures how a pattern is compiled and applied
type MatchOptions struct {
	FixedString     bool // escape regex metacharacters, search literally
	CaseInsensitive bool
	WholeWord       bool // wrap with word-boundary assertions
	InvertMatch     bool // emit lines that do NOT match
}

// StageSpec describes one pipeline refinement stage: a pattern applied to
// the line output of the previous stage rather than to raw file content.
type StageSpec struct {
	Pattern string
	Options MatchOptions
}

// SearchRequest describes one logical search. It is immutable once a
// session starts.
type SearchRequest struct {
	Roots   []string
	Pattern string
	Options MatchOptions

	ContextBefore int
	ContextAfter  int

	// Refinement stages applied in order to prior-stage output lines
	Stages []StageSpec

	// Explicit include/exclude globs; include overrides all other filters
	Include []string
	Exclude []string

	IncludeHidden  bool  // scan dotfiles and dot-directories
	SearchBinary   bool  // force scanning of binary-looking files
	SkipVCSIgnores bool  // do not honor .gitignore files
	MaxFileSize    int64 // 0 = unlimited
	Workers        int   // 0 = runtime.NumCPU()
	MaxResultsHint int   // 0 = unlimited; advisory cap for the consumer
}
