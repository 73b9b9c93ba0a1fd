package config

import (
	"fmt"
	"runtime"

	"github.com/standardbeagle/tgrep/internal/errors"
)

// Config carries the defaults the engine's collaborators feed into search
// requests: roots, filter policy, context lines, worker count. It is loaded
// once at startup and treated as immutable afterwards.
type Config struct {
	Search      Search
	Filter      Filter
	Performance Performance
}

type Search struct {
	Roots         []string // default roots when the CLI names none
	ContextBefore int
	ContextAfter  int

	CaseInsensitive bool
	FixedString     bool // literal search by default; regex is opt-in
	WholeWord       bool
}

type Filter struct {
	Include []string
	Exclude []string

	IncludeHidden    bool
	ScanBinary       bool
	RespectGitignore bool
	MaxFileSize      int64 // bytes, 0 = unlimited
}

type Performance struct {
	Workers         int // 0 = runtime.NumCPU()
	WatchDebounceMs int // debounce for watch-mode re-search
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Search: Search{
			Roots:       []string{"."},
			FixedString: true,
		},
		Filter: Filter{
			RespectGitignore: true,
			MaxFileSize:      10 * 1024 * 1024,
		},
		Performance: Performance{
			Workers:         0, // auto-detect
			WatchDebounceMs: 250,
		},
	}
}

// WorkerCount resolves the configured worker count to a usable value
func (c *Config) WorkerCount() int {
	if c.Performance.Workers > 0 {
		return c.Performance.Workers
	}
	return runtime.NumCPU()
}

// Validate checks the configuration for values the engine cannot honor
func (c *Config) Validate() error {
	if c.Search.ContextBefore < 0 {
		return errors.NewConfigError("search.context_before",
			fmt.Sprintf("%d", c.Search.ContextBefore), fmt.Errorf("must be non-negative"))
	}
	if c.Search.ContextAfter < 0 {
		return errors.NewConfigError("search.context_after",
			fmt.Sprintf("%d", c.Search.ContextAfter), fmt.Errorf("must be non-negative"))
	}
	if c.Filter.MaxFileSize < 0 {
		return errors.NewConfigError("filter.max_file_size",
			fmt.Sprintf("%d", c.Filter.MaxFileSize), fmt.Errorf("must be non-negative"))
	}
	if c.Performance.Workers < 0 {
		return errors.NewConfigError("performance.workers",
			fmt.Sprintf("%d", c.Performance.Workers), fmt.Errorf("must be non-negative"))
	}
	if c.Performance.WatchDebounceMs < 0 {
		return errors.NewConfigError("performance.watch_debounce_ms",
			fmt.Sprintf("%d", c.Performance.WatchDebounceMs), fmt.Errorf("must be non-negative"))
	}
	return nil
}
