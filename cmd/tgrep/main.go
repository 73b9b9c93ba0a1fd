package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/tgrep/internal/config"
	"github.com/standardbeagle/tgrep/internal/debug"
	"github.com/standardbeagle/tgrep/internal/searchtypes"
	"github.com/standardbeagle/tgrep/internal/session"
	"github.com/standardbeagle/tgrep/internal/watch"
)

var Version = "0.4.0"

func main() {
	app := &cli.App{
		Name:                   "tgrep",
		Usage:                  "Concurrent content search across directory trees",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.ConfigFileName,
			},
			&cli.StringSliceFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Root path to search (repeatable; ';'-separated lists accepted)",
			},
			&cli.StringFlag{
				Name:    "globs",
				Aliases: []string{"g"},
				Usage:   "Space-separated glob overrides; prefix '!' excludes (e.g. \"*.go !vendor/**\")",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include glob (repeatable; overrides ignore rules)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude glob (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "regex",
				Aliases: []string{"e"},
				Usage:   "Treat the pattern as a regular expression",
			},
			&cli.BoolFlag{
				Name:    "case-insensitive",
				Aliases: []string{"i"},
				Usage:   "Case-insensitive matching",
			},
			&cli.BoolFlag{
				Name:    "word-regexp",
				Aliases: []string{"w"},
				Usage:   "Match whole words only",
			},
			&cli.BoolFlag{
				Name:    "invert-match",
				Aliases: []string{"v"},
				Usage:   "Select non-matching lines",
			},
			&cli.IntFlag{
				Name:    "before-context",
				Aliases: []string{"B"},
				Usage:   "Lines of context before each match",
			},
			&cli.IntFlag{
				Name:    "after-context",
				Aliases: []string{"A"},
				Usage:   "Lines of context after each match",
			},
			&cli.IntFlag{
				Name:    "context",
				Aliases: []string{"C"},
				Usage:   "Lines of context before and after each match",
			},
			&cli.StringSliceFlag{
				Name:    "pipe",
				Aliases: []string{"p"},
				Usage:   "Refinement stage applied to prior results; optional 'ivwr:' flag prefix (e.g. --pipe \"v:helper\")",
			},
			&cli.BoolFlag{
				Name:  "hidden",
				Usage: "Search hidden files and directories",
			},
			&cli.BoolFlag{
				Name:  "binary",
				Usage: "Search binary files too",
			},
			&cli.BoolFlag{
				Name:  "no-ignore",
				Usage: "Do not honor .gitignore files",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Worker pool size (default: CPU count)",
			},
			&cli.IntFlag{
				Name:  "max-count",
				Usage: "Stop printing after this many matching files",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-run the search when files change",
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write debug output to a log file",
			},
		},
		Action: runSearch,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tgrep: %v\n", err)
		os.Exit(2)
	}
}

func runSearch(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: tgrep [options] <pattern>")
	}

	if c.Bool("debug-log") {
		if logPath, err := debug.InitDebugLogFile(); err == nil {
			defer debug.CloseDebugLog()
			fmt.Fprintf(os.Stderr, "debug log: %s\n", logPath)
		}
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	request, err := buildRequest(c, cfg)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if !c.Bool("watch") {
		matched, err := runOnce(request, c.Int("max-count"), sigCh)
		if err != nil {
			return err
		}
		if !matched {
			os.Exit(1)
		}
		return nil
	}

	// Watch mode: run, then re-run after each settled burst of changes
	rerun := make(chan struct{}, 1)
	watcher, err := watch.New(request.Roots,
		time.Duration(cfg.Performance.WatchDebounceMs)*time.Millisecond,
		func() {
			select {
			case rerun <- struct{}{}:
			default:
			}
		})
	if err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}
	defer watcher.Close()
	watcher.Start()

	for {
		if _, err := runOnce(request, c.Int("max-count"), sigCh); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "--- watching for changes (Ctrl-C to quit) ---")
		select {
		case <-sigCh:
			return nil
		case <-rerun:
		}
	}
}

// buildRequest merges config defaults with CLI flags into an immutable
// search request
func buildRequest(c *cli.Context, cfg *config.Config) (*searchtypes.SearchRequest, error) {
	roots := splitRoots(c.StringSlice("root"))
	if len(roots) == 0 {
		roots = cfg.Search.Roots
	}
	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
		}
		roots[i] = abs
	}

	include := append([]string{}, cfg.Filter.Include...)
	exclude := append([]string{}, cfg.Filter.Exclude...)
	include = append(include, c.StringSlice("include")...)
	exclude = append(exclude, c.StringSlice("exclude")...)

	globInc, globExc := splitGlobs(c.String("globs"))
	include = append(include, globInc...)
	exclude = append(exclude, globExc...)

	before := cfg.Search.ContextBefore
	after := cfg.Search.ContextAfter
	if c.IsSet("context") {
		before = c.Int("context")
		after = c.Int("context")
	}
	if c.IsSet("before-context") {
		before = c.Int("before-context")
	}
	if c.IsSet("after-context") {
		after = c.Int("after-context")
	}
	if before < 0 || after < 0 {
		return nil, fmt.Errorf("context line counts must be non-negative")
	}

	stages := make([]searchtypes.StageSpec, 0, len(c.StringSlice("pipe")))
	for _, spec := range c.StringSlice("pipe") {
		stages = append(stages, parseStageSpec(spec))
	}

	workers := cfg.WorkerCount()
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}

	return &searchtypes.SearchRequest{
		Roots:   roots,
		Pattern: c.Args().First(),
		Options: searchtypes.MatchOptions{
			FixedString:     !c.Bool("regex") && cfg.Search.FixedString,
			CaseInsensitive: c.Bool("case-insensitive") || cfg.Search.CaseInsensitive,
			WholeWord:       c.Bool("word-regexp") || cfg.Search.WholeWord,
			InvertMatch:     c.Bool("invert-match"),
		},
		ContextBefore:  before,
		ContextAfter:   after,
		Stages:         stages,
		Include:        include,
		Exclude:        exclude,
		IncludeHidden:  c.Bool("hidden") || cfg.Filter.IncludeHidden,
		SearchBinary:   c.Bool("binary") || cfg.Filter.ScanBinary,
		SkipVCSIgnores: c.Bool("no-ignore") || !cfg.Filter.RespectGitignore,
		MaxFileSize:    cfg.Filter.MaxFileSize,
		Workers:        workers,
		MaxResultsHint: c.Int("max-count"),
	}, nil
}

// splitRoots flattens repeatable --root flags and ';'-separated lists
func splitRoots(values []string) []string {
	var roots []string
	for _, value := range values {
		for _, part := range strings.Split(value, ";") {
			if part = strings.TrimSpace(part); part != "" {
				roots = append(roots, part)
			}
		}
	}
	return roots
}

// splitGlobs parses a space-separated override list; '!' marks excludes
func splitGlobs(globs string) (include, exclude []string) {
	for _, glob := range strings.Fields(globs) {
		if strings.HasPrefix(glob, "!") {
			if g := glob[1:]; g != "" {
				exclude = append(exclude, g)
			}
		} else {
			include = append(include, glob)
		}
	}
	return include, exclude
}

// parseStageSpec parses a --pipe value: an optional flag prefix from
// {i,v,w,r} terminated by ':' followed by the pattern. "v:helper" means
// invert-match the literal "helper"; no recognizable prefix means the
// whole value is the pattern.
func parseStageSpec(spec string) searchtypes.StageSpec {
	opts := searchtypes.MatchOptions{FixedString: true}

	idx := strings.Index(spec, ":")
	if idx > 0 && idx <= 4 {
		prefix := spec[:idx]
		valid := true
		for _, r := range prefix {
			if !strings.ContainsRune("ivwr", r) {
				valid = false
				break
			}
		}
		if valid {
			for _, r := range prefix {
				switch r {
				case 'i':
					opts.CaseInsensitive = true
				case 'v':
					opts.InvertMatch = true
				case 'w':
					opts.WholeWord = true
				case 'r':
					opts.FixedString = false
				}
			}
			spec = spec[idx+1:]
		}
	}

	return searchtypes.StageSpec{Pattern: spec, Options: opts}
}

// runOnce executes a single session, streaming output as results arrive.
// Returns whether anything matched.
func runOnce(request *searchtypes.SearchRequest, maxFiles int, sigCh <-chan os.Signal) (bool, error) {
	sess, err := session.Start(request)
	if err != nil {
		return false, err
	}
	defer sess.Close()

	filesMatched := 0
	totalMatches := 0

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			sess.Cancel()
		case <-ticker.C:
		case <-sess.Done():
		}

		poll := sess.Poll()
		for _, diag := range poll.Diagnostics {
			fmt.Fprintln(os.Stderr, diag.String())
		}
		for _, result := range poll.Results {
			if maxFiles > 0 && filesMatched >= maxFiles {
				sess.Cancel()
				break
			}
			printFileResult(result)
			filesMatched++
			totalMatches += result.MatchCount()
		}

		if poll.State.Terminal() {
			// One final drain: workers may have published between the
			// state transition and the previous Poll
			final := sess.Poll()
			for _, diag := range final.Diagnostics {
				fmt.Fprintln(os.Stderr, diag.String())
			}
			for _, result := range final.Results {
				if maxFiles > 0 && filesMatched >= maxFiles {
					break
				}
				printFileResult(result)
				filesMatched++
				totalMatches += result.MatchCount()
			}

			fmt.Fprintf(os.Stderr, "%d matches in %d files (%s, %s)\n",
				totalMatches, filesMatched, poll.State, poll.Elapsed.Round(time.Millisecond))
			return filesMatched > 0, nil
		}
	}
}

// printFileResult writes one file's lines in grep-style format: matches
// with ':' separators, context lines with '-'
func printFileResult(result *searchtypes.FileResult) {
	for _, line := range result.Lines {
		sep := "-"
		if line.IsMatch {
			sep = ":"
		}
		fmt.Printf("%s%s%d%s%s\n", result.Path, sep, line.LineNumber, sep, line.Text)
	}
}
