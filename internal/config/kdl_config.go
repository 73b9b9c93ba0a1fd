package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// ConfigFileName is the per-tree configuration file discovered in the
// working directory
const ConfigFileName = ".tgrep.kdl"

// Load reads configuration from the given path, falling back to defaults
// when the file does not exist. Relative roots in the file resolve against
// the file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigFileName
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	for i, root := range cfg.Search.Roots {
		if !filepath.IsAbs(root) {
			cfg.Search.Roots[i] = filepath.Clean(filepath.Join(baseDir, root))
		}
	}
	return cfg, nil
}

// parseKDL walks the KDL document and overlays it on the defaults
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "roots":
					if roots := collectStringArgs(cn); len(roots) > 0 {
						cfg.Search.Roots = roots
					}
				case "context_before":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.ContextBefore = v
					}
				case "context_after":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.ContextAfter = v
					}
				case "case_insensitive":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.CaseInsensitive = b
					}
				case "fixed_string":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.FixedString = b
					}
				case "whole_word":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.WholeWord = b
					}
				}
			}
		case "filter":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "include":
					cfg.Filter.Include = append(cfg.Filter.Include, collectStringArgs(cn)...)
				case "exclude":
					cfg.Filter.Exclude = append(cfg.Filter.Exclude, collectStringArgs(cn)...)
				case "include_hidden":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Filter.IncludeHidden = b
					}
				case "scan_binary":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Filter.ScanBinary = b
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Filter.RespectGitignore = b
					}
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Filter.MaxFileSize = int64(v)
					}
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Filter.MaxFileSize = sz
						}
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.Workers = v
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.WatchDebounceMs = v
					}
				}
			}
		case "include":
			cfg.Filter.Include = append(cfg.Filter.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Filter.Exclude = append(cfg.Filter.Exclude, collectStringArgs(n)...)
		}
	}

	return cfg, nil
}

// Helper functions leveraging the kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	// Block format like exclude { "vendor/**" } puts strings in child
	// node names instead of arguments
	if len(out) == 0 {
		for _, c := range n.Children {
			if name := nodeName(c); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// parseSize parses human-readable sizes like "10MB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	numStr := s

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
