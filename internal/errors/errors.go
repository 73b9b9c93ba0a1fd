package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the search engine
type ErrorType string

const (
	// Session-fatal errors
	ErrorTypeInvalidPattern  ErrorType = "invalid_pattern"
	ErrorTypeNoReadableRoots ErrorType = "no_readable_roots"

	// Per-path errors recorded as diagnostics
	ErrorTypeRootUnreadable      ErrorType = "root_unreadable"
	ErrorTypeDirectoryUnreadable ErrorType = "directory_unreadable"
	ErrorTypeFileUnreadable      ErrorType = "file_unreadable"
	ErrorTypeFileBinary          ErrorType = "file_binary"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// PatternError represents a pattern compilation failure. It carries the
// original regexp diagnostic so callers can show the user what was wrong.
type PatternError struct {
	Pattern    string
	Underlying error
	Timestamp  time.Time
}

// NewPatternError creates a new pattern compilation error
func NewPatternError(pattern string, err error) *PatternError {
	return &PatternError{
		Pattern:    pattern,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *PatternError) Unwrap() error {
	return e.Underlying
}

// RootsError represents a session start failure because none of the
// requested roots could be read.
type RootsError struct {
	Roots      []string
	Underlying error
	Timestamp  time.Time
}

// NewRootsError creates a new no-readable-roots error
func NewRootsError(roots []string, err error) *RootsError {
	return &RootsError{
		Roots:      roots,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *RootsError) Error() string {
	return fmt.Sprintf("no readable roots among %v: %v", e.Roots, e.Underlying)
}

// Unwrap returns the underlying error
func (e *RootsError) Unwrap() error {
	return e.Underlying
}

// PathError represents a per-path failure during traversal or scanning.
// These are always recoverable: they degrade coverage, not correctness.
type PathError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewPathError creates a per-path error with the given type
func NewPathError(errorType ErrorType, op, path string, err error) *PathError {
	return &PathError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// IsPermission checks if the error is a permission error
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// Diagnostic is a non-fatal problem recorded on a session while it keeps
// running. The UI may display these; they never abort a search.
type Diagnostic struct {
	Type      ErrorType
	Path      string
	Message   string
	Timestamp time.Time
}

// NewDiagnostic creates a diagnostic record for a path-level problem
func NewDiagnostic(errorType ErrorType, path, message string) Diagnostic {
	return Diagnostic{
		Type:      errorType,
		Path:      path,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// DiagnosticFromError converts a recorded error into a diagnostic
func DiagnosticFromError(err error) Diagnostic {
	var pe *PathError
	if errors.As(err, &pe) {
		return Diagnostic{
			Type:      pe.Type,
			Path:      pe.Path,
			Message:   pe.Error(),
			Timestamp: pe.Timestamp,
		}
	}
	return Diagnostic{
		Type:      ErrorTypeFileUnreadable,
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
}

// String formats the diagnostic for display
func (d Diagnostic) String() string {
	if d.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", d.Type, d.Path, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Type, d.Message)
}
