package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/tgrep/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// debugOutput is the writer for debug output (defaults to nil, meaning no output)
var debugOutput io.Writer

// debugFile holds the open file handle if debug output goes to a file
var debugFile *os.File

// debugMutex protects access to debug output
var debugMutex sync.Mutex

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile initializes debug logging to a file.
// Returns the path to the log file, or an error if initialization fails.
// Call CloseDebugLog when done to ensure the file is properly closed.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "tgrep-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// Enabled reports whether debug logging is active
func Enabled() bool {
	if EnableDebug == "true" {
		return true
	}
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput != nil
}

func logf(prefix, format string, args ...interface{}) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	w := debugOutput
	if w == nil {
		if EnableDebug != "true" {
			return
		}
		w = os.Stderr
	}

	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, prefix, fmt.Sprintf(format, args...))
}

// LogWalk logs directory traversal events
func LogWalk(format string, args ...interface{}) {
	logf("WALK", format, args...)
}

// LogScan logs file scanning events
func LogScan(format string, args ...interface{}) {
	logf("SCAN", format, args...)
}

// LogSession logs session lifecycle events
func LogSession(format string, args ...interface{}) {
	logf("SESSION", format, args...)
}

// LogWatch logs filesystem watch events
func LogWatch(format string, args ...interface{}) {
	logf("WATCH", format, args...)
}
