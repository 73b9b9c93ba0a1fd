package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathError_Unwrap(t *testing.T) {
	underlying := fs.ErrPermission
	err := NewPathError(ErrorTypeDirectoryUnreadable, "readdir", "/srv/data", underlying)

	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.True(t, IsPermission(err))
	assert.Contains(t, err.Error(), "/srv/data")
	assert.Contains(t, err.Error(), "readdir")
	assert.False(t, err.Timestamp.IsZero())
}

func TestDiagnosticFromError_PathError(t *testing.T) {
	inner := NewPathError(ErrorTypeFileBinary, "scan", "/bin/tool", fmt.Errorf("null byte at line 1"))
	wrapped := fmt.Errorf("scan failed: %w", inner)

	diag := DiagnosticFromError(wrapped)
	assert.Equal(t, ErrorTypeFileBinary, diag.Type)
	assert.Equal(t, "/bin/tool", diag.Path)
	assert.Equal(t, inner.Timestamp, diag.Timestamp)
	assert.Contains(t, diag.Message, "null byte")
}

func TestDiagnosticFromError_PlainError(t *testing.T) {
	diag := DiagnosticFromError(errors.New("something broke"))
	assert.Equal(t, ErrorTypeFileUnreadable, diag.Type)
	assert.Empty(t, diag.Path)
	assert.Equal(t, "something broke", diag.Message)
}

func TestDiagnostic_String(t *testing.T) {
	withPath := NewDiagnostic(ErrorTypeRootUnreadable, "/gone", "stat failed")
	assert.Equal(t, "[root_unreadable] /gone: stat failed", withPath.String())

	noPath := Diagnostic{Type: ErrorTypeConfig, Message: "bad value"}
	assert.Equal(t, "[config] bad value", noPath.String())
}

func TestErrorTypes_Distinct(t *testing.T) {
	types := []ErrorType{
		ErrorTypeInvalidPattern,
		ErrorTypeNoReadableRoots,
		ErrorTypeRootUnreadable,
		ErrorTypeDirectoryUnreadable,
		ErrorTypeFileUnreadable,
		ErrorTypeFileBinary,
		ErrorTypeConfig,
	}

	seen := map[ErrorType]bool{}
	for _, typ := range types {
		require.False(t, seen[typ], "duplicate error type %q", typ)
		seen[typ] = true
	}
}
