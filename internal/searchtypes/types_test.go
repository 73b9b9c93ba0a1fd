package searchtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileResult_MatchCount(t *testing.T) {
	fr := &FileResult{
		Path: "/src/a.go",
		Lines: []MatchLine{
			{LineNumber: 1},
			{LineNumber: 2, IsMatch: true},
			{LineNumber: 3},
			{LineNumber: 4, IsMatch: true},
		},
	}
	assert.Equal(t, 2, fr.MatchCount())

	empty := &FileResult{Path: "/src/b.go"}
	assert.Equal(t, 0, empty.MatchCount())
}

func TestSessionState(t *testing.T) {
	tests := []struct {
		state    SessionState
		name     string
		terminal bool
	}{
		{StateRunning, "running", false},
		{StateCancelled, "cancelled", true},
		{StateCompleted, "completed", true},
		{StateFailed, "failed", true},
		{SessionState(99), "unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}
