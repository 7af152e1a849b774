package simerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"config", Config("trim", 0, "must be positive"), ErrConfig},
		{"file format", &FileFormatError{Path: "g.json", Reason: "bad"}, ErrFileFormat},
		{"graph", &GraphError{Reason: "no edges"}, ErrGraph},
		{"reconstruction", &ReconstructionError{Method: "rw", Err: errors.New("boom")}, ErrReconstruction},
		{"dimension", &DimensionMismatchError{Reconstructed: 5, Truth: 4}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestReconstructionErrorUnwrapsCause(t *testing.T) {
	cause := &DimensionMismatchError{Reconstructed: 7, Truth: 4}
	err := &ReconstructionError{Method: "goni", SimNum: 1, SSNum: 2, Err: cause}

	var dm *DimensionMismatchError
	assert.True(t, errors.As(err, &dm))
	assert.Equal(t, 7, dm.Reconstructed)
	assert.Contains(t, err.Error(), "sim 1, ssnum 2")
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(&ReconstructionError{Method: "rw", Err: errors.New("x")}))
	assert.True(t, IsRecoverable(&DimensionMismatchError{Reconstructed: 2, Truth: 1}))
	assert.False(t, IsRecoverable(&GraphError{Reason: "empty"}))
	assert.False(t, IsRecoverable(Config("numx", -1, "must be positive")))
	assert.False(t, IsRecoverable(nil))
}

func TestFileFormatErrorMessage(t *testing.T) {
	err := &FileFormatError{Path: "usf.snet", Line: 3, Reason: "negative weight"}
	assert.Equal(t, "graph file usf.snet:3: negative weight", err.Error())
}
