package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeNotFound, "Sprint not found", "")
	assert.Equal(t, "NOT_FOUND: Sprint not found", err.Error())

	err = NewAppError(ErrCodeInternal, "Failed to start sprint", "connection reset")
	assert.Equal(t, "INTERNAL_ERROR: Failed to start sprint (connection reset)", err.Error())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"app error", NewConflictError("an active sprint already exists", ""), ErrCodeConflict},
		{"wrapped app error", fmt.Errorf("start: %w", NewInvalidStateError("nope", "")), ErrCodeInvalidState},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestIsCode(t *testing.T) {
	err := NewNotFoundError("Task not found", "")
	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(err, ErrCodeConflict))
}
