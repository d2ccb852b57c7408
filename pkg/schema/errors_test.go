package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotError_Message(t *testing.T) {
	err := NewError(ErrCodeValidation, "selector is required")
	assert.Equal(t, "[VALIDATION_ERROR] selector is required", err.Error())

	err = NewErrorf(ErrCodeUnknownAction, "unknown action type %q", "teleport").
		WithAction("step 3")
	assert.Equal(t, `[UNKNOWN_ACTION] action step 3: unknown action type "teleport"`, err.Error())
}

func TestBotError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrCodeSession, "cannot reach browser").WithCause(cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestBotError_Details(t *testing.T) {
	err := NewError(ErrCodeValidation, "bad record").
		WithDetails(map[string]any{"action_index": 2})
	assert.Equal(t, 2, err.Details["action_index"])
}
