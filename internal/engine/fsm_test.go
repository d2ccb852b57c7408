package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botwright/pkg/schema"
)

func TestRunFSM_HappyPath(t *testing.T) {
	fsm := newRunFSM()
	assert.Equal(t, StateCreated, fsm.current())
	assert.False(t, fsm.terminal())

	require.NoError(t, fsm.transition(StateInitializing))
	require.NoError(t, fsm.transition(StateRunning))
	require.NoError(t, fsm.transition(StateCompleted))
	assert.True(t, fsm.terminal())
}

func TestRunFSM_AbortFromAnyNonTerminal(t *testing.T) {
	for _, setup := range [][]RunState{
		{},
		{StateInitializing},
		{StateInitializing, StateRunning},
	} {
		fsm := newRunFSM()
		for _, s := range setup {
			require.NoError(t, fsm.transition(s))
		}
		require.NoError(t, fsm.transition(StateAborted))
		assert.True(t, fsm.terminal())
	}
}

func TestRunFSM_InvalidTransitions(t *testing.T) {
	fsm := newRunFSM()

	// Cannot jump straight to running or completed.
	err := fsm.transition(StateRunning)
	require.Error(t, err)
	botErr, ok := err.(*schema.BotError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeInvalidTransition, botErr.Code)
	assert.Equal(t, StateCreated, fsm.current(), "failed transition must not move the state")

	require.Error(t, fsm.transition(StateCompleted))
}

func TestRunFSM_TerminalStatesAreFinal(t *testing.T) {
	fsm := newRunFSM()
	require.NoError(t, fsm.transition(StateAborted))

	for _, to := range []RunState{StateInitializing, StateRunning, StateCompleted, StateAborted} {
		require.Error(t, fsm.transition(to))
	}
}
