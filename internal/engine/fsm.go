package engine

import "botwright/pkg/schema"

// RunState is the lifecycle state of one workflow run.
type RunState string

const (
	StateCreated      RunState = "created"
	StateInitializing RunState = "initializing"
	StateRunning      RunState = "running"
	StateCompleted    RunState = "completed"
	StateAborted      RunState = "aborted"
)

// validRunTransitions is the full transition table. Aborted is reachable from
// any non-terminal state so a fault anywhere lands the run somewhere sane.
var validRunTransitions = map[RunState][]RunState{
	StateCreated:      {StateInitializing, StateAborted},
	StateInitializing: {StateRunning, StateAborted},
	StateRunning:      {StateCompleted, StateAborted},
}

// runFSM tracks and validates a single run's lifecycle. Not thread-safe; a
// run is strictly sequential.
type runFSM struct {
	state RunState
}

func newRunFSM() *runFSM {
	return &runFSM{state: StateCreated}
}

func (f *runFSM) current() RunState {
	return f.state
}

func (f *runFSM) transition(to RunState) error {
	for _, allowed := range validRunTransitions[f.state] {
		if allowed == to {
			f.state = to
			return nil
		}
	}
	return schema.NewErrorf(schema.ErrCodeInvalidTransition,
		"invalid run transition: %s -> %s", f.state, to)
}

// terminal reports whether the run has reached a final state.
func (f *runFSM) terminal() bool {
	return f.state == StateCompleted || f.state == StateAborted
}
