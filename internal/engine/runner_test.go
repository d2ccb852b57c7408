package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botwright/internal/actions"
	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/internal/metrics"
)

// stubAction is a scriptable action: outcomes[i] decides attempt i+1. Extra
// attempts beyond the script succeed.
type stubAction struct {
	base     actions.Base
	outcomes []stubOutcome
	calls    int
	onExec   func(bc *botctx.Context)
}

type stubOutcome struct {
	ok    bool
	err   error
	panic any
}

func newStubAction(name string, retryCount int, outcomes ...stubOutcome) *stubAction {
	return &stubAction{
		base: actions.Base{
			Name:       name,
			RetryCount: retryCount,
			RetryDelay: 1,
			WaitUpper:  0.001,
		},
		outcomes: outcomes,
	}
}

func (a *stubAction) Type() string        { return "StubAction" }
func (a *stubAction) Spec() *actions.Base { return &a.base }
func (a *stubAction) Validate() error     { return nil }

func (a *stubAction) Execute(_ context.Context, _ browser.Session, bc *botctx.Context) (bool, error) {
	i := a.calls
	a.calls++
	if a.onExec != nil {
		a.onExec(bc)
	}
	if i >= len(a.outcomes) {
		return true, nil
	}
	o := a.outcomes[i]
	if o.panic != nil {
		panic(o.panic)
	}
	return o.ok, o.err
}

func failN(n int) []stubOutcome {
	out := make([]stubOutcome, n)
	for i := range out {
		out[i] = stubOutcome{ok: false}
	}
	return out
}

// newTestRunner returns a Runner whose retry sleeps are recorded, not slept.
func newTestRunner() (*Runner, *[]time.Duration) {
	r := NewRunner(nil)
	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }
	return r, &slept
}

func TestRunner_SuccessFirstAttempt(t *testing.T) {
	r, slept := newTestRunner()
	act := newStubAction("ok", 3)

	ok, am := r.Run(context.Background(), act, nil, botctx.New())
	assert.True(t, ok)
	assert.Equal(t, 1, am.Attempts)
	assert.Equal(t, metrics.StatusSuccess, am.Status)
	assert.Empty(t, *slept)
}

func TestRunner_AllAttemptsFailThenFailed(t *testing.T) {
	r, slept := newTestRunner()
	act := newStubAction("flaky", 3, failN(3)...)

	ok, am := r.Run(context.Background(), act, nil, botctx.New())
	assert.False(t, ok)
	assert.Equal(t, 3, act.calls)
	assert.Equal(t, 3, am.Attempts)
	assert.Equal(t, metrics.StatusFailed, am.Status)
	assert.Equal(t, "action returned false", am.ErrorMessage)

	// One delay between each pair of attempts, none after the last.
	require.Len(t, *slept, 2)
	assert.Equal(t, time.Second, (*slept)[0])
}

func TestRunner_SucceedsOnKthAttempt(t *testing.T) {
	r, _ := newTestRunner()
	act := newStubAction("eventually", 5, failN(2)...)

	ok, am := r.Run(context.Background(), act, nil, botctx.New())
	assert.True(t, ok)
	assert.Equal(t, 3, act.calls)
	assert.Equal(t, 3, am.Attempts)
	assert.Equal(t, metrics.StatusSuccess, am.Status)
	assert.Empty(t, am.ErrorMessage)
}

func TestRunner_FaultMessageRecorded(t *testing.T) {
	r, _ := newTestRunner()
	act := newStubAction("broken", 2,
		stubOutcome{err: errors.New("connection reset")},
		stubOutcome{err: errors.New("connection reset")},
	)

	ok, am := r.Run(context.Background(), act, nil, botctx.New())
	assert.False(t, ok)
	assert.Equal(t, metrics.StatusFailed, am.Status)
	assert.Equal(t, "connection reset", am.ErrorMessage)
}

func TestRunner_PanicBecomesFault(t *testing.T) {
	r, _ := newTestRunner()
	act := newStubAction("explosive", 1, stubOutcome{panic: "nil deref"})

	ok, am := r.Run(context.Background(), act, nil, botctx.New())
	assert.False(t, ok)
	assert.Equal(t, 1, am.Attempts)
	assert.Equal(t, metrics.StatusFailed, am.Status)
	assert.Contains(t, am.ErrorMessage, "panic")
	assert.Contains(t, am.ErrorMessage, "nil deref")
}

func TestRunner_WhenFalseSkips(t *testing.T) {
	r, _ := newTestRunner()
	act := newStubAction("conditional", 3)
	act.base.When = "logged_in"

	ok, am := r.Run(context.Background(), act, nil, botctx.New())
	assert.True(t, ok, "a skipped action must not stop the run")
	assert.Equal(t, 0, act.calls)
	assert.Equal(t, 0, am.Attempts)
	assert.Equal(t, metrics.StatusSkipped, am.Status)
}

func TestRunner_WhenTrueExecutes(t *testing.T) {
	r, _ := newTestRunner()
	act := newStubAction("conditional", 3)
	act.base.When = "logged_in == true"

	bc := botctx.New()
	bc.Set("logged_in", true)

	ok, am := r.Run(context.Background(), act, nil, bc)
	assert.True(t, ok)
	assert.Equal(t, 1, act.calls)
	assert.Equal(t, metrics.StatusSuccess, am.Status)
}

func TestRunner_WhenErrorFailsWithoutAttempt(t *testing.T) {
	r, _ := newTestRunner()
	act := newStubAction("conditional", 3)
	act.base.When = "1 + 1" // not a boolean

	ok, am := r.Run(context.Background(), act, nil, botctx.New())
	assert.False(t, ok)
	assert.Equal(t, 0, act.calls)
	assert.Equal(t, 0, am.Attempts)
	assert.Equal(t, metrics.StatusFailed, am.Status)
}

func TestRunner_ContextWritesSurviveFailedAttempts(t *testing.T) {
	r, _ := newTestRunner()
	act := newStubAction("writer", 2, failN(2)...)
	act.onExec = func(bc *botctx.Context) { bc.Set("partial", true) }

	bc := botctx.New()
	ok, _ := r.Run(context.Background(), act, nil, bc)
	assert.False(t, ok)
	// Failed attempts are not transactional; their writes stay visible.
	assert.Equal(t, true, bc.Get("partial", false))
}
