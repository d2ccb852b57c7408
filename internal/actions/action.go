// Package actions defines the polymorphic unit of work a workflow executes
// and the registry that turns untyped configuration records into concrete,
// runnable actions.
package actions

import (
	"context"

	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/pkg/schema"
)

// Action is a single declarative step in a workflow. Concrete variants
// implement only Execute; retries, pacing enforcement and metrics are imposed
// uniformly by the engine's Runner.
type Action interface {
	// Type returns the variant's discriminator tag, fixed per variant.
	Type() string
	// Spec returns the fields every action shares (name, retry policy, waits).
	Spec() *Base
	// Validate checks variant fields after construction from configuration.
	Validate() error
	// Execute performs the step against the browser session. It returns
	// (false, nil) on a recoverable failure and a non-nil error on a fault;
	// either one is subject to the retry policy. Execute may mutate bc to
	// publish results for later actions.
	Execute(ctx context.Context, session browser.Session, bc *botctx.Context) (bool, error)
}

// Base carries the identity, retry policy and pacing bounds shared by all
// action variants. It is embedded in every concrete action so the fields
// serialize inline with the variant's own.
type Base struct {
	Name       string  `json:"name" yaml:"name"`
	RetryCount int     `json:"retry_count" yaml:"retry_count"`
	RetryDelay int     `json:"retry_delay" yaml:"retry_delay"` // seconds between attempts
	WaitLower  float64 `json:"wait_lower" yaml:"wait_lower"`
	WaitUpper  float64 `json:"wait_upper" yaml:"wait_upper"`
	// When is an optional expression evaluated against the context before the
	// first attempt; false skips the action without failing the run.
	When string `json:"when,omitempty" yaml:"when,omitempty"`
}

// Default retry policy and pacing, matching the documented action contract.
const (
	DefaultRetryCount = 3
	DefaultRetryDelay = 2
	DefaultWaitLower  = 1.1
	DefaultWaitUpper  = 10.0
)

func defaultBase(name string) Base {
	return Base{
		Name:       name,
		RetryCount: DefaultRetryCount,
		RetryDelay: DefaultRetryDelay,
		WaitLower:  DefaultWaitLower,
		WaitUpper:  DefaultWaitUpper,
	}
}

// validate checks the shared fields.
func (b *Base) validate(typeTag string) error {
	if b.RetryCount < 1 {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: retry_count must be >= 1 (got %d)", typeTag, b.RetryCount)
	}
	if b.RetryDelay < 0 {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: retry_delay must be >= 0 (got %d)", typeTag, b.RetryDelay)
	}
	if b.WaitLower < 0 {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: wait_lower must be >= 0 (got %v)", typeTag, b.WaitLower)
	}
	if b.WaitUpper < b.WaitLower {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: wait_upper (%v) must be >= wait_lower (%v)", typeTag, b.WaitUpper, b.WaitLower)
	}
	return nil
}

// pause sleeps a human-paced random interval within the action's bounds.
func (b *Base) pause() {
	browser.RandomPause(b.WaitLower, b.WaitUpper)
}

// pauseFrom sleeps with a tighter lower bound but the action's upper bound.
func (b *Base) pauseFrom(lower float64) {
	upper := b.WaitUpper
	if upper < lower {
		upper = lower
	}
	browser.RandomPause(lower, upper)
}
