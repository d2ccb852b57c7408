package engine

import (
	"context"
	"log/slog"
	"time"

	"botwright/internal/actions"
	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/internal/expressions"
	"botwright/internal/logging"
	"botwright/internal/metrics"
	"botwright/pkg/schema"
)

// Runner wraps every action with the uniform retry and telemetry policy.
// Concrete actions stay free of retry boilerplate so each run reports failures
// in an identical shape.
type Runner struct {
	expr   *expressions.ExprEngine
	logger *slog.Logger

	// sleep is swappable so retry tests do not wait wall-clock delays.
	sleep func(time.Duration)
}

// NewRunner creates a Runner logging through the given logger.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		expr:   expressions.NewExprEngine(),
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Run executes one action under its retry policy and returns whether the
// workflow may continue, along with the action's metrics.
//
// Attempt k of retryCount: success ends the run immediately; a recoverable
// failure or fault on a non-final attempt records RETRYING and sleeps the
// retry delay; on the final attempt it records FAILED with the reason. The
// metrics clock restarts on every attempt, so duration covers only the
// attempt that decided the outcome while attempts counts them all.
func (r *Runner) Run(ctx context.Context, act actions.Action, session browser.Session, bc *botctx.Context) (bool, *metrics.ActionMetrics) {
	spec := act.Spec()
	am := metrics.NewActionMetrics(spec.Name)
	ctx = logging.WithAction(ctx, spec.Name)

	if spec.When != "" {
		proceed, err := r.expr.EvaluateBool(spec.When, bc.Values())
		if err != nil {
			// An undecidable condition fails the action without an attempt.
			am.End(metrics.StatusFailed, err.Error())
			r.logger.ErrorContext(ctx, "condition evaluation failed",
				slog.String("when", spec.When), slog.String("error", err.Error()))
			return false, am
		}
		if !proceed {
			r.logger.InfoContext(ctx, "action skipped by condition",
				slog.String("when", spec.When))
			return true, am
		}
	}

	for attempt := 1; attempt <= spec.RetryCount; attempt++ {
		am.Start()
		ok, err := r.attempt(ctx, act, session, bc)
		if ok && err == nil {
			am.End(metrics.StatusSuccess, "")
			r.logger.InfoContext(ctx, "action succeeded",
				slog.Int("attempt", attempt))
			return true, am
		}

		reason := "action returned false"
		if err != nil {
			reason = err.Error()
		}

		if attempt < spec.RetryCount {
			am.End(metrics.StatusRetrying, reason)
			r.logger.WarnContext(ctx, "action failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("retry_count", spec.RetryCount),
				slog.String("reason", reason))
			r.sleep(time.Duration(spec.RetryDelay) * time.Second)
			continue
		}

		am.End(metrics.StatusFailed, reason)
		r.logger.ErrorContext(ctx, "action failed after all retries",
			slog.Int("attempts", attempt),
			slog.String("reason", reason))
	}
	return false, am
}

// attempt invokes Execute once, converting a panic into a fault so a
// misbehaving action cannot take down the run.
func (r *Runner) attempt(ctx context.Context, act actions.Action, session browser.Session, bc *botctx.Context) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
			err = schema.NewErrorf(schema.ErrCodeExecution, "panic: %v", p).
				WithAction(act.Spec().Name)
		}
	}()
	return act.Execute(ctx, session, bc)
}
