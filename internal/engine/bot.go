// Package engine drives workflow runs: the Bot owns the ordered action list
// and the shared context, acquires one browser session per run, and executes
// actions strictly in order through the Runner.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"botwright/internal/actions"
	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/internal/logging"
	"botwright/internal/metrics"
	"botwright/internal/services"
	"botwright/pkg/schema"
)

// Options configures a Bot. Launcher is the only required field.
type Options struct {
	Name          string
	Headless      bool
	Debug         bool
	CorrelationID string
	Launcher      browser.Launcher
	Integrations  *services.Integrations
	Report        *schema.ReportConfig
	Logger        *slog.Logger
}

// Bot executes an ordered list of actions against one browser session.
// A Bot is built, run once, and discarded; it is not safe for concurrent use.
type Bot struct {
	name          string
	correlationID string
	headless      bool
	debug         bool

	launcher     browser.Launcher
	integrations *services.Integrations
	report       *schema.ReportConfig

	runner  *Runner
	logger  *slog.Logger
	fsm     *runFSM
	ctx     *botctx.Context
	actions []actions.Action
	metrics *metrics.WorkflowMetrics
}

// New creates a Bot. A missing correlation ID is generated; a missing name
// defaults to "bot".
func New(opts Options) *Bot {
	name := opts.Name
	if name == "" {
		name = "bot"
	}
	correlationID := opts.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		name:          name,
		correlationID: correlationID,
		headless:      opts.Headless,
		debug:         opts.Debug,
		launcher:      opts.Launcher,
		integrations:  opts.Integrations,
		report:        opts.Report,
		runner:        NewRunner(logger),
		logger:        logger,
		fsm:           newRunFSM(),
		ctx:           botctx.New(),
		metrics:       metrics.NewWorkflowMetrics(name, correlationID),
	}
}

// AddAction appends an action to the workflow. Chainable.
func (b *Bot) AddAction(a actions.Action) *Bot {
	b.actions = append(b.actions, a)
	return b
}

// AddActions appends actions in order.
func (b *Bot) AddActions(list []actions.Action) *Bot {
	b.actions = append(b.actions, list...)
	return b
}

// Context returns the run's shared context.
func (b *Bot) Context() *botctx.Context { return b.ctx }

// Metrics returns the run's metrics; complete only after Run returns.
func (b *Bot) Metrics() *metrics.WorkflowMetrics { return b.metrics }

// State returns the run's current lifecycle state.
func (b *Bot) State() RunState { return b.fsm.current() }

// CorrelationID returns the run's correlation ID.
func (b *Bot) CorrelationID() string { return b.correlationID }

// Run executes the workflow: acquire a session, run every action in order,
// stop on the first unrecovered failure, release the session. Metrics are
// emitted on every path, including aborts; Run never panics out.
func (b *Bot) Run(ctx context.Context) (success bool) {
	ctx = logging.WithBotName(ctx, b.name)
	ctx = logging.WithCorrelationID(ctx, b.correlationID)

	b.logger.InfoContext(ctx, "starting bot run",
		slog.Int("total_actions", len(b.actions)),
		slog.Bool("headless", b.headless))
	b.metrics.Start()

	if err := b.fsm.transition(StateInitializing); err != nil {
		b.logger.ErrorContext(ctx, "run already started", slog.String("error", err.Error()))
		return false
	}

	session, err := b.launcher.Launch(browser.LaunchOptions{Headless: b.headless})
	if err != nil {
		b.logger.ErrorContext(ctx, "browser session acquisition failed",
			slog.String("error", err.Error()))
		_ = b.fsm.transition(StateAborted)
		b.finish(ctx, nil, false)
		return false
	}

	defer func() {
		// Defensive boundary: a panic escaping the Runner aborts the run but
		// still tears down the session and emits metrics.
		if p := recover(); p != nil {
			b.logger.ErrorContext(ctx, "unexpected fault in workflow loop",
				slog.Any("panic", p))
			if !b.fsm.terminal() {
				_ = b.fsm.transition(StateAborted)
			}
			b.finish(ctx, session, false)
			success = false
		}
	}()

	_ = b.fsm.transition(StateRunning)
	if b.debug {
		b.listActions(ctx)
	}

	for i, act := range b.actions {
		b.logger.InfoContext(ctx, "executing action",
			slog.String("action_name", act.Spec().Name),
			slog.Int("action_index", i),
			slog.String("progress", fmt.Sprintf("%d/%d", i+1, len(b.actions))))

		ok, am := b.runner.Run(ctx, act, session, b.ctx)
		b.metrics.AddAction(am)

		if !ok {
			b.logger.ErrorContext(ctx, "bot stopped due to action failure",
				slog.String("failed_action", act.Spec().Name),
				slog.Int("action_index", i))
			_ = b.fsm.transition(StateCompleted)
			b.finish(ctx, session, false)
			return false
		}
	}

	b.logger.InfoContext(ctx, "bot completed all actions",
		slog.Int("total_actions", len(b.actions)))
	if b.debug {
		b.logger.DebugContext(ctx, "final bot context", slog.Any("values", b.ctx.Values()))
	}
	_ = b.fsm.transition(StateCompleted)
	b.finish(ctx, session, true)
	return true
}

// finish closes out the run on every path: metrics end, session teardown,
// optional reporting, summary log. Teardown faults are logged and suppressed;
// they never change the run's recorded outcome.
func (b *Bot) finish(ctx context.Context, session browser.Session, success bool) {
	b.metrics.End(success)

	if session != nil {
		if err := session.Close(); err != nil {
			b.logger.ErrorContext(ctx, "error closing browser session",
				slog.String("error", err.Error()))
		}
	}

	b.sendReport(ctx)

	b.logger.InfoContext(ctx, "bot run finished",
		slog.Bool("overall_success", b.metrics.OverallSuccess),
		slog.Int("total_actions", b.metrics.TotalActions),
		slog.Int("successful_actions", b.metrics.Successful),
		slog.Int("failed_actions", b.metrics.Failed),
		slog.Float64("success_rate", b.metrics.SuccessRate),
		slog.Float64("duration_seconds", b.metrics.Duration))
}

// sendReport runs the configured post-run reporting. Reporting failures are
// logged, never escalated.
func (b *Bot) sendReport(ctx context.Context) {
	if b.report == nil || b.integrations.Empty() {
		return
	}

	if b.report.Notify && b.integrations.Slack != nil {
		outcome := "succeeded"
		if !b.metrics.OverallSuccess {
			outcome = "failed"
		}
		msg := fmt.Sprintf("%d/%d actions succeeded in %.1fs (correlation %s)",
			b.metrics.Successful, b.metrics.TotalActions, b.metrics.Duration, b.correlationID)
		title := fmt.Sprintf("Bot %q %s", b.name, outcome)
		if err := b.integrations.Slack.Notify(ctx, title, msg); err != nil {
			b.logger.WarnContext(ctx, "slack notification failed", slog.String("error", err.Error()))
		}
	}

	if b.report.TransferTo != "" && b.integrations.Transfer != nil {
		for _, local := range b.downloadedFiles() {
			remote := path.Join(b.report.TransferTo, filepath.Base(local))
			if err := b.integrations.Transfer.Send(ctx, local, remote); err != nil {
				b.logger.WarnContext(ctx, "download transfer failed",
					slog.String("file", local), slog.String("error", err.Error()))
			}
		}
	}

	if b.report.Upload && b.integrations.Storage != nil {
		data, err := json.MarshalIndent(b.metrics, "", "  ")
		if err != nil {
			b.logger.WarnContext(ctx, "marshal metrics report failed", slog.String("error", err.Error()))
			return
		}
		key := fmt.Sprintf("%s/%s-%s.json",
			b.report.UploadTo, b.name, time.Now().UTC().Format("20060102T150405Z"))
		if b.report.UploadTo == "" {
			key = fmt.Sprintf("%s-%s.json", b.name, time.Now().UTC().Format("20060102T150405Z"))
		}
		if err := b.integrations.Storage.Upload(ctx, key, data, "application/json"); err != nil {
			b.logger.WarnContext(ctx, "metrics report upload failed", slog.String("error", err.Error()))
		}
	}
}

// downloadedFiles collects local paths of files downloaded during the run,
// deduplicated, in publish order.
func (b *Bot) downloadedFiles() []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(v any) {
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		p, ok := m["filepath"].(string)
		if !ok || p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}

	if list, ok := b.ctx.Get(botctx.KeyDownloads, nil).([]map[string]any); ok {
		for _, m := range list {
			add(m)
		}
	}
	add(b.ctx.Get(botctx.KeyLastDownload, nil))
	return paths
}

func (b *Bot) listActions(ctx context.Context) {
	names := make([]string, len(b.actions))
	for i, a := range b.actions {
		names[i] = a.Spec().Name
	}
	b.logger.DebugContext(ctx, "workflow actions", slog.Any("actions", names))
}
