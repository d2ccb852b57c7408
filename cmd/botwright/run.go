package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"botwright/internal/actions"
	"botwright/internal/browser"
	"botwright/internal/config"
	"botwright/internal/engine"
	"botwright/internal/metrics"
	"botwright/internal/scheduler"
	"botwright/internal/store"
)

// errRunFailed signals a workflow that ran but did not succeed; the caller
// maps it to exit code 1 without printing a generic error.
var errRunFailed = errors.New("workflow run failed")

func runRun(args []string, cfg Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	headless := fs.Bool("headless", false, "run the browser headless (overrides the workflow setting)")
	debug := fs.Bool("debug", false, "enable debug logging of actions and context")
	noStore := fs.Bool("no-store", false, "skip saving the run to history")
	metricsOut := fs.String("metrics-out", "", "write the run metrics JSON to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run: expected exactly one workflow file")
	}

	doc, err := config.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	registry := actions.Default()
	list, err := registry.DeserializeAll(doc.Actions)
	if err != nil {
		return err
	}

	launcher := browser.NewPlaywrightLauncher()
	defer func() {
		if err := launcher.Stop(); err != nil {
			logger.Warn("stopping browser driver", slog.String("error", err.Error()))
		}
	}()

	bot := engine.New(engine.Options{
		Name:          doc.Bot.Name,
		Headless:      doc.Bot.Headless || *headless,
		Debug:         doc.Bot.Debug || *debug,
		CorrelationID: doc.Bot.CorrelationID,
		Launcher:      launcher,
		Integrations:  buildIntegrations(cfg, logger),
		Report:        doc.Bot.Report,
		Logger:        logger,
	})
	bot.AddActions(list)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	success := bot.Run(ctx)

	printSummary(bot)

	if *metricsOut != "" {
		if err := writeMetrics(*metricsOut, bot); err != nil {
			logger.Warn("writing metrics file", slog.String("error", err.Error()))
		}
	}
	if !*noStore {
		if err := saveRun(ctx, cfg, bot); err != nil {
			logger.Warn("saving run history", slog.String("error", err.Error()))
		}
	}

	if !success {
		return errRunFailed
	}
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("validate: expected exactly one workflow file")
	}

	doc, err := config.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	list, err := actions.Default().DeserializeAll(doc.Actions)
	if err != nil {
		return err
	}

	color.Green("%s: valid (%d actions, bot %q)", fs.Arg(0), len(list), doc.Bot.Name)
	return nil
}

func runActions(args []string) error {
	fs := flag.NewFlagSet("actions", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range actions.Default().Names() {
		fmt.Println(name)
	}
	return nil
}

func runHistory(args []string, cfg Config) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	botName := fs.String("bot", "", "filter by bot name")
	limit := fs.Int("limit", 20, "maximum runs to show")
	asJSON := fs.Bool("json", false, "emit JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), store.RunFilter{
		BotName: *botName,
		Limit:   *limit,
	})
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		status := color.GreenString("ok")
		if !r.Success {
			status = color.RedString("failed")
		}
		fmt.Printf("%s  %-20s %-6s %d/%d actions  %.1fs  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.BotName, status, r.Successful, r.TotalActions, r.Duration, r.CorrelationID)
	}
	return nil
}

func runSchedule(args []string, cfg Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	cronExpr := fs.String("cron", "", "cron expression (standard five-field form)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cronExpr == "" || fs.NArg() == 0 {
		return fmt.Errorf("schedule: -cron and at least one workflow file are required")
	}

	sched := scheduler.NewScheduler(&cliRunner{cfg: cfg, logger: logger}, logger)
	for _, path := range fs.Args() {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := sched.Add(name, *cronExpr, path); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return err
	}
	for _, e := range sched.Entries() {
		fmt.Printf("scheduled %s (%s), next run %s\n",
			e.Name, e.CronExpr, e.NextRun().Format(time.RFC3339))
	}

	<-ctx.Done()
	return sched.Stop()
}

// cliRunner adapts the run subcommand for the scheduler.
type cliRunner struct {
	cfg    Config
	logger *slog.Logger
}

func (r *cliRunner) RunWorkflow(ctx context.Context, path string) error {
	err := runRun([]string{path}, r.cfg, r.logger)
	if err == errRunFailed {
		return fmt.Errorf("workflow %s failed", path)
	}
	return err
}

func openStore(cfg Config) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(botwrightDir(), 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", botwrightDir(), err)
	}
	st, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func saveRun(ctx context.Context, cfg Config, bot *engine.Bot) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	m := bot.Metrics()
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return st.SaveRun(ctx, &store.RunRecord{
		ID:            uuid.NewString(),
		BotName:       m.BotName,
		CorrelationID: m.CorrelationID,
		Success:       m.OverallSuccess,
		TotalActions:  m.TotalActions,
		Successful:    m.Successful,
		Failed:        m.Failed,
		Duration:      m.Duration,
		Metrics:       raw,
		StartedAt:     m.StartTime,
		CompletedAt:   m.EndTime,
	})
}

func writeMetrics(path string, bot *engine.Bot) error {
	data, err := json.MarshalIndent(bot.Metrics(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(config.ExpandHome(path), data, 0o644)
}

// printSummary renders the run outcome for a human watching the terminal; the
// structured log stream carries the same data for machines.
func printSummary(bot *engine.Bot) {
	success := color.New(color.FgGreen).SprintFunc()
	failure := color.New(color.FgRed).SprintFunc()
	highlight := color.New(color.FgCyan).SprintFunc()
	warning := color.New(color.FgYellow).SprintFunc()

	m := bot.Metrics()
	fmt.Println()
	if m.OverallSuccess {
		fmt.Printf("%s %s\n", success("PASS"), highlight(m.BotName))
	} else {
		fmt.Printf("%s %s\n", failure("FAIL"), highlight(m.BotName))
	}
	fmt.Printf("  %d/%d actions succeeded (%.1f%%) in %.1fs\n",
		m.Successful, m.TotalActions, m.SuccessRate, m.Duration)
	fmt.Printf("  correlation %s\n", m.CorrelationID)

	for _, am := range m.Actions {
		switch am.Status {
		case metrics.StatusSuccess:
			fmt.Printf("  %s %s (%d attempt(s), %.2fs)\n",
				success("+"), am.ActionName, am.Attempts, am.Duration)
		case metrics.StatusSkipped:
			fmt.Printf("  %s %s (skipped)\n", warning("~"), am.ActionName)
		default:
			fmt.Printf("  %s %s (%d attempt(s)): %s\n",
				failure("x"), am.ActionName, am.Attempts, am.ErrorMessage)
		}
	}
}
