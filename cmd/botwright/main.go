// Command botwright runs YAML-defined browser workflows.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"botwright/internal/logging"
)

var version = "dev"

const usage = `botwright - config-driven browser automation

Usage:
  botwright run [flags] <workflow.yaml>     run a workflow
  botwright validate <workflow.yaml>        load and validate a workflow
  botwright actions                         list registered action types
  botwright history [flags]                 show past runs
  botwright schedule [flags] <workflow...>  run workflows on a cron schedule
  botwright version                         print version

Run "botwright <command> -h" for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	var err error
	switch os.Args[1] {
	case "run":
		err = runRun(os.Args[2:], cfg, logger)
	case "validate":
		err = runValidate(os.Args[2:])
	case "actions":
		err = runActions(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:], cfg)
	case "schedule":
		err = runSchedule(os.Args[2:], cfg, logger)
	case "version":
		fmt.Println("botwright " + version)
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		if err == errRunFailed {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger: JSON to stderr, wrapped so bot name,
// action, and correlation ID flow from context into every record.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}
