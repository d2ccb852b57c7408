// Package scheduler runs workflow files on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// WorkflowRunner is the interface the scheduler uses to run a workflow file.
// Satisfied by the CLI run path (avoids import cycle with the engine wiring).
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, path string) error
}

// Entry is one scheduled workflow.
type Entry struct {
	Name     string
	CronExpr string
	Path     string

	schedule cron.Schedule
	nextRun  time.Time
	lastRun  *time.Time
}

// NextRun reports when the entry is next due.
func (e *Entry) NextRun() time.Time { return e.nextRun }

// Scheduler ticks once a minute and runs every due entry.
type Scheduler struct {
	runner WorkflowRunner
	parser cron.Parser
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	entriesMu sync.Mutex
	entries   map[string]*Entry

	inflightMu sync.Mutex
	inflight   map[string]struct{} // entry names currently executing (dedup)
}

// NewScheduler creates a new Scheduler.
func NewScheduler(runner WorkflowRunner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		entries:  make(map[string]*Entry),
		inflight: make(map[string]struct{}),
	}
}

// Add registers a workflow to run on the given cron expression. Adding a name
// twice replaces the earlier entry.
func (s *Scheduler) Add(name, cronExpr, path string) error {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}

	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	s.entries[name] = &Entry{
		Name:     name,
		CronExpr: cronExpr,
		Path:     path,
		schedule: schedule,
		nextRun:  schedule.Next(time.Now().UTC()),
	}
	return nil
}

// Remove drops a scheduled entry; removing an unknown name is a no-op.
func (s *Scheduler) Remove(name string) {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	delete(s.entries, name)
}

// Entries returns a snapshot of the registered entries.
func (s *Scheduler) Entries() []*Entry {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		copied := *e
		out = append(out, &copied)
	}
	return out
}

// Start launches the background scheduling loop with a 60s ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", slog.Int("entries", len(s.Entries())))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	// Run an initial tick immediately.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs every entry whose next run time has passed.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()
	for _, e := range s.due(now) {
		if !s.tryAcquire(e.Name) {
			continue // previous run still going (dedup)
		}
		go func(entry *Entry) {
			defer s.release(entry.Name)
			s.runEntry(ctx, entry, now)
		}(e)
	}
}

// due returns the entries due at now and advances their next run times so a
// slow run cannot make the same entry due twice.
func (s *Scheduler) due(now time.Time) []*Entry {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	var out []*Entry
	for _, e := range s.entries {
		if !e.nextRun.After(now) {
			e.lastRun = &now
			e.nextRun = e.schedule.Next(now)
			out = append(out, e)
		}
	}
	return out
}

func (s *Scheduler) runEntry(ctx context.Context, e *Entry, now time.Time) {
	s.logger.Info("running scheduled workflow",
		slog.String("entry", e.Name),
		slog.String("path", e.Path),
		slog.Time("scheduled_for", now))

	if err := s.runner.RunWorkflow(ctx, e.Path); err != nil {
		s.logger.Error("scheduled workflow failed",
			slog.String("entry", e.Name),
			slog.String("error", err.Error()))
	}
}

// tryAcquire marks the entry in-flight if it is not already running.
func (s *Scheduler) tryAcquire(name string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[name]; ok {
		return false
	}
	s.inflight[name] = struct{}{}
	return true
}

func (s *Scheduler) release(name string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, name)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
