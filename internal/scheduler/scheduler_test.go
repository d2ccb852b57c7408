package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner records workflow paths it was asked to run.
type recordingRunner struct {
	mu    sync.Mutex
	paths []string
	block chan struct{} // non-nil: Run blocks until closed
}

func (r *recordingRunner) RunWorkflow(_ context.Context, path string) error {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	return nil
}

func (r *recordingRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]string, len(r.paths))
	copy(cp, r.paths)
	return cp
}

func TestScheduler_AddValidatesCron(t *testing.T) {
	s := NewScheduler(&recordingRunner{}, nil)

	require.NoError(t, s.Add("nightly", "0 3 * * *", "nightly.yaml"))
	require.Error(t, s.Add("bad", "not a cron", "x.yaml"))
	require.Error(t, s.Add("six", "0 0 3 * * *", "x.yaml"), "six-field form is rejected")

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "nightly", entries[0].Name)
	assert.True(t, entries[0].NextRun().After(time.Now().UTC()))
}

func TestScheduler_AddReplacesByName(t *testing.T) {
	s := NewScheduler(&recordingRunner{}, nil)
	require.NoError(t, s.Add("job", "0 3 * * *", "old.yaml"))
	require.NoError(t, s.Add("job", "0 4 * * *", "new.yaml"))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "new.yaml", entries[0].Path)
}

func TestScheduler_TickRunsDueEntries(t *testing.T) {
	runner := &recordingRunner{}
	s := NewScheduler(runner, nil)
	require.NoError(t, s.Add("due", "* * * * *", "due.yaml"))
	require.NoError(t, s.Add("later", "0 3 * * *", "later.yaml"))

	// Force the first entry overdue; the second stays in the future.
	s.entries["due"].nextRun = time.Now().UTC().Add(-time.Minute)

	s.tick(context.Background())
	require.Eventually(t, func() bool {
		return len(runner.ran()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"due.yaml"}, runner.ran())

	// The due entry was advanced so the next tick does not re-run it.
	assert.True(t, s.entries["due"].nextRun.After(time.Now().UTC()))
	s.tick(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, runner.ran(), 1)
}

func TestScheduler_InflightDedup(t *testing.T) {
	runner := &recordingRunner{block: make(chan struct{})}
	s := NewScheduler(runner, nil)
	require.NoError(t, s.Add("slow", "* * * * *", "slow.yaml"))

	s.entries["slow"].nextRun = time.Now().UTC().Add(-time.Minute)
	s.tick(context.Background())
	require.Eventually(t, func() bool {
		return len(runner.ran()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Still running; a second due tick must not start it again.
	s.entries["slow"].nextRun = time.Now().UTC().Add(-time.Minute)
	s.tick(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, runner.ran(), 1)

	close(runner.block)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(&recordingRunner{}, nil)
	require.NoError(t, s.Add("job", "0 3 * * *", "job.yaml"))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.Error(t, s.Start(ctx), "double start is rejected")
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stop is idempotent")

	// A stopped scheduler can be started again.
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop())
}

func TestScheduler_CalculateNextRun(t *testing.T) {
	s := NewScheduler(&recordingRunner{}, nil)

	from := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	next, err := s.CalculateNextRun("0 3 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC), next)

	_, err = s.CalculateNextRun("nope", from)
	require.Error(t, err)
}
