package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/internal/metrics"
	"botwright/internal/services"
	"botwright/pkg/schema"
)

// fakeLauncher hands out one inert session, or refuses when launchErr is set.
type fakeLauncher struct {
	launchErr error
	session   *inertSession
	launches  int
}

func (l *fakeLauncher) Launch(browser.LaunchOptions) (browser.Session, error) {
	l.launches++
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	if l.session == nil {
		l.session = &inertSession{}
	}
	return l.session, nil
}

func (l *fakeLauncher) Stop() error { return nil }

// inertSession satisfies browser.Session with no-ops; bot tests exercise the
// run lifecycle, not browser behavior.
type inertSession struct {
	closed   bool
	closeErr error
}

func (s *inertSession) Navigate(string, browser.NavigateOptions) error { return nil }
func (s *inertSession) CurrentURL() string                             { return "" }
func (s *inertSession) Title() (string, error)                         { return "", nil }
func (s *inertSession) Source() (string, error)                        { return "", nil }
func (s *inertSession) Refresh() error                                 { return nil }
func (s *inertSession) Click(string, browser.ClickOptions) error       { return nil }
func (s *inertSession) Fill(string, string) error                      { return nil }
func (s *inertSession) TypeSlow(string, string) error                  { return nil }
func (s *inertSession) SelectOption(string, string) error              { return nil }
func (s *inertSession) SetChecked(string, bool) error                  { return nil }
func (s *inertSession) WaitForSelector(string, browser.WaitOptions) error {
	return nil
}
func (s *inertSession) ScrollToElement(string) error { return nil }
func (s *inertSession) Evaluate(string) (any, error) { return nil, nil }
func (s *inertSession) Cookies() (map[string]string, error) {
	return nil, nil
}
func (s *inertSession) NextDialog(time.Duration) (browser.Dialog, error) {
	return nil, errors.New("no dialog")
}
func (s *inertSession) ExpectDownload(string, time.Duration, func() error) (browser.DownloadInfo, error) {
	return browser.DownloadInfo{}, errors.New("no download")
}
func (s *inertSession) Close() error {
	s.closed = true
	return s.closeErr
}

func newTestBot(launcher browser.Launcher, acts ...*stubAction) *Bot {
	b := New(Options{Name: "test-bot", Launcher: launcher})
	b.runner.sleep = func(time.Duration) {}
	for _, a := range acts {
		b.AddAction(a)
	}
	return b
}

func TestBot_AllActionsSucceed(t *testing.T) {
	launcher := &fakeLauncher{}
	a1 := newStubAction("first", 3)
	a2 := newStubAction("second", 3)
	bot := newTestBot(launcher, a1, a2)

	ok := bot.Run(context.Background())
	assert.True(t, ok)
	assert.Equal(t, StateCompleted, bot.State())

	m := bot.Metrics()
	assert.True(t, m.OverallSuccess)
	assert.Equal(t, 2, m.TotalActions)
	assert.Equal(t, 2, m.Successful)
	assert.Equal(t, 0, m.Failed)
	assert.Equal(t, 100.0, m.SuccessRate)
	require.NotNil(t, m.EndTime)

	assert.True(t, launcher.session.closed, "session must be released")
}

func TestBot_FailFastOnFirstFailure(t *testing.T) {
	launcher := &fakeLauncher{}
	first := newStubAction("first", 1)
	failing := newStubAction("failing", 2, failN(2)...)
	never := newStubAction("never", 1)
	bot := newTestBot(launcher, first, failing, never)

	ok := bot.Run(context.Background())
	assert.False(t, ok)
	assert.Equal(t, StateCompleted, bot.State())

	// Actions after the failure are never attempted and never counted.
	assert.Equal(t, 0, never.calls)
	m := bot.Metrics()
	assert.False(t, m.OverallSuccess)
	assert.Equal(t, 2, m.TotalActions)
	assert.Equal(t, 1, m.Successful)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, metrics.StatusFailed, m.Actions[1].Status)

	assert.True(t, launcher.session.closed)
}

func TestBot_SessionAcquisitionFailureAborts(t *testing.T) {
	launcher := &fakeLauncher{launchErr: errors.New("driver not installed")}
	act := newStubAction("never", 3)
	bot := newTestBot(launcher, act)

	ok := bot.Run(context.Background())
	assert.False(t, ok)
	assert.Equal(t, StateAborted, bot.State())
	assert.Equal(t, 0, act.calls)

	// Metrics are still emitted with zero actions.
	m := bot.Metrics()
	assert.False(t, m.OverallSuccess)
	assert.Equal(t, 0, m.TotalActions)
	assert.Equal(t, 0.0, m.SuccessRate)
	require.NotNil(t, m.EndTime)
}

func TestBot_SkippedActionDoesNotStopRun(t *testing.T) {
	launcher := &fakeLauncher{}
	skipped := newStubAction("conditional", 3)
	skipped.base.When = "logged_in" // never set, evaluates nil -> false
	after := newStubAction("after", 3)
	bot := newTestBot(launcher, skipped, after)

	ok := bot.Run(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 0, skipped.calls)
	assert.Equal(t, 1, after.calls)

	m := bot.Metrics()
	assert.Equal(t, 2, m.TotalActions)
	assert.Equal(t, 1, m.Successful)
	assert.Equal(t, metrics.StatusSkipped, m.Actions[0].Status)
}

func TestBot_TeardownErrorDoesNotChangeOutcome(t *testing.T) {
	launcher := &fakeLauncher{session: &inertSession{closeErr: errors.New("already closed")}}
	bot := newTestBot(launcher, newStubAction("only", 1))

	ok := bot.Run(context.Background())
	assert.True(t, ok)
	assert.True(t, bot.Metrics().OverallSuccess)
}

func TestBot_SecondRunRejected(t *testing.T) {
	launcher := &fakeLauncher{}
	bot := newTestBot(launcher, newStubAction("only", 1))

	require.True(t, bot.Run(context.Background()))
	assert.False(t, bot.Run(context.Background()), "a bot is single-use")
	assert.Equal(t, 1, launcher.launches)
}

func TestBot_GeneratesCorrelationID(t *testing.T) {
	bot := New(Options{Launcher: &fakeLauncher{}})
	assert.NotEmpty(t, bot.CorrelationID())
	assert.Equal(t, bot.CorrelationID(), bot.Metrics().CorrelationID)

	named := New(Options{Launcher: &fakeLauncher{}, CorrelationID: "corr-42", Name: "named"})
	assert.Equal(t, "corr-42", named.CorrelationID())
	assert.Equal(t, "named", named.Metrics().BotName)
}

type recordingTransfer struct {
	sent [][2]string
	err  error
}

func (r *recordingTransfer) Send(_ context.Context, local, remote string) error {
	r.sent = append(r.sent, [2]string{local, remote})
	return r.err
}

func TestBot_TransfersDownloadedFiles(t *testing.T) {
	transfer := &recordingTransfer{}
	bot := New(Options{
		Name:         "transfer-bot",
		Launcher:     &fakeLauncher{},
		Integrations: &services.Integrations{Transfer: transfer},
		Report:       &schema.ReportConfig{TransferTo: "/incoming/reports"},
	})
	bot.runner.sleep = func(time.Duration) {}

	download := newStubAction("download", 1)
	download.onExec = func(bc *botctx.Context) {
		bc.Set(botctx.KeyDownloads, []map[string]any{
			{"filename": "a.csv", "filepath": "/tmp/dl/a.csv"},
			{"filename": "b.csv", "filepath": "/tmp/dl/b.csv"},
		})
		bc.Set(botctx.KeyLastDownload, map[string]any{
			"filename": "b.csv", "filepath": "/tmp/dl/b.csv",
		})
	}
	bot.AddAction(download)

	require.True(t, bot.Run(context.Background()))
	require.Len(t, transfer.sent, 2, "duplicate paths are sent once")
	assert.Equal(t, [2]string{"/tmp/dl/a.csv", "/incoming/reports/a.csv"}, transfer.sent[0])
	assert.Equal(t, [2]string{"/tmp/dl/b.csv", "/incoming/reports/b.csv"}, transfer.sent[1])
}

func TestBot_TransferFailureDoesNotChangeOutcome(t *testing.T) {
	transfer := &recordingTransfer{err: errors.New("connection refused")}
	bot := New(Options{
		Launcher:     &fakeLauncher{},
		Integrations: &services.Integrations{Transfer: transfer},
		Report:       &schema.ReportConfig{TransferTo: "/incoming"},
	})
	bot.runner.sleep = func(time.Duration) {}

	act := newStubAction("download", 1)
	act.onExec = func(bc *botctx.Context) {
		bc.Set(botctx.KeyLastDownload, map[string]any{"filepath": "/tmp/dl/x.csv"})
	}
	bot.AddAction(act)

	assert.True(t, bot.Run(context.Background()))
	assert.Len(t, transfer.sent, 1)
}

func TestBot_SharedContextFlowsBetweenActions(t *testing.T) {
	launcher := &fakeLauncher{}
	writer := newStubAction("writer", 1)
	writer.onExec = func(bc *botctx.Context) { bc.Set("items_found", 7) }

	reader := newStubAction("reader", 1)
	reader.base.When = "items_found > 5"
	bot := newTestBot(launcher, writer, reader)

	ok := bot.Run(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 1, reader.calls)
	assert.Equal(t, 7, bot.Context().Get("items_found", nil))
}
