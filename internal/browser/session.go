// Package browser provides real browser control for workflow actions. Actions
// see only the narrow Session interface; the Playwright implementation lives
// behind it so engine and action tests can substitute fakes.
package browser

import "time"

// Session is one live browser page the workflow drives. Implementations are
// not safe for concurrent use; a workflow run owns its session exclusively.
type Session interface {
	// Navigate loads the given URL and waits for the load event.
	Navigate(url string, opts NavigateOptions) error
	// CurrentURL returns the URL of the current page.
	CurrentURL() string
	// Title returns the current page title.
	Title() (string, error)
	// Source returns the full HTML of the current page.
	Source() (string, error)
	// Refresh reloads the current page.
	Refresh() error

	// Click clicks the first element matching selector, optionally scrolling
	// to it in small human-paced steps first.
	Click(selector string, opts ClickOptions) error
	// Fill sets an input's value directly, without keystroke simulation.
	Fill(selector, value string) error
	// TypeSlow focuses the element and types value with per-character delays
	// and occasional corrected typos.
	TypeSlow(selector, value string) error
	// SelectOption picks a dropdown option by label, falling back to value.
	SelectOption(selector, value string) error
	// SetChecked checks or unchecks a checkbox/radio element.
	SetChecked(selector string, checked bool) error
	// WaitForSelector waits until an element matching selector reaches the
	// requested state.
	WaitForSelector(selector string, opts WaitOptions) error
	// ScrollToElement scrolls the page toward the element in small steps.
	ScrollToElement(selector string) error
	// Evaluate runs a JavaScript expression in the page and returns its result.
	Evaluate(js string) (any, error)

	// Cookies returns the session's cookies as a name to value map.
	Cookies() (map[string]string, error)

	// NextDialog blocks until the page raises a JavaScript dialog (alert,
	// confirm, prompt) or the timeout elapses.
	NextDialog(timeout time.Duration) (Dialog, error)

	// ExpectDownload runs trigger, waits for the download it starts, and
	// saves the file into dir.
	ExpectDownload(dir string, timeout time.Duration, trigger func() error) (DownloadInfo, error)

	// Close releases the page and its browser resources.
	Close() error
}

// Launcher acquires Sessions. The Bot treats it as an external collaborator:
// acquisition failure aborts a run before any action executes.
type Launcher interface {
	Launch(opts LaunchOptions) (Session, error)
	// Stop tears down the underlying driver once no sessions are needed.
	Stop() error
}

// Dialog is a JavaScript dialog awaiting a response.
type Dialog interface {
	Message() string
	Accept(text string) error
	Dismiss() error
}

// DownloadInfo describes a completed download.
type DownloadInfo struct {
	Filename  string `json:"filename"`
	Path      string `json:"filepath"`
	SizeBytes int64  `json:"size_bytes"`
	Dir       string `json:"download_dir"`
}

// LaunchOptions configures a new browser session.
type LaunchOptions struct {
	Headless bool
	// Timeout is the default wait applied to element operations.
	Timeout time.Duration
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil: "load", "domcontentloaded" or "networkidle". Empty means load.
	WaitUntil string
	Timeout   time.Duration
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	ScrollFirst bool
	Timeout     time.Duration
}

// WaitOptions configures waiting behavior.
type WaitOptions struct {
	// State: "attached", "detached", "visible" or "hidden". Empty means visible.
	State   string
	Timeout time.Duration
}

// DefaultTimeout is the element-operation wait applied when none is configured.
const DefaultTimeout = 10 * time.Second
