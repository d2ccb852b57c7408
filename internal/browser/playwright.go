package browser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher launches Chromium sessions through Playwright. The
// driver is installed and started lazily on the first Launch call.
type PlaywrightLauncher struct {
	mu sync.Mutex
	pw *playwright.Playwright
}

// NewPlaywrightLauncher creates an uninitialized launcher.
func NewPlaywrightLauncher() *PlaywrightLauncher {
	return &PlaywrightLauncher{}
}

// init installs and starts the Playwright driver once. Output is discarded so
// the driver does not interfere with CLI output.
func (l *PlaywrightLauncher) init() error {
	if l.pw != nil {
		return nil
	}
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	l.pw = pw
	return nil
}

// Launch starts a Chromium instance with a human-jittered window size and
// returns a Session bound to a fresh browser context and page.
func (l *PlaywrightLauncher) Launch(opts LaunchOptions) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.init(); err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	b, err := l.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	width, height := randomViewport()
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport:        &playwright.Size{Width: width, Height: height},
		AcceptDownloads: playwright.Bool(true),
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	s := &playwrightSession{
		browser: b,
		bctx:    bctx,
		page:    page,
		timeout: opts.Timeout,
		dialogs: make(chan playwright.Dialog, 4),
	}
	// Buffer dialogs so AlertAction can pick them up; dismiss overflow to
	// keep the page from blocking.
	page.OnDialog(func(d playwright.Dialog) {
		select {
		case s.dialogs <- d:
		default:
			_ = d.Dismiss()
		}
	})
	return s, nil
}

// Stop shuts down the Playwright driver.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

type playwrightSession struct {
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
	dialogs chan playwright.Dialog
}

func (s *playwrightSession) Navigate(url string, opts NavigateOptions) error {
	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		state := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &state
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}
	if _, err := s.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) CurrentURL() string {
	return s.page.URL()
}

func (s *playwrightSession) Title() (string, error) {
	return s.page.Title()
}

func (s *playwrightSession) Source() (string, error) {
	return s.page.Content()
}

func (s *playwrightSession) Refresh() error {
	_, err := s.page.Reload()
	return err
}

func (s *playwrightSession) Click(selector string, opts ClickOptions) error {
	if opts.ScrollFirst {
		// Scrolling is best-effort; the click itself still auto-scrolls.
		_ = s.ScrollToElement(selector)
	}
	clickOpts := playwright.PageClickOptions{}
	if opts.Timeout > 0 {
		clickOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}
	return s.page.Click(selector, clickOpts)
}

func (s *playwrightSession) Fill(selector, value string) error {
	return s.page.Fill(selector, value)
}

func (s *playwrightSession) TypeSlow(selector, value string) error {
	// Focus the element first so keystrokes land in it.
	if err := s.page.Click(selector, playwright.PageClickOptions{}); err != nil {
		return err
	}
	kb := s.page.Keyboard()
	for _, ks := range keystrokesFor(value) {
		var err error
		if isKeyName(ks.key) {
			err = kb.Press(ks.key)
		} else {
			err = kb.Type(ks.key)
		}
		if err != nil {
			return err
		}
		time.Sleep(ks.delay)
	}
	return nil
}

func (s *playwrightSession) SelectOption(selector, value string) error {
	// Try by visible label first, then by value attribute.
	selected, err := s.page.SelectOption(selector, playwright.SelectOptionValues{
		Labels: &[]string{value},
	})
	if err == nil && len(selected) > 0 {
		return nil
	}
	selected, err = s.page.SelectOption(selector, playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("no option matching %q in %q", value, selector)
	}
	return nil
}

func (s *playwrightSession) SetChecked(selector string, checked bool) error {
	if checked {
		return s.page.Check(selector)
	}
	return s.page.Uncheck(selector)
}

func (s *playwrightSession) WaitForSelector(selector string, opts WaitOptions) error {
	waitOpts := playwright.PageWaitForSelectorOptions{}
	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		waitOpts.State = &state
	}
	if opts.Timeout > 0 {
		waitOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}
	_, err := s.page.WaitForSelector(selector, waitOpts)
	return err
}

// ScrollToElement scrolls toward the element in randomized increments until
// it sits roughly in the middle band of the viewport, mimicking wheel input.
func (s *playwrightSession) ScrollToElement(selector string) error {
	target, err := s.page.Evaluate(fmt.Sprintf(
		`() => { const el = document.querySelector(%q); if (!el) return null; return el.getBoundingClientRect().top + window.scrollY; }`,
		selector))
	if err != nil {
		return err
	}
	targetY, ok := toFloat(target)
	if !ok {
		return fmt.Errorf("element %q not found for scrolling", selector)
	}

	for i := 0; i < 200; i++ {
		raw, err := s.page.Evaluate(`() => [window.scrollY, window.innerHeight]`)
		if err != nil {
			return err
		}
		pos, _ := raw.([]any)
		if len(pos) != 2 {
			return nil
		}
		scrollY, _ := toFloat(pos[0])
		viewH, _ := toFloat(pos[1])

		mid := scrollY + viewH/2
		switch {
		case targetY < mid-200:
			if _, err := s.page.Evaluate(fmt.Sprintf(`() => window.scrollBy(0, %d)`, -scrollStep())); err != nil {
				return err
			}
		case targetY > mid+200:
			if _, err := s.page.Evaluate(fmt.Sprintf(`() => window.scrollBy(0, %d)`, scrollStep())); err != nil {
				return err
			}
		default:
			return nil
		}
		time.Sleep(randomDelay(20*time.Millisecond, 80*time.Millisecond))
	}
	return nil
}

func (s *playwrightSession) Evaluate(js string) (any, error) {
	return s.page.Evaluate(js)
}

func (s *playwrightSession) Cookies() (map[string]string, error) {
	cookies, err := s.bctx.Cookies()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out, nil
}

func (s *playwrightSession) NextDialog(timeout time.Duration) (Dialog, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	select {
	case d := <-s.dialogs:
		return &pwDialog{d: d}, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no dialog appeared within %s", timeout)
	}
}

func (s *playwrightSession) ExpectDownload(dir string, timeout time.Duration, trigger func() error) (DownloadInfo, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DownloadInfo{}, fmt.Errorf("create download dir: %w", err)
	}

	dl, err := s.page.ExpectDownload(trigger, playwright.PageExpectDownloadOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return DownloadInfo{}, fmt.Errorf("download did not start: %w", err)
	}

	name := dl.SuggestedFilename()
	path := filepath.Join(dir, name)
	if err := dl.SaveAs(path); err != nil {
		return DownloadInfo{}, fmt.Errorf("save download: %w", err)
	}

	info := DownloadInfo{Filename: name, Path: path, Dir: dir}
	if st, err := os.Stat(path); err == nil {
		info.SizeBytes = st.Size()
	}
	return info, nil
}

func (s *playwrightSession) Close() error {
	// Continue cleanup past individual failures.
	_ = s.page.Close()
	_ = s.bctx.Close()
	return s.browser.Close()
}

type pwDialog struct {
	d playwright.Dialog
}

func (p *pwDialog) Message() string { return p.d.Message() }

func (p *pwDialog) Accept(text string) error {
	if text != "" {
		return p.d.Accept(text)
	}
	return p.d.Accept()
}

func (p *pwDialog) Dismiss() error { return p.d.Dismiss() }

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
