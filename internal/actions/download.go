package actions

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"botwright/internal/botctx"
	"botwright/internal/browser"
)

// Download clicks a download link and waits for the file to land, publishing
// the saved file's details under the last_download context key.
type Download struct {
	Base
	Selector        string `json:"selector" yaml:"selector"`
	ScrollToElement bool   `json:"scroll_to_element" yaml:"scroll_to_element"`
	DownloadDir     string `json:"download_dir,omitempty" yaml:"download_dir,omitempty"`
	// ExpectedFilename is a glob pattern the saved file must match.
	ExpectedFilename string `json:"expected_filename,omitempty" yaml:"expected_filename,omitempty"`
	Timeout          int    `json:"timeout" yaml:"timeout"` // seconds
	VerifyDownload   bool   `json:"verify_download" yaml:"verify_download"`
}

// NewDownload returns a Download with default retry policy and pacing.
func NewDownload() *Download {
	return &Download{
		Base:            defaultBase("Download"),
		ScrollToElement: true,
		Timeout:         180,
		VerifyDownload:  true,
	}
}

func (a *Download) Type() string { return "DownloadAction" }
func (a *Download) Spec() *Base  { return &a.Base }

func (a *Download) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	if a.Timeout < 1 {
		return requireField(a.Type(), "timeout", "")
	}
	return requireField(a.Type(), "selector", a.Selector)
}

// dir resolves the target directory, defaulting to ~/Downloads. Resolution
// happens at execute time so an empty configured value round-trips unchanged.
func (a *Download) dir() string {
	if a.DownloadDir != "" {
		return a.DownloadDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "Downloads"
	}
	return filepath.Join(home, "Downloads")
}

func (a *Download) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	if !a.VerifyDownload {
		// Fire and forget: click and assume the browser handles it.
		if err := session.Click(a.Selector, browser.ClickOptions{ScrollFirst: a.ScrollToElement}); err != nil {
			return false, err
		}
		a.pause()
		return true, nil
	}

	info, err := session.ExpectDownload(a.dir(), time.Duration(a.Timeout)*time.Second, func() error {
		return session.Click(a.Selector, browser.ClickOptions{ScrollFirst: a.ScrollToElement})
	})
	if err != nil {
		return false, err
	}
	a.pause()

	if a.ExpectedFilename != "" {
		matched, _ := path.Match(a.ExpectedFilename, info.Filename)
		if !matched {
			return false, nil
		}
	}

	bc.Set(botctx.KeyLastDownload, map[string]any{
		"filename":     info.Filename,
		"filepath":     info.Path,
		"size_bytes":   info.SizeBytes,
		"download_dir": info.Dir,
	})
	return true, nil
}
