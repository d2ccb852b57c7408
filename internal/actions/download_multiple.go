package actions

import (
	"context"
	"time"

	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/pkg/schema"
)

// DownloadMultiple downloads a sequence of files, one selector at a time,
// pausing between downloads. All files must land for the action to succeed;
// whatever did download is still published under the downloads context key.
type DownloadMultiple struct {
	Base
	Selectors   []string `json:"selectors" yaml:"selectors"`
	DownloadDir string   `json:"download_dir,omitempty" yaml:"download_dir,omitempty"`
	Timeout     int      `json:"timeout" yaml:"timeout"` // seconds, per download
	// PauseUpper bounds the pause between downloads (lower bound is 2s).
	PauseUpper float64 `json:"wait_time" yaml:"wait_time"`
}

// NewDownloadMultiple returns a DownloadMultiple with default retry policy
// and pacing.
func NewDownloadMultiple() *DownloadMultiple {
	return &DownloadMultiple{
		Base:       defaultBase("DownloadMultiple"),
		Timeout:    60,
		PauseUpper: 5.0,
	}
}

func (a *DownloadMultiple) Type() string { return "DownloadMultipleAction" }
func (a *DownloadMultiple) Spec() *Base  { return &a.Base }

func (a *DownloadMultiple) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	if len(a.Selectors) == 0 {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s: selectors must not be empty", a.Type())
	}
	if a.Timeout < 1 {
		return requireField(a.Type(), "timeout", "")
	}
	return nil
}

func (a *DownloadMultiple) dir() string {
	d := &Download{DownloadDir: a.DownloadDir}
	return d.dir()
}

func (a *DownloadMultiple) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	dir := a.dir()
	downloads := make([]map[string]any, 0, len(a.Selectors))
	allOK := true

	for _, selector := range a.Selectors {
		sel := selector
		info, err := session.ExpectDownload(dir, time.Duration(a.Timeout)*time.Second, func() error {
			return session.Click(sel, browser.ClickOptions{ScrollFirst: true})
		})
		if err != nil {
			allOK = false
			continue
		}
		downloads = append(downloads, map[string]any{
			"filename":     info.Filename,
			"filepath":     info.Path,
			"size_bytes":   info.SizeBytes,
			"download_dir": info.Dir,
		})
		browser.RandomPause(2.0, a.PauseUpper)
	}

	bc.Set(botctx.KeyDownloads, downloads)
	return allOK, nil
}
