package actions

import (
	"context"

	"botwright/internal/botctx"
	"botwright/internal/browser"
)

// Navigate loads a URL and records the landing URL in the context. With
// SaveDOM set it also captures the page source under the action's DOM key.
type Navigate struct {
	Base
	URL     string `json:"url" yaml:"url"`
	SaveDOM bool   `json:"save_dom" yaml:"save_dom"`
}

// NewNavigate returns a Navigate with default retry policy and pacing.
func NewNavigate() *Navigate {
	return &Navigate{Base: defaultBase("Navigate")}
}

func (a *Navigate) Type() string { return "NavigateAction" }
func (a *Navigate) Spec() *Base  { return &a.Base }

func (a *Navigate) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	return validateURL(a.Type(), "url", a.URL)
}

func (a *Navigate) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	if err := session.Navigate(a.URL, browser.NavigateOptions{}); err != nil {
		return false, err
	}
	bc.Set(botctx.KeyCurrentURL, session.CurrentURL())
	a.pause()

	if a.SaveDOM {
		src, err := session.Source()
		if err != nil {
			return false, err
		}
		bc.Set(botctx.DOMKey(a.Name), src)
	}
	return true, nil
}
