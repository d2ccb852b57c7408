package actions

import (
	"context"

	"botwright/internal/botctx"
	"botwright/internal/browser"
)

// Click clicks the first element matching a CSS selector.
type Click struct {
	Base
	Selector        string `json:"selector" yaml:"selector"`
	ScrollToElement bool   `json:"scroll_to_element" yaml:"scroll_to_element"`
}

// NewClick returns a Click with default retry policy and pacing. Scrolling to
// the element before clicking is on by default.
func NewClick() *Click {
	return &Click{Base: defaultBase("Click"), ScrollToElement: true}
}

func (a *Click) Type() string { return "ClickAction" }
func (a *Click) Spec() *Base  { return &a.Base }

func (a *Click) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	return requireField(a.Type(), "selector", a.Selector)
}

func (a *Click) Execute(_ context.Context, session browser.Session, _ *botctx.Context) (bool, error) {
	if err := session.Click(a.Selector, browser.ClickOptions{ScrollFirst: a.ScrollToElement}); err != nil {
		return false, err
	}
	a.pauseFrom(0.5)
	return true, nil
}
