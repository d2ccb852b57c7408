package actions

import (
	"context"

	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/pkg/schema"
)

// Logout ends the authenticated session, either by visiting a logout URL or
// by clicking a logout control.
type Logout struct {
	Base
	LogoutURL      string `json:"logout_url,omitempty" yaml:"logout_url,omitempty"`
	LogoutSelector string `json:"logout_selector,omitempty" yaml:"logout_selector,omitempty"`
}

// NewLogout returns a Logout with default retry policy and pacing.
func NewLogout() *Logout {
	return &Logout{Base: defaultBase("Logout")}
}

func (a *Logout) Type() string { return "LogoutAction" }
func (a *Logout) Spec() *Base  { return &a.Base }

func (a *Logout) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	if a.LogoutURL == "" && a.LogoutSelector == "" {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: one of logout_url or logout_selector is required", a.Type())
	}
	if a.LogoutURL != "" {
		return validateURL(a.Type(), "logout_url", a.LogoutURL)
	}
	return nil
}

func (a *Logout) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	if a.LogoutURL != "" {
		if err := session.Navigate(a.LogoutURL, browser.NavigateOptions{}); err != nil {
			return false, err
		}
	} else {
		if err := session.Click(a.LogoutSelector, browser.ClickOptions{ScrollFirst: true}); err != nil {
			return false, err
		}
	}
	a.pause()

	bc.Set(botctx.KeyLoggedIn, false)
	bc.SessionActive = false
	return true, nil
}
