package actions

import (
	"context"
	"time"

	"botwright/internal/botctx"
	"botwright/internal/browser"
)

// Login performs a complete login flow: navigate to the login page, type
// credentials with human pacing, submit, and verify success by waiting for a
// marker element. On success it flags the session as active and captures the
// session cookies into the context for any later HTTP hand-off.
type Login struct {
	Base
	URL      string `json:"url" yaml:"url"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`

	UsernameSelector string `json:"username_selector" yaml:"username_selector"`
	PasswordSelector string `json:"password_selector" yaml:"password_selector"`
	SubmitSelector   string `json:"submit_selector" yaml:"submit_selector"`
	SuccessIndicator string `json:"success_indicator" yaml:"success_indicator"`

	// RetryWithRefresh reloads the page and re-checks the success indicator
	// once when the first verification times out; some sites land the session
	// but render the post-login page late.
	RetryWithRefresh    bool `json:"retry_with_refresh" yaml:"retry_with_refresh"`
	VerificationTimeout int  `json:"verification_timeout" yaml:"verification_timeout"` // seconds
}

// NewLogin returns a Login with default retry policy and pacing.
func NewLogin() *Login {
	return &Login{
		Base:                defaultBase("Login"),
		RetryWithRefresh:    true,
		VerificationTimeout: 30,
	}
}

func (a *Login) Type() string { return "LoginAction" }
func (a *Login) Spec() *Base  { return &a.Base }

func (a *Login) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	if err := validateURL(a.Type(), "url", a.URL); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"username", a.Username},
		{"password", a.Password},
		{"username_selector", a.UsernameSelector},
		{"password_selector", a.PasswordSelector},
		{"submit_selector", a.SubmitSelector},
		{"success_indicator", a.SuccessIndicator},
	} {
		if err := requireField(a.Type(), f.name, f.value); err != nil {
			return err
		}
	}
	if a.VerificationTimeout < 1 {
		return requireField(a.Type(), "verification_timeout", "")
	}
	return nil
}

func (a *Login) verify(session browser.Session) bool {
	err := session.WaitForSelector(a.SuccessIndicator, browser.WaitOptions{
		Timeout: time.Duration(a.VerificationTimeout) * time.Second,
	})
	return err == nil
}

func (a *Login) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	if err := session.Navigate(a.URL, browser.NavigateOptions{}); err != nil {
		return false, err
	}
	a.pause()

	if err := session.TypeSlow(a.UsernameSelector, a.Username); err != nil {
		return false, err
	}
	a.pauseFrom(0.5)

	if err := session.TypeSlow(a.PasswordSelector, a.Password); err != nil {
		return false, err
	}
	a.pauseFrom(0.3)

	if err := session.Click(a.SubmitSelector, browser.ClickOptions{}); err != nil {
		return false, err
	}

	verified := a.verify(session)
	if !verified && a.RetryWithRefresh {
		if err := session.Refresh(); err != nil {
			return false, err
		}
		a.pauseFrom(2.0)
		verified = a.verify(session)
	}
	if !verified {
		return false, nil
	}

	bc.Set(botctx.KeyLoggedIn, true)
	bc.SessionActive = true
	if cookies, err := session.Cookies(); err == nil {
		bc.Cookies = cookies
	}
	return true, nil
}
