package actions

import (
	"context"
	"strings"
	"time"

	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/pkg/schema"
)

// Alert modes.
const (
	AlertAccept   = "accept"
	AlertDismiss  = "dismiss"
	AlertGetText  = "get_text"
	AlertSendKeys = "send_keys"
)

// Alert handles a JavaScript alert, confirm or prompt raised by the page.
// The dialog is always answered; get_text accepts it after capturing the
// message, since the page stays blocked until the dialog is resolved.
type Alert struct {
	Base
	// Mode: accept, dismiss, get_text or send_keys.
	Mode         string `json:"mode" yaml:"mode"`
	TextToSend   string `json:"text_to_send,omitempty" yaml:"text_to_send,omitempty"`
	ExpectedText string `json:"expected_text,omitempty" yaml:"expected_text,omitempty"`
	Timeout      int    `json:"timeout" yaml:"timeout"` // seconds to wait for the dialog
	// StoreTextKey is the context key under which the dialog message is
	// stored, if set.
	StoreTextKey string `json:"store_text_in_context,omitempty" yaml:"store_text_in_context,omitempty"`
}

// NewAlert returns an Alert with default retry policy and pacing.
func NewAlert() *Alert {
	return &Alert{Base: defaultBase("Alert"), Mode: AlertAccept, Timeout: 10}
}

func (a *Alert) Type() string { return "AlertAction" }
func (a *Alert) Spec() *Base  { return &a.Base }

func (a *Alert) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	switch a.Mode {
	case AlertAccept, AlertDismiss, AlertGetText, AlertSendKeys:
	default:
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: mode %q is not one of accept, dismiss, get_text, send_keys", a.Type(), a.Mode)
	}
	if a.Mode == AlertSendKeys && a.TextToSend == "" {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: text_to_send is required when mode is send_keys", a.Type())
	}
	if a.Timeout < 1 {
		return requireField(a.Type(), "timeout", "")
	}
	return nil
}

func (a *Alert) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	dialog, err := session.NextDialog(time.Duration(a.Timeout) * time.Second)
	if err != nil {
		return false, nil
	}

	browser.RandomPause(0.5, 2.0)
	text := dialog.Message()

	if a.StoreTextKey != "" {
		bc.Set(a.StoreTextKey, text)
	}

	if a.ExpectedText != "" && !strings.Contains(text, a.ExpectedText) {
		_ = dialog.Dismiss()
		return false, nil
	}

	switch a.Mode {
	case AlertDismiss:
		if err := dialog.Dismiss(); err != nil {
			return false, err
		}
	case AlertSendKeys:
		if err := dialog.Accept(a.TextToSend); err != nil {
			return false, err
		}
	default: // accept, get_text
		if err := dialog.Accept(""); err != nil {
			return false, err
		}
	}

	bc.Set(botctx.KeyLastAlert, map[string]any{
		"text": text,
		"mode": a.Mode,
	})
	return true, nil
}
