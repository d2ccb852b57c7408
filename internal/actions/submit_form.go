package actions

import (
	"context"
	"strings"
	"time"

	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/pkg/schema"
)

// FormField describes one input to fill: where, what, and how.
type FormField struct {
	Selector string `json:"selector" yaml:"selector"`
	Value    string `json:"value" yaml:"value"`
	// Kind routes to the right fill strategy: text (default), select,
	// checkbox or radio.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// SubmitForm fills multiple form fields with human pacing and submits,
// optionally verifying a success marker afterwards.
type SubmitForm struct {
	Base
	Fields           []FormField `json:"form_fields" yaml:"form_fields"`
	SubmitSelector   string      `json:"submit_selector" yaml:"submit_selector"`
	SuccessIndicator string      `json:"success_indicator,omitempty" yaml:"success_indicator,omitempty"`
}

// NewSubmitForm returns a SubmitForm with default retry policy and pacing.
func NewSubmitForm() *SubmitForm {
	return &SubmitForm{Base: defaultBase("SubmitForm")}
}

func (a *SubmitForm) Type() string { return "SubmitFormAction" }
func (a *SubmitForm) Spec() *Base  { return &a.Base }

func (a *SubmitForm) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	if len(a.Fields) == 0 {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s: form_fields must not be empty", a.Type())
	}
	for i, f := range a.Fields {
		if f.Selector == "" {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"%s: form_fields[%d].selector is required", a.Type(), i)
		}
		switch strings.ToLower(f.Kind) {
		case "", "text", "input", "textarea", "email", "password", "number", "select", "checkbox", "radio":
		default:
			return schema.NewErrorf(schema.ErrCodeValidation,
				"%s: form_fields[%d].kind %q is not supported", a.Type(), i, f.Kind)
		}
	}
	return requireField(a.Type(), "submit_selector", a.SubmitSelector)
}

func (a *SubmitForm) fillField(session browser.Session, f FormField) error {
	switch strings.ToLower(f.Kind) {
	case "select":
		return session.SelectOption(f.Selector, f.Value)
	case "checkbox":
		checked := false
		switch strings.ToLower(f.Value) {
		case "true", "1", "yes", "checked":
			checked = true
		}
		return session.SetChecked(f.Selector, checked)
	case "radio":
		return session.SetChecked(f.Selector, true)
	default:
		return session.TypeSlow(f.Selector, f.Value)
	}
}

func (a *SubmitForm) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	for _, f := range a.Fields {
		if err := a.fillField(session, f); err != nil {
			return false, err
		}
		a.pauseFrom(0.5)
	}

	if err := session.Click(a.SubmitSelector, browser.ClickOptions{ScrollFirst: true}); err != nil {
		return false, err
	}
	a.pauseFrom(2.0)

	if a.SuccessIndicator != "" {
		err := session.WaitForSelector(a.SuccessIndicator, browser.WaitOptions{
			Timeout: 10 * time.Second,
		})
		if err != nil {
			return false, nil
		}
	}

	formData := make(map[string]string, len(a.Fields))
	for _, f := range a.Fields {
		formData[f.Selector] = f.Value
	}
	bc.Set(botctx.KeyFormSubmitted, true)
	bc.Set(botctx.KeyFormData, formData)
	return true, nil
}
