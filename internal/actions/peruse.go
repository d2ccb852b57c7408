package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"botwright/internal/botctx"
	"botwright/internal/browser"
)

// Peruse simulates a human reading through page content: it scrolls to each
// matching element in turn with a dwell pause. The number of elements visited
// is published under ContextKey, if set.
type Peruse struct {
	Base
	Selector   string `json:"selector" yaml:"selector"`
	ContextKey string `json:"context_key,omitempty" yaml:"context_key,omitempty"`
}

// NewPeruse returns a Peruse with default retry policy and a slower pacing
// floor than most actions, since its whole point is dwell time.
func NewPeruse() *Peruse {
	p := &Peruse{Base: defaultBase("Peruse")}
	p.WaitLower = 0.8
	p.WaitUpper = 4.0
	return p
}

func (a *Peruse) Type() string { return "PeruseAction" }
func (a *Peruse) Spec() *Base  { return &a.Base }

func (a *Peruse) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	return requireField(a.Type(), "selector", a.Selector)
}

func (a *Peruse) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	src, err := session.Source()
	if err != nil {
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return false, err
	}

	count := doc.Find(a.Selector).Length()
	if count == 0 {
		return false, nil
	}

	for i := 0; i < count; i++ {
		js := fmt.Sprintf(
			`() => { const els = document.querySelectorAll(%q); if (els[%d]) els[%d].scrollIntoView({behavior: "smooth", block: "center"}); }`,
			a.Selector, i, i)
		if _, err := session.Evaluate(js); err != nil {
			return false, err
		}
		a.pause()
	}
	a.pause()

	if a.ContextKey != "" {
		bc.Set(a.ContextKey, count)
	}
	return true, nil
}
