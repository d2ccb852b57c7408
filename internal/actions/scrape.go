package actions

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/itchyny/gojq"

	"botwright/internal/botctx"
	"botwright/internal/browser"
	"botwright/pkg/schema"
)

// Scrape captures data from the current page into the context. Matching
// elements yield their text (or a named attribute); an optional jq filter
// reshapes the captured list before it is stored.
type Scrape struct {
	Base
	Selector   string `json:"selector" yaml:"selector"`
	Attribute  string `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	ContextKey string `json:"context_key" yaml:"context_key"`
	// Filter is a jq expression applied to the captured list of values.
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`
	// WaitTime is a settle delay after capture, in seconds.
	WaitTime int `json:"wait_time" yaml:"wait_time"`
}

// NewScrape returns a Scrape with default retry policy and pacing.
func NewScrape() *Scrape {
	return &Scrape{Base: defaultBase("Scrape"), WaitTime: 2}
}

func (a *Scrape) Type() string { return "ScrapeAction" }
func (a *Scrape) Spec() *Base  { return &a.Base }

func (a *Scrape) Validate() error {
	if err := a.Base.validate(a.Type()); err != nil {
		return err
	}
	if err := requireField(a.Type(), "selector", a.Selector); err != nil {
		return err
	}
	if err := requireField(a.Type(), "context_key", a.ContextKey); err != nil {
		return err
	}
	if a.Filter != "" {
		if _, err := gojq.Parse(a.Filter); err != nil {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"%s: filter is not a valid jq expression: %s", a.Type(), err.Error()).WithCause(err)
		}
	}
	return nil
}

func (a *Scrape) Execute(_ context.Context, session browser.Session, bc *botctx.Context) (bool, error) {
	src, err := session.Source()
	if err != nil {
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return false, err
	}

	sel := doc.Find(a.Selector)
	if sel.Length() == 0 {
		return false, nil
	}

	values := make([]any, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if a.Attribute != "" {
			v, _ := s.Attr(a.Attribute)
			values = append(values, v)
		} else {
			values = append(values, strings.TrimSpace(s.Text()))
		}
	})

	var result any = values
	if a.Filter != "" {
		result, err = a.applyFilter(values)
		if err != nil {
			return false, err
		}
	}

	if a.WaitTime > 0 {
		time.Sleep(time.Duration(a.WaitTime) * time.Second)
	}
	bc.Set(a.ContextKey, result)
	return true, nil
}

// applyFilter runs the jq filter over the captured values. A filter yielding
// one value stores that value; multiple yields store the list of them.
func (a *Scrape) applyFilter(values []any) (any, error) {
	query, err := gojq.Parse(a.Filter)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"%s: filter is not a valid jq expression: %s", a.Type(), err.Error()).WithCause(err)
	}

	var out []any
	iter := query.Run([]any(values))
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeExecution,
				"%s: jq filter failed: %s", a.Type(), err.Error()).WithCause(err)
		}
		out = append(out, v)
	}

	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}
