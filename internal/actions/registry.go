package actions

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"botwright/pkg/schema"
)

// Factory constructs a variant pre-populated with its defaults.
type Factory func() Action

type entry struct {
	name    string // friendly configuration name, e.g. "login"
	tag     string // internal discriminator, e.g. "LoginAction"
	factory Factory
}

// Registry maps configuration type names to concrete action constructors and
// back. Both the friendly name and the internal tag are unique across the
// registry, so the name/tag mapping is bijective. Read-mostly: populated once
// at process start, only read during runs.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*entry
	byTag  map[string]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*entry),
		byTag:  make(map[string]*entry),
	}
}

// Register adds a variant under a friendly name and internal tag. Returns an
// error if either is empty or already taken by a different variant.
func (r *Registry) Register(name, tag string, factory Factory) error {
	if factory == nil {
		return schema.NewError(schema.ErrCodeValidation, "action factory is nil")
	}
	if name == "" || tag == "" {
		return schema.NewError(schema.ErrCodeValidation, "action name and tag must be non-empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "action type %q already registered", name)
	}
	if _, exists := r.byTag[tag]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "action tag %q already registered", tag)
	}

	e := &entry{name: name, tag: tag, factory: factory}
	r.byName[name] = e
	r.byTag[tag] = e
	return nil
}

// Names returns all registered friendly names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has checks whether a friendly name or tag is registered.
func (r *Registry) Has(nameOrTag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byName[nameOrTag]; ok {
		return true
	}
	_, ok := r.byTag[nameOrTag]
	return ok
}

// Count returns the number of registered variants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Deserialize validates and constructs a concrete action from an untyped
// configuration record. The record's "type" field may be either a friendly
// name or an internal tag. Unknown types and invalid fields produce distinct
// errors; the unknown-type error lists every registered name for operator
// diagnosability.
func (r *Registry) Deserialize(record map[string]any) (Action, error) {
	rawType, ok := record["type"].(string)
	if !ok || rawType == "" {
		return nil, schema.NewError(schema.ErrCodeValidation,
			"action record is missing the required 'type' field")
	}

	r.mu.RLock()
	e := r.byName[rawType]
	if e == nil {
		e = r.byTag[rawType]
	}
	r.mu.RUnlock()

	if e == nil {
		return nil, schema.NewErrorf(schema.ErrCodeUnknownAction,
			"unknown action type %q; registered types: %s",
			rawType, strings.Join(r.Names(), ", "))
	}

	act := e.factory()

	fields := make(map[string]any, len(record))
	for k, v := range record {
		if k == "type" {
			continue
		}
		fields[k] = v
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"%s: invalid field values: %s", rawType, err.Error()).WithCause(err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(act); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"%s: %s", rawType, err.Error()).WithCause(err)
	}

	if err := act.Validate(); err != nil {
		return nil, err
	}
	return act, nil
}

// Serialize converts an action back into a configuration record that
// Deserialize accepts and that reconstructs an equal action. The "type" field
// carries the friendly name.
func (r *Registry) Serialize(a Action) (map[string]any, error) {
	if a == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "action is nil")
	}

	r.mu.RLock()
	e := r.byTag[a.Type()]
	r.mu.RUnlock()
	if e == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound,
			"action tag %q is not registered", a.Type())
	}

	raw, err := json.Marshal(a)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"serialize %s: %s", a.Type(), err.Error()).WithCause(err)
	}
	record := make(map[string]any)
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"serialize %s: %s", a.Type(), err.Error()).WithCause(err)
	}
	record["type"] = e.name
	return record, nil
}

// DeserializeAll converts an ordered list of records, failing on the first
// invalid one with its index attached.
func (r *Registry) DeserializeAll(records []map[string]any) ([]Action, error) {
	out := make([]Action, 0, len(records))
	for i, rec := range records {
		act, err := r.Deserialize(rec)
		if err != nil {
			if botErr, ok := err.(*schema.BotError); ok {
				return nil, botErr.WithDetails(map[string]any{"action_index": i})
			}
			return nil, err
		}
		out = append(out, act)
	}
	return out, nil
}

// Default returns a registry with every built-in action variant registered.
func Default() *Registry {
	r := NewRegistry()
	builtins := []struct {
		name    string
		tag     string
		factory Factory
	}{
		{"navigate", "NavigateAction", func() Action { return NewNavigate() }},
		{"click", "ClickAction", func() Action { return NewClick() }},
		{"login", "LoginAction", func() Action { return NewLogin() }},
		{"logout", "LogoutAction", func() Action { return NewLogout() }},
		{"submit_form", "SubmitFormAction", func() Action { return NewSubmitForm() }},
		{"download", "DownloadAction", func() Action { return NewDownload() }},
		{"download_multiple", "DownloadMultipleAction", func() Action { return NewDownloadMultiple() }},
		{"alert", "AlertAction", func() Action { return NewAlert() }},
		{"scrape", "ScrapeAction", func() Action { return NewScrape() }},
		{"peruse", "PeruseAction", func() Action { return NewPeruse() }},
	}
	for _, b := range builtins {
		// Built-in names are unique by construction.
		_ = r.Register(b.name, b.tag, b.factory)
	}
	return r
}
