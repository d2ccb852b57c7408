// Package botctx holds the shared mutable scratchpad passed to every action
// in a workflow run. One Context lives exactly as long as one run and is never
// shared across concurrent runs.
package botctx

// Context is a name-keyed store actions use to publish results for later
// actions in the same run. Last write wins; no type contract is enforced on
// values, so callers agree on key naming via the constants in keys.go.
type Context struct {
	values map[string]any

	// Cookies and Headers carry session state extracted from the browser,
	// e.g. for handing off to an HTTP client after login.
	Cookies map[string]string
	Headers map[string]string

	// SessionActive is a convenience flag toggled by login/logout actions.
	SessionActive bool
}

// New creates an empty Context.
func New() *Context {
	return &Context{
		values:  make(map[string]any),
		Cookies: make(map[string]string),
		Headers: make(map[string]string),
	}
}

// Set stores a value, unconditionally overwriting any previous one.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Get returns the stored value for key, or def if the key was never set.
func (c *Context) Get(key string, def any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key has been set.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Update merges multiple keys in one call.
func (c *Context) Update(values map[string]any) {
	for k, v := range values {
		c.values[k] = v
	}
}

// Values returns a shallow copy of the stored values, e.g. for building an
// expression evaluation scope or a debug dump.
func (c *Context) Values() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
