// Package config loads workflow documents from YAML, resolves ${VAR}
// placeholders, and validates the result against an embedded JSON Schema
// before any action is constructed.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"botwright/pkg/schema"
)

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, substitutes, and validates a workflow document from disk.
func Load(path string) (*schema.WorkflowDocument, error) {
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound,
			"workflow file %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes a workflow document from YAML bytes. Placeholders of the form
// ${NAME} in string values are resolved from the document's variables block
// first, then from the process environment; an unresolvable placeholder is a
// validation error. The variables block itself may reference the environment.
func Parse(data []byte) (*schema.WorkflowDocument, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid YAML").WithCause(err)
	}
	if raw == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow document is empty")
	}

	vars, err := resolveVariables(raw)
	if err != nil {
		return nil, err
	}

	substituted, err := substitute(raw, vars)
	if err != nil {
		return nil, err
	}

	if err := ValidateDocument(substituted); err != nil {
		return nil, err
	}

	// Re-encode through YAML so the typed document decodes from the
	// substituted tree rather than the raw bytes.
	buf, err := yaml.Marshal(substituted)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "re-encode workflow document").WithCause(err)
	}
	var doc schema.WorkflowDocument
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "decode workflow document").WithCause(err)
	}
	return &doc, nil
}

// resolveVariables extracts the variables block with environment references in
// its values already resolved.
func resolveVariables(raw map[string]any) (map[string]string, error) {
	vars := map[string]string{}
	block, ok := raw["variables"].(map[string]any)
	if !ok {
		return vars, nil
	}
	for name, v := range block {
		s, ok := v.(string)
		if !ok {
			vars[name] = fmt.Sprintf("%v", v)
			continue
		}
		resolved, err := expand(s, nil)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"variable %q: %s", name, err.Error())
		}
		vars[name] = resolved
	}
	return vars, nil
}

// substitute walks the decoded tree and expands placeholders in every string
// leaf. Maps and slices are rebuilt so the caller's input is not mutated.
func substitute(v any, vars map[string]string) (any, error) {
	switch t := v.(type) {
	case string:
		return expand(t, vars)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			sub, err := substitute(child, vars)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			sub, err := substitute(child, vars)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	default:
		return v, nil
	}
}

// expand resolves every ${NAME} in s, preferring vars over the environment.
func expand(s string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if vars != nil {
			if v, ok := vars[name]; ok {
				return v
			}
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		missing = append(missing, name)
		return match
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved placeholder ${%s}", strings.Join(missing, "}, ${"))
	}
	return out, nil
}

// ExpandHome replaces a leading ~ with the user's home directory. Paths
// without the prefix pass through unchanged.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
