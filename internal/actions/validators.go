package actions

import (
	"net/url"

	"botwright/pkg/schema"
)

// validateURL rejects URLs that are empty, relative or non-HTTP.
func validateURL(typeTag, field, raw string) error {
	if raw == "" {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s: %s is required", typeTag, field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: %s is not a valid URL: %s", typeTag, field, err.Error()).WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: %s must use http or https (got %q)", typeTag, field, raw)
	}
	if u.Host == "" {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s: %s is missing a host: %q", typeTag, field, raw)
	}
	return nil
}

// requireField rejects an empty required string field.
func requireField(typeTag, field, value string) error {
	if value == "" {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s: %s is required", typeTag, field)
	}
	return nil
}
