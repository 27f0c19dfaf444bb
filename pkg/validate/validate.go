package validate

import "strings"

// Errors collects field-level validation failures. It satisfies error so
// services can return it through their normal error path and handlers can
// unwrap it into a 400 with per-field detail.
type Errors map[string]string

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Require records a missing-field error when value is empty.
func (e Errors) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		e[field] = "is required"
	}
}

// Any reports whether any failure was recorded.
func (e Errors) Any() bool {
	return len(e) > 0
}
