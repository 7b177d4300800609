// Package validation checks request payloads and reports every invalid
// field at once.
package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// ValidationError is one invalid field, rendered into the errors array of a
// 422 problem response.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Collector gathers field errors so a request reports all of them together.
type Collector struct {
	errors []ValidationError
}

// Add records err; nil is ignored.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors reports whether anything was recorded.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns the recorded errors in the order they were added.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateUTF8 rejects byte sequences that are not UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if utf8.ValidString(value) {
		return nil
	}
	return invalid(field, "must be valid UTF-8")
}

// ValidateNoNullBytes rejects values containing NUL, which PostgreSQL text
// columns cannot store.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.IndexByte(value, 0) < 0 {
		return nil
	}
	return invalid(field, "must not contain null bytes")
}

// ValidateMaxLength limits value to max characters (runes, not bytes).
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) <= max {
		return nil
	}
	return invalid(field, "exceeds maximum length of %d characters", max)
}

// ValidateULID accepts a 26 character Crockford base32 ULID in either case.
func ValidateULID(field, value string) *ValidationError {
	if _, err := ulid.ParseStrict(value); err != nil {
		return invalid(field, "must be a valid ULID")
	}
	return nil
}

// ValidateRequired rejects empty and whitespace-only values.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	return invalid(field, "is required")
}

// ValidateEnum accepts only the listed values; matching is case sensitive.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	if slices.Contains(allowed, value) {
		return nil
	}
	return invalid(field, "must be one of: %s", strings.Join(allowed, ", "))
}
