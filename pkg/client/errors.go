package client

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response decoded from RFC 7807 Problem Details.
type APIError struct {
	Status int          `json:"status"`
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("pindex: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("pindex: %d %s", e.Status, e.Title)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// IsValidation reports whether err is a 422 from the server.
func IsValidation(err error) bool {
	return hasStatus(err, http.StatusUnprocessableEntity)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
