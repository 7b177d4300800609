package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/pindex/internal/pi"
	"github.com/hyperengineering/pindex/internal/store"
	"github.com/hyperengineering/pindex/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

type problemType struct {
	typeURI string
	title   string
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]problemType{
	http.StatusBadRequest: {
		typeURI: "https://pindex.dev/errors/bad-request",
		title:   "Bad Request",
	},
	http.StatusUnauthorized: {
		typeURI: "https://pindex.dev/errors/unauthorized",
		title:   "Unauthorized",
	},
	http.StatusNotFound: {
		typeURI: "https://pindex.dev/errors/not-found",
		title:   "Not Found",
	},
	http.StatusConflict: {
		typeURI: "https://pindex.dev/errors/conflict",
		title:   "Conflict",
	},
	http.StatusUnprocessableEntity: {
		typeURI: "https://pindex.dev/errors/validation-error",
		title:   "Validation Error",
	},
	http.StatusInternalServerError: {
		typeURI: "https://pindex.dev/errors/internal-error",
		title:   "Internal Server Error",
	},
	http.StatusServiceUnavailable: {
		typeURI: "https://pindex.dev/errors/service-unavailable",
		title:   "Service Unavailable",
	},
}

func lookupProblemType(status int) problemType {
	if pt, ok := problemTypes[status]; ok {
		return pt
	}
	return problemType{
		typeURI: "https://pindex.dev/errors/unknown",
		title:   http.StatusText(status),
	}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt := lookupProblemType(status)
	writeProblemBody(w, status, Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := problemTypes[http.StatusUnprocessableEntity]
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		Errors: errs,
	})
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapStoreError converts store errors to Problem Details responses.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, store.ErrCategoryNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Category not found")
	case errors.Is(err, store.ErrDuplicateCategory):
		WriteProblem(w, r, http.StatusConflict, "A category with this name already exists")
	case errors.Is(err, store.ErrDuplicateItem):
		WriteProblem(w, r, http.StatusConflict, "This checklist item already exists")
	case errors.Is(err, pi.ErrNegativeCount), errors.Is(err, pi.ErrNonFiniteCount):
		WriteProblem(w, r, http.StatusBadRequest, "Participation counts must be finite and non-negative")
	default:
		// Never expose internal error details to client
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
