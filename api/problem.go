// Package api is the thin HTTP layer of spec.md §4.K: chi routes mapped
// directly onto the service-layer operations built in submission,
// objectsvc, publish, ingestpoll and the rest, with RFC 7807
// application/problem+json error rendering per spec.md §7's taxonomy.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	json "github.com/segmentio/encoding/json"

	"github.com/CSCfi/metadata-submitter-go/external"
	"github.com/CSCfi/metadata-submitter-go/kit"
	"github.com/CSCfi/metadata-submitter-go/objectsvc"
	"github.com/CSCfi/metadata-submitter-go/publish"
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/submission"
	"github.com/CSCfi/metadata-submitter-go/xmlproc"
)

// fieldError is one entry of a problem's errors[] array: a per-field
// pointer alongside a human message, per spec.md §4.K's "RFC 7807
// extended with a top-level errors[] array carrying per-field pointers".
type fieldError struct {
	Kind    string `json:"kind,omitempty"`
	Pointer string `json:"pointer,omitempty"`
	Field   string `json:"field,omitempty"`
	Detail  string `json:"detail"`
}

// problem is the application/problem+json response body. Steps is only
// populated by writeErrorWithSteps, for a publish call that failed after
// some of its steps already succeeded (spec.md's S2 scenario).
type problem struct {
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	Status int          `json:"status"`
	Detail string       `json:"detail,omitempty"`
	Errors []fieldError `json:"errors,omitempty"`
	Steps  any          `json:"steps,omitempty"`
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, title string, errs ...fieldError) {
	writeProblemWithSteps(w, r, status, title, nil, errs...)
}

func writeProblemWithSteps(w http.ResponseWriter, r *http.Request, status int, title string, steps any, errs ...fieldError) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Errors: errs,
		Steps:  steps,
	})
}

// writeError maps a service-layer error onto the spec.md §7 taxonomy and
// renders it as application/problem+json. Internal/unexpected errors are
// logged with the request's trace id as correlation id and never leak
// their message to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorWithSteps(w, r, err, nil)
}

// writeErrorWithSteps is writeError plus an optional steps payload, used
// by the publish handler to surface which steps already committed before
// a failing one.
func writeErrorWithSteps(w http.ResponseWriter, r *http.Request, err error, steps any) {
	var procErrs []xmlproc.ProcessingError
	if pe, ok := asProcessingErrors(err); ok {
		procErrs = pe
	}

	switch {
	case len(procErrs) > 0:
		fes := make([]fieldError, len(procErrs))
		for i, pe := range procErrs {
			fes[i] = fieldError{Kind: string(pe.Kind), Pointer: pe.Pointer, Field: pe.ObjectType, Detail: pe.Message}
		}
		writeProblemWithSteps(w, r, http.StatusBadRequest, "Validation failed", steps, fes...)

	case errors.Is(err, store.ErrNotFound):
		writeProblemWithSteps(w, r, http.StatusNotFound, "Not found", steps)

	case errors.Is(err, store.ErrFrozen):
		writeProblemWithSteps(w, r, http.StatusMethodNotAllowed, "Submission is frozen", steps)

	case errors.Is(err, store.ErrConflict):
		writeProblemWithSteps(w, r, http.StatusConflict, "Conflict", steps)

	case errors.Is(err, store.ErrTransient):
		writeProblemWithSteps(w, r, http.StatusServiceUnavailable, "Temporarily unavailable", steps)

	case errors.Is(err, objectsvc.ErrUndeletable):
		writeProblemWithSteps(w, r, http.StatusMethodNotAllowed, "Object cannot be deleted individually", steps)

	case errors.Is(err, objectsvc.ErrMultiplicity):
		writeProblemWithSteps(w, r, http.StatusBadRequest, "Object type does not allow multiple objects", steps, fieldError{Detail: err.Error()})

	case errors.Is(err, objectsvc.ErrNoXML):
		writeProblemWithSteps(w, r, http.StatusNotFound, "Object has no stored XML form", steps)

	case errors.Is(err, submission.ErrAlreadyIngesting),
		errors.Is(err, submission.ErrNotReady),
		errors.Is(err, submission.ErrNotPublished),
		errors.Is(err, submission.ErrUnsafeDelete):
		writeProblemWithSteps(w, r, http.StatusConflict, "Invalid submission state", steps, fieldError{Detail: err.Error()})

	case isGateError(err):
		gateErr := new(publish.PublishGateError)
		errors.As(err, &gateErr)
		fes := make([]fieldError, len(gateErr.Problems))
		for i, p := range gateErr.Problems {
			fes[i] = fieldError{Detail: p}
		}
		writeProblemWithSteps(w, r, http.StatusConflict, "Submission is not ready to publish", steps, fes...)

	case isExternalStatusError(err):
		statusErr := new(external.StatusError)
		errors.As(err, &statusErr)
		if statusErr.Permanent() {
			writeProblemWithSteps(w, r, http.StatusConflict, fmt.Sprintf("%s rejected the request", statusErr.Service), steps,
				fieldError{Detail: statusErr.Error()})
		} else {
			w.Header().Set("Retry-After", "30")
			writeProblemWithSteps(w, r, http.StatusBadGateway, fmt.Sprintf("%s is temporarily unavailable", statusErr.Service), steps,
				fieldError{Detail: statusErr.Error()})
		}

	default:
		traceID := kit.GetTraceID(r.Context())
		slog.ErrorContext(r.Context(), "internal error", "error", err, "trace_id", traceID)
		writeProblemWithSteps(w, r, http.StatusInternalServerError, "Internal error", steps,
			fieldError{Detail: fmt.Sprintf("correlation id %s", traceID)})
	}
}

func isGateError(err error) bool {
	var gateErr *publish.PublishGateError
	return errors.As(err, &gateErr)
}

func isExternalStatusError(err error) bool {
	var statusErr *external.StatusError
	return errors.As(err, &statusErr)
}

func asProcessingErrors(err error) ([]xmlproc.ProcessingError, bool) {
	if bundleErr, ok := err.(*bundleValidationError); ok {
		return bundleErr.Errors, true
	}
	return nil, false
}

// bundleValidationError wraps the accumulated xmlproc.ProcessingError list
// from a rejected bundle so writeError can render every entry at once.
type bundleValidationError struct {
	Errors []xmlproc.ProcessingError
}

func (e *bundleValidationError) Error() string {
	return fmt.Sprintf("api: bundle rejected with %d error(s)", len(e.Errors))
}
