package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/CSCfi/metadata-submitter-go/safeguard"
	"github.com/CSCfi/metadata-submitter-go/store"
)

type submissionHandlers struct {
	deps Deps
}

type createSubmissionRequest struct {
	Name string `json:"name" validate:"required"`
}

// create handles POST /workflows/{wf}/projects/{projectID}/submissions.
// A plain JSON body just starts an empty draft; a multipart body also
// carries one or more XML parts to be processed as a bundle against the
// new submission, per spec.md §4.A/§4.C.
func (h *submissionHandlers) create(w http.ResponseWriter, r *http.Request) {
	wf := store.Workflow(strings.ToUpper(chi.URLParam(r, "wf")))
	projectID := chi.URLParam(r, "projectID")

	if _, ok := h.deps.Workflows.For(wf); !ok {
		writeProblem(w, r, http.StatusBadRequest, "Unknown workflow", fieldError{Field: "workflow", Detail: string(wf)})
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		h.createWithBundle(w, r, projectID, wf)
		return
	}

	var req createSubmissionRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body", errs...)
		return
	}
	if err := safeguard.ValidateIdentifier(req.Name); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid name", fieldError{Field: "name", Detail: err.Error()})
		return
	}

	sub, err := h.deps.Submissions.Create(r.Context(), projectID, wf, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *submissionHandlers) createWithBundle(w http.ResponseWriter, r *http.Request, projectID string, wf store.Workflow) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid multipart body", fieldError{Detail: err.Error()})
		return
	}

	name := r.FormValue("name")
	if name == "" || safeguard.ValidateIdentifier(name) != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body", fieldError{Field: "name", Detail: "required"})
		return
	}

	parts := make(map[string][]byte)
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				writeProblem(w, r, http.StatusBadRequest, "Invalid multipart body", fieldError{Detail: err.Error()})
				return
			}
			data, err := io.ReadAll(io.LimitReader(f, 64<<20))
			f.Close()
			if err != nil {
				writeProblem(w, r, http.StatusBadRequest, "Invalid multipart body", fieldError{Detail: err.Error()})
				return
			}
			parts[field] = data
		}
	}

	sub, err := h.deps.Submissions.Create(r.Context(), projectID, wf, name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result := h.deps.Processor.ProcessBundle(wf, h.deps.CenterID, sub.SubmissionID, parts)
	if len(result.Errors) > 0 {
		writeError(w, r, &bundleValidationError{Errors: result.Errors})
		return
	}

	if errs := h.deps.Objects.PutObjects(r.Context(), sub.SubmissionID, result.Objects); anyErr(errs) {
		writeError(w, r, firstErr(errs))
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

func anyErr(errs []error) bool {
	for _, e := range errs {
		if e != nil {
			return true
		}
	}
	return false
}

func firstErr(errs []error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// list handles GET /submissions?projectId=...
func (h *submissionHandlers) list(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	views, err := h.deps.Submissions.List(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// get handles GET /submissions/{id}.
func (h *submissionHandlers) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")
	view, err := h.deps.Submissions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// patch handles PATCH /submissions/{id}: a deep-merge over the
// submission's opaque metadata/rems documents.
func (h *submissionHandlers) patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")

	var patch map[string]json.RawMessage
	if err := decodeJSON(r, &patch); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body", fieldError{Detail: err.Error()})
		return
	}

	if _, err := h.deps.Submissions.Patch(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// delete handles DELETE /submissions/{id}.
func (h *submissionHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")
	if err := h.deps.Submissions.Delete(r.Context(), id, h.deps.AllowUnsafe); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// ingest handles POST /submissions/{id}/ingest: the admin-triggered
// transition to the "ingesting" derived state.
func (h *submissionHandlers) ingest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")
	if err := h.deps.Submissions.RequestIngest(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ingesting"})
}
