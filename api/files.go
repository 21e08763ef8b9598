package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/CSCfi/metadata-submitter-go/store"
)

type fileHandlers struct {
	deps Deps
}

type registerFileRequest struct {
	SubmissionID      string          `json:"submissionId" validate:"required"`
	Path              string          `json:"path" validate:"required"`
	Bytes             int64           `json:"bytes" validate:"min=0"`
	ChecksumEncrypted json.RawMessage `json:"checksumEncrypted,omitempty"`
	ChecksumPlain     json.RawMessage `json:"checksumPlain,omitempty"`
}

// register handles POST /files?projectId=...: registers one or more file
// references, superseding any prior non-superseded file at the same path
// and bumping the monotonic per-path version, per spec.md's File
// invariant.
func (h *fileHandlers) register(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")

	var reqs []registerFileRequest
	if err := decodeJSON(r, &reqs); err != nil || len(reqs) == 0 {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body", fieldError{Detail: "expected a non-empty array of files"})
		return
	}
	for _, req := range reqs {
		if req.SubmissionID == "" || req.Path == "" {
			writeProblem(w, r, http.StatusBadRequest, "Invalid request body",
				fieldError{Field: "submissionId/path", Detail: "required"})
			return
		}
		// req.SubmissionID is attacker-controlled independent of the
		// authorized projectID query param; requireProjectScopeQuery only
		// checked the latter, so confirm each referenced submission
		// actually belongs to it before registering anything against it.
		sub, err := h.deps.Store.Submissions.Get(r.Context(), req.SubmissionID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if sub.ProjectID != projectID {
			writeProblem(w, r, http.StatusForbidden, "Not authorized for this project")
			return
		}
	}

	created := make([]*store.File, 0, len(reqs))
	err := runInTx(r.Context(), h.deps.Store, func(tx *sqlx.Tx) error {
		for _, req := range reqs {
			if err := h.deps.Store.Files.SupersedeByPath(r.Context(), tx, projectID, req.Path); err != nil {
				return err
			}
			maxV, err := h.deps.Store.Files.MaxVersion(r.Context(), projectID, req.Path)
			if err != nil {
				return err
			}
			f := &store.File{
				AccessionID:       h.deps.AccessionGen(),
				SubmissionID:      req.SubmissionID,
				ProjectID:         projectID,
				Path:              req.Path,
				Bytes:             req.Bytes,
				Version:           maxV + 1,
				ChecksumEncrypted: req.ChecksumEncrypted,
				ChecksumPlain:     req.ChecksumPlain,
				IngestStatus:      store.IngestAdded,
			}
			if err := h.deps.Store.Files.Create(r.Context(), tx, f); err != nil {
				return err
			}
			created = append(created, f)
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// runInTx is the plain (non-submission-locked) transaction helper for
// mutations that span files registered against a project rather than a
// single locked submission.
func runInTx(ctx context.Context, st *store.Store, fn func(tx *sqlx.Tx) error) error {
	tx, err := st.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// list handles GET /files?projectId=...
func (h *fileHandlers) list(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	files, err := h.deps.Store.Files.ListLatestByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

type patchFilesRequest struct {
	Attach []fileObjectLink `json:"attach,omitempty"`
	Detach []string         `json:"detach,omitempty"`
}

type fileObjectLink struct {
	FileAccessionID string `json:"fileAccessionId"`
	ObjectID        string `json:"objectId"`
}

// patch handles PATCH /submissions/{id}/files: attach a file to a
// MetadataObject (e.g. a BP image) or detach it, under the submission's
// lock so a concurrent publish can't race an in-flight attach.
func (h *fileHandlers) patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")

	var req patchFilesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body", fieldError{Detail: err.Error()})
		return
	}

	err := h.deps.Store.WithSubmissionLock(r.Context(), id, func(tx *sqlx.Tx, sub *store.Submission) error {
		if sub.Frozen() {
			return store.ErrFrozen
		}
		for _, link := range req.Attach {
			objectID := link.ObjectID
			if err := h.deps.Store.Files.SetObjectID(r.Context(), tx, link.FileAccessionID, &objectID); err != nil {
				return err
			}
		}
		for _, accessionID := range req.Detach {
			if err := h.deps.Store.Files.SetObjectID(r.Context(), tx, accessionID, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
