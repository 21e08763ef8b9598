package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type credentialsHandlers struct {
	deps Deps
}

// issue handles GET /projects/{id}/credentials: mints short-lived,
// project-scoped object-store credentials via Keystone, per spec.md
// §4.H's CSC deployment supplement (direct S3 upload access without
// routing file bytes through this service).
func (h *credentialsHandlers) issue(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	creds, err := h.deps.Keystone.IssueEC2Credentials(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}
