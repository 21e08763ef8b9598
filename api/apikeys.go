package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CSCfi/metadata-submitter-go/auth"
)

type apiKeyHandlers struct {
	deps Deps
}

// currentUser reports the authenticated principal and its authorized
// projects (spec.md §6: "Principal + projects").
func (h *apiKeyHandlers) currentUser(w http.ResponseWriter, r *http.Request) {
	userID := principalID(r.Context())
	projects, err := h.deps.Projects.ProjectsFor(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := map[string]any{"userId": userID, "projects": projects}
	if c := auth.GetClaims(r.Context()); c != nil {
		out["username"] = c.Username
		out["email"] = c.Email
		out["displayName"] = c.DisplayName
	}
	writeJSON(w, http.StatusOK, out)
}

// mint issues a fresh API key, returning its plaintext exactly once
// (spec.md §4.F / §6).
func (h *apiKeyHandlers) mint(w http.ResponseWriter, r *http.Request) {
	userID := principalID(r.Context())
	k, plaintext, err := auth.IssueAPIKey(r.Context(), h.deps.Store, h.deps.APIKeyPepper, h.deps.KeyIDGen, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key_id": k.KeyID, "plaintext": plaintext})
}

// list returns the caller's key ids only; the salted hash never leaves
// the store.
func (h *apiKeyHandlers) list(w http.ResponseWriter, r *http.Request) {
	userID := principalID(r.Context())
	keys, err := h.deps.Store.ApiKeys.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]map[string]any, len(keys))
	for i, k := range keys {
		out[i] = map[string]any{"key_id": k.KeyID, "created": k.Created, "expires": k.Expires}
	}
	writeJSON(w, http.StatusOK, out)
}

// revoke deletes one of the caller's own keys.
func (h *apiKeyHandlers) revoke(w http.ResponseWriter, r *http.Request) {
	userID := principalID(r.Context())
	keyID := chi.URLParam(r, "id")
	if err := h.deps.Store.ApiKeys.Revoke(r.Context(), userID, keyID); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

