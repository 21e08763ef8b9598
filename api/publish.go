package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type publishHandlers struct {
	deps Deps
}

// publish handles POST /publish/{id}: runs the step-ordered publish
// pipeline, idempotent across repeated calls (spec.md §4.I).
func (h *publishHandlers) publish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")

	steps, err := h.deps.Publisher.Publish(r.Context(), id)
	if h.deps.Metrics != nil {
		for _, s := range steps {
			h.deps.Metrics.PublishSteps.WithLabelValues(s.Name, s.Status).Inc()
		}
	}
	if err != nil {
		// Partial failure is the norm (spec.md's S2 scenario): fold
		// whatever steps already succeeded into the problem body so a
		// retrying caller can see exactly where the pipeline stopped.
		writeErrorWithSteps(w, r, err, steps)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

// announce handles PATCH /announce/{id}.
func (h *publishHandlers) announce(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")
	if err := h.deps.Publisher.Announce(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// registrations handles GET /submissions/{id}/registrations.
func (h *publishHandlers) registrations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")
	regs, err := h.deps.Store.Registrations.ListBySubmission(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}
