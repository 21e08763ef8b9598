package api

import (
	"net/http"

	"github.com/CSCfi/metadata-submitter-go/external"
)

// healthHandler reports "Up" only while every registered downstream probe
// is currently reachable (spec.md §6: "Liveness of DB + externals"). A nil
// registry (tests, minimal deployments) always reports "Up".
func healthHandler(reg *external.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "Up"
		var details map[string]any
		if reg != nil {
			details = reg.Status()
			for _, v := range details {
				m, ok := v.(map[string]any)
				if !ok {
					continue
				}
				if reachable, _ := m["reachable"].(bool); !reachable {
					status = "Down"
				}
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "services": details})
	}
}
