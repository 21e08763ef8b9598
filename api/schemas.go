package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CSCfi/metadata-submitter-go/schemacatalog"
)

// schemasHandler handles GET /schemas.
func schemasHandler(catalog *schemacatalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, catalog.Schemas())
	}
}

// schemaHandler handles GET /schemas/{name}.
func schemaHandler(catalog *schemacatalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !catalog.Has(name) {
			writeProblem(w, r, http.StatusNotFound, "Unknown schema")
			return
		}
		for _, s := range catalog.Schemas() {
			if s.Name == name {
				writeJSON(w, http.StatusOK, s)
				return
			}
		}
		writeProblem(w, r, http.StatusNotFound, "Unknown schema")
	}
}
