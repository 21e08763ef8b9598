package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/CSCfi/metadata-submitter-go/objectsvc"
	"github.com/CSCfi/metadata-submitter-go/schemacatalog"
	"github.com/CSCfi/metadata-submitter-go/xmlproc"
)

type objectHandlers struct {
	deps Deps
}

type createObjectRequest struct {
	Name     string                     `json:"name" validate:"required"`
	Document map[string]json.RawMessage `json:"document" validate:"required"`
}

// create handles POST /objects/{schema}?submission={id}: a single JSON
// object submitted outside a multipart bundle, validated against the
// schema's JSON Schema and minted through the same BP-deterministic /
// FEGA-random rule the bundle path uses.
func (h *objectHandlers) create(w http.ResponseWriter, r *http.Request) {
	schema := chi.URLParam(r, "schema")
	submissionID := r.URL.Query().Get("submission")

	if !h.deps.Catalog.Has(schema) {
		writeProblem(w, r, http.StatusBadRequest, "Unknown schema", fieldError{Field: "schema", Detail: schema})
		return
	}

	var req createObjectRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body", errs...)
		return
	}

	if errs, err := h.deps.Catalog.ValidateJSON(schema, req.Document); err != nil {
		writeError(w, r, err)
		return
	} else if len(errs) > 0 {
		writeProblem(w, r, http.StatusBadRequest, "Validation failed", toFieldErrors(errs)...)
		return
	}

	sub := submissionFromContext(r.Context())

	doc, err := json.Marshal(req.Document)
	if err != nil {
		writeError(w, r, err)
		return
	}

	accessionID := xmlproc.MintAccessionID(sub.Workflow, h.deps.CenterID, submissionID, schema, req.Name, h.deps.AccessionGen)

	var asMap map[string]any
	_ = json.Unmarshal(doc, &asMap)
	obj := xmlproc.LogicalObject{
		ObjectType:  schema,
		AccessionID: accessionID,
		Name:        req.Name,
		JSON:        asMap,
	}

	if errs := h.deps.Objects.PutObjects(r.Context(), submissionID, []xmlproc.LogicalObject{obj}); anyErr(errs) {
		writeError(w, r, firstErr(errs))
		return
	}

	writeJSON(w, http.StatusCreated, []map[string]string{{"accessionId": accessionID}})
}

func toFieldErrors(errs []schemacatalog.ValidationError) []fieldError {
	out := make([]fieldError, len(errs))
	for i, e := range errs {
		out[i] = fieldError{Pointer: e.Pointer, Detail: e.Message}
	}
	return out
}

// get handles GET /objects/{schema}/{id}[?format=xml].
func (h *objectHandlers) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := r.URL.Query().Get("format")

	o, err := h.deps.Objects.GetObject(r.Context(), id, format)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if format == "xml" {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(o.XML)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type replaceObjectRequest struct {
	Document map[string]json.RawMessage `json:"document" validate:"required"`
}

// replace handles PUT /objects/{schema}/{id}.
func (h *objectHandlers) replace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	schema := chi.URLParam(r, "schema")

	var req replaceObjectRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body", errs...)
		return
	}

	if errs, err := h.deps.Catalog.ValidateJSON(schema, req.Document); err != nil {
		writeError(w, r, err)
		return
	} else if len(errs) > 0 {
		writeProblem(w, r, http.StatusBadRequest, "Validation failed", toFieldErrors(errs)...)
		return
	}

	doc, err := json.Marshal(req.Document)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.deps.Objects.ReplaceObject(r.Context(), id, doc, nil); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// delete handles DELETE /objects/{schema}/{id}.
func (h *objectHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.deps.Objects.DeleteObject(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

type xmlDocument struct {
	AccessionID string `json:"accessionId"`
	ObjectType  string `json:"objectType"`
	XML         string `json:"xml"`
}

// listForSubmission handles GET /submissions/{id}/objects[/docs][?format=xml].
// format=xml at the submission level exports every object's original stored
// XML, applying the same "no stored xml" 404 rule the per-object endpoint
// enforces rather than silently skipping objects that have none.
func (h *objectHandlers) listForSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")
	objectType := r.URL.Query().Get("objectType")

	objs, err := h.deps.Objects.ListObjects(r.Context(), id, objectType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "xml" {
		docs := make([]xmlDocument, len(objs))
		for i, o := range objs {
			if len(o.XML) == 0 {
				writeError(w, r, objectsvc.ErrNoXML)
				return
			}
			docs[i] = xmlDocument{AccessionID: o.AccessionID, ObjectType: o.ObjectType, XML: string(o.XML)}
		}
		writeJSON(w, http.StatusOK, docs)
		return
	}

	if strings.HasSuffix(r.URL.Path, "/docs") {
		docs := make([]json.RawMessage, len(objs))
		for i, o := range objs {
			docs[i] = o.Document
		}
		writeJSON(w, http.StatusOK, docs)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}
