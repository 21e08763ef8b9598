package api

import (
	"net/http"
	"strconv"

	json "github.com/segmentio/encoding/json"
)

// writeJSON encodes v as the response body with status code. Used on the
// hot path of XML-derived JSON documents and every plain success response,
// per SPEC_FULL.md's assignment of segmentio/encoding/json to response
// bodies.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON decodes the request body into v. Unknown fields are not
// rejected: fields v has no slot for are ignored.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
