package shield

import "net/http"

// MaxBody returns middleware that caps the request body size for every
// request, regardless of content type. Submission bundles are multipart
// XML, not form-encoded, so the limit must not be scoped to a single
// Content-Type.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
