package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRouter_SecurityHeaders confirms shield.DefaultStack is actually wired
// into the built router: every response carries the trace/security headers
// regardless of which route handled it.
func TestRouter_SecurityHeaders(t *testing.T) {
	handler := New(Deps{
		JWTSecret: []byte("test-secret-at-least-32-bytes!!"),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}

	checks := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
	}
	for header, want := range checks {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
	if w.Header().Get("X-Trace-ID") == "" {
		t.Error("X-Trace-ID: missing")
	}
}

// TestRouter_HealthNilRegistry confirms GET /v1/health degrades gracefully
// when no external.Registry is configured (minimal deployments, tests).
func TestRouter_HealthNilRegistry(t *testing.T) {
	handler := New(Deps{
		JWTSecret: []byte("test-secret-at-least-32-bytes!!"),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got == "" {
		t.Fatal("empty body")
	}
}

// TestRouter_AdminIngestRejectsMissingToken confirms the archive-operator
// route stays gated even though it sits outside the RequireAuth group.
func TestRouter_AdminIngestRejectsMissingToken(t *testing.T) {
	handler := New(Deps{
		JWTSecret:  []byte("test-secret-at-least-32-bytes!!"),
		AdminToken: "s3cr3t",
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/submissions/sub-1/ingest", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized && w.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 401 or 403", w.Code)
	}
}
