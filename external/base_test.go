package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_DoJSON_DecodesSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"doi":"10.1234/abcd"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Name: "test-doi", RetryMax: 0})

	var resp draftDOIResponse
	if err := c.DoJSON(context.Background(), "POST", "/dois", map[string]string{"x": "y"}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.DOI != "10.1234/abcd" {
		t.Fatalf("expected decoded doi, got %q", resp.DOI)
	}
}

func TestClient_DoJSON_ReturnsStatusErrorOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"already exists"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Name: "test-conflict", RetryMax: 0})

	err := c.DoJSON(context.Background(), "POST", "/dois", nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", statusErr.StatusCode)
	}
	if !statusErr.Permanent() {
		t.Fatal("expected a 409 to be classified as permanent")
	}
}

func TestClient_DoJSON_5xxIsNotPermanent(t *testing.T) {
	err := &StatusError{Service: "test", StatusCode: http.StatusBadGateway}
	if err.Permanent() {
		t.Fatal("expected a 502 to not be classified as permanent")
	}
}

func TestHealth_CachesResultWithoutBlockingCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewHealth("test", srv.URL, time.Minute)
	h.check(context.Background())

	if !h.Healthy() {
		t.Fatal("expected healthy after a 200 response")
	}
	status := h.Status()
	if status["service"] != "test" {
		t.Fatalf("expected service name in status, got %v", status)
	}
}

func TestHealth_UnreachableIsUnhealthy(t *testing.T) {
	h := NewHealth("unreachable", "http://127.0.0.1:0", time.Minute)
	h.check(context.Background())

	if h.Healthy() {
		t.Fatal("expected an unreachable service to be unhealthy")
	}
}
