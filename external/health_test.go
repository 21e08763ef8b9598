package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegistry_StatusAggregatesAllProbes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := NewRegistry()
	a := NewHealth("a", srv.URL, time.Minute)
	b := NewHealth("b", "http://127.0.0.1:0", time.Minute)
	reg.Register(a)
	reg.Register(b)

	a.check(context.Background())
	b.check(context.Background())

	status := reg.Status()
	if len(status) != 2 {
		t.Fatalf("expected two entries, got %d", len(status))
	}
	if status["a"].(map[string]any)["reachable"] != true {
		t.Fatalf("expected a to be reachable, got %v", status["a"])
	}
	if status["b"].(map[string]any)["reachable"] != false {
		t.Fatalf("expected b to be unreachable, got %v", status["b"])
	}
}

func TestRegistry_StartStopsOnContextCancel(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewHealth("noop", "http://127.0.0.1:0", time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Start to return promptly after context cancellation")
	}
}
