package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAccessClient_CreateResourceAndCatalogueItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/resources":
			w.WriteHeader(http.StatusOK)
		case "/api/catalogue-items":
			w.Write([]byte(`{"id":"cat-1"}`))
		default:
			http.Error(w, "unexpected request", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewAccessClient(NewClient(ClientConfig{BaseURL: srv.URL, Name: "access-test", RetryMax: 0}))
	ctx := context.Background()

	if err := client.CreateResource(ctx, "10.5555/test"); err != nil {
		t.Fatal(err)
	}

	catID, err := client.CreateCatalogueItem(ctx, "wf-1", "10.5555/test", "csc", []string{"en"})
	if err != nil {
		t.Fatal(err)
	}
	if catID != "cat-1" {
		t.Fatalf("expected cat-1, got %q", catID)
	}
}
