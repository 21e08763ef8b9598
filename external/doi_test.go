package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDOIClient_DraftPublishDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/dois":
			w.Write([]byte(`{"doi":"10.5555/test"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/dois/10.5555/test/publish":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete && r.URL.Path == "/dois/10.5555/test":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "unexpected request", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewDOIClient(NewClient(ClientConfig{BaseURL: srv.URL, Name: "doi-test", RetryMax: 0}))
	ctx := context.Background()

	doi, err := client.Draft(ctx, DOIPayload{Titles: []string{"a dataset"}})
	if err != nil {
		t.Fatal(err)
	}
	if doi != "10.5555/test" {
		t.Fatalf("expected minted doi, got %q", doi)
	}

	if err := client.Publish(ctx, doi); err != nil {
		t.Fatal(err)
	}
	if err := client.Delete(ctx, doi); err != nil {
		t.Fatal(err)
	}
}
