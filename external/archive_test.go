package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestArchiveClient_IngestPollCreateRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/submissions/sub-1/ingest":
			w.WriteHeader(http.StatusAccepted)
		case r.Method == http.MethodGet && r.URL.Path == "/submissions/sub-1/ingest":
			w.Write([]byte(`[{"file":"a.bam","status":"ready"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/submissions/sub-1/dataset":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/submissions/sub-1/dataset/release":
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "unexpected request", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewArchiveClient(NewClient(ClientConfig{BaseURL: srv.URL, Name: "archive-test", RetryMax: 0}))
	ctx := context.Background()

	if err := client.Ingest(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}

	statuses, err := client.Poll(ctx, "sub-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].Status != "ready" {
		t.Fatalf("expected one ready file, got %+v", statuses)
	}

	if err := client.CreateDataset(ctx, "sub-1", []string{"acc-1"}); err != nil {
		t.Fatal(err)
	}
	if err := client.ReleaseDataset(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}
}
