package ingestpoll

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/CSCfi/metadata-submitter-go/external"
	"github.com/CSCfi/metadata-submitter-go/idgen"
	"github.com/CSCfi/metadata-submitter-go/objectsvc"
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/submission"
	"github.com/CSCfi/metadata-submitter-go/workflow"
	"github.com/CSCfi/metadata-submitter-go/xmlproc"
)

type fakeArchive struct {
	responses    []external.FileIngestStatus
	createCalled int
	createIDs    []string
}

func (f *fakeArchive) Poll(ctx context.Context, submissionID string) ([]external.FileIngestStatus, error) {
	return f.responses, nil
}

func (f *fakeArchive) CreateDataset(ctx context.Context, submissionID string, accessionIDs []string) error {
	f.createCalled++
	f.createIDs = accessionIDs
	return nil
}

// TestPoller_Reconcile_Integration drives one full tick against a real
// Postgres instance: a submission with one attached file advances from
// "ingesting" through file-status updates to a completed archive
// registration once the archive reports it ready, matching spec.md
// §4.J's pseudocode. Same short-mode/env-gated convention as the other
// service-layer packages (the submission row lock taken by
// completeIngest is genuine Postgres behavior).
func TestPoller_Reconcile_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ingestpoll integration test in short mode")
	}
	dsn := os.Getenv("INGESTPOLL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("INGESTPOLL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	cfg, err := workflow.LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	subSvc := submission.New(st, cfg, idgen.UUIDv4())
	objSvc := objectsvc.New(st, cfg)

	sub, err := subSvc.Create(ctx, "project-ingestpoll-test", store.WorkflowFEGA, "ingestpoll-test")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	errs := objSvc.PutObjects(ctx, sub.SubmissionID, []xmlproc.LogicalObject{{
		ObjectType:  "study",
		AccessionID: "acc-ingestpoll-study",
		Name:        "study-1",
		JSON:        map[string]any{},
	}})
	for _, e := range errs {
		if e != nil {
			t.Fatalf("put study object: %v", e)
		}
	}

	fileID := "acc-ingestpoll-file-1"
	if err := st.Files.Create(ctx, nil, &store.File{
		AccessionID:  fileID,
		SubmissionID: sub.SubmissionID,
		ProjectID:    sub.ProjectID,
		Path:         "s3://bucket/sample.bam",
		Bytes:        1024,
		Version:      1,
		IngestStatus: store.IngestAdded,
		Created:      time.Now(),
		Modified:     time.Now(),
	}); err != nil {
		t.Fatalf("create file: %v", err)
	}

	if err := subSvc.RequestIngest(ctx, sub.SubmissionID); err != nil {
		t.Fatalf("request ingest: %v", err)
	}

	archive := &fakeArchive{responses: []external.FileIngestStatus{
		{File: "s3://bucket/sample.bam", Status: "ready"},
	}}
	poller := New(st, cfg, archive, time.Hour)

	reloaded, err := st.Submissions.Get(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatal(err)
	}
	if err := poller.reconcile(ctx, reloaded); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	f, err := st.Files.Get(ctx, fileID)
	if err != nil {
		t.Fatal(err)
	}
	if f.IngestStatus != store.IngestReady {
		t.Fatalf("expected file ingest_status=ready, got %q", f.IngestStatus)
	}
	if archive.createCalled != 1 {
		t.Fatalf("expected exactly one create_dataset call, got %d", archive.createCalled)
	}

	// A second reconcile is a no-op: the archive registration already exists.
	if err := poller.reconcile(ctx, reloaded); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if archive.createCalled != 1 {
		t.Fatalf("expected create_dataset to not be called again, got %d total calls", archive.createCalled)
	}
}
