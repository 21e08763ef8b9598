package publish

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/CSCfi/metadata-submitter-go/external"
	"github.com/CSCfi/metadata-submitter-go/idgen"
	"github.com/CSCfi/metadata-submitter-go/objectsvc"
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/submission"
	"github.com/CSCfi/metadata-submitter-go/workflow"
	"github.com/CSCfi/metadata-submitter-go/xmlproc"
)

func TestDoiPayloadFrom_EmptyMetadata(t *testing.T) {
	sub := &store.Submission{}
	payload, err := doiPayloadFrom(sub)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload.Titles) != 0 {
		t.Fatalf("expected an empty payload, got %+v", payload)
	}
}

func TestDoiPayloadFrom_DecodesMetadataDocument(t *testing.T) {
	sub := &store.Submission{Metadata: json.RawMessage(`{"titles":["a study"],"language":"en"}`)}
	payload, err := doiPayloadFrom(sub)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload.Titles) != 1 || payload.Titles[0] != "a study" {
		t.Fatalf("expected titles decoded, got %+v", payload)
	}
	if payload.Language != "en" {
		t.Fatalf("expected language decoded, got %+v", payload)
	}
}

func TestDoiPayloadFrom_InvalidJSON(t *testing.T) {
	sub := &store.Submission{Metadata: json.RawMessage(`not json`)}
	if _, err := doiPayloadFrom(sub); err == nil {
		t.Fatal("expected an error decoding invalid metadata JSON")
	}
}

type fakeDOI struct {
	draftDOI string
	draftErr error
	pubErr   error
	drafts   int
}

func (f *fakeDOI) Draft(ctx context.Context, payload external.DOIPayload) (string, error) {
	f.drafts++
	return f.draftDOI, f.draftErr
}
func (f *fakeDOI) Publish(ctx context.Context, doi string) error { return f.pubErr }

type fakeCatalog struct {
	pid      string
	err      error
	upserts  int
}

func (f *fakeCatalog) UpsertDataset(ctx context.Context, ds external.CatalogDataset) (string, error) {
	f.upserts++
	return f.pid, f.err
}

type fakeAccess struct {
	resErr error
	catID  string
	catErr error
}

func (f *fakeAccess) CreateResource(ctx context.Context, resID string) error { return f.resErr }
func (f *fakeAccess) CreateCatalogueItem(ctx context.Context, wf, res, org string, localisations []string) (string, error) {
	return f.catID, f.catErr
}

type fakeArchive struct {
	err     error
	release int
}

func (f *fakeArchive) ReleaseDataset(ctx context.Context, submissionID string) error {
	f.release++
	return f.err
}

// TestService_Publish_Integration exercises the full step sequence
// (skip-if-registered, record-on-success, stop-on-first-failure, mark
// published on full success) against a real Postgres instance, matching
// spec.md §8's S1/S2 scenarios. Same short-mode/env-gated convention as
// objectsvc and submission (the registrations table's uniqueness and the
// submission row lock are genuine Postgres behavior).
func TestService_Publish_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping publish integration test in short mode")
	}
	dsn := os.Getenv("PUBLISH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PUBLISH_TEST_DATABASE_URL not set")
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

	sub, err := subSvc.Create(ctx, "project-publish-test", store.WorkflowSD, "publish-pipeline-test")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := subSvc.Patch(ctx, sub.SubmissionID, map[string]json.RawMessage{
		"metadata": json.RawMessage(`{"titles":["sd dataset"]}`),
	}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	errs := objSvc.PutObjects(ctx, sub.SubmissionID, []xmlproc.LogicalObject{{
		ObjectType:  "dataset",
		AccessionID: "acc-publish-test-dataset",
		Name:        "sd-dataset",
		JSON:        map[string]any{"title": "sd dataset"},
	}})
	for _, e := range errs {
		if e != nil {
			t.Fatalf("put dataset object: %v", e)
		}
	}

	problems, err := subSvc.ValidateForPublish(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatalf("validate for publish: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("expected the gate to pass once a dataset object is attached, got %v", problems)
	}

	doi := &fakeDOI{draftDOI: "10.9999/sd-test"}
	catalog := &fakeCatalog{pid: "pid-1"}
	access := &fakeAccess{}
	archive := &fakeArchive{}

	pub := New(st, cfg, subSvc, doi, catalog, access, archive)

	results, err := pub.Publish(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatalf("publish: %v (results=%v)", err, results)
	}
	if len(results) != 2 {
		t.Fatalf("expected two steps (doi, catalog) for SD, got %v", results)
	}
	for _, r := range results {
		if r.Status != "ok" {
			t.Errorf("step %q status = %q, want ok", r.Name, r.Status)
		}
	}

	view, err := subSvc.Get(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatal(err)
	}
	if view.PublishedAt == nil {
		t.Fatal("expected published_at to be set after a fully successful publish")
	}

	// Re-invoking is fully idempotent: every step is already registered.
	results, err = pub.Publish(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	for _, r := range results {
		if r.Status != "skipped" {
			t.Errorf("expected every step to be skipped on re-invoke, got %q=%q", r.Name, r.Status)
		}
	}
	if doi.drafts != 1 || catalog.upserts != 1 {
		t.Fatalf("expected exactly one real doi/catalog call, got drafts=%d upserts=%d", doi.drafts, catalog.upserts)
	}

	if err := pub.Announce(ctx, sub.SubmissionID); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if archive.release != 1 {
		t.Fatalf("expected exactly one release call, got %d", archive.release)
	}
	// Announce is idempotent.
	if err := pub.Announce(ctx, sub.SubmissionID); err != nil {
		t.Fatalf("second announce: %v", err)
	}
	if archive.release != 1 {
		t.Fatalf("expected announce to skip re-releasing an already-announced submission, got %d calls", archive.release)
	}
}

func TestPublishGateError_UnwrapsToSentinel(t *testing.T) {
	err := &PublishGateError{Problems: []string{"missing required schema \"dataset\""}}
	if !errors.Is(err, ErrGateFailed) {
		t.Fatal("expected PublishGateError to unwrap to ErrGateFailed")
	}
}
