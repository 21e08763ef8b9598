package ingestpoll

import (
	"testing"

	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/workflow"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    store.IngestStatus
		wantOK  bool
	}{
		{"ready", store.IngestReady, true},
		{"verified", store.IngestVerified, true},
		{"completed", store.IngestCompleted, true},
		{"error", store.IngestError, true},
		{"added", "", false},
		{"uploading", "", false},
	}
	for _, c := range cases {
		got, ok := mapStatus(c.in)
		if ok != c.wantOK || (ok && got != c.want) {
			t.Errorf("mapStatus(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestClassifyError_DefaultsToTransient(t *testing.T) {
	if got := classifyError(""); got != store.IngestErrorTransient {
		t.Fatalf("expected transient default, got %q", got)
	}
	if got := classifyError("garbage"); got != store.IngestErrorTransient {
		t.Fatalf("expected transient fallback for an unknown value, got %q", got)
	}
}

func TestClassifyError_PassesThroughKnownTypes(t *testing.T) {
	if got := classifyError("user"); got != store.IngestErrorUser {
		t.Fatalf("expected user, got %q", got)
	}
	if got := classifyError("permanent"); got != store.IngestErrorPermanent {
		t.Fatalf("expected permanent, got %q", got)
	}
}

func loadDef(t *testing.T, wf store.Workflow) *workflow.Definition {
	t.Helper()
	cfg, err := workflow.LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	def, ok := cfg.For(wf)
	if !ok {
		t.Fatalf("no definition for %q", wf)
	}
	return def
}

func TestAllFilesSettled_FalseWithNoFiles(t *testing.T) {
	def := loadDef(t, store.WorkflowFEGA)
	if allFilesSettled(nil, def) {
		t.Fatal("expected false with no files attached")
	}
}

func TestAllFilesSettled_TrueWhenEveryFileReady(t *testing.T) {
	def := loadDef(t, store.WorkflowFEGA)
	files := []*store.File{
		{IngestStatus: store.IngestReady},
		{IngestStatus: store.IngestVerified},
		{IngestStatus: store.IngestCompleted},
	}
	if !allFilesSettled(files, def) {
		t.Fatal("expected true when every file has reached a terminal non-error status")
	}
}

func TestAllFilesSettled_FalseWithOutstandingErrorOrPending(t *testing.T) {
	def := loadDef(t, store.WorkflowFEGA)
	withError := []*store.File{{IngestStatus: store.IngestReady}, {IngestStatus: store.IngestError}}
	if allFilesSettled(withError, def) {
		t.Fatal("expected false with an outstanding error file")
	}
	withPending := []*store.File{{IngestStatus: store.IngestAdded}}
	if allFilesSettled(withPending, def) {
		t.Fatal("expected false with a still-pending file")
	}
}

func TestAllFilesSettled_TrueForWorkflowNotTrackingFiles(t *testing.T) {
	def := loadDef(t, store.WorkflowSD)
	if !allFilesSettled(nil, def) {
		t.Fatal("expected true for a workflow that doesn't track file ingestion, matching submission.filesReady")
	}
}
