package objectsvc

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/workflow"
	"github.com/CSCfi/metadata-submitter-go/xmlproc"
)

func testWorkflowConfig(t *testing.T) *workflow.Config {
	t.Helper()
	cfg, err := workflow.LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestMultiplicityViolations_NilDefinitionAllowsEverything(t *testing.T) {
	objs := []xmlproc.LogicalObject{{ObjectType: "study"}, {ObjectType: "study"}}
	got := multiplicityViolations(nil, nil, objs)
	if len(got) != 0 {
		t.Fatalf("expected no violations with a nil definition, got %v", got)
	}
}

func TestMultiplicityViolations_RejectsSecondSingleValuedObjectInBatch(t *testing.T) {
	cfg := testWorkflowConfig(t)
	def, ok := cfg.For(store.WorkflowFEGA)
	if !ok {
		t.Fatal("expected a FEGA definition")
	}

	objs := []xmlproc.LogicalObject{
		{ObjectType: "study", Name: "s1"},
		{ObjectType: "study", Name: "s2"},
	}
	got := multiplicityViolations(def, map[string]int{}, objs)

	if _, ok := got[0]; ok {
		t.Error("first study object should not be flagged")
	}
	if _, ok := got[1]; !ok {
		t.Error("second study object in the same batch should be flagged as a multiplicity violation")
	}
}

func TestMultiplicityViolations_RejectsWhenAlreadyExistsInSubmission(t *testing.T) {
	cfg := testWorkflowConfig(t)
	def, _ := cfg.For(store.WorkflowFEGA)

	objs := []xmlproc.LogicalObject{{ObjectType: "study", Name: "s1"}}
	got := multiplicityViolations(def, map[string]int{"study": 1}, objs)

	if _, ok := got[0]; !ok {
		t.Error("expected a violation since a study object already exists for this submission")
	}
}

func TestMultiplicityViolations_AllowsMultipleForMultiValuedSchema(t *testing.T) {
	cfg := testWorkflowConfig(t)
	def, _ := cfg.For(store.WorkflowFEGA)

	objs := []xmlproc.LogicalObject{
		{ObjectType: "sample", Name: "a"},
		{ObjectType: "sample", Name: "b"},
		{ObjectType: "sample", Name: "c"},
	}
	got := multiplicityViolations(def, map[string]int{}, objs)
	if len(got) != 0 {
		t.Fatalf("sample allows multiple objects, expected no violations, got %v", got)
	}
}

func TestMultiplicityViolations_IgnoresSchemaNotInDefinition(t *testing.T) {
	cfg := testWorkflowConfig(t)
	def, _ := cfg.For(store.WorkflowFEGA)

	objs := []xmlproc.LogicalObject{{ObjectType: "unlisted"}, {ObjectType: "unlisted"}}
	got := multiplicityViolations(def, map[string]int{}, objs)
	if len(got) != 0 {
		t.Fatalf("a schema absent from the workflow definition is not subject to the multiplicity rule, got %v", got)
	}
}

// TestService_PutObjects_Integration exercises PutObjects against a real
// Postgres instance, matching the short-mode/DSN-gated integration
// convention used elsewhere for infra-backed tests: it is skipped unless
// both -short is off and OBJECTSVC_TEST_DATABASE_URL names a reachable
// database, since the submission lock and uniqueness constraint it
// exercises are genuine Postgres behavior that no in-memory substitute
// reproduces faithfully.
func TestService_PutObjects_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping objectsvc integration test in short mode")
	}
	dsn := os.Getenv("OBJECTSVC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OBJECTSVC_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	cfg := testWorkflowConfig(t)
	svc := New(st, cfg)

	sub := &store.Submission{
		SubmissionID: "sub-objectsvc-test",
		ProjectID:    "project-objectsvc-test",
		Workflow:     store.WorkflowFEGA,
		Name:         "objectsvc integration test submission",
	}
	if err := st.Submissions.Create(ctx, sub); err != nil {
		t.Fatalf("create submission: %v", err)
	}

	objs := []xmlproc.LogicalObject{
		{ObjectType: "study", AccessionID: "acc-study-1", Name: "study1", JSON: map[string]any{"name": "study1"}},
		{ObjectType: "study", AccessionID: "acc-study-2", Name: "study2", JSON: map[string]any{"name": "study2"}},
	}
	errs := svc.PutObjects(ctx, sub.SubmissionID, objs)
	if errs[0] != nil {
		t.Errorf("first study object: unexpected error %v", errs[0])
	}
	if !errors.Is(errs[1], ErrMultiplicity) {
		t.Errorf("second study object: expected ErrMultiplicity, got %v", errs[1])
	}

	if err := svc.DeleteObject(ctx, "acc-study-1"); err != nil {
		t.Errorf("delete study object: %v", err)
	}
}
