package workflow

import (
	"testing"

	"github.com/CSCfi/metadata-submitter-go/store"
)

func TestLoadDefault_AllWorkflowsPresent(t *testing.T) {
	c, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	for _, wf := range []store.Workflow{store.WorkflowFEGA, store.WorkflowBP, store.WorkflowSD} {
		if _, ok := c.For(wf); !ok {
			t.Errorf("missing definition for %s", wf)
		}
	}
}

func TestPublishSteps_Ordering(t *testing.T) {
	c, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		wf    store.Workflow
		steps []string
	}{
		{store.WorkflowFEGA, []string{"doi", "catalog", "access"}},
		{store.WorkflowBP, []string{"doi", "access"}},
		{store.WorkflowSD, []string{"doi", "catalog"}},
	}
	for _, tc := range cases {
		d, _ := c.For(tc.wf)
		if len(d.PublishSteps) != len(tc.steps) {
			t.Fatalf("%s: got %d steps, want %d", tc.wf, len(d.PublishSteps), len(tc.steps))
		}
		for i, name := range tc.steps {
			if d.PublishSteps[i].Name != name {
				t.Errorf("%s: step %d = %q, want %q", tc.wf, i, d.PublishSteps[i].Name, name)
			}
		}
	}
}

func TestCheckGate_MissingRequiredSchema(t *testing.T) {
	c, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	d, _ := c.For(store.WorkflowFEGA)
	problems := d.CheckGate(map[string]int{"sample": 1})
	if len(problems) == 0 {
		t.Fatal("expected problems for missing study/dataset/policy/dac")
	}
}

func TestCheckGate_DatasetRequiresStudyAndRunOrAnalysis(t *testing.T) {
	c, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	d, _ := c.For(store.WorkflowFEGA)

	present := map[string]int{
		"study": 1, "sample": 1, "dataset": 1, "policy": 1, "dac": 1,
	}
	problems := d.CheckGate(present)
	foundRunOrAnalysis := false
	for _, p := range problems {
		if p == `"dataset" requires one of [run analysis]` {
			foundRunOrAnalysis = true
		}
	}
	if !foundRunOrAnalysis {
		t.Fatalf("expected a run/analysis requires_or violation, got %v", problems)
	}

	present["run"] = 1
	problems = d.CheckGate(present)
	if len(problems) != 0 {
		t.Fatalf("expected gate to pass once run is present, got %v", problems)
	}
}

func TestCheckGate_MultiplicityViolation(t *testing.T) {
	c, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	d, _ := c.For(store.WorkflowBP)
	present := map[string]int{"bprems": 2, "dataset": 1}
	problems := d.CheckGate(present)
	found := false
	for _, p := range problems {
		if p == `schema "bprems" does not allow multiple objects (got 2)` {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected multiplicity violation, got %v", problems)
	}
}
