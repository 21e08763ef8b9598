package submission

import (
	"encoding/json"
	"testing"

	"github.com/CSCfi/metadata-submitter-go/store"
)

func TestDeepMergeJSON_OverwritesScalarAndRecursesObjects(t *testing.T) {
	base := json.RawMessage(`{"title":"old","nested":{"a":1,"b":2}}`)
	patch := json.RawMessage(`{"title":"new","nested":{"b":20,"c":3}}`)

	merged, err := deepMergeJSON(base, patch)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(merged, &out); err != nil {
		t.Fatal(err)
	}
	if out["title"] != "new" {
		t.Errorf("title = %v, want new", out["title"])
	}
	nested := out["nested"].(map[string]any)
	if nested["a"] != float64(1) || nested["b"] != float64(20) || nested["c"] != float64(3) {
		t.Errorf("nested merge wrong: %v", nested)
	}
}

func TestDeepMergeJSON_NullUnsetsKey(t *testing.T) {
	base := json.RawMessage(`{"a":1,"b":2}`)
	patch := json.RawMessage(`{"b":null}`)

	merged, err := deepMergeJSON(base, patch)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(merged, &out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["b"]; ok {
		t.Errorf("expected key b to be removed, got %v", out)
	}
	if out["a"] != float64(1) {
		t.Errorf("expected key a untouched, got %v", out)
	}
}

func TestApplyPatch_NameAndTitleAndBucket(t *testing.T) {
	bucket := "old-bucket"
	sub := &store.Submission{Name: "old-name", Title: "old-title", Bucket: &bucket}
	patch := map[string]json.RawMessage{
		"name":   json.RawMessage(`"new-name"`),
		"bucket": json.RawMessage(`null`),
	}
	if err := applyPatch(sub, patch); err != nil {
		t.Fatal(err)
	}
	if sub.Name != "new-name" {
		t.Errorf("name = %q, want new-name", sub.Name)
	}
	if sub.Title != "old-title" {
		t.Errorf("title should be untouched (absent from patch), got %q", sub.Title)
	}
	if sub.Bucket != nil {
		t.Errorf("bucket should be unset by null, got %v", *sub.Bucket)
	}
}

func TestApplyPatch_NameCannotBeUnset(t *testing.T) {
	sub := &store.Submission{Name: "keep-me"}
	patch := map[string]json.RawMessage{"name": json.RawMessage(`null`)}
	if err := applyPatch(sub, patch); err == nil {
		t.Fatal("expected an error when unsetting the required name field")
	}
	if sub.Name != "keep-me" {
		t.Errorf("name should be unchanged after a rejected patch, got %q", sub.Name)
	}
}

func TestApplyPatch_MetadataDeepMerge(t *testing.T) {
	sub := &store.Submission{Metadata: json.RawMessage(`{"creators":[{"name":"A"}],"keep":"me"}`)}
	patch := map[string]json.RawMessage{
		"metadata": json.RawMessage(`{"keep":null,"subjects":["genomics"]}`),
	}
	if err := applyPatch(sub, patch); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(sub.Metadata, &out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["keep"]; ok {
		t.Errorf("expected keep to be unset, got %v", out)
	}
	if _, ok := out["creators"]; !ok {
		t.Errorf("expected creators to survive the merge untouched, got %v", out)
	}
	if _, ok := out["subjects"]; !ok {
		t.Errorf("expected subjects to be added, got %v", out)
	}
}
