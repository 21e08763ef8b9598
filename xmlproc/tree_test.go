package xmlproc

import (
	"reflect"
	"testing"
)

func TestToJSON_ScalarLeafCollapses(t *testing.T) {
	root, err := parseTree([]byte(`<SAMPLE><NAME>CSC Sample</NAME></SAMPLE>`))
	if err != nil {
		t.Fatal(err)
	}
	got := toJSON(root)
	want := map[string]any{"NAME": "CSC Sample"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestToJSON_AttributesAsSiblings(t *testing.T) {
	root, err := parseTree([]byte(`<SAMPLE accession="acc1"><NAME>S1</NAME></SAMPLE>`))
	if err != nil {
		t.Fatal(err)
	}
	got := toJSON(root).(map[string]any)
	if got["accession"] != "acc1" || got["NAME"] != "S1" {
		t.Fatalf("got %#v", got)
	}
}

func TestToJSON_RepeatedSiblingsBecomeArray(t *testing.T) {
	root, err := parseTree([]byte(`<SAMPLE_SET><SAMPLE>a</SAMPLE><SAMPLE>b</SAMPLE></SAMPLE_SET>`))
	if err != nil {
		t.Fatal(err)
	}
	got := toJSON(root).(map[string]any)
	arr, ok := got["SAMPLE"].([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("expected a 2-element array, got %#v", got["SAMPLE"])
	}
}

func TestSetAttr_InjectsAccessionAndRoundTrips(t *testing.T) {
	root, err := parseTree([]byte(`<SAMPLE name="s1"><NAME>S1</NAME></SAMPLE>`))
	if err != nil {
		t.Fatal(err)
	}
	setAttr(root, "accession_id", "acc-123")
	out := toXML(root)
	if v, ok := attr(root.Attrs, "accession_id"); !ok || v != "acc-123" {
		t.Fatalf("accession_id not set on node: %v", root.Attrs)
	}

	reparsed, err := parseTree(out)
	if err != nil {
		t.Fatalf("minted xml did not reparse: %v, xml=%s", err, out)
	}
	if v, ok := attr(reparsed.Attrs, "accession_id"); !ok || v != "acc-123" {
		t.Fatalf("round-tripped xml missing accession_id: %s", out)
	}
}
