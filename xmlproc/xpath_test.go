package xmlproc

import "testing"

func TestEvalXPath_DescendantAnywhere(t *testing.T) {
	root, err := parseTree([]byte(`<SAMPLE_SET><SAMPLE name="a"/><SAMPLE name="b"/></SAMPLE_SET>`))
	if err != nil {
		t.Fatal(err)
	}
	matches := evalXPath(root, "//SAMPLE")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
}

func TestEvalXPath_AbsolutePath(t *testing.T) {
	root, err := parseTree([]byte(`<SAMPLE_SET><SAMPLE name="a"><NAME>a</NAME></SAMPLE></SAMPLE_SET>`))
	if err != nil {
		t.Fatal(err)
	}
	matches := evalXPath(root, "/SAMPLE_SET/SAMPLE")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestEvalXPath_AttributePredicate(t *testing.T) {
	root, err := parseTree([]byte(`<SAMPLE_SET><SAMPLE name="a"/><SAMPLE name="b"/></SAMPLE_SET>`))
	if err != nil {
		t.Fatal(err)
	}
	matches := evalXPath(root, `//SAMPLE[@name='b']`)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if v, _ := attr(matches[0].Attrs, "name"); v != "b" {
		t.Fatalf("matched wrong node: %v", matches[0].Attrs)
	}
}

func TestEvalXPath_PositionalPredicate(t *testing.T) {
	root, err := parseTree([]byte(`<SAMPLE_SET><SAMPLE name="a"/><SAMPLE name="b"/><SAMPLE name="c"/></SAMPLE_SET>`))
	if err != nil {
		t.Fatal(err)
	}
	matches := evalXPath(root, "//SAMPLE[2]")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if v, _ := attr(matches[0].Attrs, "name"); v != "b" {
		t.Fatalf("expected 2nd SAMPLE (name=b), got %v", matches[0].Attrs)
	}
}
