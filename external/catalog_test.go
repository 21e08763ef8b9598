package external

import "testing"

func TestMapDOIPayloadToCatalog(t *testing.T) {
	p := DOIPayload{
		Creators: []Actor{{Name: "A. Researcher"}, {Name: "B. Researcher"}},
		Subjects: []string{"genomics", "oncology"},
		Funders:  []string{"proj-1"},
		Language: "en",
		Rights:   "restricted",
	}

	ds := MapDOIPayloadToCatalog(p)

	if len(ds.Actors) != 2 || ds.Actors[0].Role != "creator" {
		t.Fatalf("expected two creator actors, got %+v", ds.Actors)
	}
	if len(ds.FieldOfScience) != 2 || len(ds.Keyword) != 2 {
		t.Fatalf("expected subjects mapped to both field_of_science and keyword, got %+v", ds)
	}
	if len(ds.Projects) != 1 || ds.Projects[0] != "proj-1" {
		t.Fatalf("expected funders mapped to projects, got %+v", ds.Projects)
	}
	if ds.Language != "en" || ds.AccessRights != "restricted" {
		t.Fatalf("expected language/rights carried through, got %+v", ds)
	}
}

func TestMapDOIPayloadToCatalog_EmptyPayload(t *testing.T) {
	ds := MapDOIPayloadToCatalog(DOIPayload{})
	if len(ds.Actors) != 0 {
		t.Fatalf("expected no actors for an empty payload, got %+v", ds.Actors)
	}
}
