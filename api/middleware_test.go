package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CSCfi/metadata-submitter-go/kit"
)

// fakeProjects is a project.Service test double: userID "owner" is
// authorized for project "proj-mine" only, covering the cross-project IDOR
// scenarios the maintainer review flagged as untested.
type fakeProjects struct {
	grants map[string][]string
	err    error
}

func (f *fakeProjects) ProjectsFor(_ context.Context, userID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grants[userID], nil
}

func withPrincipal(r *http.Request, userID string) *http.Request {
	return r.WithContext(kit.WithUserID(r.Context(), userID))
}

func TestRequireProjectScopeQuery_RejectsCrossProjectAccess(t *testing.T) {
	projects := &fakeProjects{grants: map[string][]string{"owner": {"proj-mine"}}}
	mw := requireProjectScopeQuery(projects, "projectId")

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/v1/submissions?projectId=proj-theirs", nil)
	req = withPrincipal(req, "owner")
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if called {
		t.Fatal("handler ran for a project the principal is not authorized for")
	}
	if w.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRequireProjectScopeQuery_AllowsOwnProject(t *testing.T) {
	projects := &fakeProjects{grants: map[string][]string{"owner": {"proj-mine"}}}
	mw := requireProjectScopeQuery(projects, "projectId")

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/v1/submissions?projectId=proj-mine", nil)
	req = withPrincipal(req, "owner")
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if !called {
		t.Fatal("handler did not run for the principal's own project")
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRequireProjectScopeFunc_PropagatesResolveError(t *testing.T) {
	projects := &fakeProjects{err: errors.New("boom")}
	mw := requireProjectScopeQuery(projects, "projectId")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run when project resolution fails")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/submissions?projectId=proj-mine", nil)
	req = withPrincipal(req, "owner")
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if w.Code < 500 {
		t.Fatalf("status: got %d, want a 5xx on resolution error", w.Code)
	}
}

func TestConstantTimeBearerEqual(t *testing.T) {
	cases := []struct {
		name   string
		header string
		token  string
		want   bool
	}{
		{"exact match", "Bearer s3cr3t", "s3cr3t", true},
		{"wrong token", "Bearer wrong", "s3cr3t", false},
		{"missing prefix", "s3cr3t", "s3cr3t", false},
		{"empty header", "", "s3cr3t", false},
		{"different length", "Bearer s3cr3t-extra", "s3cr3t", false},
	}
	for _, c := range cases {
		if got := constantTimeBearerEqual(c.header, c.token); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}
