package project

import (
	"context"
	"errors"
	"testing"
)

type fakeService struct {
	projects []string
	err      error
}

func (f *fakeService) ProjectsFor(ctx context.Context, userID string) ([]string, error) {
	return f.projects, f.err
}

func TestAuthorize_AllowsMemberProject(t *testing.T) {
	svc := &fakeService{projects: []string{"proj-1", "proj-2"}}

	ok, err := Authorize(context.Background(), svc, "user-1", "proj-2")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected proj-2 to be authorized")
	}
}

func TestAuthorize_RejectsNonMemberProject(t *testing.T) {
	svc := &fakeService{projects: []string{"proj-1"}}

	ok, err := Authorize(context.Background(), svc, "user-1", "proj-9")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected proj-9 to be rejected")
	}
}

func TestAuthorize_PropagatesResolveError(t *testing.T) {
	svc := &fakeService{err: errors.New("directory unavailable")}

	_, err := Authorize(context.Background(), svc, "user-1", "proj-1")
	if err == nil {
		t.Fatal("expected an error when project resolution fails")
	}
}

func TestNBISService_ProjectsFor_ReturnsUserIDAsSoleProject(t *testing.T) {
	svc := NewNBISService()

	projects, err := svc.ProjectsFor(context.Background(), "user-42")
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0] != "user-42" {
		t.Fatalf("expected [user-42], got %v", projects)
	}
}
