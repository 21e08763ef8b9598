// Package project implements spec.md §4.G: resolving a principal's set of
// authorized project IDs, in one of two deployment flavors selected at
// startup, and the authorization rule every submission/object/file
// operation is checked against.
package project

import (
	"context"
	"fmt"
)

// Service resolves a user's authorized projects and checks the
// authorization rule against them.
type Service interface {
	// ProjectsFor returns every project_id the given user is authorized for.
	ProjectsFor(ctx context.Context, userID string) ([]string, error)
}

// Authorize reports whether projectID is among the principal's authorized
// projects, per spec.md §4.G: "for every mutating or listing operation
// bound to a submission/object/file, the principal's project set must
// include its project_id."
func Authorize(ctx context.Context, svc Service, userID, projectID string) (bool, error) {
	projects, err := svc.ProjectsFor(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("project: resolve projects for %q: %w", userID, err)
	}
	for _, p := range projects {
		if p == projectID {
			return true, nil
		}
	}
	return false, nil
}
