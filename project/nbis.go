package project

import "context"

// NBISService is the "nbis" deployment flavor: the user_id itself is the
// sole project_id, no external directory lookup involved.
type NBISService struct{}

// NewNBISService builds the nbis flavor.
func NewNBISService() *NBISService {
	return &NBISService{}
}

// ProjectsFor returns userID as its own sole project.
func (s *NBISService) ProjectsFor(ctx context.Context, userID string) ([]string, error) {
	return []string{userID}, nil
}
