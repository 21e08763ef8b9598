package submission

import (
	"context"
	"fmt"

	"github.com/CSCfi/metadata-submitter-go/store"
)

// CheckPublishGate evaluates spec.md §4.E's full publish gate: the
// workflow's schema-requirement clauses (delegated to
// workflow.Definition.CheckGate) plus the file-ingest-status dimensions
// (at least one file attached where the workflow tracks files, every file
// ready, no file errored). An empty result means the gate passes.
func (s *Service) CheckPublishGate(ctx context.Context, sub *store.Submission) ([]string, error) {
	def, ok := s.workflows.For(sub.Workflow)
	if !ok {
		return nil, fmt.Errorf("submission: unknown workflow %q", sub.Workflow)
	}

	present := make(map[string]int, len(def.Schemas))
	for _, req := range def.Schemas {
		n, err := s.store.Objects.CountByTypeAndSubmission(ctx, sub.SubmissionID, req.Name)
		if err != nil {
			return nil, err
		}
		present[req.Name] = n
	}
	problems := def.CheckGate(present)

	if def.RequiresFiles() {
		files, err := s.store.Files.ListBySubmission(ctx, sub.SubmissionID)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			problems = append(problems, "at least one file must be attached")
		}
		for _, f := range files {
			switch f.IngestStatus {
			case store.IngestReady, store.IngestVerified, store.IngestCompleted:
			case store.IngestError:
				problems = append(problems, fmt.Sprintf("file %q has ingest_status=error", f.Path))
			default:
				problems = append(problems, fmt.Sprintf("file %q is not yet ingested (ingest_status=%s)", f.Path, f.IngestStatus))
			}
		}
	}
	return problems, nil
}
