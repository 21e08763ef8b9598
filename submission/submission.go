// Package submission implements spec.md §4.E: the submission state
// machine, derived-state computation, deep-merge PATCH semantics, and the
// publish gate, layered over store.Submission.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/CSCfi/metadata-submitter-go/idgen"
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/workflow"
)

// View pairs a submission row with its derived lifecycle stage, the shape
// returned to the HTTP layer for both GET /submissions/{id} and each
// GET /submissions list entry.
type View struct {
	*store.Submission
	DerivedState DerivedState `json:"derivedState"`
}

// Service is the submission-service entry point used by the HTTP layer.
type Service struct {
	store     *store.Store
	workflows *workflow.Config
	idGen     idgen.Generator
}

// New builds a Service. idGen mints submission_id values; cmd/submitter
// passes idgen.UUIDv4.
func New(st *store.Store, workflows *workflow.Config, idGen idgen.Generator) *Service {
	return &Service{store: st, workflows: workflows, idGen: idGen}
}

// Create starts a new draft submission.
func (s *Service) Create(ctx context.Context, projectID string, wf store.Workflow, name string) (*store.Submission, error) {
	now := time.Now()
	sub := &store.Submission{
		SubmissionID: s.idGen(),
		ProjectID:    projectID,
		Workflow:     wf,
		Name:         name,
		Metadata:     json.RawMessage(`{}`),
		Rems:         json.RawMessage(`{}`),
		Created:      now,
		Modified:     now,
	}
	if err := s.store.Submissions.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Get fetches a submission along with its derived lifecycle stage.
func (s *Service) Get(ctx context.Context, submissionID string) (*View, error) {
	sub, err := s.store.Submissions.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sub)
}

// List returns every submission scoped to projectID, each with its
// derived lifecycle stage (the §4.E EXPANDED list-wide derived_state).
func (s *Service) List(ctx context.Context, projectID string) ([]*View, error) {
	subs, err := s.store.Submissions.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	views := make([]*View, 0, len(subs))
	for _, sub := range subs {
		v, err := s.view(ctx, sub)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) view(ctx context.Context, sub *store.Submission) (*View, error) {
	def, _ := s.workflows.For(sub.Workflow)
	files, err := s.store.Files.ListBySubmission(ctx, sub.SubmissionID)
	if err != nil {
		return nil, err
	}
	return &View{Submission: sub, DerivedState: DeriveState(sub, files, def)}, nil
}

// Patch applies a deep-merge PATCH (unset-by-null) to mutable submission
// fields. patch is keyed by JSON field name (name, title, description,
// bucket, metadata, rems); a key's presence in the map, versus its
// absence, is what distinguishes "leave untouched" from "apply", so
// callers must decode the request body into map[string]json.RawMessage
// rather than a fixed struct.
func (s *Service) Patch(ctx context.Context, submissionID string, patch map[string]json.RawMessage) (*store.Submission, error) {
	var updated *store.Submission
	err := s.store.WithSubmissionLock(ctx, submissionID, func(tx *sqlx.Tx, sub *store.Submission) error {
		if sub.Frozen() {
			return store.ErrFrozen
		}
		if err := applyPatch(sub, patch); err != nil {
			return err
		}
		sub.Modified = time.Now()
		if err := s.store.Submissions.Update(ctx, tx, sub); err != nil {
			return err
		}
		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyPatch(sub *store.Submission, patch map[string]json.RawMessage) error {
	if raw, ok := patch["name"]; ok {
		if isNullJSON(raw) {
			return fmt.Errorf("submission: name cannot be unset")
		}
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return fmt.Errorf("submission: invalid name: %w", err)
		}
		sub.Name = name
	}
	if raw, ok := patch["title"]; ok {
		if isNullJSON(raw) {
			sub.Title = ""
		} else if err := json.Unmarshal(raw, &sub.Title); err != nil {
			return fmt.Errorf("submission: invalid title: %w", err)
		}
	}
	if raw, ok := patch["description"]; ok {
		if isNullJSON(raw) {
			sub.Description = ""
		} else if err := json.Unmarshal(raw, &sub.Description); err != nil {
			return fmt.Errorf("submission: invalid description: %w", err)
		}
	}
	if raw, ok := patch["bucket"]; ok {
		if isNullJSON(raw) {
			sub.Bucket = nil
		} else {
			var b string
			if err := json.Unmarshal(raw, &b); err != nil {
				return fmt.Errorf("submission: invalid bucket: %w", err)
			}
			sub.Bucket = &b
		}
	}
	if raw, ok := patch["metadata"]; ok {
		merged, err := deepMergeJSON(sub.Metadata, raw)
		if err != nil {
			return fmt.Errorf("submission: invalid metadata patch: %w", err)
		}
		sub.Metadata = merged
	}
	if raw, ok := patch["rems"]; ok {
		merged, err := deepMergeJSON(sub.Rems, raw)
		if err != nil {
			return fmt.Errorf("submission: invalid rems patch: %w", err)
		}
		sub.Rems = merged
	}
	return nil
}

// RequestIngest transitions a submission from draft/files-pending into
// ingesting (POST /ingest). It is not itself idempotent: a second call
// while already ingesting returns ErrAlreadyIngesting, matching the state
// diagram's single directed edge out of draft.
func (s *Service) RequestIngest(ctx context.Context, submissionID string) error {
	return s.store.WithSubmissionLock(ctx, submissionID, func(tx *sqlx.Tx, sub *store.Submission) error {
		if sub.Frozen() {
			return store.ErrFrozen
		}
		if sub.IngestRequestedAt != nil {
			return ErrAlreadyIngesting
		}
		now := time.Now()
		sub.IngestRequestedAt = &now
		sub.Modified = now
		return s.store.Submissions.Update(ctx, tx, sub)
	})
}

// ValidateForPublish runs the publish gate without mutating anything,
// backing both the dry-run POST /publish (stays in draft) and the
// precondition check the publish orchestrator runs before starting its
// step sequence.
func (s *Service) ValidateForPublish(ctx context.Context, submissionID string) ([]string, error) {
	sub, err := s.store.Submissions.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return s.CheckPublishGate(ctx, sub)
}

// MarkPublished records that the publish orchestrator's last step
// succeeded. It is idempotent: a submission already published is left
// unchanged. The orchestrator, not this method, is responsible for
// re-validating the gate immediately beforehand inside the same
// transactional step sequence.
func (s *Service) MarkPublished(ctx context.Context, submissionID string) error {
	return s.store.WithSubmissionLock(ctx, submissionID, func(tx *sqlx.Tx, sub *store.Submission) error {
		if sub.PublishedAt != nil {
			return nil
		}
		now := time.Now()
		sub.PublishedAt = &now
		sub.Modified = now
		return s.store.Submissions.Update(ctx, tx, sub)
	})
}

// MarkAnnounced records that the publish orchestrator's announce step
// (release_dataset, and for BP its access-service propagation) succeeded.
// Idempotent; fails with ErrNotPublished if called before MarkPublished.
func (s *Service) MarkAnnounced(ctx context.Context, submissionID string) error {
	return s.store.WithSubmissionLock(ctx, submissionID, func(tx *sqlx.Tx, sub *store.Submission) error {
		if sub.PublishedAt == nil {
			return ErrNotPublished
		}
		if sub.AnnouncedAt != nil {
			return nil
		}
		now := time.Now()
		sub.AnnouncedAt = &now
		sub.Modified = now
		return s.store.Submissions.Update(ctx, tx, sub)
	})
}

// Delete removes a submission (and, via ON DELETE CASCADE, its objects,
// files, and registrations). A frozen (published) submission can never be
// deleted, matching the state diagram's "any (if not frozen)" edge. A
// submission with a minted DOI registration but not yet published (the
// partial-success case of §4.I) is also refused unless allowUnsafe is set,
// per the DESIGN.md Open Question decision.
func (s *Service) Delete(ctx context.Context, submissionID string, allowUnsafe bool) error {
	sub, err := s.store.Submissions.Get(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Frozen() {
		return store.ErrFrozen
	}
	if !allowUnsafe {
		_, err := s.store.Registrations.Get(ctx, submissionID, "", store.ServiceDOI)
		if err == nil {
			return ErrUnsafeDelete
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return s.store.Submissions.Delete(ctx, submissionID)
}
