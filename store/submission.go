package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SubmissionRepo is the typed repository for the submissions table.
type SubmissionRepo struct {
	db *sqlx.DB
}

// Create inserts a new submission. Returns ErrConflict if (project_id, name)
// already exists.
func (r *SubmissionRepo) Create(ctx context.Context, s *Submission) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO submissions (submission_id, project_id, workflow, name, title,
			description, bucket, metadata, rems, created, modified, published_at,
			ingest_requested_at, announced_at)
		VALUES (:submission_id, :project_id, :workflow, :name, :title,
			:description, :bucket, :metadata, :rems, :created, :modified, :published_at,
			:ingest_requested_at, :announced_at)`,
		s)
	if err != nil {
		return fmt.Errorf("store: create submission: %w", classify(err))
	}
	return nil
}

// Get fetches a submission by ID.
func (r *SubmissionRepo) Get(ctx context.Context, submissionID string) (*Submission, error) {
	var s Submission
	err := r.db.GetContext(ctx, &s, `SELECT * FROM submissions WHERE submission_id = $1`, submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get submission: %w", classify(err))
	}
	return &s, nil
}

// ListByProject returns every submission scoped to projectID, newest first.
func (r *SubmissionRepo) ListByProject(ctx context.Context, projectID string) ([]*Submission, error) {
	var out []*Submission
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM submissions WHERE project_id = $1 ORDER BY created DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list submissions: %w", classify(err))
	}
	return out, nil
}

// ListIngesting returns every submission that has requested ingest but is
// not yet published, the working set the ingest poller sweeps each tick.
// A submission that has already reached ready-with-files-ready is still
// returned here; the poller's own per-file/gate check decides whether
// there is anything left to do.
func (r *SubmissionRepo) ListIngesting(ctx context.Context) ([]*Submission, error) {
	var out []*Submission
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM submissions WHERE ingest_requested_at IS NOT NULL AND published_at IS NULL ORDER BY ingest_requested_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list ingesting submissions: %w", classify(err))
	}
	return out, nil
}

// Update persists an already-merged submission document. Callers apply the
// deep-merge PATCH semantics before calling this; Update itself is a plain
// field-level overwrite.
func (r *SubmissionRepo) Update(ctx context.Context, tx *sqlx.Tx, s *Submission) error {
	exec := r.db.NamedExecContext
	if tx != nil {
		exec = tx.NamedExecContext
	}
	_, err := exec(ctx, `
		UPDATE submissions SET
			name = :name, title = :title, description = :description, bucket = :bucket,
			metadata = :metadata, rems = :rems, modified = :modified, published_at = :published_at,
			ingest_requested_at = :ingest_requested_at, announced_at = :announced_at
		WHERE submission_id = :submission_id`, s)
	if err != nil {
		return fmt.Errorf("store: update submission: %w", classify(err))
	}
	return nil
}

// Delete removes a submission and (via ON DELETE CASCADE) its objects,
// files, and registrations. Callers must enforce the frozen-submission
// guard before calling this.
func (r *SubmissionRepo) Delete(ctx context.Context, submissionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE submission_id = $1`, submissionID)
	if err != nil {
		return fmt.Errorf("store: delete submission: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
