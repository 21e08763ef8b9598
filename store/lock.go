package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WithSubmissionLock opens a transaction, takes SELECT ... FOR UPDATE on
// the submission row, and runs fn with the locked submission and the
// transaction. This is the system's only explicit lock: every mutation
// touching a submission, its objects, files, or registrations is
// serialized per-submission through it. fn's transaction is committed on a
// nil return and rolled back otherwise.
func (s *Store) WithSubmissionLock(ctx context.Context, submissionID string, fn func(tx *sqlx.Tx, sub *Submission) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", classify(err))
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var sub Submission
	err = tx.GetContext(ctx, &sub, `SELECT * FROM submissions WHERE submission_id = $1 FOR UPDATE`, submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: lock submission: %w", classify(err))
	}

	if err := fn(tx, &sub); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", classify(err))
	}
	committed = true
	return nil
}
