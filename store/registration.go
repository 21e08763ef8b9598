package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RegistrationRepo is the typed repository for the registrations table.
type RegistrationRepo struct {
	db *sqlx.DB
}

// Get returns the registration for (submission, objectID, service), or
// ErrNotFound if the step has not yet succeeded. objectID is "" for
// submission-level registrations.
func (r *RegistrationRepo) Get(ctx context.Context, submissionID, objectID string, service RegistrationService) (*Registration, error) {
	var reg Registration
	err := r.db.GetContext(ctx, &reg,
		`SELECT * FROM registrations WHERE submission_id = $1 AND object_id = $2 AND service = $3`,
		submissionID, objectID, service)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get registration: %w", classify(err))
	}
	return &reg, nil
}

// Create inserts a registration row inside the same transaction that
// advances the publish step; this row is the step's idempotency marker.
func (r *RegistrationRepo) Create(ctx context.Context, tx *sqlx.Tx, reg *Registration) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO registrations (submission_id, object_id, service, external_id, meta, created)
		VALUES (:submission_id, :object_id, :service, :external_id, :meta, :created)`, reg)
	if err != nil {
		return fmt.Errorf("store: create registration: %w", classify(err))
	}
	return nil
}

// ListBySubmission returns every registration recorded against a
// submission.
func (r *RegistrationRepo) ListBySubmission(ctx context.Context, submissionID string) ([]*Registration, error) {
	var out []*Registration
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM registrations WHERE submission_id = $1 ORDER BY created`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("store: list registrations: %w", classify(err))
	}
	return out, nil
}
