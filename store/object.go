package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ObjectRepo is the typed repository for the objects table.
type ObjectRepo struct {
	db *sqlx.DB
}

// Create inserts a metadata object inside the caller's transaction (object
// creation is always part of a larger, submission-locked batch: accepting
// an XML bundle writes many objects atomically).
func (r *ObjectRepo) Create(ctx context.Context, tx *sqlx.Tx, o *MetadataObject) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO objects (accession_id, submission_id, project_id, object_type, name,
			title, document, xml, created, modified)
		VALUES (:accession_id, :submission_id, :project_id, :object_type, :name,
			:title, :document, :xml, :created, :modified)`, o)
	if err != nil {
		return fmt.Errorf("store: create object: %w", classify(err))
	}
	return nil
}

// Get fetches an object by accession ID.
func (r *ObjectRepo) Get(ctx context.Context, accessionID string) (*MetadataObject, error) {
	var o MetadataObject
	err := r.db.GetContext(ctx, &o, `SELECT * FROM objects WHERE accession_id = $1`, accessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get object: %w", classify(err))
	}
	return &o, nil
}

// ListBySubmission returns a submission's objects, optionally filtered by
// object_type.
func (r *ObjectRepo) ListBySubmission(ctx context.Context, submissionID string, objectType string) ([]*MetadataObject, error) {
	var out []*MetadataObject
	var err error
	if objectType == "" {
		err = r.db.SelectContext(ctx, &out,
			`SELECT * FROM objects WHERE submission_id = $1 ORDER BY created`, submissionID)
	} else {
		err = r.db.SelectContext(ctx, &out,
			`SELECT * FROM objects WHERE submission_id = $1 AND object_type = $2 ORDER BY created`,
			submissionID, objectType)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list objects: %w", classify(err))
	}
	return out, nil
}

// CountByTypeAndSubmission returns how many objects of objectType exist in
// submissionID, used to enforce workflow multiplicity rules.
func (r *ObjectRepo) CountByTypeAndSubmission(ctx context.Context, submissionID, objectType string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT count(*) FROM objects WHERE submission_id = $1 AND object_type = $2`,
		submissionID, objectType)
	if err != nil {
		return 0, fmt.Errorf("store: count objects: %w", classify(err))
	}
	return n, nil
}

// Update replaces an object's document (and XML, if re-supplied).
func (r *ObjectRepo) Update(ctx context.Context, tx *sqlx.Tx, o *MetadataObject) error {
	exec := r.db.NamedExecContext
	if tx != nil {
		exec = tx.NamedExecContext
	}
	_, err := exec(ctx, `
		UPDATE objects SET title = :title, document = :document, xml = :xml, modified = :modified
		WHERE accession_id = :accession_id`, o)
	if err != nil {
		return fmt.Errorf("store: update object: %w", classify(err))
	}
	return nil
}

// Delete removes an object by accession ID.
func (r *ObjectRepo) Delete(ctx context.Context, tx *sqlx.Tx, accessionID string) error {
	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	res, err := exec(ctx, `DELETE FROM objects WHERE accession_id = $1`, accessionID)
	if err != nil {
		return fmt.Errorf("store: delete object: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
