package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// FileRepo is the typed repository for the files table.
type FileRepo struct {
	db *sqlx.DB
}

// Create inserts a file reference.
func (r *FileRepo) Create(ctx context.Context, tx *sqlx.Tx, f *File) error {
	exec := r.db.NamedExecContext
	if tx != nil {
		exec = tx.NamedExecContext
	}
	_, err := exec(ctx, `
		INSERT INTO files (accession_id, submission_id, project_id, object_id, path, bytes,
			version, checksum_encrypted, checksum_plain, ingest_status, ingest_error_type,
			ingest_error_count, superseded, created, modified)
		VALUES (:accession_id, :submission_id, :project_id, :object_id, :path, :bytes,
			:version, :checksum_encrypted, :checksum_plain, :ingest_status, :ingest_error_type,
			:ingest_error_count, :superseded, :created, :modified)`, f)
	if err != nil {
		return fmt.Errorf("store: create file: %w", classify(err))
	}
	return nil
}

// Get fetches a file by accession ID.
func (r *FileRepo) Get(ctx context.Context, accessionID string) (*File, error) {
	var f File
	err := r.db.GetContext(ctx, &f, `SELECT * FROM files WHERE accession_id = $1`, accessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get file: %w", classify(err))
	}
	return &f, nil
}

// ListBySubmission returns the non-superseded files attached to a
// submission.
func (r *FileRepo) ListBySubmission(ctx context.Context, submissionID string) ([]*File, error) {
	var out []*File
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM files WHERE submission_id = $1 AND superseded = false ORDER BY created`,
		submissionID)
	if err != nil {
		return nil, fmt.Errorf("store: list files: %w", classify(err))
	}
	return out, nil
}

// ListLatestByProject returns the latest, non-superseded version of every
// file path scoped to projectID.
func (r *FileRepo) ListLatestByProject(ctx context.Context, projectID string) ([]*File, error) {
	var out []*File
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM files WHERE project_id = $1 AND superseded = false ORDER BY path`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list latest files: %w", classify(err))
	}
	return out, nil
}

// SupersedeByPath marks every existing non-superseded file at (project_id,
// path) as superseded, ahead of inserting a new version. Callers run this
// and Create in the same transaction.
func (r *FileRepo) SupersedeByPath(ctx context.Context, tx *sqlx.Tx, projectID, path string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE files SET superseded = true WHERE project_id = $1 AND path = $2 AND superseded = false`,
		projectID, path)
	if err != nil {
		return fmt.Errorf("store: supersede file: %w", classify(err))
	}
	return nil
}

// MaxVersion returns the highest existing version for (project_id, path),
// or 0 if none exists.
func (r *FileRepo) MaxVersion(ctx context.Context, projectID, path string) (int, error) {
	var v sql.NullInt64
	err := r.db.GetContext(ctx, &v,
		`SELECT max(version) FROM files WHERE project_id = $1 AND path = $2`, projectID, path)
	if err != nil {
		return 0, fmt.Errorf("store: max file version: %w", classify(err))
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

// SetObjectID attaches (objectID != nil) or detaches (objectID == nil) a
// file to/from a metadata object, the mutation behind
// PATCH /submissions/{id}/files.
func (r *FileRepo) SetObjectID(ctx context.Context, tx *sqlx.Tx, accessionID string, objectID *string) error {
	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `UPDATE files SET object_id = $2, modified = now() WHERE accession_id = $1`,
		accessionID, objectID)
	if err != nil {
		return fmt.Errorf("store: set file object_id: %w", classify(err))
	}
	return nil
}

// UpdateIngestStatus idempotently updates a file's ingest status and error
// classification. Used by the ingest poller.
func (r *FileRepo) UpdateIngestStatus(ctx context.Context, tx *sqlx.Tx, accessionID string, status IngestStatus, errType *IngestErrorType, incrementErrorCount bool) error {
	q := `UPDATE files SET ingest_status = $2, ingest_error_type = $3, modified = now()`
	if incrementErrorCount {
		q += `, ingest_error_count = ingest_error_count + 1`
	}
	q += ` WHERE accession_id = $1`

	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, q, accessionID, status, errType)
	if err != nil {
		return fmt.Errorf("store: update file ingest status: %w", classify(err))
	}
	return nil
}
