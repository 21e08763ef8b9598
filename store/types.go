// Package store is the persistence layer: typed repositories over a
// Postgres-backed relational store for submissions, metadata objects,
// files, registrations, and API keys.
package store

import (
	"encoding/json"
	"time"
)

// Workflow names the submission's schema/publish-step bundle.
type Workflow string

const (
	WorkflowFEGA Workflow = "FEGA"
	WorkflowBP   Workflow = "BP"
	WorkflowSD   Workflow = "SD"
)

// IngestStatus mirrors the archive pipeline's per-file lifecycle.
type IngestStatus string

const (
	IngestAdded     IngestStatus = "added"
	IngestReady     IngestStatus = "ready"
	IngestVerified  IngestStatus = "verified"
	IngestCompleted IngestStatus = "completed"
	IngestError     IngestStatus = "error"
)

// IngestErrorType classifies a failed ingest so the poller knows whether to
// retry automatically or surface the error unchanged.
type IngestErrorType string

const (
	IngestErrorUser      IngestErrorType = "user"
	IngestErrorTransient IngestErrorType = "transient"
	IngestErrorPermanent IngestErrorType = "permanent"
)

// RegistrationService names a downstream system a publish step registers
// the submission with.
type RegistrationService string

const (
	ServiceDOI     RegistrationService = "doi"
	ServiceCatalog RegistrationService = "catalog"
	ServiceAccess  RegistrationService = "access"
	ServiceArchive RegistrationService = "archive"
)

// Submission is the dataset-level container of metadata objects, files,
// and external registrations.
type Submission struct {
	SubmissionID string     `db:"submission_id" json:"submissionId"`
	ProjectID    string     `db:"project_id" json:"projectId"`
	Workflow     Workflow   `db:"workflow" json:"workflow"`
	Name         string     `db:"name" json:"name"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Bucket       *string    `db:"bucket" json:"bucket,omitempty"`
	Metadata     json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	Rems         json.RawMessage `db:"rems" json:"rems,omitempty"`
	Created      time.Time  `db:"created" json:"created"`
	Modified     time.Time  `db:"modified" json:"modified"`
	PublishedAt  *time.Time `db:"published_at" json:"publishedAt,omitempty"`
	IngestRequestedAt *time.Time `db:"ingest_requested_at" json:"ingestRequestedAt,omitempty"`
	AnnouncedAt  *time.Time `db:"announced_at" json:"announcedAt,omitempty"`
}

// Frozen reports whether the submission has been published and is no
// longer open to user mutation (except announce).
func (s *Submission) Frozen() bool {
	return s.PublishedAt != nil
}

// MetadataObject is one schema-validated document within a submission.
type MetadataObject struct {
	AccessionID  string    `db:"accession_id" json:"accessionId"`
	SubmissionID string    `db:"submission_id" json:"submissionId"`
	ProjectID    string    `db:"project_id" json:"projectId"`
	ObjectType   string    `db:"object_type" json:"objectType"`
	Name         string    `db:"name" json:"name"`
	Title        string    `db:"title" json:"title"`
	Document     json.RawMessage `db:"document" json:"document"`
	XML          []byte    `db:"xml" json:"-"`
	Created      time.Time `db:"created" json:"created"`
	Modified     time.Time `db:"modified" json:"modified"`
}

// File is a reference to bytes held in object storage; the submitter never
// stores file contents itself.
type File struct {
	AccessionID      string          `db:"accession_id" json:"accessionId"`
	SubmissionID     string          `db:"submission_id" json:"submissionId"`
	ProjectID        string          `db:"project_id" json:"projectId"`
	ObjectID         *string         `db:"object_id" json:"objectId,omitempty"`
	Path             string          `db:"path" json:"path"`
	Bytes            int64           `db:"bytes" json:"bytes"`
	Version          int             `db:"version" json:"version"`
	ChecksumEncrypted json.RawMessage `db:"checksum_encrypted" json:"checksumEncrypted,omitempty"`
	ChecksumPlain     json.RawMessage `db:"checksum_plain" json:"checksumPlain,omitempty"`
	IngestStatus     IngestStatus    `db:"ingest_status" json:"ingestStatus"`
	IngestErrorType  *IngestErrorType `db:"ingest_error_type" json:"ingestErrorType,omitempty"`
	IngestErrorCount int             `db:"ingest_error_count" json:"ingestErrorCount"`
	Superseded       bool            `db:"superseded" json:"-"`
	Created          time.Time       `db:"created" json:"created"`
	Modified         time.Time       `db:"modified" json:"modified"`
}

// Registration is the idempotency marker proving a successful call to a
// downstream service for a (submission, object?, service) tuple. ObjectID
// is the empty string for submission-level registrations.
type Registration struct {
	SubmissionID string               `db:"submission_id" json:"submissionId"`
	ObjectID     string               `db:"object_id" json:"objectId,omitempty"`
	Service      RegistrationService  `db:"service" json:"service"`
	ExternalID   string               `db:"external_id" json:"externalId"`
	Created      time.Time            `db:"created" json:"created"`
	Meta         json.RawMessage      `db:"meta" json:"meta,omitempty"`
}

// ApiKey is a long-lived, user-minted bearer credential. Only the hash is
// ever persisted; the plaintext is shown once at issue time.
type ApiKey struct {
	KeyID      string     `db:"key_id" json:"keyId"`
	UserID     string     `db:"user_id" json:"userId"`
	SaltedHash string     `db:"salted_hash" json:"-"`
	Created    time.Time  `db:"created" json:"created"`
	Expires    *time.Time `db:"expires" json:"expires,omitempty"`
}
