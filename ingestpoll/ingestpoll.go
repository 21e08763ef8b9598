// Package ingestpoll implements spec.md §4.J: the single dedicated
// background task that reconciles the archive pipeline's reported file
// ingest status against every submission currently waiting on it.
package ingestpoll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/CSCfi/metadata-submitter-go/external"
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/workflow"
)

// archiveClient is the slice of external.ArchiveClient this package calls.
type archiveClient interface {
	Poll(ctx context.Context, submissionID string) ([]external.FileIngestStatus, error)
	CreateDataset(ctx context.Context, submissionID string, accessionIDs []string) error
}

// DefaultInterval matches spec.md §4.J's default POLLING_INTERVAL.
const DefaultInterval = 60 * time.Second

// Poller is the ingest poller: a single ticker-driven loop, run as one
// long-lived goroutine (spec.md §5: "a single dedicated long-running
// task; there is no external scheduler").
type Poller struct {
	store     *store.Store
	workflows *workflow.Config
	archive   archiveClient
	interval  time.Duration
}

// New builds a Poller. interval <= 0 falls back to DefaultInterval.
func New(st *store.Store, workflows *workflow.Config, archive archiveClient, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{store: st, workflows: workflows, archive: archive, interval: interval}
}

// Start runs the poll loop until ctx is cancelled, checking immediately
// and then every interval.
func (p *Poller) Start(ctx context.Context) {
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	subs, err := p.store.Submissions.ListIngesting(ctx)
	if err != nil {
		slog.Error("ingestpoll: list ingesting submissions", "error", err)
		return
	}
	for _, sub := range subs {
		if err := p.reconcile(ctx, sub); err != nil {
			slog.Warn("ingestpoll: reconcile submission failed",
				"submission_id", sub.SubmissionID, "error", err)
		}
	}
}

// reconcile applies one submission's worth of the §4.J algorithm: poll,
// update each reported file's status (independently idempotent, no
// submission lock), then attempt the ready transition under the
// submission lock if every file has landed.
func (p *Poller) reconcile(ctx context.Context, sub *store.Submission) error {
	responses, err := p.archive.Poll(ctx, sub.SubmissionID)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	files, err := p.store.Files.ListBySubmission(ctx, sub.SubmissionID)
	if err != nil {
		return err
	}
	byPath := make(map[string]*store.File, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}

	for _, resp := range responses {
		status, ok := mapStatus(resp.Status)
		if !ok {
			continue
		}
		f, ok := byPath[resp.File]
		if !ok {
			continue
		}
		if f.IngestStatus == status && status != store.IngestError {
			continue
		}

		var errType *store.IngestErrorType
		increment := false
		if status == store.IngestError {
			t := classifyError(resp.ErrorType)
			errType = &t
			increment = true
		}

		if err := p.store.Files.UpdateIngestStatus(ctx, nil, f.AccessionID, status, errType, increment); err != nil {
			return fmt.Errorf("update file %q: %w", f.Path, err)
		}
		f.IngestStatus = status
		if errType != nil {
			f.IngestErrorType = errType
		}
	}

	def, ok := p.workflows.For(sub.Workflow)
	if !ok {
		return fmt.Errorf("unknown workflow %q", sub.Workflow)
	}
	if !allFilesSettled(files, def) {
		return nil
	}
	return p.completeIngest(ctx, sub, files)
}

// completeIngest is the status-transition step: the only part of a tick
// that takes the submission row lock, per SPEC_FULL.md §4.J. Idempotent
// via a submission-level "archive" Registration row, the same
// idempotency-marker pattern the publish orchestrator uses.
func (p *Poller) completeIngest(ctx context.Context, sub *store.Submission, files []*store.File) error {
	return p.store.WithSubmissionLock(ctx, sub.SubmissionID, func(tx *sqlx.Tx, _ *store.Submission) error {
		_, err := p.store.Registrations.Get(ctx, sub.SubmissionID, "", store.ServiceArchive)
		if err == nil {
			return nil // already completed
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		accessionIDs := make([]string, 0, len(files))
		for _, f := range files {
			accessionIDs = append(accessionIDs, f.AccessionID)
		}
		if err := p.archive.CreateDataset(ctx, sub.SubmissionID, accessionIDs); err != nil {
			return err
		}

		return p.store.Registrations.Create(ctx, tx, &store.Registration{
			SubmissionID: sub.SubmissionID,
			Service:      store.ServiceArchive,
			ExternalID:   sub.SubmissionID,
			Created:      time.Now(),
		})
	})
}

// mapStatus translates the archive's reported status string into a
// store.IngestStatus, reporting false for any status outside the set
// spec.md §4.J's pseudocode acts on ({verified, ready, completed, error});
// anything else (e.g. a still-in-progress status) is left untouched.
func mapStatus(status string) (store.IngestStatus, bool) {
	switch store.IngestStatus(status) {
	case store.IngestReady, store.IngestVerified, store.IngestCompleted, store.IngestError:
		return store.IngestStatus(status), true
	default:
		return "", false
	}
}

// classifyError maps the archive's reported error_type onto the stored
// classification, defaulting to transient (retry next tick) when the
// archive didn't supply one.
func classifyError(reported string) store.IngestErrorType {
	switch store.IngestErrorType(reported) {
	case store.IngestErrorUser, store.IngestErrorPermanent:
		return store.IngestErrorType(reported)
	default:
		return store.IngestErrorTransient
	}
}

// allFilesSettled reports whether every attached file has reached a
// terminal, non-error ingest status — the "admin.verify_complete"
// precondition supplemented in SPEC_FULL.md §4.J: requires at least one
// file for workflows that track ingestion at all, and treats any
// outstanding error as not yet settled (a permanently failed file blocks
// completion until the user intervenes; it is never silently dropped). A
// workflow that doesn't track files (SD) is vacuously settled, matching
// submission.filesReady so SD submissions still reach completeIngest.
func allFilesSettled(files []*store.File, def *workflow.Definition) bool {
	if !def.RequiresFiles() {
		return true
	}
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		switch f.IngestStatus {
		case store.IngestReady, store.IngestVerified, store.IngestCompleted:
		default:
			return false
		}
	}
	return true
}
