package submission

import (
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/workflow"
)

// DerivedState is the pure, computed lifecycle stage of a submission: it
// is never stored directly, only derived from the submission row plus its
// files on every read.
type DerivedState string

const (
	StateDraft        DerivedState = "draft"
	StateFilesPending DerivedState = "files-pending"
	StateIngesting    DerivedState = "ingesting"
	StateReady        DerivedState = "ready"
	StatePublished    DerivedState = "published"
	StateAnnounced    DerivedState = "announced"
)

// DeriveState computes a submission's lifecycle stage from its row and its
// attached files. def may be nil (unknown workflow), in which case file
// tracking is assumed to apply.
func DeriveState(sub *store.Submission, files []*store.File, def *workflow.Definition) DerivedState {
	if sub.AnnouncedAt != nil {
		return StateAnnounced
	}
	if sub.PublishedAt != nil {
		return StatePublished
	}
	if sub.IngestRequestedAt != nil {
		if filesReady(files, def) {
			return StateReady
		}
		return StateIngesting
	}
	if len(files) > 0 {
		return StateFilesPending
	}
	return StateDraft
}

// filesReady reports whether every attached file has reached a terminal,
// non-error ingest status, per spec.md §4.J's "all files ready" gate. A
// workflow that doesn't track files (SD) is vacuously ready; one that
// does needs at least one file attached, matching §4.J's EXPANDED
// "never creates an empty archive dataset" rule.
func filesReady(files []*store.File, def *workflow.Definition) bool {
	if def != nil && !def.RequiresFiles() {
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
