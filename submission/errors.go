package submission

import "errors"

// ErrAlreadyIngesting is returned by RequestIngest when ingest has already
// been requested for this submission.
var ErrAlreadyIngesting = errors.New("submission: ingest already requested")

// ErrNotReady is returned when a publish is attempted outside the ready
// derived state.
var ErrNotReady = errors.New("submission: not in ready state")

// ErrNotPublished is returned by MarkAnnounced when the submission has not
// yet been published.
var ErrNotPublished = errors.New("submission: not yet published")

// ErrUnsafeDelete is returned by Delete when the submission has a minted
// DOI registration and the caller did not opt into ALLOW_UNSAFE. Other
// registrations do not block deletion.
var ErrUnsafeDelete = errors.New("submission: refusing to delete a submission with external registrations")
