package publish

import "errors"

// ErrGateFailed is returned when Publish is invoked on a submission that
// does not currently pass the publish gate (spec.md §4.E); the caller
// gets the list of problems via PublishGateError instead of this sentinel
// directly.
var ErrGateFailed = errors.New("publish: submission does not pass the publish gate")

// PublishGateError carries the human-readable problems the gate found.
type PublishGateError struct {
	Problems []string
}

func (e *PublishGateError) Error() string {
	return "publish: gate failed"
}

func (e *PublishGateError) Unwrap() error { return ErrGateFailed }
