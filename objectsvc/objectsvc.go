// Package objectsvc implements spec.md §4.D: put/get/delete/list over a
// submission's metadata objects, enforcing per-workflow multiplicity and
// name uniqueness.
package objectsvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/workflow"
	"github.com/CSCfi/metadata-submitter-go/xmlproc"
)

// undeletableTypes are object_types that exist only as part of their
// parent submission and cannot be removed independently.
var undeletableTypes = map[string]bool{
	"bprems": true,
}

// Service is the object-service entry point used by the HTTP layer.
type Service struct {
	store     *store.Store
	workflows *workflow.Config
}

// New builds a Service bound to a store and the workflow definitions.
func New(st *store.Store, workflows *workflow.Config) *Service {
	return &Service{store: st, workflows: workflows}
}

// PutObjects persists every split logical object from a processed bundle
// against submissionID inside a single submission-locked transaction (the
// "accept an XML bundle" atomic batch of spec.md §4.A), enforcing the
// frozen/multiplicity/uniqueness rules. It returns one error per object in
// objs (nil on success), matching xmlproc's own accumulate-don't-
// short-circuit contract.
func (s *Service) PutObjects(ctx context.Context, submissionID string, objs []xmlproc.LogicalObject) []error {
	errs := make([]error, len(objs))

	err := s.store.WithSubmissionLock(ctx, submissionID, func(tx *sqlx.Tx, sub *store.Submission) error {
		if sub.Frozen() {
			for i := range errs {
				errs[i] = store.ErrFrozen
			}
			return nil
		}

		def, _ := s.workflows.For(sub.Workflow)
		existing := make(map[string]int)
		for _, obj := range objs {
			if _, ok := existing[obj.ObjectType]; ok {
				continue
			}
			n, cerr := s.store.Objects.CountByTypeAndSubmission(ctx, submissionID, obj.ObjectType)
			if cerr != nil {
				return cerr
			}
			existing[obj.ObjectType] = n
		}

		violations := multiplicityViolations(def, existing, objs)
		for i, obj := range objs {
			if err, ok := violations[i]; ok {
				errs[i] = err
				continue
			}
			errs[i] = s.createOne(ctx, tx, sub, obj)
		}
		return nil
	})
	if err != nil {
		for i := range errs {
			if errs[i] == nil {
				errs[i] = err
			}
		}
	}
	return errs
}

// multiplicityViolations evaluates, for each object in a batch, whether
// creating it would exceed its schema's single-object limit once existing
// counts (from before the batch) and the other objects already claimed
// earlier in the same batch are taken into account. It is pure and has no
// store dependency so the batch rule can be unit-tested without a database.
func multiplicityViolations(def *workflow.Definition, existing map[string]int, objs []xmlproc.LogicalObject) map[int]error {
	violations := make(map[int]error)
	if def == nil {
		return violations
	}
	seenInBatch := make(map[string]int)
	for i, obj := range objs {
		req, ok := def.RequirementFor(obj.ObjectType)
		if !ok || req.AllowMultipleObjects {
			continue
		}
		seenInBatch[obj.ObjectType]++
		if existing[obj.ObjectType]+seenInBatch[obj.ObjectType] > 1 {
			violations[i] = fmt.Errorf("%w: %q", ErrMultiplicity, obj.ObjectType)
		}
	}
	return violations
}

func (s *Service) createOne(ctx context.Context, tx *sqlx.Tx, sub *store.Submission, obj xmlproc.LogicalObject) error {
	doc, err := json.Marshal(obj.JSON)
	if err != nil {
		return fmt.Errorf("objectsvc: marshal document: %w", err)
	}
	o := &store.MetadataObject{
		AccessionID:  obj.AccessionID,
		SubmissionID: sub.SubmissionID,
		ProjectID:    sub.ProjectID,
		ObjectType:   obj.ObjectType,
		Name:         obj.Name,
		Document:     doc,
		XML:          obj.XML,
	}
	return s.store.Objects.Create(ctx, tx, o)
}

// GetObject fetches an object by accession ID. When format is "xml" and
// no stored XML counterpart exists, it returns ErrNoXML.
func (s *Service) GetObject(ctx context.Context, accessionID, format string) (*store.MetadataObject, error) {
	o, err := s.store.Objects.Get(ctx, accessionID)
	if err != nil {
		return nil, err
	}
	if format == "xml" && len(o.XML) == 0 {
		return nil, ErrNoXML
	}
	return o, nil
}

// ReplaceObject overwrites an existing object's document (and XML, if
// supplied), enforcing the frozen-submission guard under the same
// submission-locked pattern as every other mutation (PUT /objects/{schema}/{id}).
func (s *Service) ReplaceObject(ctx context.Context, accessionID string, doc json.RawMessage, xml []byte) error {
	o, err := s.store.Objects.Get(ctx, accessionID)
	if err != nil {
		return err
	}
	return s.store.WithSubmissionLock(ctx, o.SubmissionID, func(tx *sqlx.Tx, sub *store.Submission) error {
		if sub.Frozen() {
			return store.ErrFrozen
		}
		o.Document = doc
		if len(xml) > 0 {
			o.XML = xml
		}
		return s.store.Objects.Update(ctx, tx, o)
	})
}

// DeleteObject removes an object, enforcing the bprems/frozen rules.
func (s *Service) DeleteObject(ctx context.Context, accessionID string) error {
	o, err := s.store.Objects.Get(ctx, accessionID)
	if err != nil {
		return err
	}
	if undeletableTypes[o.ObjectType] {
		return fmt.Errorf("%w: %q", ErrUndeletable, o.ObjectType)
	}
	return s.store.WithSubmissionLock(ctx, o.SubmissionID, func(tx *sqlx.Tx, sub *store.Submission) error {
		if sub.Frozen() {
			return store.ErrFrozen
		}
		return s.store.Objects.Delete(ctx, tx, accessionID)
	})
}

// ListObjects returns a submission's objects, optionally filtered by
// object_type.
func (s *Service) ListObjects(ctx context.Context, submissionID, objectType string) ([]*store.MetadataObject, error) {
	return s.store.Objects.ListBySubmission(ctx, submissionID, objectType)
}
