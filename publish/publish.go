// Package publish implements spec.md §4.I: the per-workflow, step-ordered
// publish pipeline, idempotent via the registrations table, and the
// separate announce transition.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/CSCfi/metadata-submitter-go/external"
	"github.com/CSCfi/metadata-submitter-go/store"
	"github.com/CSCfi/metadata-submitter-go/submission"
	"github.com/CSCfi/metadata-submitter-go/workflow"
)

// doiClient is the slice of external.DOIClient this package calls.
type doiClient interface {
	Draft(ctx context.Context, payload external.DOIPayload) (string, error)
	Publish(ctx context.Context, doi string) error
}

// catalogClient is the slice of external.CatalogClient this package calls.
type catalogClient interface {
	UpsertDataset(ctx context.Context, ds external.CatalogDataset) (string, error)
}

// accessClient is the slice of external.AccessClient this package calls.
type accessClient interface {
	CreateResource(ctx context.Context, resID string) error
	CreateCatalogueItem(ctx context.Context, wf, res, org string, localisations []string) (string, error)
}

// archiveClient is the slice of external.ArchiveClient this package calls.
type archiveClient interface {
	ReleaseDataset(ctx context.Context, submissionID string) error
}

// StepResult is one publish step's outcome, the shape the HTTP layer
// reports back per spec.md's S1/S2 scenarios.
type StepResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "skipped", "error"
	Error  string `json:"error,omitempty"`
}

// Service runs the publish pipeline and the announce transition.
type Service struct {
	store       *store.Store
	workflows   *workflow.Config
	submissions *submission.Service

	doi     doiClient
	catalog catalogClient
	access  accessClient
	archive archiveClient

	// Localisations is passed to every CreateCatalogueItem call;
	// defaults to []string{"en"} when unset.
	Localisations []string
	// BPCenterID is used as the REMS organization for BP workflows;
	// every other workflow uses the submission's project_id.
	BPCenterID string
}

// New builds a publish Service wired to its external clients.
func New(st *store.Store, workflows *workflow.Config, submissions *submission.Service,
	doi doiClient, catalog catalogClient, access accessClient, archive archiveClient) *Service {
	return &Service{
		store: st, workflows: workflows, submissions: submissions,
		doi: doi, catalog: catalog, access: access, archive: archive,
		Localisations: []string{"en"},
	}
}

// Publish runs submissionID's workflow-defined step sequence in order
// (spec.md §4.I). Each step, in turn: skip if already registered; else
// call the service and record a Registration on success. The first
// failing step stops the sequence; the caller is expected to re-invoke
// once the underlying problem is fixed. On full success, the submission
// is marked published.
func (s *Service) Publish(ctx context.Context, submissionID string) ([]StepResult, error) {
	problems, err := s.submissions.ValidateForPublish(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, &PublishGateError{Problems: problems}
	}

	sub, err := s.store.Submissions.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	def, ok := s.workflows.For(sub.Workflow)
	if !ok {
		return nil, fmt.Errorf("publish: unknown workflow %q", sub.Workflow)
	}

	payload, err := doiPayloadFrom(sub)
	if err != nil {
		return nil, err
	}

	var results []StepResult
	for _, step := range def.PublishSteps {
		svc := store.RegistrationService(step.Service)

		_, err := s.store.Registrations.Get(ctx, submissionID, "", svc)
		if err == nil {
			results = append(results, StepResult{Name: step.Name, Status: "skipped"})
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return results, err
		}

		externalID, stepErr := s.runStep(ctx, step.Name, sub, payload)
		if stepErr != nil {
			results = append(results, StepResult{Name: step.Name, Status: "error", Error: stepErr.Error()})
			return results, stepErr
		}

		if err := s.recordRegistration(ctx, submissionID, svc, externalID); err != nil {
			return results, err
		}
		results = append(results, StepResult{Name: step.Name, Status: "ok"})
	}

	if err := s.submissions.MarkPublished(ctx, submissionID); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Service) runStep(ctx context.Context, stepName string, sub *store.Submission, payload external.DOIPayload) (string, error) {
	switch stepName {
	case "doi":
		doi, err := s.doi.Draft(ctx, payload)
		if err != nil {
			return "", err
		}
		if err := s.doi.Publish(ctx, doi); err != nil {
			return "", err
		}
		return doi, nil

	case "catalog":
		ds := external.MapDOIPayloadToCatalog(payload)
		pid, err := s.catalog.UpsertDataset(ctx, ds)
		if err != nil {
			return "", err
		}
		return pid, nil

	case "access":
		doiReg, err := s.store.Registrations.Get(ctx, sub.SubmissionID, "", store.ServiceDOI)
		if err != nil {
			return "", fmt.Errorf("publish: access step requires a prior doi registration: %w", err)
		}
		if err := s.access.CreateResource(ctx, doiReg.ExternalID); err != nil {
			return "", err
		}
		org := sub.ProjectID
		if sub.Workflow == store.WorkflowBP {
			org = s.BPCenterID
		}
		catID, err := s.access.CreateCatalogueItem(ctx, string(sub.Workflow), doiReg.ExternalID, org, s.Localisations)
		if err != nil {
			return "", err
		}
		return catID, nil

	default:
		return "", fmt.Errorf("publish: unknown publish step %q", stepName)
	}
}

func (s *Service) recordRegistration(ctx context.Context, submissionID string, svc store.RegistrationService, externalID string) error {
	return s.store.WithSubmissionLock(ctx, submissionID, func(tx *sqlx.Tx, sub *store.Submission) error {
		return s.store.Registrations.Create(ctx, tx, &store.Registration{
			SubmissionID: submissionID,
			Service:      svc,
			ExternalID:   externalID,
			Created:      time.Now(),
		})
	})
}

// doiPayloadFrom decodes the submission's opaque metadata document as a
// DataCite-shaped DOIPayload (spec.md's Redesign note: "Free-form metadata
// is modelled as a tagged union / structured record mirroring DataCite
// fields"), so the same document built up by submission PATCH calls is
// what gets submitted to the DOI and catalog clients.
func doiPayloadFrom(sub *store.Submission) (external.DOIPayload, error) {
	var payload external.DOIPayload
	if len(sub.Metadata) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(sub.Metadata, &payload); err != nil {
		return payload, fmt.Errorf("publish: decode submission metadata as DOI payload: %w", err)
	}
	return payload, nil
}

// Announce runs the announce transition (spec.md §4.I): release the
// archived dataset, and for BP propagate that release to the access
// service, then mark the submission announced. Idempotent like every
// other step.
func (s *Service) Announce(ctx context.Context, submissionID string) error {
	sub, err := s.store.Submissions.Get(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.PublishedAt == nil {
		return submission.ErrNotPublished
	}
	if sub.AnnouncedAt != nil {
		return nil
	}

	if err := s.archive.ReleaseDataset(ctx, submissionID); err != nil {
		return err
	}

	if sub.Workflow == store.WorkflowBP {
		reg, err := s.store.Registrations.Get(ctx, submissionID, "", store.ServiceAccess)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err == nil {
			if err := s.access.CreateResource(ctx, reg.ExternalID); err != nil {
				return err
			}
		}
	}

	return s.submissions.MarkAnnounced(ctx, submissionID)
}
