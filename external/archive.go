package external

import "context"

// FileIngestStatus is one polled file's reported ingest state from the
// archive admin API. ErrorType is only meaningful when Status is "error";
// it classifies whether the poller should retry on the next tick
// ("transient"), surface the error to the user unchanged ("user"), or
// give up retrying ("permanent") — an empty value is treated as
// "transient", the conservative default.
type FileIngestStatus struct {
	File      string `json:"file"`
	Status    string `json:"status"`
	ErrorType string `json:"error_type,omitempty"`
}

// ArchiveClient talks to the archive admin API that drives the ingest
// pipeline and dataset lifecycle for a submission.
type ArchiveClient struct {
	*Client
}

// NewArchiveClient wraps a base Client as an archive client.
func NewArchiveClient(c *Client) *ArchiveClient { return &ArchiveClient{Client: c} }

// Ingest requests archival ingest of every file attached to submissionID.
// Accepted, not synchronous: file status is observed via Poll.
func (c *ArchiveClient) Ingest(ctx context.Context, submissionID string) error {
	return c.DoJSON(ctx, "POST", "/submissions/"+submissionID+"/ingest", nil, nil)
}

// Poll returns the current ingest status of every file in submissionID.
func (c *ArchiveClient) Poll(ctx context.Context, submissionID string) ([]FileIngestStatus, error) {
	var statuses []FileIngestStatus
	if err := c.DoJSON(ctx, "GET", "/submissions/"+submissionID+"/ingest", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// CreateDataset registers a dataset for submissionID built from the given
// accession IDs (the archive's internal file identifiers).
func (c *ArchiveClient) CreateDataset(ctx context.Context, submissionID string, accessionIDs []string) error {
	body := map[string]any{"accession_ids": accessionIDs}
	return c.DoJSON(ctx, "POST", "/submissions/"+submissionID+"/dataset", body, nil)
}

// ReleaseDataset makes submissionID's archived dataset available
// downstream. Called from the announce transition (spec.md §4.I),
// idempotent like every other step here.
func (c *ArchiveClient) ReleaseDataset(ctx context.Context, submissionID string) error {
	return c.DoJSON(ctx, "POST", "/submissions/"+submissionID+"/dataset/release", nil, nil)
}
