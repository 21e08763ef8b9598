package external

import (
	"context"
	"time"
)

// EC2Credentials mirrors the AWS SDK's aws.Credentials shape for
// symmetry with S3Client, even though the upstream here is OpenStack
// Keystone, not AWS (SPEC_FULL.md §4.H supplement).
type EC2Credentials struct {
	AccessKeyID     string    `json:"access"`
	SecretAccessKey string    `json:"secret"`
	Expires         time.Time `json:"expiry"`
}

// KeystoneClient mints scoped EC2-style credentials against a project.
type KeystoneClient struct {
	*Client
}

// NewKeystoneClient wraps a base Client as a Keystone client.
func NewKeystoneClient(c *Client) *KeystoneClient { return &KeystoneClient{Client: c} }

// IssueEC2Credentials mints short-lived EC2-style credentials scoped to
// projectID.
func (c *KeystoneClient) IssueEC2Credentials(ctx context.Context, projectID string) (EC2Credentials, error) {
	var creds EC2Credentials
	req := map[string]string{"project_id": projectID}
	if err := c.DoJSON(ctx, "POST", "/v3/credentials", req, &creds); err != nil {
		return EC2Credentials{}, err
	}
	return creds, nil
}
