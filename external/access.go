package external

import "context"

// AccessClient talks to REMS for resource and catalogue-item management.
type AccessClient struct {
	*Client
}

// NewAccessClient wraps a base Client as an access client.
func NewAccessClient(c *Client) *AccessClient { return &AccessClient{Client: c} }

// CreateResource registers a REMS resource for resID (typically the
// submission's minted DOI).
func (c *AccessClient) CreateResource(ctx context.Context, resID string) error {
	return c.DoJSON(ctx, "POST", "/api/resources", map[string]string{"resid": resID}, nil)
}

type createCatalogueItemRequest struct {
	Workflow      string   `json:"wfid"`
	Resource      string   `json:"resid"`
	Organization  string   `json:"organization"`
	Localisations []string `json:"localizations"`
}

type createCatalogueItemResponse struct {
	CatalogueItemID string `json:"id"`
}

// CreateCatalogueItem links a workflow, resource, and organization into a
// REMS catalogue item, returning its ID.
func (c *AccessClient) CreateCatalogueItem(ctx context.Context, wf, res, org string, localisations []string) (string, error) {
	req := createCatalogueItemRequest{Workflow: wf, Resource: res, Organization: org, Localisations: localisations}
	var resp createCatalogueItemResponse
	if err := c.DoJSON(ctx, "POST", "/api/catalogue-items", req, &resp); err != nil {
		return "", err
	}
	return resp.CatalogueItemID, nil
}
