package external

import (
	"context"
	"encoding/json"
)

// DOIPayload is the DataCite-shaped metadata submitted when minting a new
// DOI (creators, titles, etc. carried as an opaque JSON blob upstream of
// this client).
type DOIPayload struct {
	Creators    []Actor           `json:"creators,omitempty"`
	Titles      []string          `json:"titles,omitempty"`
	Subjects    []string          `json:"subjects,omitempty"`
	GeoLocation json.RawMessage   `json:"geoLocation,omitempty"`
	Funders     []string          `json:"funders,omitempty"`
	Language    string            `json:"language,omitempty"`
	Rights      string            `json:"rights,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Actor is a DataCite creator/contributor entry.
type Actor struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// DOIClient talks to either a DataCite endpoint or a CSC PID variant,
// whichever base URL it is built with (spec.md §4.H). The service builds a
// single DOIClient, from DATACITE_URL or else PID_URL, and uses it for every
// workflow; the provider is not chosen per workflow.
type DOIClient struct {
	*Client
}

// NewDOIClient wraps a base Client as a DOI client.
func NewDOIClient(c *Client) *DOIClient { return &DOIClient{Client: c} }

type draftDOIResponse struct {
	DOI string `json:"doi"`
}

// Draft registers a new draft DOI for payload, returning the minted
// identifier.
func (c *DOIClient) Draft(ctx context.Context, payload DOIPayload) (string, error) {
	var resp draftDOIResponse
	if err := c.DoJSON(ctx, "POST", "/dois", payload, &resp); err != nil {
		return "", err
	}
	return resp.DOI, nil
}

// Publish moves a draft DOI to findable/registered state.
func (c *DOIClient) Publish(ctx context.Context, doi string) error {
	return c.DoJSON(ctx, "PUT", "/dois/"+doi+"/publish", nil, nil)
}

// Delete removes a draft DOI. Per spec.md §4.I, this is never called
// mid-publish on an already-registered DOI — only used for cleaning up a
// draft that never made it past minting.
func (c *DOIClient) Delete(ctx context.Context, doi string) error {
	return c.DoJSON(ctx, "DELETE", "/dois/"+doi, nil, nil)
}
