package external

import "context"

// CatalogDataset is the Metax V3 dataset shape this client upserts,
// carrying the mapping from DataCite-shaped submission metadata spelled
// out in spec.md §4.H's catalog-mapping table:
//
//	creators    -> Actors (role=creator)
//	subjects    -> FieldOfScience + Keyword
//	geoLocation -> Spatial
//	funders     -> Projects
//	language    -> Language
//	rights      -> AccessRights
type CatalogDataset struct {
	Actors        []CatalogActor `json:"actors,omitempty"`
	FieldOfScience []string      `json:"field_of_science,omitempty"`
	Keyword       []string       `json:"keyword,omitempty"`
	Spatial       string         `json:"spatial,omitempty"`
	Projects      []string       `json:"projects,omitempty"`
	Language      string         `json:"language,omitempty"`
	AccessRights  string         `json:"access_rights,omitempty"`
}

// CatalogActor is one Metax actor entry.
type CatalogActor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// MapDOIPayloadToCatalog translates a DOIPayload (the shape recorded at
// DOI-draft time) into the Metax dataset shape per the mapping table.
func MapDOIPayloadToCatalog(p DOIPayload) CatalogDataset {
	actors := make([]CatalogActor, 0, len(p.Creators))
	for _, c := range p.Creators {
		actors = append(actors, CatalogActor{Name: c.Name, Role: "creator"})
	}
	return CatalogDataset{
		Actors:         actors,
		FieldOfScience: p.Subjects,
		Keyword:        p.Subjects,
		Spatial:        string(p.GeoLocation),
		Projects:       p.Funders,
		Language:       p.Language,
		AccessRights:   p.Rights,
	}
}

// CatalogClient talks to Metax V3.
type CatalogClient struct {
	*Client
}

// NewCatalogClient wraps a base Client as a catalog client.
func NewCatalogClient(c *Client) *CatalogClient { return &CatalogClient{Client: c} }

type upsertDatasetResponse struct {
	PersistentIdentifier string `json:"persistent_identifier"`
}

// UpsertDataset creates or updates a catalog entry, returning its
// persistent identifier.
func (c *CatalogClient) UpsertDataset(ctx context.Context, ds CatalogDataset) (string, error) {
	var resp upsertDatasetResponse
	if err := c.DoJSON(ctx, "PUT", "/datasets", ds, &resp); err != nil {
		return "", err
	}
	return resp.PersistentIdentifier, nil
}
