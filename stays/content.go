package stays

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"stays_observer/models"
)

const listingsEP = "/external/v1/content/listings"

// GetListing fetches listing content, used for the apartment code.
func (c *Client) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	body, err := c.get(ctx, listingsEP+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("listing %s: expected object, got %s", id, parsed.Type)
	}

	l := NormalizeListing(parsed, id)
	return &l, nil
}
