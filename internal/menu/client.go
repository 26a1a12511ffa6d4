package menu

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
)

// Client reads the menu service. The storefront uses it to load the live
// catalog and the running promotion.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{baseURL: baseURL, client: client}
}

func (c *Client) ListItems(ctx context.Context) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	if _, err := c.get(ctx, "list menu", "/menu", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CurrentPromotion returns nil when no promotion is running.
func (c *Client) CurrentPromotion(ctx context.Context) (*domain.Promotion, error) {
	var p domain.Promotion
	found, err := c.get(ctx, "current promotion", "/promotions/current", &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, storeerr.Wrap(op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, storeerr.Wrap(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, storeerr.FromResponse(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &storeerr.Error{Code: storeerr.CodeInternal, Op: op, Err: err}
	}
	return true, nil
}
