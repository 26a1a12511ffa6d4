package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
)

// Client talks to the orders service over HTTP. Failures come back as
// *storeerr.Error.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{baseURL: baseURL, client: client}
}

// Submit stores order and returns it as the service stored it, with the
// id and creation time the service assigned.
func (c *Client) Submit(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	var created domain.Order
	if err := c.do(ctx, "submit order", http.MethodPost, "/orders", order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Get(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, "get order", http.MethodGet, "/orders/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders fetches orders created at or after since. A zero since fetches all.
func (c *Client) ListOrders(ctx context.Context, since time.Time) ([]domain.Order, error) {
	path := "/orders"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	var orders []domain.Order
	if err := c.do(ctx, "list orders", http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) ListFeedback(ctx context.Context, limit int) ([]domain.Feedback, error) {
	path := "/feedback"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var feedback []domain.Feedback
	if err := c.do(ctx, "list feedback", http.MethodGet, path, nil, &feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return storeerr.Wrap(op, err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return storeerr.Wrap(op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return storeerr.Wrap(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return storeerr.FromResponse(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &storeerr.Error{Code: storeerr.CodeInternal, Op: op, Err: err}
	}
	return nil
}
