package push

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/joao-fontenele/drinkshop/internal/storeerr"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{baseURL: baseURL, client: client}
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.post(ctx, "register push token", "/tokens", reg, nil)
}

// Send returns how many devices the message reached.
func (c *Client) Send(ctx context.Context, msg Message) (int, error) {
	var result SendResult
	if err := c.post(ctx, "send push", "/send", msg, &result); err != nil {
		return 0, err
	}
	return result.Delivered, nil
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return storeerr.Wrap(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return storeerr.Wrap(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return storeerr.Wrap(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return storeerr.FromResponse(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &storeerr.Error{Code: storeerr.CodeInternal, Op: op, Err: err}
	}
	return nil
}
