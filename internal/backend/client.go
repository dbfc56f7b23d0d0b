package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s returned status %d", e.Path, e.Code)
}

// Client talks to the fleet-simulation backend
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a backend client rooted at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// BaseURL returns the backend root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Init fetches the initial map settings
func (c *Client) Init(ctx context.Context) (*InitPayload, error) {
	var payload InitPayload
	if err := c.getJSON(ctx, "/init", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Entities fetches the current entity snapshot
func (c *Client) Entities(ctx context.Context) (*EntitiesPayload, error) {
	var payload EntitiesPayload
	if err := c.getJSON(ctx, "/entities", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Action issues a one-shot control request (e.g. "/run") and discards the body
func (c *Client) Action(ctx context.Context, path string) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// GeneratePath builds the control path that asks the backend to spawn agents
func GeneratePath(taxis, passengers int) string {
	return fmt.Sprintf("/generate/taxis/%d/passengers/%d", taxis, passengers)
}

func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{Path: path, Code: resp.StatusCode}
	}
	return resp, nil
}
