package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/host"
)

// Health is the body of the health probes.
type Health struct {
	Status    string         `json:"status" yaml:"status"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Data      map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Live calls GET /health.
func (c *Client) Live(ctx context.Context) (*Health, error) {
	return c.health(ctx, "/health")
}

// Ready calls GET /health/ready. A host that is up but not ready returns an
// *APIError with status 503.
func (c *Client) Ready(ctx context.Context) (*Health, error) {
	return c.health(ctx, "/health/ready")
}

func (c *Client) health(ctx context.Context, path string) (*Health, error) {
	var data map[string]any
	env, err := c.do(ctx, http.MethodGet, path, nil, &data)
	if err != nil {
		return nil, err
	}
	return &Health{Status: env.Status, Timestamp: env.Timestamp, Data: data}, nil
}

// Status returns the host status snapshot.
func (c *Client) Status(ctx context.Context) (*host.Status, error) {
	var st host.Status
	if err := c.get(ctx, "/api/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListCatalog lists catalog entries, optionally filtered by kind.
func (c *Client) ListCatalog(ctx context.Context, kind string) ([]*catalog.Entry, error) {
	path := "/api/v1/catalog"
	if kind != "" {
		path += "?kind=" + url.QueryEscape(kind)
	}
	var entries []*catalog.Entry
	if err := c.get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetCatalogEntry returns one entry by id.
func (c *Client) GetCatalogEntry(ctx context.Context, id string) (*catalog.Entry, error) {
	var e catalog.Entry
	if err := c.get(ctx, "/api/v1/catalog/"+url.PathEscape(id), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ScanCatalog asks the daemon to index root, or its configured library when
// root is empty.
func (c *Client) ScanCatalog(ctx context.Context, root string) (*catalog.ScanResult, error) {
	var res catalog.ScanResult
	if err := c.post(ctx, "/api/v1/catalog/scan", map[string]string{"root": root}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
