package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// DefaultTimeout bounds a single snapshot request.
const DefaultTimeout = 5 * time.Second

// maxErrorBody caps how much of an error response is read into the error.
const maxErrorBody = 512

// Config configures the providers module client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// Client fetches provider snapshots from the providers module over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a snapshot client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid providers base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Snapshot fetches the current snapshot of the event's provider.
// A 404 wraps domain.ErrProviderNotFound.
func (c *Client) Snapshot(ctx context.Context, ev *event.Event) (*provider.Snapshot, error) {
	endpoint := c.baseURL + "/providers/" + url.PathEscape(ev.ProviderID().String()) + "/snapshot"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, ev.ProviderID())
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("fetch snapshot: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var dto SnapshotDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return dto.ToDomain(), nil
}
