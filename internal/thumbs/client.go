package thumbs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// ClientConfig captures the runtime settings for the thumbnail status
// endpoint.
type ClientConfig struct {
	Endpoint       string
	TimeoutSeconds int
}

// Client queries the batched thumbnail status endpoint. The endpoint
// accepts multiple asset ids; the poll engine always sends exactly one.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a thumbnail status client.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: ClientConfig{
			Endpoint:       strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type statusRequest struct {
	AssetIDs []string `json:"asset_ids"`
}

type statusResponse struct {
	Thumbnails []Record `json:"thumbnails"`
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("thumbnail status: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// ThumbnailRecord fetches the status record for one asset. A nil record
// with nil error means the endpoint does not know the asset yet.
func (c *Client) ThumbnailRecord(ctx context.Context, assetID string) (*Record, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return nil, errors.New("thumbnail status: asset id required")
	}
	if c.cfg.Endpoint == "" {
		return nil, errors.New("thumbnail status: endpoint not configured")
	}

	payload, err := json.Marshal(statusRequest{AssetIDs: []string{assetID}})
	if err != nil {
		return nil, fmt.Errorf("thumbnail status: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("thumbnail status: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thumbnail status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("thumbnail status: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded statusResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("thumbnail status: decode response: %w", err)
	}
	for i := range decoded.Thumbnails {
		if decoded.Thumbnails[i].AssetID == assetID {
			rec := decoded.Thumbnails[i]
			return &rec, nil
		}
	}
	return nil, nil
}
