package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// Source supplies the metadata fields for a category.
type Source interface {
	FieldsForCategory(ctx context.Context, categoryID string) (FieldSet, error)
}

// ClientConfig captures the runtime settings for the catalog service.
type ClientConfig struct {
	Endpoint       string
	APIKey         string
	TimeoutSeconds int
}

// Client fetches category field definitions from the catalog service.
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

// NewClient constructs a catalog client using the supplied configuration.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: ClientConfig{
			Endpoint:       strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("catalog request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type fieldsResponse struct {
	Fields []Field `json:"fields"`
}

// FieldsForCategory fetches the field definitions active for a category.
func (c *Client) FieldsForCategory(ctx context.Context, categoryID string) (FieldSet, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return FieldSet{}, errors.New("catalog fields: category id required")
	}
	if c.cfg.Endpoint == "" {
		return FieldSet{}, errors.New("catalog fields: endpoint not configured")
	}

	endpoint := fmt.Sprintf("%s/categories/%s/fields", c.cfg.Endpoint, url.PathEscape(categoryID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return FieldSet{}, fmt.Errorf("catalog fields: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FieldSet{}, fmt.Errorf("catalog fields: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return FieldSet{}, fmt.Errorf("catalog fields: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return FieldSet{}, &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload fieldsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return FieldSet{}, fmt.Errorf("catalog fields: decode response: %w", err)
	}
	for i := range payload.Fields {
		if _, ok := ParseFieldType(string(payload.Fields[i].Type)); !ok {
			return FieldSet{}, fmt.Errorf("catalog fields: unknown field type %q for key %q", payload.Fields[i].Type, payload.Fields[i].Key)
		}
	}
	return NewFieldSet(payload.Fields), nil
}

// StaticSource serves a fixed category-to-fields mapping. Used in tests and
// deployments without a catalog service.
type StaticSource map[string][]Field

// FieldsForCategory implements Source.
func (s StaticSource) FieldsForCategory(_ context.Context, categoryID string) (FieldSet, error) {
	fields, ok := s[categoryID]
	if !ok {
		return FieldSet{}, fmt.Errorf("catalog fields: unknown category %q", categoryID)
	}
	return NewFieldSet(fields), nil
}
