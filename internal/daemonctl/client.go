// Package daemonctl provides the CLI-side client for the lightbox daemon:
// an HTTP client for its API plus helpers to launch, wait for, and stop the
// daemon process.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"lightbox/internal/api"
	"lightbox/internal/thumbs"
)

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// ErrFinalizeBlocked indicates finalize was rejected because required
// metadata is missing; the returned batch view carries the blocking warning.
var ErrFinalizeBlocked = errors.New("finalize blocked")

// APIError carries a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon returned status %d", e.StatusCode)
}

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// ClientOption adjusts client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a client for the daemon listening on addr.
func NewClient(addr, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: "http://" + strings.TrimPrefix(strings.TrimSpace(addr), "http://"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return ErrDaemonNotRunning
		}
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Error
		}
		if resp.StatusCode == http.StatusConflict && out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// ListBatches returns summaries for all stored batches.
func (c *Client) ListBatches(ctx context.Context) ([]api.BatchSummary, error) {
	var resp api.BatchListResponse
	if err := c.do(ctx, http.MethodGet, "/api/batches", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Batches, nil
}

// GetBatch fetches the full view of one batch.
func (c *Client) GetBatch(ctx context.Context, batchID string) (api.BatchView, error) {
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodGet, "/api/batches/"+batchID, nil, &resp)
	return resp.Batch, err
}

// CreateBatch starts a new upload batch in the given tenant scope.
func (c *Client) CreateBatch(ctx context.Context, tenantID, brandID, categoryID string) (api.BatchView, error) {
	body := map[string]string{
		"tenantId":   tenantID,
		"brandId":    brandID,
		"categoryId": categoryID,
	}
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, "/api/batches", body, &resp)
	return resp.Batch, err
}

// DeleteBatch removes a batch and its items.
func (c *Client) DeleteBatch(ctx context.Context, batchID string) error {
	return c.do(ctx, http.MethodDelete, "/api/batches/"+batchID, nil, nil)
}

// AddFile queues a file into a batch.
func (c *Client) AddFile(ctx context.Context, batchID, originalFilename, filePath string, sizeBytes int64) (api.BatchView, error) {
	body := map[string]any{
		"originalFilename": originalFilename,
		"filePath":         filePath,
		"sizeBytes":        sizeBytes,
	}
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, "/api/batches/"+batchID+"/files", body, &resp)
	return resp.Batch, err
}

// SetTitle renames an item, which also recomputes its resolved filename.
func (c *Client) SetTitle(ctx context.Context, batchID, itemID, title string) (api.BatchView, error) {
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, itemPath(batchID, itemID, "title"), map[string]string{"title": title}, &resp)
	return resp.Batch, err
}

// SetGlobalField sets a batch-wide metadata value.
func (c *Client) SetGlobalField(ctx context.Context, batchID, key, value string) (api.BatchView, error) {
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, "/api/batches/"+batchID+"/global", fieldBody(key, value, false), &resp)
	return resp.Batch, err
}

// ClearGlobalField removes a batch-wide metadata value.
func (c *Client) ClearGlobalField(ctx context.Context, batchID, key string) (api.BatchView, error) {
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, "/api/batches/"+batchID+"/global", fieldBody(key, "", true), &resp)
	return resp.Batch, err
}

// SetOverride sets a per-item metadata override.
func (c *Client) SetOverride(ctx context.Context, batchID, itemID, key, value string) (api.BatchView, error) {
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, itemPath(batchID, itemID, "override"), fieldBody(key, value, false), &resp)
	return resp.Batch, err
}

// ClearOverride removes a per-item metadata override.
func (c *Client) ClearOverride(ctx context.Context, batchID, itemID, key string) (api.BatchView, error) {
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, itemPath(batchID, itemID, "override"), fieldBody(key, "", true), &resp)
	return resp.Batch, err
}

// AttachFile reattaches a local file to an item after a restart.
func (c *Client) AttachFile(ctx context.Context, batchID, itemID, filePath string, sizeBytes int64) (api.BatchView, error) {
	body := map[string]any{"filePath": filePath, "sizeBytes": sizeBytes}
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, itemPath(batchID, itemID, "attach"), body, &resp)
	return resp.Batch, err
}

// ChangeCategory switches the batch category.
func (c *Client) ChangeCategory(ctx context.Context, batchID, categoryID string) (api.BatchView, error) {
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, "/api/batches/"+batchID+"/category", map[string]string{"categoryId": categoryID}, &resp)
	return resp.Batch, err
}

// Finalize attempts to finalize a batch. When required metadata is missing
// the daemon refuses; the returned view then carries the blocking warning and
// the error wraps ErrFinalizeBlocked.
func (c *Client) Finalize(ctx context.Context, batchID string) (api.BatchView, error) {
	var resp struct {
		Error string        `json:"error"`
		Batch api.BatchView `json:"batch"`
	}
	err := c.do(ctx, http.MethodPost, "/api/batches/"+batchID+"/finalize", nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return resp.Batch, fmt.Errorf("%w: %s", ErrFinalizeBlocked, apiErr.Message)
		}
		return api.BatchView{}, err
	}
	return resp.Batch, nil
}

// Upload starts the transfer of an item to a signed URL.
func (c *Client) Upload(ctx context.Context, batchID, itemID string, req api.UploadRequest) (api.BatchView, error) {
	var resp api.BatchResponse
	err := c.do(ctx, http.MethodPost, itemPath(batchID, itemID, "upload"), req, &resp)
	return resp.Batch, err
}

// DrawerView fetches the current drawer state.
func (c *Client) DrawerView(ctx context.Context) (api.DrawerView, error) {
	var view api.DrawerView
	err := c.do(ctx, http.MethodGet, "/api/drawer", nil, &view)
	return view, err
}

// DrawerOpen points the drawer at an asset and starts polling.
func (c *Client) DrawerOpen(ctx context.Context, assetID string) (api.DrawerView, error) {
	var view api.DrawerView
	err := c.do(ctx, http.MethodPost, "/api/drawer/open", map[string]string{"assetId": assetID}, &view)
	return view, err
}

// DrawerClose closes the drawer and cancels polling.
func (c *Client) DrawerClose(ctx context.Context) (api.DrawerView, error) {
	var view api.DrawerView
	err := c.do(ctx, http.MethodPost, "/api/drawer/close", nil, &view)
	return view, err
}

// DrawerGrid applies a grid-driven thumbnail update.
func (c *Client) DrawerGrid(ctx context.Context, rec thumbs.Record) (api.DrawerView, error) {
	var view api.DrawerView
	err := c.do(ctx, http.MethodPost, "/api/drawer/grid", rec, &view)
	return view, err
}

// EvaluateFilters resolves filter visibility for a browse context.
func (c *Client) EvaluateFilters(ctx context.Context, req api.FilterEvalRequest) (api.FilterEvalResponse, error) {
	var resp api.FilterEvalResponse
	err := c.do(ctx, http.MethodPost, "/api/filters/evaluate", req, &resp)
	return resp, err
}

func itemPath(batchID, itemID, action string) string {
	return "/api/batches/" + batchID + "/items/" + itemID + "/" + action
}

func fieldBody(key, value string, clear bool) map[string]any {
	body := map[string]any{"key": key}
	if clear {
		body["clear"] = true
	} else {
		body["value"] = value
	}
	return body
}
