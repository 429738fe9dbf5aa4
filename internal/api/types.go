package api

import (
	"lightbox/internal/filters"
	"lightbox/internal/metadata"
	"lightbox/internal/thumbs"
	"lightbox/internal/uploads"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorView is the transport shape of an upload error. The raw diagnostic
// payload stays server-side.
type ErrorView struct {
	Message    string `json:"message"`
	Kind       string `json:"kind"`
	HTTPStatus int    `json:"httpStatus,omitempty"`
}

// ItemView describes one batch item in a transport-friendly format.
type ItemView struct {
	ID               string            `json:"id"`
	OriginalFilename string            `json:"originalFilename"`
	Title            string            `json:"title"`
	ResolvedFilename string            `json:"resolvedFilename"`
	Status           string            `json:"status"`
	Progress         int               `json:"progress"`
	SessionID        string            `json:"sessionId,omitempty"`
	FileAttached     bool              `json:"fileAttached"`
	Error            *ErrorView        `json:"error,omitempty"`
	Overrides        map[string]string `json:"overrides,omitempty"`
	SizeBytes        int64             `json:"sizeBytes"`
	CreatedAt        string            `json:"createdAt,omitempty"`
	UpdatedAt        string            `json:"updatedAt,omitempty"`
}

// BatchView is the full state of one batch.
type BatchView struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenantId"`
	BrandID    string            `json:"brandId"`
	CategoryID string            `json:"categoryId,omitempty"`
	Finalized  bool              `json:"finalized"`
	Global     map[string]string `json:"global,omitempty"`
	Fields     []metadata.Field  `json:"fields,omitempty"`
	Items      []ItemView        `json:"items"`
	Warnings   []uploads.Warning `json:"warnings,omitempty"`
}

// BatchSummary is the list-view projection of a batch.
type BatchSummary struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenantId"`
	BrandID    string         `json:"brandId"`
	CategoryID string         `json:"categoryId,omitempty"`
	Finalized  bool           `json:"finalized"`
	ItemCount  int            `json:"itemCount"`
	Statuses   map[string]int `json:"statuses,omitempty"`
	SizeBytes  int64          `json:"sizeBytes"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
}

// BatchListResponse wraps a collection of batch summaries.
type BatchListResponse struct {
	Batches []BatchSummary `json:"batches"`
}

// BatchResponse wraps a single batch.
type BatchResponse struct {
	Batch BatchView `json:"batch"`
}

// DrawerView reports the drawer's current asset and poll state.
type DrawerView struct {
	Asset   *thumbs.Record `json:"asset,omitempty"`
	Polling bool           `json:"polling"`
}

// FilterEvalRequest asks which filters are visible in a grid context.
type FilterEvalRequest struct {
	Filters []filters.Filter `json:"filters"`
	Context filters.Context  `json:"context"`
}

// FilterDecision pairs a filter key with its computed visibility.
type FilterDecision struct {
	Key        string `json:"key"`
	Visibility string `json:"visibility"`
}

// FilterEvalResponse lists per-filter decisions plus the hidden count used
// for "N filters hidden" messaging.
type FilterEvalResponse struct {
	Decisions   []FilterDecision `json:"decisions"`
	HiddenCount int              `json:"hiddenCount"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool       `json:"running"`
	PID           int        `json:"pid"`
	DatabasePath  string     `json:"databasePath"`
	LockFilePath  string     `json:"lockFilePath"`
	ActiveBatches int        `json:"activeBatches"`
	Drawer        DrawerView `json:"drawer"`
}
