package uploads

import (
	"fmt"
	"strings"
	"time"

	"lightbox/internal/textutil"
)

// Status represents the upload lifecycle of a single item.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusUploading,
	StatusComplete,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the upload lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// ErrorKind classifies upload failures.
type ErrorKind string

const (
	ErrKindNetwork    ErrorKind = "network"
	ErrKindAuth       ErrorKind = "auth"
	ErrKindExpired    ErrorKind = "expired"
	ErrKindServer     ErrorKind = "server"
	ErrKindValidation ErrorKind = "validation"
	ErrKindUnknown    ErrorKind = "unknown"
)

// Error is the structured failure attached to an item. Diagnostic carries a
// raw payload for debugging and is never shown to users.
type Error struct {
	Message    string    `json:"message"`
	Kind       ErrorKind `json:"kind"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Diagnostic string    `json:"diagnostic,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("upload %s (http %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("upload %s: %s", e.Kind, e.Message)
}

// Context is the immutable batch-level context. CategoryID may change until
// the batch is finalized; the other fields never do.
type Context struct {
	TenantID   string
	BrandID    string
	CategoryID string
}

// Item represents one file in a batch.
//
// ID is client-generated and survives reloads via the store. FilePath is the
// local file handle and is deliberately not persisted; after a reload it must
// be reattached before the item can upload again.
type Item struct {
	ID               string
	FilePath         string
	SessionID        string
	OriginalFilename string
	Title            string
	Status           Status
	Progress         int
	Err              *Error
	// Overrides holds only the fields explicitly changed for this item;
	// absence means the global draft value applies.
	Overrides map[string]string
	// Overridden records explicit user intent per field key, so global
	// draft edits never clobber a deliberate per-item value.
	Overridden map[string]bool
	SizeBytes  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ResolvedFilename derives the storage filename from the current title and
// the original extension. It is always derived, never stored or edited: an
// empty or unusable title falls back to the original filename's stem.
func (i *Item) ResolvedFilename() string {
	stem, ext := textutil.SplitExt(i.OriginalFilename)
	slug := textutil.Slug(i.Title)
	if slug == "" {
		slug = textutil.Slug(stem)
	}
	if slug == "" {
		slug = "file"
	}
	return slug + ext
}

// SetFailed marks the item failed with the given structured error.
func (i *Item) SetFailed(uploadErr *Error) {
	i.Status = StatusFailed
	i.Err = uploadErr
}

// HasOverride reports whether the field key is explicitly overridden.
func (i *Item) HasOverride(key string) bool {
	return i.Overridden[key]
}

// WarningType enumerates batch warning categories.
type WarningType string

const (
	WarnCategoryChange       WarningType = "category_change"
	WarnMetadataInvalidation WarningType = "metadata_invalidation"
	WarnMissingRequiredField WarningType = "missing_required_field"
	WarnFilenameConflict     WarningType = "filename_conflict"
	WarnOther                WarningType = "other"
)

// Severity grades a warning. Only missing_required_field at finalization is
// blocking; everything else is advisory.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Warning is an advisory attached to a batch.
type Warning struct {
	Type      WarningType `json:"type"`
	Message   string      `json:"message"`
	Severity  Severity    `json:"severity,omitempty"`
	FieldKeys []string    `json:"field_keys,omitempty"`
	ItemIDs   []string    `json:"item_ids,omitempty"`
}
