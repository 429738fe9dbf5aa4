package uploads

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lightbox/internal/logging"
	"lightbox/internal/metadata"
	"lightbox/internal/textutil"
)

// ErrFinalizeBlocked is returned when finalization cannot proceed because a
// required field is unset. The blocking warning carries the detail.
var ErrFinalizeBlocked = errors.New("finalize blocked: required fields unset")

// ErrBatchFinalized is returned for mutations attempted after finalization.
var ErrBatchFinalized = errors.New("batch already finalized")

// ErrItemNotFound is returned when an item id does not exist in the batch.
var ErrItemNotFound = errors.New("item not found in batch")

// Manager owns one batch: its context, ordered items, global metadata draft,
// active field set, and warnings. All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	id        string
	batchCtx  Context
	items     []*Item
	byID      map[string]*Item
	global    map[string]string
	fields    metadata.FieldSet
	events    []Warning
	finalized bool
	maxItems  int
	createdAt time.Time
	logger    *slog.Logger
	now       func() time.Time
}

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithLogger attaches a logger to the manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMaxItems caps the number of items accepted into the batch.
func WithMaxItems(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxItems = n
		}
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a batch manager for the given context and field set.
func NewManager(batchCtx Context, fields metadata.FieldSet, opts ...ManagerOption) *Manager {
	m := &Manager{
		id:       uuid.NewString(),
		batchCtx: batchCtx,
		byID:     make(map[string]*Item),
		global:   make(map[string]string),
		fields:   fields,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.createdAt.IsZero() {
		m.createdAt = m.now().UTC()
	}
	m.logger = m.logger.With(logging.String(logging.FieldBatchID, m.id))
	return m
}

// ID returns the batch identifier.
func (m *Manager) ID() string {
	return m.id
}

// Context returns the batch context.
func (m *Manager) Context() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCtx
}

// Finalized reports whether the batch has been finalized.
func (m *Manager) Finalized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalized
}

// Fields returns the active metadata field set.
func (m *Manager) Fields() metadata.FieldSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields
}

// GlobalDraft returns a copy of the global metadata draft.
func (m *Manager) GlobalDraft() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.global))
	for k, v := range m.global {
		out[k] = v
	}
	return out
}

// Items returns the batch items in selection order. The returned slice holds
// copies; mutate items only through Manager methods.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, copyItem(item))
	}
	return out
}

// Item returns a copy of one item by id.
func (m *Manager) Item(itemID string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[itemID]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return copyItem(item), nil
}

func copyItem(item *Item) Item {
	cp := *item
	cp.Overrides = make(map[string]string, len(item.Overrides))
	for k, v := range item.Overrides {
		cp.Overrides[k] = v
	}
	cp.Overridden = make(map[string]bool, len(item.Overridden))
	for k, v := range item.Overridden {
		cp.Overridden[k] = v
	}
	if item.Err != nil {
		errCopy := *item.Err
		cp.Err = &errCopy
	}
	return cp
}

// AddFile creates a new queued item for a selected file. The title defaults
// to the original filename's stem.
func (m *Manager) AddFile(originalFilename, filePath string, sizeBytes int64) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return Item{}, ErrBatchFinalized
	}
	originalFilename = strings.TrimSpace(originalFilename)
	if originalFilename == "" {
		return Item{}, errors.New("add file: original filename required")
	}
	if m.maxItems > 0 && len(m.items) >= m.maxItems {
		return Item{}, fmt.Errorf("add file: batch limit of %d items reached", m.maxItems)
	}

	stem, _ := textutil.SplitExt(originalFilename)
	now := m.now().UTC()
	item := &Item{
		ID:               uuid.NewString(),
		FilePath:         filePath,
		OriginalFilename: originalFilename,
		Title:            stem,
		Status:           StatusQueued,
		Overrides:        make(map[string]string),
		Overridden:       make(map[string]bool),
		SizeBytes:        sizeBytes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.items = append(m.items, item)
	m.byID[item.ID] = item
	m.logger.Debug("file added",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("filename", originalFilename),
	)
	return copyItem(item), nil
}

// SetTitle updates an item's title. The resolved filename follows
// automatically since it is derived; upload status is unaffected.
func (m *Manager) SetTitle(itemID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrBatchFinalized
	}
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	item.Title = title
	item.UpdatedAt = m.now().UTC()
	return nil
}

// SetGlobalField updates the global metadata draft. Items with an explicit
// override for the key keep their own value.
func (m *Manager) SetGlobalField(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrBatchFinalized
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("set global field: key required")
	}
	m.global[key] = value
	return nil
}

// ClearGlobalField removes a key from the global draft so field defaults
// apply again.
func (m *Manager) ClearGlobalField(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrBatchFinalized
	}
	delete(m.global, key)
	return nil
}

// SetOverride records an explicit per-item value for a field key. The
// override survives later global draft edits for that key.
func (m *Manager) SetOverride(itemID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrBatchFinalized
	}
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("set override: key required")
	}
	item.Overrides[key] = value
	item.Overridden[key] = true
	item.UpdatedAt = m.now().UTC()
	return nil
}

// ClearOverride removes an explicit per-item value so the global draft
// applies again.
func (m *Manager) ClearOverride(itemID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrBatchFinalized
	}
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	delete(item.Overrides, key)
	delete(item.Overridden, key)
	item.UpdatedAt = m.now().UTC()
	return nil
}

// EffectiveValue resolves the value of a field for an item: explicit
// override first, then the global draft, then the field default.
func (m *Manager) EffectiveValue(itemID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[itemID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return m.effectiveValueLocked(item, key), nil
}

func (m *Manager) effectiveValueLocked(item *Item, key string) string {
	if item.Overridden[key] {
		return item.Overrides[key]
	}
	if value, ok := m.global[key]; ok {
		return value
	}
	if field, ok := m.fields.Get(key); ok {
		return field.Default
	}
	return ""
}

// ChangeCategory swaps the active category and its field set. Overrides
// referencing fields absent from the new set are retained in storage and
// surfaced as metadata_invalidation warnings so the user can decide; they
// are never deleted here.
func (m *Manager) ChangeCategory(categoryID string, fields metadata.FieldSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrBatchFinalized
	}
	previous := m.batchCtx.CategoryID
	m.batchCtx.CategoryID = categoryID
	m.fields = fields

	if previous != "" && previous != categoryID {
		m.events = append(m.events, Warning{
			Type:     WarnCategoryChange,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("category changed from %s to %s; metadata fields were recomputed", previous, categoryID),
		})
	}
	m.logger.Info("category changed",
		logging.String("category_id", categoryID),
		logging.Int("field_count", fields.Len()),
	)
	return nil
}

// invalidationWarningsLocked computes exactly one metadata_invalidation
// warning per override key that is absent from the active field set.
func (m *Manager) invalidationWarningsLocked() []Warning {
	affected := make(map[string][]string)
	var order []string

	record := func(key, itemID string) {
		if m.fields.Has(key) {
			return
		}
		if _, seen := affected[key]; !seen {
			order = append(order, key)
		}
		if itemID != "" {
			affected[key] = append(affected[key], itemID)
		} else if _, seen := affected[key]; !seen {
			affected[key] = nil
		}
	}

	globalKeys := make([]string, 0, len(m.global))
	for key := range m.global {
		globalKeys = append(globalKeys, key)
	}
	sort.Strings(globalKeys)
	for _, key := range globalKeys {
		record(key, "")
	}
	for _, item := range m.items {
		overrideKeys := make([]string, 0, len(item.Overrides))
		for key := range item.Overrides {
			overrideKeys = append(overrideKeys, key)
		}
		sort.Strings(overrideKeys)
		for _, key := range overrideKeys {
			record(key, item.ID)
		}
	}

	warnings := make([]Warning, 0, len(order))
	for _, key := range order {
		warnings = append(warnings, Warning{
			Type:      WarnMetadataInvalidation,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("field %q is not available in the current category; its value is retained", key),
			FieldKeys: []string{key},
			ItemIDs:   affected[key],
		})
	}
	return warnings
}

// filenameConflictWarningsLocked reports duplicate resolved filenames
// inside the batch.
func (m *Manager) filenameConflictWarningsLocked() []Warning {
	byName := make(map[string][]string)
	var order []string
	for _, item := range m.items {
		name := item.ResolvedFilename()
		if _, seen := byName[name]; !seen {
			order = append(order, name)
		}
		byName[name] = append(byName[name], item.ID)
	}

	var warnings []Warning
	for _, name := range order {
		ids := byName[name]
		if len(ids) < 2 {
			continue
		}
		warnings = append(warnings, Warning{
			Type:     WarnFilenameConflict,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d items resolve to the filename %q", len(ids), name),
			ItemIDs:  ids,
		})
	}
	return warnings
}

// Warnings returns the batch warnings: recorded events plus the current
// invalidation and filename-conflict state.
func (m *Manager) Warnings() []Warning {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Warning, 0, len(m.events))
	out = append(out, m.events...)
	out = append(out, m.invalidationWarningsLocked()...)
	out = append(out, m.filenameConflictWarningsLocked()...)
	return out
}

// AttachFile reattaches a local file handle after a reload. The original
// filename must match the item it is attached to.
func (m *Manager) AttachFile(itemID, filePath string, sizeBytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	item.FilePath = filePath
	if sizeBytes > 0 {
		item.SizeBytes = sizeBytes
	}
	item.UpdatedAt = m.now().UTC()
	return nil
}

// BeginUpload transitions an item to uploading. Queued items start fresh;
// failed items retry with progress reset to zero. The prior error is kept
// until the next terminal outcome replaces or clears it.
func (m *Manager) BeginUpload(itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	switch item.Status {
	case StatusQueued, StatusFailed:
	default:
		return fmt.Errorf("begin upload: item %s is %s", itemID, item.Status)
	}
	if strings.TrimSpace(item.FilePath) == "" {
		return fmt.Errorf("begin upload: item %s has no attached file; reattach before retrying", itemID)
	}
	item.Status = StatusUploading
	item.Progress = 0
	item.UpdatedAt = m.now().UTC()
	return nil
}

// AttachSession records the backend-assigned upload session identifier.
func (m *Manager) AttachSession(itemID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if item.Status != StatusUploading {
		return fmt.Errorf("attach session: item %s is %s", itemID, item.Status)
	}
	item.SessionID = sessionID
	item.UpdatedAt = m.now().UTC()
	return nil
}

// SetProgress records upload progress for an uploading item, clamped to
// [0,100].
func (m *Manager) SetProgress(itemID string, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if item.Status != StatusUploading {
		return fmt.Errorf("set progress: item %s is %s", itemID, item.Status)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	item.Progress = percent
	item.UpdatedAt = m.now().UTC()
	return nil
}

// CompleteUpload marks an uploading item complete and clears any prior
// error.
func (m *Manager) CompleteUpload(itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if item.Status != StatusUploading {
		return fmt.Errorf("complete upload: item %s is %s", itemID, item.Status)
	}
	item.Status = StatusComplete
	item.Progress = 100
	item.Err = nil
	item.UpdatedAt = m.now().UTC()
	return nil
}

// FailUpload marks an uploading item failed with a structured error. The
// rest of the batch is unaffected.
func (m *Manager) FailUpload(itemID string, uploadErr *Error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byID[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if item.Status != StatusUploading {
		return fmt.Errorf("fail upload: item %s is %s", itemID, item.Status)
	}
	if uploadErr == nil {
		uploadErr = &Error{Message: "upload failed", Kind: ErrKindUnknown}
	}
	item.SetFailed(uploadErr)
	item.UpdatedAt = m.now().UTC()
	m.logger.Warn("item upload failed",
		logging.String(logging.FieldItemID, itemID),
		logging.String("kind", string(uploadErr.Kind)),
		logging.Error(uploadErr),
	)
	return nil
}

// Finalize closes the batch. It is blocked, not skipped, when any required
// field resolves to an empty effective value for any item; the returned
// warning carries the affected field keys and item ids.
func (m *Manager) Finalize() (*Warning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return nil, ErrBatchFinalized
	}

	missingKeys := make(map[string]struct{})
	missingItems := make(map[string]struct{})
	var keyOrder []string
	for _, field := range m.fields.Required() {
		for _, item := range m.items {
			if m.effectiveValueLocked(item, field.Key) != "" {
				continue
			}
			if _, seen := missingKeys[field.Key]; !seen {
				missingKeys[field.Key] = struct{}{}
				keyOrder = append(keyOrder, field.Key)
			}
			missingItems[item.ID] = struct{}{}
		}
	}

	if len(keyOrder) > 0 {
		itemIDs := make([]string, 0, len(missingItems))
		for _, item := range m.items {
			if _, ok := missingItems[item.ID]; ok {
				itemIDs = append(itemIDs, item.ID)
			}
		}
		warning := Warning{
			Type:      WarnMissingRequiredField,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("required fields unset: %s", strings.Join(keyOrder, ", ")),
			FieldKeys: keyOrder,
			ItemIDs:   itemIDs,
		}
		m.events = append(m.events, warning)
		return &warning, ErrFinalizeBlocked
	}

	m.finalized = true
	m.logger.Info("batch finalized", logging.Int("item_count", len(m.items)))
	return nil, nil
}
