package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"lightbox/internal/logging"
	"lightbox/internal/metadata"
	"lightbox/internal/uploads"
)

// ErrBatchNotFound is returned when a batch id is unknown to both the live
// set and the store.
var ErrBatchNotFound = errors.New("batch not found")

// BatchStore abstracts batch persistence for the service.
type BatchStore interface {
	SaveBatch(ctx context.Context, snap *uploads.BatchSnapshot) error
	GetBatch(ctx context.Context, id string) (*uploads.BatchSnapshot, error)
	ListBatches(ctx context.Context) ([]*uploads.BatchSnapshot, error)
	DeleteBatch(ctx context.Context, id string) error
}

// Uploader abstracts the pre-signed transfer client.
type Uploader interface {
	Put(ctx context.Context, req uploads.TransferRequest) *uploads.Error
}

// BatchService owns the live batch managers and writes every mutation
// through to the store so batches survive restarts.
type BatchService struct {
	store    BatchStore
	fields   metadata.Source
	uploader Uploader
	logger   *slog.Logger
	maxItems int

	mu       sync.Mutex
	managers map[string]*uploads.Manager
}

// BatchServiceOption customizes the service.
type BatchServiceOption func(*BatchService)

// WithBatchLogger attaches a logger.
func WithBatchLogger(logger *slog.Logger) BatchServiceOption {
	return func(s *BatchService) {
		if logger != nil {
			s.logger = logger.With(logging.String(logging.FieldComponent, "batch-service"))
		}
	}
}

// WithUploader sets the transfer client used by StartUpload.
func WithUploader(uploader Uploader) BatchServiceOption {
	return func(s *BatchService) {
		s.uploader = uploader
	}
}

// WithBatchLimit caps items per batch.
func WithBatchLimit(n int) BatchServiceOption {
	return func(s *BatchService) {
		s.maxItems = n
	}
}

// NewBatchService constructs the service over a store and a metadata field
// source.
func NewBatchService(store BatchStore, fields metadata.Source, opts ...BatchServiceOption) *BatchService {
	s := &BatchService{
		store:    store,
		fields:   fields,
		logger:   logging.NewNop(),
		managers: make(map[string]*uploads.Manager),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BatchService) fieldsFor(ctx context.Context, categoryID string) (metadata.FieldSet, error) {
	if categoryID == "" || s.fields == nil {
		return metadata.FieldSet{}, nil
	}
	set, err := s.fields.FieldsForCategory(ctx, categoryID)
	if err != nil {
		return metadata.FieldSet{}, fmt.Errorf("fetch category fields: %w", err)
	}
	return set, nil
}

// Create starts a new batch for the given context.
func (s *BatchService) Create(ctx context.Context, tenantID, brandID, categoryID string) (BatchView, error) {
	if tenantID == "" || brandID == "" {
		return BatchView{}, errors.New("create batch: tenant and brand required")
	}
	set, err := s.fieldsFor(ctx, categoryID)
	if err != nil {
		return BatchView{}, err
	}

	var opts []uploads.ManagerOption
	opts = append(opts, uploads.WithLogger(s.logger))
	if s.maxItems > 0 {
		opts = append(opts, uploads.WithMaxItems(s.maxItems))
	}
	mgr := uploads.NewManager(uploads.Context{
		TenantID:   tenantID,
		BrandID:    brandID,
		CategoryID: categoryID,
	}, set, opts...)

	s.mu.Lock()
	s.managers[mgr.ID()] = mgr
	s.mu.Unlock()

	if err := s.persist(ctx, mgr); err != nil {
		return BatchView{}, err
	}
	s.logger.Info("batch created", logging.String(logging.FieldBatchID, mgr.ID()))
	return FromManager(mgr), nil
}

// manager returns the live manager for a batch, restoring it from the store
// on first access after a restart.
func (s *BatchService) manager(ctx context.Context, batchID string) (*uploads.Manager, error) {
	s.mu.Lock()
	mgr, ok := s.managers[batchID]
	s.mu.Unlock()
	if ok {
		return mgr, nil
	}

	snap, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	set, err := s.fieldsFor(ctx, snap.Context.CategoryID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.managers[batchID]; ok {
		return existing, nil
	}
	mgr = uploads.Restore(snap, set, uploads.WithLogger(s.logger))
	s.managers[batchID] = mgr
	return mgr, nil
}

func (s *BatchService) persist(ctx context.Context, mgr *uploads.Manager) error {
	if err := s.store.SaveBatch(ctx, mgr.Snapshot()); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}
	return nil
}

// Get returns the full view of one batch.
func (s *BatchService) Get(ctx context.Context, batchID string) (BatchView, error) {
	mgr, err := s.manager(ctx, batchID)
	if err != nil {
		return BatchView{}, err
	}
	return FromManager(mgr), nil
}

// List returns summaries for all stored batches.
func (s *BatchService) List(ctx context.Context) ([]BatchSummary, error) {
	snaps, err := s.store.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]BatchSummary, 0, len(snaps))
	for _, snap := range snaps {
		summaries = append(summaries, FromSnapshot(snap))
	}
	return summaries, nil
}

// ActiveCount reports how many managers are live in memory.
func (s *BatchService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.managers)
}

// Delete removes a batch from memory and the store.
func (s *BatchService) Delete(ctx context.Context, batchID string) error {
	s.mu.Lock()
	delete(s.managers, batchID)
	s.mu.Unlock()
	return s.store.DeleteBatch(ctx, batchID)
}

// AddFile appends a file to a batch.
func (s *BatchService) AddFile(ctx context.Context, batchID, originalFilename, filePath string, sizeBytes int64) (BatchView, error) {
	return s.mutate(ctx, batchID, func(mgr *uploads.Manager) error {
		_, err := mgr.AddFile(originalFilename, filePath, sizeBytes)
		return err
	})
}

// SetTitle renames an item; the resolved filename follows.
func (s *BatchService) SetTitle(ctx context.Context, batchID, itemID, title string) (BatchView, error) {
	return s.mutate(ctx, batchID, func(mgr *uploads.Manager) error {
		return mgr.SetTitle(itemID, title)
	})
}

// SetGlobalField updates the batch-wide metadata draft.
func (s *BatchService) SetGlobalField(ctx context.Context, batchID, key, value string) (BatchView, error) {
	return s.mutate(ctx, batchID, func(mgr *uploads.Manager) error {
		return mgr.SetGlobalField(key, value)
	})
}

// ClearGlobalField drops a key from the batch-wide draft.
func (s *BatchService) ClearGlobalField(ctx context.Context, batchID, key string) (BatchView, error) {
	return s.mutate(ctx, batchID, func(mgr *uploads.Manager) error {
		return mgr.ClearGlobalField(key)
	})
}

// SetOverride records a per-item field value.
func (s *BatchService) SetOverride(ctx context.Context, batchID, itemID, key, value string) (BatchView, error) {
	return s.mutate(ctx, batchID, func(mgr *uploads.Manager) error {
		return mgr.SetOverride(itemID, key, value)
	})
}

// ClearOverride reverts an item to the global draft for a key.
func (s *BatchService) ClearOverride(ctx context.Context, batchID, itemID, key string) (BatchView, error) {
	return s.mutate(ctx, batchID, func(mgr *uploads.Manager) error {
		return mgr.ClearOverride(itemID, key)
	})
}

// AttachFile reattaches a local file to an item after a reload.
func (s *BatchService) AttachFile(ctx context.Context, batchID, itemID, filePath string, sizeBytes int64) (BatchView, error) {
	return s.mutate(ctx, batchID, func(mgr *uploads.Manager) error {
		return mgr.AttachFile(itemID, filePath, sizeBytes)
	})
}

// ChangeCategory swaps the batch category, refetching its field set.
func (s *BatchService) ChangeCategory(ctx context.Context, batchID, categoryID string) (BatchView, error) {
	set, err := s.fieldsFor(ctx, categoryID)
	if err != nil {
		return BatchView{}, err
	}
	return s.mutate(ctx, batchID, func(mgr *uploads.Manager) error {
		return mgr.ChangeCategory(categoryID, set)
	})
}

// Finalize closes the batch. A blocking warning is returned in the view; the
// error reports whether finalization went through.
func (s *BatchService) Finalize(ctx context.Context, batchID string) (BatchView, error) {
	mgr, err := s.manager(ctx, batchID)
	if err != nil {
		return BatchView{}, err
	}
	_, finalizeErr := mgr.Finalize()
	if err := s.persist(ctx, mgr); err != nil {
		return BatchView{}, err
	}
	return FromManager(mgr), finalizeErr
}

// UploadRequest carries what StartUpload needs from the upload-session
// protocol: the session id and the pre-signed destination.
type UploadRequest struct {
	SessionID   string `json:"sessionId"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

// StartUpload transfers one item to its pre-signed destination, driving the
// item's status and progress. A failed transfer marks only that item.
func (s *BatchService) StartUpload(ctx context.Context, batchID, itemID string, req UploadRequest) (BatchView, error) {
	if s.uploader == nil {
		return BatchView{}, errors.New("start upload: no transfer client configured")
	}
	mgr, err := s.manager(ctx, batchID)
	if err != nil {
		return BatchView{}, err
	}
	if err := mgr.BeginUpload(itemID); err != nil {
		return BatchView{}, err
	}
	if req.SessionID != "" {
		if err := mgr.AttachSession(itemID, req.SessionID); err != nil {
			return BatchView{}, err
		}
	}
	item, err := mgr.Item(itemID)
	if err != nil {
		return BatchView{}, err
	}
	if err := s.persist(ctx, mgr); err != nil {
		return BatchView{}, err
	}

	uploadErr := s.uploader.Put(ctx, uploads.TransferRequest{
		URL:         req.URL,
		FilePath:    item.FilePath,
		ContentType: req.ContentType,
		OnProgress: func(percent int) {
			_ = mgr.SetProgress(itemID, percent)
		},
	})
	if uploadErr != nil {
		if err := mgr.FailUpload(itemID, uploadErr); err != nil {
			return BatchView{}, err
		}
	} else if err := mgr.CompleteUpload(itemID); err != nil {
		return BatchView{}, err
	}
	if err := s.persist(ctx, mgr); err != nil {
		return BatchView{}, err
	}
	return FromManager(mgr), nil
}

func (s *BatchService) mutate(ctx context.Context, batchID string, fn func(*uploads.Manager) error) (BatchView, error) {
	mgr, err := s.manager(ctx, batchID)
	if err != nil {
		return BatchView{}, err
	}
	if err := fn(mgr); err != nil {
		return BatchView{}, err
	}
	if err := s.persist(ctx, mgr); err != nil {
		return BatchView{}, err
	}
	return FromManager(mgr), nil
}
