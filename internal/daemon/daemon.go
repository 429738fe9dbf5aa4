package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"lightbox/internal/api"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/metadata"
	"lightbox/internal/thumbs"
	"lightbox/internal/uploads"
)

// Daemon coordinates the batch and drawer services and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *uploads.Store
	batches *api.BatchService
	drawer  *api.DrawerService

	lockPath string
	lock     *flock.Flock

	apiSrv *apiServer

	running atomic.Bool

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *uploads.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var fieldSource metadata.Source
	if cfg.Catalog.Endpoint != "" {
		fieldSource = metadata.NewClient(metadata.ClientConfig{
			Endpoint:       cfg.Catalog.Endpoint,
			APIKey:         cfg.Catalog.APIKey,
			TimeoutSeconds: cfg.Catalog.RequestTimeout,
		})
	}

	transferer := uploads.NewTransferer(uploads.TransferConfig{
		TimeoutSeconds: cfg.Uploads.TransferTimeout,
	})
	batches := api.NewBatchService(store, fieldSource,
		api.WithBatchLogger(logger),
		api.WithUploader(transferer),
		api.WithBatchLimit(cfg.Uploads.MaxBatchItems),
	)

	var thumbSource thumbs.Source
	if cfg.Thumbnails.Endpoint != "" {
		thumbSource = thumbs.NewClient(thumbs.ClientConfig{
			Endpoint:       cfg.Thumbnails.Endpoint,
			TimeoutSeconds: cfg.Thumbnails.RequestTimeout,
		})
	}
	drawer := api.NewDrawerService(thumbSource, logger)

	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		batches:  batches,
		drawer:   drawer,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiSrv = srv
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lightbox daemon instance is already running")
	}

	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	runCtx := d.ctx
	d.mu.Unlock()

	if err := d.apiSrv.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		d.mu.Lock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		d.mu.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("lightbox daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server, cancels the drawer session, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.mu.Unlock()

	d.drawer.Close()
	d.apiSrv.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lightbox daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	if d.apiSrv == nil {
		return ""
	}
	return d.apiSrv.addr()
}

// Batches exposes the batch service.
func (d *Daemon) Batches() *api.BatchService {
	return d.batches
}

// Drawer exposes the drawer service.
func (d *Daemon) Drawer() *api.DrawerService {
	return d.drawer
}

// runContext returns the daemon's run context, falling back to Background
// when the daemon is not started.
func (d *Daemon) runContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

// OpenDrawer opens the drawer on an asset. Scheduled polls run on the
// daemon's run context, not the API request that opened the drawer, so the
// backoff schedule keeps firing after the request returns.
func (d *Daemon) OpenDrawer(assetID string) api.DrawerView {
	return d.drawer.Open(d.runContext(), assetID)
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) api.DaemonStatus {
	return api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		DatabasePath:  d.cfg.DatabasePath(),
		LockFilePath:  d.lockPath,
		ActiveBatches: d.batches.ActiveCount(),
		Drawer:        d.drawer.View(),
	}
}
