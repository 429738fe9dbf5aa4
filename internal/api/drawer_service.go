package api

import (
	"context"
	"log/slog"
	"sync"

	"lightbox/internal/logging"
	"lightbox/internal/thumbs"
)

// DrawerService owns the grid-side thumbnail records and the drawer's poll
// session. Poll updates flow back through the engine's callback and are
// reconciled here with Merge, so the grid always wins on conflict.
type DrawerService struct {
	poller *thumbs.Poller
	logger *slog.Logger

	mu   sync.Mutex
	grid map[string]thumbs.Record
}

// NewDrawerService constructs the drawer service over a thumbnail status
// source.
func NewDrawerService(source thumbs.Source, logger *slog.Logger, pollerOpts ...thumbs.PollerOption) *DrawerService {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &DrawerService{
		logger: logger.With(logging.String(logging.FieldComponent, "drawer")),
		grid:   make(map[string]thumbs.Record),
	}
	opts := append([]thumbs.PollerOption{thumbs.WithPollerLogger(logger)}, pollerOpts...)
	s.poller = thumbs.NewPoller(source, s.applyPollUpdate, opts...)
	return s
}

// applyPollUpdate folds fresh poll data into the grid record for the asset.
func (s *DrawerService) applyPollUpdate(poll thumbs.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grid := s.grid[poll.AssetID]
	if grid.AssetID == "" {
		grid.AssetID = poll.AssetID
	}
	s.grid[poll.AssetID] = thumbs.Merge(grid, poll)
}

// UpdateGrid applies a grid-driven update for an asset. The incoming record
// is authoritative for every field it carries; previously polled data only
// survives where the update leaves gaps.
func (s *DrawerService) UpdateGrid(rec thumbs.Record) {
	if rec.AssetID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid[rec.AssetID] = thumbs.Merge(rec, s.grid[rec.AssetID])
}

// Open points the drawer at an asset and starts polling when warranted.
func (s *DrawerService) Open(ctx context.Context, assetID string) DrawerView {
	s.mu.Lock()
	rec, ok := s.grid[assetID]
	if !ok {
		rec = thumbs.Record{AssetID: assetID}
		s.grid[assetID] = rec
	}
	s.mu.Unlock()

	s.poller.Open(ctx, rec)
	return s.View()
}

// Close closes the drawer and cancels any scheduled poll.
func (s *DrawerService) Close() {
	s.poller.Close()
}

// View reports the drawer's current asset and whether polling is active.
func (s *DrawerService) View() DrawerView {
	assetID, polling := s.poller.Active()
	if assetID == "" {
		return DrawerView{}
	}
	s.mu.Lock()
	rec := s.grid[assetID]
	s.mu.Unlock()
	cp := rec
	return DrawerView{Asset: &cp, Polling: polling}
}

// Record returns the grid record for an asset, if known.
func (s *DrawerService) Record(assetID string) (thumbs.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.grid[assetID]
	return rec, ok
}
