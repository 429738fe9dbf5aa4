package thumbs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lightbox/internal/logging"
)

// backoffSchedule fixes the delays between poll attempts. Five scheduled
// continuations, then the engine gives up for that asset.
var backoffSchedule = []time.Duration{
	2000 * time.Millisecond,
	3000 * time.Millisecond,
	5000 * time.Millisecond,
	10000 * time.Millisecond,
	15000 * time.Millisecond,
}

// notQueuedTickLimit stops a session whose responses keep showing an asset
// that was never queued for thumbnail generation.
const notQueuedTickLimit = 2

// Source supplies thumbnail status records.
type Source interface {
	ThumbnailRecord(ctx context.Context, assetID string) (*Record, error)
}

// UpdateFunc receives fresh poll data for the active asset. The receiver
// owns the grid record and reconciles with Merge; the engine never mutates
// grid state directly.
type UpdateFunc func(Record)

type session struct {
	ctx        context.Context
	assetID    string
	attempt    int
	emptyTicks int
	last       Record
	polling    bool
	task       *scheduledTask
}

// Poller is the drawer-scoped thumbnail poll engine. One asset is active at
// a time; opening a new one cancels the previous session.
type Poller struct {
	source   Source
	notify   UpdateFunc
	logger   *slog.Logger
	newTimer TimerFactory

	mu      sync.Mutex
	gen     uint64
	session *session
}

// PollerOption customizes the poller.
type PollerOption func(*Poller)

// WithPollerLogger attaches a logger.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger.With(logging.String(logging.FieldComponent, "thumb-poller"))
		}
	}
}

// WithTimerFactory overrides how continuations are scheduled (tests).
func WithTimerFactory(factory TimerFactory) PollerOption {
	return func(p *Poller) {
		if factory != nil {
			p.newTimer = factory
		}
	}
}

// NewPoller constructs a poll engine over the given status source. notify
// may be nil when the caller only reads Snapshot; a nil source disables
// polling entirely.
func NewPoller(source Source, notify UpdateFunc, opts ...PollerOption) *Poller {
	p := &Poller{
		source:   source,
		notify:   notify,
		logger:   logging.NewNop(),
		newTimer: realTimer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open activates polling for the asset described by the grid's record. Any
// previous session is cancelled first. Terminal records and records whose
// generation has not been queued yet never issue a query; otherwise the
// first query goes out immediately with no delay.
func (p *Poller) Open(ctx context.Context, grid Record) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	p.cancelLocked()
	p.gen++
	gen := p.gen
	sess := &session{ctx: ctx, assetID: grid.AssetID, last: grid}
	p.session = sess

	switch {
	case p.source == nil:
		p.logger.Debug("no thumbnail source configured, not polling",
			logging.String(logging.FieldAssetID, grid.AssetID))
	case grid.Terminal():
		p.logger.Debug("asset terminal on open, not polling",
			logging.String(logging.FieldAssetID, grid.AssetID))
	case grid.NotYetQueued():
		p.logger.Debug("thumbnail generation not queued yet, not polling",
			logging.String(logging.FieldAssetID, grid.AssetID))
	default:
		sess.polling = true
	}
	polling := sess.polling
	p.mu.Unlock()

	if polling {
		p.poll(gen)
	}
}

// Close cancels the active session, if any.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.session = nil
	p.gen++
}

// cancelLocked stops the pending continuation for the current session.
func (p *Poller) cancelLocked() {
	if p.session != nil {
		p.session.task.cancel()
		p.session.task = nil
		p.session.polling = false
	}
}

// Active returns the asset id being tracked and whether a query is still
// scheduled or in flight for it.
func (p *Poller) Active() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return "", false
	}
	return p.session.assetID, p.session.polling
}

// Snapshot returns the last known record for the tracked asset.
func (p *Poller) Snapshot() (Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return Record{}, false
	}
	return p.session.last, true
}

func (p *Poller) poll(gen uint64) {
	p.mu.Lock()
	if p.gen != gen || p.session == nil || !p.session.polling {
		p.mu.Unlock()
		return
	}
	ctx := p.session.ctx
	assetID := p.session.assetID
	p.mu.Unlock()

	rec, err := p.source.ThumbnailRecord(ctx, assetID)

	p.mu.Lock()
	if p.gen != gen || p.session == nil {
		// The drawer moved on while the query was in flight.
		p.mu.Unlock()
		return
	}
	sess := p.session
	sess.task = nil

	if err != nil {
		// Poll failures are terminal for the session, never retried. The
		// caller keeps showing the last known state.
		sess.polling = false
		p.mu.Unlock()
		p.logger.Warn("thumbnail poll failed, stopping",
			logging.String(logging.FieldAssetID, assetID),
			logging.Error(err))
		return
	}

	var notifyRec *Record
	stop := false

	switch {
	case rec == nil || rec.AssetID != assetID:
		// Unknown asset or a response for somebody else. Counts toward the
		// not-queued limit so empty results don't loop forever.
		sess.emptyTicks++
		if sess.emptyTicks >= notQueuedTickLimit {
			stop = true
		}
	case rec.NotYetQueued():
		sess.emptyTicks++
		if changed(sess.last, *rec) {
			sess.last = *rec
			cp := *rec
			notifyRec = &cp
		}
		if sess.emptyTicks >= notQueuedTickLimit {
			stop = true
		}
	default:
		sess.emptyTicks = 0
		if changed(sess.last, *rec) {
			sess.last = *rec
			cp := *rec
			notifyRec = &cp
		}
		if rec.Terminal() {
			stop = true
		}
	}

	if !stop {
		if sess.attempt < len(backoffSchedule) {
			delay := backoffSchedule[sess.attempt]
			attempt := sess.attempt
			sess.attempt++
			sess.task = &scheduledTask{
				attempt: attempt,
				delay:   delay,
				timer:   p.newTimer(delay, func() { p.poll(gen) }),
			}
		} else {
			// Schedule exhausted: give up silently, keep the last state.
			stop = true
		}
	}
	if stop {
		sess.polling = false
	}
	p.mu.Unlock()

	if notifyRec != nil && p.notify != nil {
		p.notify(*notifyRec)
	}
}

// changed reports whether a response carries a propagation-worthy change
// relative to the last known record.
func changed(last, next Record) bool {
	return last.fingerprint() != next.fingerprint()
}
