package uploads

import (
	"time"

	"lightbox/internal/metadata"
)

// BatchSnapshot is the persistable view of a batch. File paths are part of
// the in-memory state only; a snapshot loaded from the store always comes
// back with empty FilePath fields.
type BatchSnapshot struct {
	ID        string
	Context   Context
	Finalized bool
	Global    map[string]string
	Events    []Warning
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot captures the batch state for persistence.
func (m *Manager) Snapshot() *BatchSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	global := make(map[string]string, len(m.global))
	for k, v := range m.global {
		global[k] = v
	}
	events := make([]Warning, len(m.events))
	copy(events, m.events)
	items := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, copyItem(item))
	}
	return &BatchSnapshot{
		ID:        m.id,
		Context:   m.batchCtx,
		Finalized: m.finalized,
		Global:    global,
		Events:    events,
		Items:     items,
		CreatedAt: m.createdAt,
		UpdatedAt: m.now().UTC(),
	}
}

// Restore rebuilds a manager from a snapshot. Interrupted uploads come back
// as failed since their transfer died with the process; item identifiers and
// metadata survive unchanged. The caller supplies fields refetched for the
// snapshot's category.
func Restore(snap *BatchSnapshot, fields metadata.FieldSet, opts ...ManagerOption) *Manager {
	opts = append(opts, withIdentity(snap.ID, snap.CreatedAt))
	m := NewManager(snap.Context, fields, opts...)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finalized = snap.Finalized
	for k, v := range snap.Global {
		m.global[k] = v
	}
	m.events = append(m.events[:0], snap.Events...)
	for i := range snap.Items {
		restored := copyItem(&snap.Items[i])
		if restored.Status == StatusUploading {
			restored.SetFailed(&Error{
				Message: "the upload was interrupted; retry to resume",
				Kind:    ErrKindUnknown,
			})
		}
		item := restored
		m.items = append(m.items, &item)
		m.byID[item.ID] = &item
	}
	return m
}

func withIdentity(id string, createdAt time.Time) ManagerOption {
	return func(m *Manager) {
		if id != "" {
			m.id = id
		}
		if !createdAt.IsZero() {
			m.createdAt = createdAt
		}
	}
}
