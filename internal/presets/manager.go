package presets

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Manager owns the display order of one preset list. The stored order is read once and
// reconciled whenever the live set is applied: stale ids are dropped and new ids are
// appended in the order they are displayed. Writes happen in the background so that
// displaying presets never waits on storage.
type Manager struct {
	store *OrderStore
	key   string

	mu        sync.Mutex
	loaded    bool
	order     []int
	displayed []int
	version   int

	writeMu sync.Mutex
	written int
	pending sync.WaitGroup
}

func NewManager(store *OrderStore, key string) *Manager {
	return &Manager{store: store, key: key}
}

func (m *Manager) load(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	ids, err := m.store.Load(ctx, m.key)
	if err != nil {
		return err
	}
	m.order = ids
	m.loaded = true
	return nil
}

// Apply sorts the live presets by the managed order.
func Apply[P Preset](ctx context.Context, m *Manager, live []P) ([]P, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return nil, err
	}
	shown := SortByOrder(live, m.order)
	shownIDs := make([]int, len(shown))
	for i, p := range shown {
		shownIDs[i] = p.PresetID()
	}
	if reconciled, changed := Reconcile(m.order, shownIDs); changed {
		slog.Debug("reconcile-preset-order", "key", m.key, "before", len(m.order), "after", len(reconciled))
		m.order = reconciled
		m.persistLocked(ctx)
	}

	sorted := SortByOrder(live, m.order)
	m.displayed = m.displayed[:0]
	for _, p := range sorted {
		m.displayed = append(m.displayed, p.PresetID())
	}
	return sorted, nil
}

// Order is the current stored order.
func (m *Manager) Order() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

// SetOrder replaces the order with ids, as after a drag-and-drop.
func (m *Manager) SetOrder(ctx context.Context, ids []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return err
	}
	m.order = SanitizeOrderIDs(ids)
	m.persistLocked(ctx)
	return nil
}

// Move shifts a displayed preset by delta positions, clamped to the list bounds.
func (m *Manager) Move(ctx context.Context, id, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return err
	}
	full, _ := Reconcile(m.order, m.displayed)
	from := slices.Index(full, id)
	if from < 0 {
		return fmt.Errorf("preset %d is not displayed", id)
	}
	to := min(max(from+delta, 0), len(full)-1)
	full = slices.Delete(full, from, from+1)
	full = slices.Insert(full, to, id)
	m.order = full
	m.persistLocked(ctx)
	return nil
}

func (m *Manager) persistLocked(ctx context.Context) {
	m.version++
	version := m.version
	ids := slices.Clone(m.order)
	ctx = context.WithoutCancel(ctx)

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		m.writeMu.Lock()
		defer m.writeMu.Unlock()
		if version < m.written {
			return
		}
		if err := m.store.Save(ctx, m.key, ids); err != nil {
			slog.Warn("persist-preset-order", "key", m.key, "error", err)
			return
		}
		m.written = version
	}()
}

// Flush waits for background writes to finish.
func (m *Manager) Flush() {
	m.pending.Wait()
}
