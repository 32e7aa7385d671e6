package showtimes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/drewfead/moviebuddy/internal"
)

type State uint8

const (
	StateIdle State = iota
	StatePending
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// StatusMutation changes a showtime's going status optimistically. While the request is
// pending every cached copy already shows the new status; a failure restores them all
// exactly as they were.
type StatusMutation struct {
	backend  internal.ShowtimesService
	updater  *CacheUpdater
	selected *Selected

	mu    sync.Mutex
	state State
	err   error
}

type MutationOption func(*StatusMutation)

// WithSelected keeps a detail view's showtime in step with the mutation.
func WithSelected(s *Selected) MutationOption {
	return func(m *StatusMutation) {
		m.selected = s
	}
}

func NewStatusMutation(backend internal.ShowtimesService, updater *CacheUpdater, opts ...MutationOption) *StatusMutation {
	m := &StatusMutation{backend: backend, updater: updater, selected: &Selected{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *StatusMutation) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.err
}

func (m *StatusMutation) setState(s State, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.err = err
}

// Do sends the status change. Aggregate lists are invalidated once it settles, whatever
// the outcome.
func (m *StatusMutation) Do(ctx context.Context, showtimeID int, update internal.StatusUpdate) (internal.Showtime, error) {
	if !update.Going.Valid() {
		return internal.Showtime{}, fmt.Errorf("unknown going status %q", update.Going)
	}
	if update.Going != internal.GoingStatusGoing {
		update.SeatRow = nil
		update.SeatNumber = nil
	}

	m.setState(StatePending, nil)
	m.updater.Cancel()
	snap := m.updater.Snapshot()
	optimistic := StatusPatch(update)
	touched := m.updater.Apply(showtimeID, optimistic)
	prevSelected, hadSelected := m.selected.patch(showtimeID, optimistic)
	slog.Debug("update-showtime-status", "showtime_id", showtimeID, "going", update.Going, "cached_queries", touched)

	defer m.updater.InvalidateAggregates()

	record, err := m.backend.UpdateStatus(ctx, showtimeID, update)
	if err != nil {
		m.updater.Restore(snap)
		if hadSelected {
			m.selected.restore(prevSelected)
		}
		slog.Warn("update-showtime-status", "showtime_id", showtimeID, "going", update.Going, "error", err)
		err = fmt.Errorf("update showtime %d: %w", showtimeID, err)
		m.setState(StateError, err)
		return internal.Showtime{}, err
	}

	confirmed := ServerPatch(record)
	m.updater.Apply(showtimeID, confirmed)
	m.selected.patch(showtimeID, confirmed)
	m.setState(StateSuccess, nil)
	return record, nil
}
