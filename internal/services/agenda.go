package services

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/drewfead/moviebuddy/internal"
)

const agendaConcurrency = 4

// AgendaBackend is what the agenda reads: my plans, my friends and their plans.
type AgendaBackend interface {
	ListMyShowtimes(ctx context.Context, query internal.ShowtimesQuery) ([]internal.Showtime, error)
	ListFriends(ctx context.Context) ([]internal.User, error)
	ListUserShowtimes(ctx context.Context, userID int, query internal.ShowtimesQuery) ([]internal.Showtime, error)
}

// AgendaEntry is one showtime in somebody's plans.
type AgendaEntry struct {
	Owner    internal.User     `json:"owner" yaml:"owner"`
	Mine     bool              `json:"mine" yaml:"mine"`
	Showtime internal.Showtime `json:"showtime" yaml:"showtime"`
}

// AgendaSource is one person's plans, ordered by start time.
type AgendaSource struct {
	Owner     internal.User
	Mine      bool
	Showtimes []internal.Showtime
}

type Agenda struct {
	backend AgendaBackend
}

func NewAgenda(backend AgendaBackend) *Agenda {
	return &Agenda{backend: backend}
}

// Build fetches my plans and every friend's plans in parallel and merges them by start
// time. A friend whose plans cannot be loaded is skipped; failing to load my own plans
// or the friend list fails the whole agenda.
func (a *Agenda) Build(ctx context.Context, me internal.User, query internal.ShowtimesQuery, limit int) ([]AgendaEntry, error) {
	friends, err := a.backend.ListFriends(ctx)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}

	sources := make([]AgendaSource, len(friends)+1)
	sources[0] = AgendaSource{Owner: me, Mine: true}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(agendaConcurrency)
	g.Go(func() error {
		mine, err := a.backend.ListMyShowtimes(gctx, query)
		if err != nil {
			return fmt.Errorf("list my showtimes: %w", err)
		}
		sources[0].Showtimes = mine
		return nil
	})
	for i, friend := range friends {
		sources[i+1] = AgendaSource{Owner: friend}
		g.Go(func() error {
			plans, err := a.backend.ListUserShowtimes(gctx, friend.ID, query)
			if err != nil {
				slog.Warn("agenda: friend plans failed", "user_id", friend.ID, "error", err)
				return nil
			}
			sources[i+1].Showtimes = plans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	entries := MergeAgenda(limit, sources...)
	slog.Debug("build-agenda", "sources", len(sources), "entries", len(entries))
	return entries, nil
}

// MergeAgenda does a k-way merge of the sources by start time. Equal start times keep
// source order. limit <= 0 means no limit.
func MergeAgenda(limit int, sources ...AgendaSource) []AgendaEntry {
	if limit <= 0 {
		limit = 1<<31 - 1
	}
	h := &mergeHeap{sources: sources, next: make([]int, len(sources))}
	for i, s := range sources {
		if len(s.Showtimes) > 0 {
			h.indices = append(h.indices, i)
		}
	}
	heap.Init(h)

	var out []AgendaEntry
	for h.Len() > 0 && len(out) < limit {
		i := heap.Pop(h).(int)
		src := sources[i]
		out = append(out, AgendaEntry{Owner: src.Owner, Mine: src.Mine, Showtime: src.Showtimes[h.next[i]]})
		h.next[i]++
		if h.next[i] < len(src.Showtimes) {
			heap.Push(h, i)
		}
	}
	return out
}

// mergeHeap is a min-heap of source indices ordered by the start time of each source's
// next showtime.
type mergeHeap struct {
	indices []int
	sources []AgendaSource
	next    []int
}

func (h *mergeHeap) head(i int) internal.Showtime {
	return h.sources[i].Showtimes[h.next[i]]
}

func (h *mergeHeap) Len() int {
	return len(h.indices)
}

func (h *mergeHeap) Less(i, j int) bool {
	a, b := h.indices[i], h.indices[j]
	ta, tb := h.head(a).Datetime, h.head(b).Datetime
	if ta.Equal(tb) {
		return a < b
	}
	return ta.Before(tb)
}

func (h *mergeHeap) Swap(i, j int) {
	h.indices[i], h.indices[j] = h.indices[j], h.indices[i]
}

func (h *mergeHeap) Push(x any) {
	h.indices = append(h.indices, x.(int))
}

func (h *mergeHeap) Pop() any {
	n := len(h.indices) - 1
	out := h.indices[n]
	h.indices = h.indices[:n]
	return out
}
