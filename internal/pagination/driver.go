// Package pagination drives an infinite-scroll list: it loads the next page when the
// end of the list becomes visible and pins every page to one snapshot time so rows do
// not shift between pages while the data changes underneath.
package pagination

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/querycache"
)

// PageLoader fetches one page. The request carries the driver's snapshot time.
type PageLoader[T any] func(ctx context.Context, page internal.PageRequest) ([]T, error)

type Driver[T any] struct {
	cache *querycache.Cache
	key   querycache.Key
	limit int
	load  PageLoader[T]
	now   func() time.Time

	mu       sync.Mutex
	snapshot time.Time
	query    *querycache.Infinite[T]
}

type Option func(*config)

type config struct {
	now func() time.Time
}

func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// New captures the snapshot time. Nothing is fetched until FetchFirst or OnSentinel.
func New[T any](cache *querycache.Cache, key querycache.Key, limit int, load PageLoader[T], opts ...Option) *Driver[T] {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	d := &Driver[T]{cache: cache, key: key, limit: limit, load: load, now: cfg.now}
	d.reset()
	return d
}

func (d *Driver[T]) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	snapshot := d.now().UTC()
	d.snapshot = snapshot
	d.query = querycache.NewInfinite(d.cache, d.key, d.limit, func(ctx context.Context, offset, limit int) ([]T, error) {
		return d.load(ctx, internal.PageRequest{Limit: limit, Offset: offset, SnapshotTime: snapshot})
	})
}

func (d *Driver[T]) current() *querycache.Infinite[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

func (d *Driver[T]) Snapshot() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot
}

func (d *Driver[T]) FetchFirst(ctx context.Context) ([]T, error) {
	data, err := d.current().FetchFirst(ctx)
	if err != nil {
		return nil, err
	}
	return data.Flatten(), nil
}

// OnSentinel is called when the end-of-list marker's visibility changes. It requests the
// next page only when the marker is visible, a next page exists and no next-page fetch
// is already running, and reports whether it did.
func (d *Driver[T]) OnSentinel(ctx context.Context, visible bool) (bool, error) {
	q := d.current()
	if !visible || !q.HasNextPage() || q.IsFetchingNextPage() {
		return false, nil
	}
	_, fetched, err := q.FetchNextPage(ctx)
	if err != nil {
		slog.Warn("fetch-next-page", "key", d.key.String(), "error", err)
	}
	return fetched, err
}

// Refresh drops every loaded page, takes a new snapshot time and loads page one.
func (d *Driver[T]) Refresh(ctx context.Context) ([]T, error) {
	d.cache.RemoveQueries(d.key)
	d.reset()
	return d.FetchFirst(ctx)
}

func (d *Driver[T]) HasNextPage() bool {
	return d.current().HasNextPage()
}

func (d *Driver[T]) IsFetchingNextPage() bool {
	return d.current().IsFetchingNextPage()
}

// Items is every loaded row in page order.
func (d *Driver[T]) Items() []T {
	data, ok := d.current().Data()
	if !ok {
		return nil
	}
	return data.Flatten()
}
