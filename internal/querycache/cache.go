// Package querycache is the process-wide cache of server state. Readers fetch through it;
// writers patch it explicitly with SetData/SetQueriesData and mark families stale with
// InvalidateQueries. Per key, the last write wins.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxEntries = 512
	DefaultGCTime     = 30 * time.Minute
	DefaultStaleTime  = time.Minute
)

var (
	// ErrCancelled is returned by a fetch whose query was cancelled before it resolved
	// and which has no newer data to return instead.
	ErrCancelled = errors.New("query cancelled")
	ErrWrongType = errors.New("cached data has a different type")
)

type entry struct {
	key         Key
	parts       []string
	data        any
	hasData     bool
	updatedAt   time.Time
	invalidated bool
	// generation is bumped whenever in-flight fetches must not land: on cancel,
	// removal and snapshot restore.
	generation   uint64
	cancel       context.CancelFunc
	fetchingNext bool
}

type Cache struct {
	mu        sync.Mutex
	entries   *expirable.LRU[string, *entry]
	flight    singleflight.Group
	staleTime time.Duration
	now       func() time.Time
}

type config struct {
	maxEntries int
	gcTime     time.Duration
	staleTime  time.Duration
	now        func() time.Time
}

type Option func(*config)

// WithMaxEntries bounds the number of cached queries (least recently used are dropped).
func WithMaxEntries(n int) Option {
	return func(c *config) { c.maxEntries = n }
}

// WithGCTime sets how long an entry lives after it was last written.
func WithGCTime(d time.Duration) Option {
	return func(c *config) { c.gcTime = d }
}

// WithStaleTime sets how long fetched data is served without refetching.
func WithStaleTime(d time.Duration) Option {
	return func(c *config) { c.staleTime = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

func New(opts ...Option) *Cache {
	cfg := config{
		maxEntries: DefaultMaxEntries,
		gcTime:     DefaultGCTime,
		staleTime:  DefaultStaleTime,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache{
		entries:   expirable.NewLRU[string, *entry](cfg.maxEntries, nil, cfg.gcTime),
		staleTime: cfg.staleTime,
		now:       cfg.now,
	}
}

// entryLocked returns the entry for key, creating an empty one when missing.
func (c *Cache) entryLocked(key Key) *entry {
	hash := key.Hash()
	if e, ok := c.entries.Get(hash); ok {
		return e
	}
	e := &entry{key: key, parts: key.parts()}
	c.entries.Add(hash, e)
	return e
}

func (c *Cache) peekLocked(key Key) (*entry, bool) {
	return c.entries.Peek(key.Hash())
}

func (c *Cache) matchingLocked(prefix Key) []*entry {
	want := prefix.parts()
	var out []*entry
	for _, e := range c.entries.Values() {
		if hasPrefix(e.parts, want) {
			out = append(out, e)
		}
	}
	return out
}

func (c *Cache) freshLocked(e *entry) bool {
	return e.hasData && !e.invalidated && c.now().Sub(e.updatedAt) < c.staleTime
}

func (c *Cache) writeLocked(e *entry, data any) {
	e.data = data
	e.hasData = true
	e.updatedAt = c.now()
	e.invalidated = false
	// Refresh the gc clock.
	c.entries.Add(e.key.Hash(), e)
}

// Fetch returns the cached value for key while it is fresh and otherwise calls fn.
// Concurrent fetches of one key share a single call. The shared call is detached from
// the callers' cancellation: a caller whose ctx ends stops waiting, and only
// CancelQueries or RemoveQueries abort the call itself. A cancelled fetch never writes
// its result.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	c.mu.Lock()
	e := c.entryLocked(key)
	if c.freshLocked(e) {
		data := e.data
		c.mu.Unlock()
		v, ok := data.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %s", ErrWrongType, key)
		}
		return v, nil
	}
	gen := e.generation
	c.mu.Unlock()

	flightKey := fmt.Sprintf("%s#%d", key.Hash(), gen)
	ch := c.flight.DoChan(flightKey, func() (any, error) {
		fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		c.mu.Lock()
		e := c.entryLocked(key)
		e.cancel = cancel
		c.mu.Unlock()

		v, err := fn(fetchCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		e = c.entryLocked(key)
		if e.generation != gen {
			slog.Debug("query-cache: dropping cancelled fetch", "key", key.String())
			if e.hasData {
				return e.data, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrCancelled, key)
		}
		e.cancel = nil
		if err != nil {
			return nil, err
		}
		c.writeLocked(e, v)
		return v, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	v, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrWrongType, key)
	}
	return v, nil
}

// GetData returns the cached value for key regardless of freshness.
func GetData[T any](c *Cache, key Key) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.peekLocked(key)
	if !ok || !e.hasData {
		return zero, false
	}
	v, ok := e.data.(T)
	return v, ok
}

// SetData overwrites the cached value for key.
func SetData[T any](c *Cache, key Key, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLocked(c.entryLocked(key), v)
}

// SetQueriesData rewrites every cached value under prefix that holds a T. Entries of
// other types sharing the prefix are left alone. It returns how many entries changed.
// update must not modify its argument in place: snapshots share the old value.
func SetQueriesData[T any](c *Cache, prefix Key, update func(key Key, old T) T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, e := range c.matchingLocked(prefix) {
		if !e.hasData {
			continue
		}
		old, ok := e.data.(T)
		if !ok {
			continue
		}
		e.data = update(e.key, old)
		n++
	}
	return n
}

// InvalidateQueries marks every entry under prefix stale so the next Fetch refetches.
func (c *Cache) InvalidateQueries(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	matched := c.matchingLocked(prefix)
	for _, e := range matched {
		e.invalidated = true
	}
	slog.Debug("query-cache: invalidate", "prefix", prefix.String(), "entries", len(matched))
	return len(matched)
}

// CancelQueries aborts in-flight fetches under prefix. Their results are discarded.
func (c *Cache) CancelQueries(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.matchingLocked(prefix) {
		c.cancelLocked(e)
	}
}

func (c *Cache) cancelLocked(e *entry) {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	e.fetchingNext = false
}

// RemoveQueries cancels and drops every entry under prefix.
func (c *Cache) RemoveQueries(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.matchingLocked(prefix) {
		c.cancelLocked(e)
		c.entries.Remove(e.key.Hash())
	}
}

// State describes one entry for observers.
type State struct {
	HasData            bool
	Invalidated        bool
	Fetching           bool
	IsFetchingNextPage bool
	UpdatedAt          time.Time
}

func (c *Cache) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.peekLocked(key)
	if !ok {
		return State{}
	}
	return State{
		HasData:            e.hasData,
		Invalidated:        e.invalidated,
		Fetching:           e.cancel != nil,
		IsFetchingNextPage: e.fetchingNext,
		UpdatedAt:          e.updatedAt,
	}
}

// Keys lists the cached keys under prefix.
func (c *Cache) Keys(prefix Key) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	matched := c.matchingLocked(prefix)
	out := make([]Key, len(matched))
	for i, e := range matched {
		out[i] = e.key
	}
	return out
}

type snapshotItem struct {
	key     Key
	data    any
	hasData bool
}

// Snapshot records the current values under one or more prefixes for a later Restore.
type Snapshot struct {
	items []snapshotItem
}

func (s Snapshot) Len() int { return len(s.items) }

func (c *Cache) Snapshot(prefixes ...Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool)
	var snap Snapshot
	for _, prefix := range prefixes {
		for _, e := range c.matchingLocked(prefix) {
			hash := e.key.Hash()
			if seen[hash] {
				continue
			}
			seen[hash] = true
			snap.items = append(snap.items, snapshotItem{key: e.key, data: e.data, hasData: e.hasData})
		}
	}
	return snap
}

// Restore puts every snapshotted value back exactly, discarding in-flight fetches.
func (c *Cache) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range snap.items {
		e := c.entryLocked(item.key)
		c.cancelLocked(e)
		e.data = item.data
		e.hasData = item.hasData
	}
}
