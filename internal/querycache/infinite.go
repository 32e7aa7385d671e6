package querycache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drewfead/moviebuddy/internal"
)

// PageFetcher loads one page of at most limit items starting at offset.
type PageFetcher[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Infinite is an offset-paginated query whose pages accumulate under one key as
// internal.InfiniteData[T]. A short page means there is no next page.
type Infinite[T any] struct {
	cache *Cache
	key   Key
	limit int
	fetch PageFetcher[T]
}

func NewInfinite[T any](c *Cache, key Key, limit int, fetch PageFetcher[T]) *Infinite[T] {
	if limit <= 0 {
		limit = 20
	}
	return &Infinite[T]{cache: c, key: key, limit: limit, fetch: fetch}
}

func (q *Infinite[T]) Key() Key { return q.key }

func (q *Infinite[T]) Data() (internal.InfiniteData[T], bool) {
	return GetData[internal.InfiniteData[T]](q.cache, q.key)
}

func (q *Infinite[T]) nextOffset(data internal.InfiniteData[T]) (int, bool) {
	if len(data.Pages) == 0 {
		return 0, true
	}
	last := data.Pages[len(data.Pages)-1]
	if len(last) < q.limit {
		return 0, false
	}
	return data.PageParams[len(data.PageParams)-1] + len(last), true
}

// HasNextPage is false until the first page is loaded and after a short page.
func (q *Infinite[T]) HasNextPage() bool {
	data, ok := q.Data()
	if !ok {
		return false
	}
	_, more := q.nextOffset(data)
	return more
}

func (q *Infinite[T]) IsFetchingNextPage() bool {
	return q.cache.State(q.key).IsFetchingNextPage
}

// FetchFirst loads the first page unless fresh pages are already cached.
func (q *Infinite[T]) FetchFirst(ctx context.Context) (internal.InfiniteData[T], error) {
	return Fetch(ctx, q.cache, q.key, func(ctx context.Context) (internal.InfiniteData[T], error) {
		page, err := q.fetch(ctx, 0, q.limit)
		if err != nil {
			return internal.InfiniteData[T]{}, err
		}
		return internal.InfiniteData[T]{Pages: [][]T{page}, PageParams: []int{0}}, nil
	})
}

// FetchNextPage appends the next page. It is a no-op while another next-page fetch of
// the same key is in flight or when no next page exists. The returned bool reports
// whether a page was requested.
func (q *Infinite[T]) FetchNextPage(ctx context.Context) (internal.InfiniteData[T], bool, error) {
	c := q.cache
	c.mu.Lock()
	e := c.entryLocked(q.key)
	if !e.hasData {
		c.mu.Unlock()
		data, err := q.FetchFirst(ctx)
		return data, err == nil, err
	}
	current, ok := e.data.(internal.InfiniteData[T])
	if !ok {
		c.mu.Unlock()
		return internal.InfiniteData[T]{}, false, fmt.Errorf("%w: %s", ErrWrongType, q.key)
	}
	offset, more := q.nextOffset(current)
	if e.fetchingNext || !more {
		c.mu.Unlock()
		return current, false, nil
	}
	e.fetchingNext = true
	gen := e.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cancel = cancel
	c.mu.Unlock()

	page, err := q.fetch(fetchCtx, offset, q.limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	e = c.entryLocked(q.key)
	if e.generation != gen {
		slog.Debug("query-cache: dropping cancelled page", "key", q.key.String(), "offset", offset)
		latest, _ := e.data.(internal.InfiniteData[T])
		return latest, true, fmt.Errorf("%w: %s", ErrCancelled, q.key)
	}
	e.fetchingNext = false
	e.cancel = nil
	if err != nil {
		return current, true, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}
	// Append to whatever is cached now so patches made while the page was loading survive.
	latest, _ := e.data.(internal.InfiniteData[T])
	next := internal.InfiniteData[T]{
		Pages:      append(append(make([][]T, 0, len(latest.Pages)+1), latest.Pages...), page),
		PageParams: append(append(make([]int, 0, len(latest.PageParams)+1), latest.PageParams...), offset),
	}
	invalidated := e.invalidated
	c.writeLocked(e, next)
	e.invalidated = invalidated
	return next, true, nil
}
