package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/querycache"
)

type WatchlistBackend interface {
	SyncWatchlist(ctx context.Context) error
}

type Watchlist struct {
	backend WatchlistBackend
	cache   *querycache.Cache
}

func NewWatchlist(backend WatchlistBackend, cache *querycache.Cache) *Watchlist {
	return &Watchlist{backend: backend, cache: cache}
}

// Sync asks the backend to re-import the watchlist. Watchlist-only lists change with it.
func (w *Watchlist) Sync(ctx context.Context) error {
	if err := w.backend.SyncWatchlist(ctx); err != nil {
		slog.Warn("sync-watchlist", "error", err)
		return fmt.Errorf("sync watchlist: %w", err)
	}
	w.cache.InvalidateQueries(keys.AllMovies())
	w.cache.InvalidateQueries(keys.AllShowtimes())
	return nil
}
