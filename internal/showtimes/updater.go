// Package showtimes keeps every cached copy of a showtime in step when the user changes
// their going status, and rolls all of them back if the backend rejects the change.
package showtimes

import (
	"slices"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/querycache"
)

// Patch rewrites one showtime. It receives a copy and returns the new value.
type Patch func(internal.Showtime) internal.Showtime

// CacheUpdater is the one place that knows which cached queries embed showtimes:
// single movies, a movie's showtime list, paginated movie lists and paginated
// showtime feeds.
type CacheUpdater struct {
	cache *querycache.Cache
}

func NewCacheUpdater(cache *querycache.Cache) *CacheUpdater {
	return &CacheUpdater{cache: cache}
}

func (u *CacheUpdater) families() []querycache.Key {
	return []querycache.Key{keys.AllMovie(), keys.AllMovies(), keys.AllShowtimes()}
}

// Cancel aborts in-flight fetches that could overwrite an optimistic write.
func (u *CacheUpdater) Cancel() {
	for _, k := range u.families() {
		u.cache.CancelQueries(k)
	}
}

func (u *CacheUpdater) Snapshot() querycache.Snapshot {
	return u.cache.Snapshot(u.families()...)
}

func (u *CacheUpdater) Restore(snap querycache.Snapshot) {
	u.cache.Restore(snap)
}

// InvalidateAggregates marks the list queries stale. Their server-side ordering and
// friend counts may depend on the change.
func (u *CacheUpdater) InvalidateAggregates() {
	u.cache.InvalidateQueries(keys.AllMovies())
	u.cache.InvalidateQueries(keys.AllShowtimes())
}

// Apply patches every cached copy of the showtime and returns how many cached queries
// contained it. Values are copied before they change; cached values are never
// modified in place.
func (u *CacheUpdater) Apply(showtimeID int, patch Patch) int {
	var n int
	querycache.SetQueriesData(u.cache, keys.AllMovie(), func(_ querycache.Key, m internal.Movie) internal.Movie {
		next, ok := patchMovie(m, showtimeID, patch)
		if ok {
			n++
		}
		return next
	})
	querycache.SetQueriesData(u.cache, keys.AllMovie(), func(_ querycache.Key, list []internal.Showtime) []internal.Showtime {
		next, ok := patchList(list, showtimeID, patch)
		if ok {
			n++
		}
		return next
	})
	querycache.SetQueriesData(u.cache, keys.AllMovies(), func(_ querycache.Key, data internal.InfiniteData[internal.Movie]) internal.InfiniteData[internal.Movie] {
		next, ok := patchPages(data, func(page []internal.Movie) ([]internal.Movie, bool) {
			return patchMovies(page, showtimeID, patch)
		})
		if ok {
			n++
		}
		return next
	})
	querycache.SetQueriesData(u.cache, keys.AllShowtimes(), func(_ querycache.Key, data internal.InfiniteData[internal.Showtime]) internal.InfiniteData[internal.Showtime] {
		next, ok := patchPages(data, func(page []internal.Showtime) ([]internal.Showtime, bool) {
			return patchList(page, showtimeID, patch)
		})
		if ok {
			n++
		}
		return next
	})
	return n
}

func patchList(list []internal.Showtime, showtimeID int, patch Patch) ([]internal.Showtime, bool) {
	i := slices.IndexFunc(list, func(s internal.Showtime) bool { return s.ID == showtimeID })
	if i < 0 {
		return list, false
	}
	out := slices.Clone(list)
	out[i] = patch(out[i])
	return out, true
}

// patchMovie patches the embedded showtime and recomputes the derived Going flag.
func patchMovie(m internal.Movie, showtimeID int, patch Patch) (internal.Movie, bool) {
	showtimes, ok := patchList(m.Showtimes, showtimeID, patch)
	if !ok {
		return m, false
	}
	m.Showtimes = showtimes
	m.Going = slices.ContainsFunc(showtimes, func(s internal.Showtime) bool {
		return s.Going == internal.GoingStatusGoing
	})
	return m, true
}

func patchMovies(page []internal.Movie, showtimeID int, patch Patch) ([]internal.Movie, bool) {
	var out []internal.Movie
	for i, m := range page {
		next, ok := patchMovie(m, showtimeID, patch)
		if !ok {
			continue
		}
		if out == nil {
			out = slices.Clone(page)
		}
		out[i] = next
	}
	if out == nil {
		return page, false
	}
	return out, true
}

func patchPages[T any](data internal.InfiniteData[T], patchPage func([]T) ([]T, bool)) (internal.InfiniteData[T], bool) {
	var pages [][]T
	for i, page := range data.Pages {
		next, ok := patchPage(page)
		if !ok {
			continue
		}
		if pages == nil {
			pages = slices.Clone(data.Pages)
		}
		pages[i] = next
	}
	if pages == nil {
		return data, false
	}
	return internal.InfiniteData[T]{Pages: pages, PageParams: data.PageParams}, true
}

// StatusPatch sets the going status. Seats are only kept while the status is GOING.
func StatusPatch(update internal.StatusUpdate) Patch {
	return func(s internal.Showtime) internal.Showtime {
		s.Going = update.Going
		if update.Going == internal.GoingStatusGoing {
			s.SeatRow = update.SeatRow
			s.SeatNumber = update.SeatNumber
		} else {
			s.SeatRow = nil
			s.SeatNumber = nil
		}
		return s
	}
}

// ServerPatch replaces the cached showtime with the backend's record. The embedded movie
// summary is kept when the record omits it.
func ServerPatch(record internal.Showtime) Patch {
	return func(s internal.Showtime) internal.Showtime {
		if record.Movie == nil {
			record.Movie = s.Movie
		}
		return record
	}
}
