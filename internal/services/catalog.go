package services

import (
	"context"
	"fmt"
	"time"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/days"
	"github.com/drewfead/moviebuddy/internal/filters"
	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/pagination"
	"github.com/drewfead/moviebuddy/internal/querycache"
	"github.com/drewfead/moviebuddy/internal/showtimes"
)

const (
	DefaultPageSize      = 20
	DefaultShowtimeLimit = 3
)

type CatalogBackend interface {
	internal.MoviesService
	internal.ShowtimesService
	ListMyShowtimes(ctx context.Context, query internal.ShowtimesQuery) ([]internal.Showtime, error)
	ListUserShowtimes(ctx context.Context, userID int, query internal.ShowtimesQuery) ([]internal.Showtime, error)
}

// Catalog reads movies and showtimes through the query cache and changes going status
// optimistically.
type Catalog struct {
	backend  CatalogBackend
	cache    *querycache.Cache
	mutation *showtimes.StatusMutation
	selected *showtimes.Selected

	now      func() time.Time
	zone     string
	pageSize int
	horizon  int
}

type CatalogOption func(*Catalog)

func WithCatalogClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) {
		c.now = now
	}
}

// WithZone sets the timezone that day tokens are resolved in.
func WithZone(zone string) CatalogOption {
	return func(c *Catalog) {
		c.zone = zone
	}
}

func WithPageSize(n int) CatalogOption {
	return func(c *Catalog) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithHorizon sets how many days ahead weekday tokens expand.
func WithHorizon(n int) CatalogOption {
	return func(c *Catalog) {
		if n > 0 {
			c.horizon = n
		}
	}
}

func NewCatalog(backend CatalogBackend, cache *querycache.Cache, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		backend:  backend,
		cache:    cache,
		selected: &showtimes.Selected{},
		now:      time.Now,
		zone:     days.DefaultZone,
		pageSize: DefaultPageSize,
		horizon:  days.DefaultHorizon,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mutation = showtimes.NewStatusMutation(backend, showtimes.NewCacheUpdater(cache), showtimes.WithSelected(c.selected))
	return c
}

func (c *Catalog) query(screen filters.Screen, p internal.FilterPayload, page internal.PageRequest) internal.MoviesQuery {
	anchor := days.Anchor(c.now(), c.zone)
	q := filters.Build(screen, p, anchor, page.SnapshotTime, days.WithHorizon(c.horizon))
	q.Page = page
	return q
}

// selection keeps the fields a screen applies and canonicalizes the day tokens, so that
// the same days chosen two ways share one cache entry.
func (c *Catalog) selection(screen filters.Screen, p internal.FilterPayload) internal.FilterPayload {
	p = screen.Apply(p)
	if len(p.Days) > 0 {
		p.Days = days.Canonicalize(p.Days, days.Anchor(c.now(), c.zone))
	}
	return p
}

// Movies is the paginated movie list for a filter selection.
func (c *Catalog) Movies(p internal.FilterPayload) *pagination.Driver[internal.Movie] {
	p = c.selection(filters.MoviesList, p)
	return pagination.New(c.cache, keys.Movies(p), c.pageSize, func(ctx context.Context, page internal.PageRequest) ([]internal.Movie, error) {
		q := c.query(filters.MoviesList, p, page)
		q.ShowtimeLimit = DefaultShowtimeLimit
		return c.backend.ListMovies(ctx, q)
	}, pagination.WithClock(c.now))
}

// MyShowtimes is the paginated feed of showtimes I picked a status for.
func (c *Catalog) MyShowtimes(p internal.FilterPayload) *pagination.Driver[internal.Showtime] {
	p = c.selection(filters.ShowtimeFeed, p)
	return pagination.New(c.cache, keys.MyShowtimes(p), c.pageSize, func(ctx context.Context, page internal.PageRequest) ([]internal.Showtime, error) {
		return c.backend.ListMyShowtimes(ctx, c.query(filters.ShowtimeFeed, p, page).ShowtimesQuery)
	}, pagination.WithClock(c.now))
}

// UserShowtimes is another user's feed; the backend only serves it for friends.
func (c *Catalog) UserShowtimes(userID int, p internal.FilterPayload) *pagination.Driver[internal.Showtime] {
	p = c.selection(filters.UserAgenda, p)
	return pagination.New(c.cache, keys.UserShowtimes(userID, p), c.pageSize, func(ctx context.Context, page internal.PageRequest) ([]internal.Showtime, error) {
		return c.backend.ListUserShowtimes(ctx, userID, c.query(filters.UserAgenda, p, page).ShowtimesQuery)
	}, pagination.WithClock(c.now))
}

// AgendaQuery resolves a selection for the agenda screen, which reads unpaginated lists.
func (c *Catalog) AgendaQuery(p internal.FilterPayload) internal.ShowtimesQuery {
	return c.query(filters.UserAgenda, p, internal.PageRequest{SnapshotTime: c.now().UTC()}).ShowtimesQuery
}

func (c *Catalog) Movie(ctx context.Context, movieID int, cinemaIDs []int) (internal.Movie, error) {
	m, err := querycache.Fetch(ctx, c.cache, keys.Movie(movieID, cinemaIDs), func(ctx context.Context) (internal.Movie, error) {
		return c.backend.GetMovie(ctx, movieID, cinemaIDs)
	})
	if err != nil {
		return internal.Movie{}, fmt.Errorf("get movie %d: %w", movieID, err)
	}
	return m, nil
}

// MovieShowtimes lists every showtime of a movie matching the detail screen's filters.
func (c *Catalog) MovieShowtimes(ctx context.Context, movieID int, p internal.FilterPayload) ([]internal.Showtime, error) {
	p = c.selection(filters.MovieDetail, p)
	list, err := querycache.Fetch(ctx, c.cache, keys.MovieShowtimesFor(movieID, p), func(ctx context.Context) ([]internal.Showtime, error) {
		q := c.query(filters.MovieDetail, p, internal.PageRequest{SnapshotTime: c.now().UTC()})
		return c.backend.GetMovieShowtimes(ctx, movieID, q.ShowtimesQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("get movie %d showtimes: %w", movieID, err)
	}
	return list, nil
}

// Select marks the showtime a detail view is showing so status changes reach it too.
func (c *Catalog) Select(st internal.Showtime) {
	c.selected.Select(st)
}

func (c *Catalog) Selected() (internal.Showtime, bool) {
	return c.selected.Current()
}

// SetStatus changes my going status for a showtime. Every cached copy shows the change
// at once and is rolled back if the backend rejects it.
func (c *Catalog) SetStatus(ctx context.Context, showtimeID int, update internal.StatusUpdate) (internal.Showtime, error) {
	return c.mutation.Do(ctx, showtimeID, update)
}

func (c *Catalog) MutationState() (showtimes.State, error) {
	return c.mutation.State()
}
