// Package filters describes which filters each screen offers and turns a filter selection
// into a backend query.
package filters

import (
	"time"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/days"
	"github.com/drewfead/moviebuddy/internal/timerange"
)

// Screen lists the filters that apply on one screen. Scope is the preset scope that
// the screen's saved filters live under.
type Screen struct {
	Name          string
	Scope         string
	Cinemas       bool
	Days          bool
	TimeRanges    bool
	Status        bool
	WatchlistOnly bool
	Query         bool
}

var (
	MoviesList = Screen{
		Name: "movies", Scope: "movies",
		Cinemas: true, Days: true, TimeRanges: true, WatchlistOnly: true, Query: true,
	}
	ShowtimeFeed = Screen{
		Name: "showtimes", Scope: "showtimes",
		Cinemas: true, Days: true, TimeRanges: true, Status: true, WatchlistOnly: true,
	}
	MovieDetail = Screen{
		Name: "movie", Scope: "movie",
		Cinemas: true, Days: true, TimeRanges: true,
	}
	UserAgenda = Screen{
		Name: "agenda", Scope: "agenda",
		Cinemas: true, Days: true, TimeRanges: true, Status: true,
	}
)

func Screens() []Screen {
	return []Screen{MoviesList, ShowtimeFeed, MovieDetail, UserAgenda}
}

// Lookup finds a screen by name.
func Lookup(name string) (Screen, bool) {
	for _, s := range Screens() {
		if s.Name == name {
			return s, true
		}
	}
	return Screen{}, false
}

// Apply clears the fields of p that do not apply on the screen.
func (s Screen) Apply(p internal.FilterPayload) internal.FilterPayload {
	if !s.Cinemas {
		p.CinemaIDs = nil
	}
	if !s.Days {
		p.Days = nil
	}
	if !s.TimeRanges {
		p.TimeRanges = nil
	}
	if !s.Status {
		p.Status = internal.GoingStatusUnset
	}
	if !s.WatchlistOnly {
		p.WatchlistOnly = false
	}
	if !s.Query {
		p.Query = ""
	}
	return p
}

// Build resolves a selection into a query. Day tokens become concrete dates relative to
// anchor and only the first time range is used. Filters with no selection stay empty so
// they are left out of the request. The page window is the caller's to fill in.
func Build(s Screen, p internal.FilterPayload, anchor, snapshot time.Time, opts ...days.Option) internal.MoviesQuery {
	p = s.Apply(p)
	tr := timerange.First(p.TimeRanges)
	q := internal.MoviesQuery{
		ShowtimesQuery: internal.ShowtimesQuery{
			Page:          internal.PageRequest{SnapshotTime: snapshot},
			Days:          days.ResolveForAPI(p.Days, anchor, opts...),
			TimeMin:       tr.Start,
			TimeMax:       tr.End,
			Status:        p.Status,
			WatchlistOnly: p.WatchlistOnly,
		},
		Query: p.Query,
	}
	if len(p.CinemaIDs) > 0 {
		q.CinemaIDs = append([]int{}, p.CinemaIDs...)
	}
	return q
}
