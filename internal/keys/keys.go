// Package keys builds the composite query-cache keys. Every cache read and write goes
// through these constructors so that invalidation prefixes always line up.
package keys

import (
	"slices"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/querycache"
)

const (
	ScopeMe   = "me"
	ScopeUser = "user"
)

// Cinema ids are sorted copies so the same selection always hashes the same.
func cinemaIDs(ids []int) []int {
	out := append([]int{}, ids...)
	slices.Sort(out)
	return slices.Compact(out)
}

// AllMovie matches every single-movie entry.
func AllMovie() querycache.Key { return querycache.Key{"movie"} }

// MovieFamily matches every entry of one movie: detail and showtime list.
func MovieFamily(movieID int) querycache.Key { return querycache.Key{"movie", movieID} }

func Movie(movieID int, selectedCinemaIDs []int) querycache.Key {
	return querycache.Key{"movie", movieID, cinemaIDs(selectedCinemaIDs)}
}

func MovieShowtimes(movieID int) querycache.Key {
	return querycache.Key{"movie", movieID, "showtimes"}
}

// MovieShowtimesFor is one filtered showtime list of a movie, under MovieShowtimes.
func MovieShowtimesFor(movieID int, filters internal.FilterPayload) querycache.Key {
	return append(MovieShowtimes(movieID), normalize(filters))
}

func AllMovies() querycache.Key { return querycache.Key{"movies"} }

func Movies(filters internal.FilterPayload) querycache.Key {
	return querycache.Key{"movies", normalize(filters)}
}

func AllShowtimes() querycache.Key { return querycache.Key{"showtimes"} }

func MyShowtimes(filters internal.FilterPayload) querycache.Key {
	return querycache.Key{"showtimes", ScopeMe, normalize(filters)}
}

func UserShowtimes(userID int, filters internal.FilterPayload) querycache.Key {
	return querycache.Key{"showtimes", ScopeUser, userID, normalize(filters)}
}

func CinemaSelections() querycache.Key { return querycache.Key{"user", "cinema_selections"} }

func FilterPresets(scope string) querycache.Key { return querycache.Key{"filter-presets", scope} }

func AllFilterPresets() querycache.Key { return querycache.Key{"filter-presets"} }

func CinemaPresets() querycache.Key { return querycache.Key{"cinema-presets"} }

func Cinemas() querycache.Key { return querycache.Key{"cinemas"} }

func Friends() querycache.Key { return querycache.Key{"friends"} }

const (
	RequestsReceived = "received"
	RequestsSent     = "sent"
)

func FriendRequests(direction string) querycache.Key {
	return querycache.Key{"friend-requests", direction}
}

func AllFriendRequests() querycache.Key { return querycache.Key{"friend-requests"} }

func Users(query string) querycache.Key { return querycache.Key{"users", query} }

func AllUsers() querycache.Key { return querycache.Key{"users"} }

// normalize makes equal selections produce equal keys regardless of input order. Day
// tokens are compared as given: callers pass them through days.Canonicalize first so a
// date and the relative token for it do not split one query into two entries.
func normalize(f internal.FilterPayload) internal.FilterPayload {
	f.CinemaIDs = cinemaIDs(f.CinemaIDs)
	if len(f.CinemaIDs) == 0 {
		f.CinemaIDs = nil
	}
	if len(f.Days) == 0 {
		f.Days = nil
	} else {
		f.Days = slices.Clone(f.Days)
		slices.Sort(f.Days)
		f.Days = slices.Compact(f.Days)
	}
	if len(f.TimeRanges) > 1 {
		f.TimeRanges = f.TimeRanges[:1]
	}
	if len(f.TimeRanges) == 0 {
		f.TimeRanges = nil
	}
	return f
}
