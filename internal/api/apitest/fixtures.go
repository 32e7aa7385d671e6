package apitest

import (
	"context"
	"slices"

	"github.com/drewfead/moviebuddy/internal"
)

func withUser(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

func currentUser(ctx context.Context) int {
	id, _ := ctx.Value(userKey{}).(int)
	return id
}

func key(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// AddUser registers a user who can log in with password.
func (b *Backend) AddUser(u internal.User, username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[u.ID] = u
	b.passwords[username+"\x00"+password] = u.ID
}

func (b *Backend) AddCinema(c internal.Cinema) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cinemas = append(b.cinemas, c)
}

// AddMovie stores the movie's metadata. Its showtimes are added with AddShowtime.
func (b *Backend) AddMovie(m internal.Movie) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m.Showtimes = nil
	b.movies[m.ID] = m
}

func (b *Backend) AddShowtime(movieID int, s internal.Showtime) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.Movie = &internal.MovieSummary{ID: movieID}
	b.showtimes[s.ID] = s
}

func (b *Backend) MakeFriends(a, c int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.friends[key(a, c)] = true
}

func (b *Backend) AddFriendRequest(from, to int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests[pair{from, to}] = true
}

// Select records a user's status for a showtime directly.
func (b *Backend) Select(userID, showtimeID int, status internal.GoingStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selections[pair{userID, showtimeID}] = selection{update: internal.StatusUpdate{Going: status}}
}

func (b *Backend) Status(userID, showtimeID int) internal.GoingStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selections[pair{userID, showtimeID}].update.Going
}

func (b *Backend) SetWatchlist(userID int, movieIDs ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := make(map[int]bool, len(movieIDs))
	for _, id := range movieIDs {
		set[id] = true
	}
	b.watchlists[userID] = set
}

func (b *Backend) WatchlistSyncs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.watchSyncs
}

func (b *Backend) CinemaSelections(userID int) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.cinemaPrefs[userID])
}

// AddFilterPreset stores a preset for userID and returns it with its id.
func (b *Backend) AddFilterPreset(userID int, p internal.FilterPreset) internal.FilterPreset {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == 0 {
		p.ID = b.newIDLocked()
	}
	b.filterSets[p.ID] = p
	b.filterOwner[p.ID] = userID
	return p
}

func (b *Backend) AddCinemaPreset(userID int, p internal.CinemaPreset) internal.CinemaPreset {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == 0 {
		p.ID = b.newIDLocked()
	}
	b.cinemaSets[p.ID] = p
	b.cinemaOwner[p.ID] = userID
	return p
}

func (b *Backend) newIDLocked() int {
	b.nextID++
	return b.nextID
}
