package showtimes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShowtimes struct {
	mu      sync.Mutex
	calls   int
	err     error
	record  func(id int, u internal.StatusUpdate) internal.Showtime
	started chan struct{}
	release chan struct{}
}

func (f *fakeShowtimes) UpdateStatus(ctx context.Context, id int, u internal.StatusUpdate) (internal.Showtime, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return internal.Showtime{}, f.err
	}
	if f.record != nil {
		return f.record(id, u), nil
	}
	return internal.Showtime{ID: id, Going: u.Going, SeatRow: u.SeatRow, SeatNumber: u.SeatNumber}, nil
}

func ptr[T any](v T) *T { return &v }

var (
	movieSummary = &internal.MovieSummary{ID: 1, Title: "Stalker"}
	interested   = internal.Showtime{ID: 10, Going: internal.GoingStatusInterested, Movie: movieSummary}
	other        = internal.Showtime{ID: 11, Going: internal.GoingStatusUnset, Movie: movieSummary}
)

// seed fills every cache family that embeds showtime 10.
func seed(c *querycache.Cache) {
	movie := internal.Movie{ID: 1, Title: "Stalker", Showtimes: []internal.Showtime{interested, other}}
	querycache.SetData(c, keys.Movie(1, nil), movie)
	querycache.SetData(c, keys.MovieShowtimes(1), []internal.Showtime{interested, other})
	querycache.SetData(c, keys.Movies(internal.FilterPayload{}), internal.InfiniteData[internal.Movie]{
		Pages:      [][]internal.Movie{{{ID: 2}}, {movie}},
		PageParams: []int{0, 1},
	})
	querycache.SetData(c, keys.MyShowtimes(internal.FilterPayload{}), internal.InfiniteData[internal.Showtime]{
		Pages:      [][]internal.Showtime{{other}, {interested}},
		PageParams: []int{0, 1},
	})
	querycache.SetData(c, keys.UserShowtimes(5, internal.FilterPayload{Days: []string{"relative:today"}}), internal.InfiniteData[internal.Showtime]{
		Pages:      [][]internal.Showtime{{interested}},
		PageParams: []int{0},
	})
}

// statuses collects the status of showtime 10 from every cached copy.
func statuses(t *testing.T, c *querycache.Cache) []internal.GoingStatus {
	t.Helper()
	var out []internal.GoingStatus
	find := func(list []internal.Showtime) {
		for _, s := range list {
			if s.ID == 10 {
				out = append(out, s.Going)
			}
		}
	}
	movie, ok := querycache.GetData[internal.Movie](c, keys.Movie(1, nil))
	require.True(t, ok)
	find(movie.Showtimes)
	list, ok := querycache.GetData[[]internal.Showtime](c, keys.MovieShowtimes(1))
	require.True(t, ok)
	find(list)
	movies, ok := querycache.GetData[internal.InfiniteData[internal.Movie]](c, keys.Movies(internal.FilterPayload{}))
	require.True(t, ok)
	for _, m := range movies.Flatten() {
		find(m.Showtimes)
	}
	for _, k := range []querycache.Key{
		keys.MyShowtimes(internal.FilterPayload{}),
		keys.UserShowtimes(5, internal.FilterPayload{Days: []string{"relative:today"}}),
	} {
		feed, ok := querycache.GetData[internal.InfiniteData[internal.Showtime]](c, k)
		require.True(t, ok)
		find(feed.Flatten())
	}
	return out
}

func TestUnit_StatusMutation_OptimisticThenConfirmed(t *testing.T) {
	c := querycache.New()
	seed(c)
	backend := &fakeShowtimes{started: make(chan struct{}), release: make(chan struct{})}
	selected := &Selected{}
	selected.Select(interested)
	m := NewStatusMutation(backend, NewCacheUpdater(c), WithSelected(selected))

	done := make(chan error)
	go func() {
		_, err := m.Do(context.Background(), 10, internal.StatusUpdate{Going: internal.GoingStatusGoing, SeatRow: ptr("F"), SeatNumber: ptr("12")})
		done <- err
	}()
	<-backend.started

	state, _ := m.State()
	assert.Equal(t, StatePending, state)
	assert.Equal(t, []internal.GoingStatus{"GOING", "GOING", "GOING", "GOING", "GOING"}, statuses(t, c))
	movie, _ := querycache.GetData[internal.Movie](c, keys.Movie(1, nil))
	assert.True(t, movie.Going)
	cur, _ := selected.Current()
	assert.Equal(t, internal.GoingStatusGoing, cur.Going)
	assert.Equal(t, "F", *cur.SeatRow)

	close(backend.release)
	require.NoError(t, <-done)

	state, err := m.State()
	assert.Equal(t, StateSuccess, state)
	assert.NoError(t, err)
	assert.Equal(t, []internal.GoingStatus{"GOING", "GOING", "GOING", "GOING", "GOING"}, statuses(t, c))
	cur, _ = selected.Current()
	assert.Equal(t, movieSummary, cur.Movie)

	assert.True(t, c.State(keys.Movies(internal.FilterPayload{})).Invalidated)
	assert.True(t, c.State(keys.MyShowtimes(internal.FilterPayload{})).Invalidated)
	assert.False(t, c.State(keys.Movie(1, nil)).Invalidated)
}

func TestUnit_StatusMutation_FailureRestoresEveryCopy(t *testing.T) {
	c := querycache.New()
	seed(c)
	before := statuses(t, c)
	require.Len(t, before, 5)

	backend := &fakeShowtimes{err: errors.New("502 bad gateway")}
	selected := &Selected{}
	selected.Select(interested)
	m := NewStatusMutation(backend, NewCacheUpdater(c), WithSelected(selected))

	_, err := m.Do(context.Background(), 10, internal.StatusUpdate{Going: internal.GoingStatusGoing})
	require.Error(t, err)
	assert.Equal(t, 1, backend.calls)

	state, stateErr := m.State()
	assert.Equal(t, StateError, state)
	assert.ErrorIs(t, err, backend.err)
	assert.Equal(t, err, stateErr)

	assert.Equal(t, before, statuses(t, c))
	for _, s := range statuses(t, c) {
		assert.Equal(t, internal.GoingStatusInterested, s)
	}
	movie, _ := querycache.GetData[internal.Movie](c, keys.Movie(1, nil))
	assert.False(t, movie.Going)
	cur, _ := selected.Current()
	assert.Equal(t, interested, cur)
	assert.True(t, c.State(keys.MyShowtimes(internal.FilterPayload{})).Invalidated)
}

func TestUnit_StatusMutation_LeavingGoingClearsSeat(t *testing.T) {
	c := querycache.New()
	going := internal.Showtime{ID: 10, Going: internal.GoingStatusGoing, SeatRow: ptr("A"), SeatNumber: ptr("1")}
	querycache.SetData(c, keys.MovieShowtimes(1), []internal.Showtime{going})

	backend := &fakeShowtimes{}
	m := NewStatusMutation(backend, NewCacheUpdater(c))
	_, err := m.Do(context.Background(), 10, internal.StatusUpdate{Going: internal.GoingStatusInterested, SeatRow: ptr("B")})
	require.NoError(t, err)

	list, _ := querycache.GetData[[]internal.Showtime](c, keys.MovieShowtimes(1))
	require.Len(t, list, 1)
	assert.Equal(t, internal.GoingStatusInterested, list[0].Going)
	assert.Nil(t, list[0].SeatRow)
	assert.Nil(t, list[0].SeatNumber)
}

func TestUnit_StatusMutation_InvalidStatusNeverReachesBackend(t *testing.T) {
	backend := &fakeShowtimes{}
	m := NewStatusMutation(backend, NewCacheUpdater(querycache.New()))
	_, err := m.Do(context.Background(), 10, internal.StatusUpdate{Going: "MAYBE"})
	require.Error(t, err)
	assert.Zero(t, backend.calls)
	state, _ := m.State()
	assert.Equal(t, StateIdle, state)
}

func TestUnit_StatusMutation_CancelsInFlightRefetch(t *testing.T) {
	c := querycache.New()
	key := keys.MovieShowtimes(1)
	querycache.SetData(c, key, []internal.Showtime{interested})
	c.InvalidateQueries(key)

	started, release := make(chan struct{}), make(chan struct{})
	fetched := make(chan []internal.Showtime)
	go func() {
		v, _ := querycache.Fetch(context.Background(), c, key, func(context.Context) ([]internal.Showtime, error) {
			close(started)
			<-release
			return []internal.Showtime{interested}, nil
		})
		fetched <- v
	}()
	<-started

	m := NewStatusMutation(&fakeShowtimes{}, NewCacheUpdater(c))
	_, err := m.Do(context.Background(), 10, internal.StatusUpdate{Going: internal.GoingStatusNotGoing})
	require.NoError(t, err)
	close(release)
	<-fetched

	list, _ := querycache.GetData[[]internal.Showtime](c, key)
	require.Len(t, list, 1)
	assert.Equal(t, internal.GoingStatusNotGoing, list[0].Going)
}

func TestUnit_CacheUpdater_DoesNotMutateSnapshot(t *testing.T) {
	c := querycache.New()
	seed(c)
	u := NewCacheUpdater(c)
	snap := u.Snapshot()
	assert.Equal(t, 5, snap.Len())

	assert.Equal(t, 5, u.Apply(10, StatusPatch(internal.StatusUpdate{Going: internal.GoingStatusNotGoing})))
	u.Restore(snap)
	for _, s := range statuses(t, c) {
		assert.Equal(t, internal.GoingStatusInterested, s)
	}
	assert.Zero(t, u.Apply(999, StatusPatch(internal.StatusUpdate{})))
}
