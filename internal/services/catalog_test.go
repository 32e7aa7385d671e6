package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/api"
	"github.com/drewfead/moviebuddy/internal/api/apitest"
	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/querycache"
	"github.com/drewfead/moviebuddy/internal/showtimes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movieIDs(movies []internal.Movie) []int {
	out := make([]int, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func showtimeIDs(list []internal.Showtime) []int {
	out := make([]int, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

func strp(s string) *string { return &s }

func TestUnit_Catalog_MoviesPages(t *testing.T) {
	ctx := context.Background()
	_, client, cache := aliceClient(t)
	catalog := NewCatalog(client, cache, WithCatalogClock(clock), WithPageSize(2))

	feed := catalog.Movies(internal.FilterPayload{})
	first, err := feed.FetchFirst(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{apitest.StalkerID, apitest.ParisTexasID}, movieIDs(first))
	assert.Equal(t, 3, first[0].TotalShowtimes)
	assert.LessOrEqual(t, len(first[0].Showtimes), DefaultShowtimeLimit)
	assert.True(t, feed.HasNextPage())

	fetched, err := feed.OnSentinel(ctx, false)
	require.NoError(t, err)
	assert.False(t, fetched)

	fetched, err = feed.OnSentinel(ctx, true)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, []int{apitest.StalkerID, apitest.ParisTexasID, apitest.PlaytimeID, apitest.PerfectDaysID}, movieIDs(feed.Items()))
}

func TestUnit_Catalog_MoviesResolveDayTokens(t *testing.T) {
	_, client, cache := aliceClient(t)
	catalog := NewCatalog(client, cache, WithCatalogClock(clock))

	got, err := catalog.Movies(internal.FilterPayload{Days: []string{"relative:today"}}).FetchFirst(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{apitest.StalkerID, apitest.ParisTexasID}, movieIDs(got))
}

func TestUnit_Catalog_SameDaysShareOneEntry(t *testing.T) {
	backend, client, cache := aliceClient(t)
	catalog := NewCatalog(client, cache, WithCatalogClock(clock))

	byDate, err := catalog.Movies(internal.FilterPayload{Days: []string{"2026-10-17"}}).FetchFirst(context.Background())
	require.NoError(t, err)
	byName, err := catalog.Movies(internal.FilterPayload{Days: []string{"relative:today"}}).FetchFirst(context.Background())
	require.NoError(t, err)

	assert.Equal(t, movieIDs(byDate), movieIDs(byName))
	assert.Equal(t, 1, backend.Requests("list-movies"))
}

func TestUnit_Catalog_MovieShowtimesFiltersByCinema(t *testing.T) {
	_, client, cache := aliceClient(t)
	catalog := NewCatalog(client, cache, WithCatalogClock(clock))

	got, err := catalog.MovieShowtimes(context.Background(), apitest.StalkerID, internal.FilterPayload{CinemaIDs: []int{apitest.KriterionID}})
	require.NoError(t, err)
	assert.Equal(t, []int{1002}, showtimeIDs(got))
}

func TestUnit_Catalog_UserShowtimesNeedsFriendship(t *testing.T) {
	_, client, cache := aliceClient(t)
	catalog := NewCatalog(client, cache, WithCatalogClock(clock))

	bob, err := catalog.UserShowtimes(apitest.BobID, internal.FilterPayload{}).FetchFirst(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1001, 1003}, showtimeIDs(bob))

	_, err = catalog.UserShowtimes(apitest.DaveID, internal.FilterPayload{}).FetchFirst(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestUnit_Catalog_SetStatusUpdatesEveryCopy(t *testing.T) {
	ctx := context.Background()
	backend, client, cache := aliceClient(t)
	catalog := NewCatalog(client, cache, WithCatalogClock(clock))

	feed := catalog.MyShowtimes(internal.FilterPayload{})
	mine, err := feed.FetchFirst(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1001, 1004}, showtimeIDs(mine))
	movie, err := catalog.Movie(ctx, apitest.StalkerID, nil)
	require.NoError(t, err)
	require.False(t, movie.Going)
	catalog.Select(mine[0])

	updated, err := catalog.SetStatus(ctx, 1001, internal.StatusUpdate{
		Going: internal.GoingStatusGoing, SeatRow: strp("F"), SeatNumber: strp("12"),
	})
	require.NoError(t, err)
	assert.Equal(t, internal.GoingStatusGoing, updated.Going)
	assert.Equal(t, internal.GoingStatusGoing, backend.Status(apitest.AliceID, 1001))

	cached, ok := querycache.GetData[internal.Movie](cache, keys.Movie(apitest.StalkerID, nil))
	require.True(t, ok)
	assert.True(t, cached.Going)
	assert.Equal(t, internal.GoingStatusGoing, cached.Showtimes[0].Going)
	assert.Equal(t, internal.GoingStatusGoing, feed.Items()[0].Going)
	selected, ok := catalog.Selected()
	require.True(t, ok)
	assert.Equal(t, "F", *selected.SeatRow)

	assert.True(t, cache.State(keys.MyShowtimes(internal.FilterPayload{})).Invalidated)
	state, err := catalog.MutationState()
	assert.Equal(t, showtimes.StateSuccess, state)
	assert.NoError(t, err)
}

func TestUnit_Catalog_SetStatusFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	backend, client, cache := aliceClient(t)
	catalog := NewCatalog(client, cache, WithCatalogClock(clock))
	feed := catalog.MyShowtimes(internal.FilterPayload{})
	_, err := feed.FetchFirst(ctx)
	require.NoError(t, err)

	backend.Fail("update-selection", http.StatusInternalServerError, "boom", 1)
	_, err = catalog.SetStatus(ctx, 1004, internal.StatusUpdate{Going: internal.GoingStatusNotGoing})
	require.Error(t, err)

	assert.Equal(t, internal.GoingStatusGoing, feed.Items()[1].Going)
	assert.Equal(t, internal.GoingStatusGoing, backend.Status(apitest.AliceID, 1004))
	state, stateErr := catalog.MutationState()
	assert.Equal(t, showtimes.StateError, state)
	assert.Error(t, stateErr)
}
