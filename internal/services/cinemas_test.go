package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/drewfead/moviebuddy/internal/api/apitest"
	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Cinemas_ListAndLookup(t *testing.T) {
	ctx := context.Background()
	backend, client, cache := aliceClient(t)
	cinemas := NewCinemas(client, cache)

	all, err := cinemas.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	found, err := cinemas.Lookup(ctx, []int{apitest.LabID, apitest.EyeID, 99})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Eye Filmmuseum", found[0].Name)
	assert.Equal(t, "LAB111", found[1].Name)
	assert.Equal(t, 1, backend.Requests("list-cinemas"))
}

func TestUnit_Cinemas_SetPreferredSeedsCache(t *testing.T) {
	ctx := context.Background()
	backend, client, cache := aliceClient(t)
	cinemas := NewCinemas(client, cache)

	preferred, err := cinemas.Preferred(ctx)
	require.NoError(t, err)
	assert.Empty(t, preferred)

	saved, err := cinemas.SetPreferred(ctx, []int{apitest.KriterionID, apitest.EyeID})
	require.NoError(t, err)
	assert.Equal(t, []int{apitest.KriterionID, apitest.EyeID}, saved)
	assert.Equal(t, saved, backend.CinemaSelections(apitest.AliceID))

	cached, ok := querycache.GetData[[]int](cache, keys.CinemaSelections())
	require.True(t, ok)
	assert.Equal(t, saved, cached)
	preferred, err = cinemas.Preferred(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, preferred)
	assert.Equal(t, 1, backend.Requests("get-cinema-selections"))
}

func TestUnit_Cinemas_SetPreferredFailure(t *testing.T) {
	ctx := context.Background()
	backend, client, cache := aliceClient(t)
	backend.Fail("set-cinema-selections", http.StatusInternalServerError, "boom", 1)

	_, err := NewCinemas(client, cache).SetPreferred(ctx, []int{apitest.EyeID})
	require.Error(t, err)
	_, ok := querycache.GetData[[]int](cache, keys.CinemaSelections())
	assert.False(t, ok)
}
