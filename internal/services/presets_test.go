package services

import (
	"context"
	"testing"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/api"
	"github.com/drewfead/moviebuddy/internal/api/apitest"
	"github.com/drewfead/moviebuddy/internal/presets"
	"github.com/drewfead/moviebuddy/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func presetNames[P presets.Preset](list []P) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.PresetName()
	}
	return out
}

func TestUnit_Presets_FiltersInStoredOrder(t *testing.T) {
	ctx := context.Background()
	backend, client, cache := aliceClient(t)
	mem := storage.Memory()
	svc := NewPresets(client, cache, mem)

	week := backend.AddFilterPreset(apitest.AliceID, internal.FilterPreset{Name: "Week 10", Scope: "showtimes"})
	backend.AddFilterPreset(apitest.AliceID, internal.FilterPreset{Name: "Week 9", Scope: "showtimes"})
	fav := backend.AddFilterPreset(apitest.AliceID, internal.FilterPreset{Name: "Late", Scope: "showtimes", IsFavorite: true})
	backend.AddFilterPreset(apitest.AliceID, internal.FilterPreset{Name: "Other screen", Scope: "movies"})

	list, err := svc.Filters(ctx, "showtimes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Late", "Week 9", "Week 10"}, presetNames(list))

	favorite, err := svc.FavoriteFilter(ctx, "showtimes")
	require.NoError(t, err)
	require.NotNil(t, favorite)
	assert.Equal(t, fav.ID, favorite.ID)

	require.NoError(t, svc.MoveFilter(ctx, "showtimes", week.ID, -2))
	list, err = svc.Filters(ctx, "showtimes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Week 10", "Late", "Week 9"}, presetNames(list))

	svc.Flush()
	stored, ok, err := mem.GetItem(ctx, presets.FilterOrderKey("showtimes"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, stored, "1001")
}

func TestUnit_Presets_SaveInvalidatesList(t *testing.T) {
	ctx := context.Background()
	_, client, cache := aliceClient(t)
	svc := NewPresets(client, cache, storage.Memory())

	list, err := svc.Filters(ctx, "movies")
	require.NoError(t, err)
	require.Empty(t, list)

	saved, err := svc.SaveFilter(ctx, internal.SavePresetRequest{Name: "Weekend", Scope: "movies", Filters: internal.FilterPayload{Days: []string{"weekday:6"}}})
	require.NoError(t, err)
	list, err = svc.Filters(ctx, "movies")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	_, err = svc.SaveFilter(ctx, internal.SavePresetRequest{Name: "weekend", Scope: "movies"})
	require.ErrorIs(t, err, api.ErrConflict)

	toggled, err := svc.ToggleFilterFavorite(ctx, "movies", saved.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFavorite)

	require.NoError(t, svc.DeleteFilter(ctx, "movies", saved.ID))
	list, err = svc.Filters(ctx, "movies")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUnit_Presets_CinemaPresets(t *testing.T) {
	ctx := context.Background()
	_, client, cache := aliceClient(t)
	svc := NewPresets(client, cache, storage.Memory())

	arthouse, err := svc.SaveCinemaPreset(ctx, internal.SaveCinemaPresetRequest{Name: "Arthouse", CinemaIDs: []int{apitest.EyeID, apitest.LabID}})
	require.NoError(t, err)
	center, err := svc.SaveCinemaPreset(ctx, internal.SaveCinemaPresetRequest{Name: "Center", CinemaIDs: []int{apitest.KriterionID}})
	require.NoError(t, err)

	list, err := svc.CinemaPresets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Arthouse", "Center"}, presetNames(list))

	require.NoError(t, svc.ReorderCinemaPresets(ctx, []int{center.ID, arthouse.ID}))
	list, err = svc.CinemaPresets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Center", "Arthouse"}, presetNames(list))

	_, err = svc.ToggleCinemaFavorite(ctx, arthouse.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCinemaPreset(ctx, center.ID))
	list, err = svc.CinemaPresets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsFavorite)
	svc.Flush()
}
