package session

import (
	"context"
	"strings"
	"testing"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/filters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	calls []internal.SavePresetRequest
	err   error
}

func (r *recordingSaver) SaveFilterPreset(_ context.Context, req internal.SavePresetRequest) (internal.FilterPreset, error) {
	r.calls = append(r.calls, req)
	if r.err != nil {
		return internal.FilterPreset{}, r.err
	}
	return internal.FilterPreset{ID: 10, Name: req.Name, Scope: req.Scope, Filters: req.Filters, IsFavorite: req.IsFavorite}, nil
}

func TestUnit_Filters_SeedFromFavoriteAndPreferredCinemas(t *testing.T) {
	f := NewFilters(filters.ShowtimeFeed)
	assert.False(t, f.Loaded())

	f.Seed(&internal.FilterPreset{
		Filters: internal.FilterPayload{
			Days:   []string{"relative:today"},
			Status: internal.GoingStatusGoing,
		},
	}, []int{7, 8})

	assert.True(t, f.Loaded())
	assert.Equal(t, internal.FilterPayload{
		CinemaIDs: []int{7, 8},
		Days:      []string{"relative:today"},
		Status:    internal.GoingStatusGoing,
	}, f.Payload())
}

func TestUnit_Filters_PresetCinemasWin(t *testing.T) {
	f := NewFilters(filters.MovieDetail)
	f.Seed(&internal.FilterPreset{Filters: internal.FilterPayload{CinemaIDs: []int{1}, Status: internal.GoingStatusGoing}}, []int{7})
	p := f.Payload()
	assert.Equal(t, []int{1}, p.CinemaIDs)
	assert.Equal(t, internal.GoingStatusUnset, p.Status)
}

func TestUnit_Filters_CinemaSetIsOrderInsensitive(t *testing.T) {
	f := NewFilters(filters.ShowtimeFeed)
	f.Seed(nil, []int{1, 2})
	assert.False(t, f.Cinemas.Set([]int{2, 1}))
	assert.True(t, f.Cinemas.Set([]int{2}))
}

func TestUnit_Filters_SaveAsPreset(t *testing.T) {
	saver := &recordingSaver{}
	f := NewFilters(filters.ShowtimeFeed, WithPresetSaver(saver))
	f.Seed(nil, nil)
	f.TimeRanges.Set([]string{"18:00-21:00"})

	preset, err := f.SaveAsPreset(context.Background(), "  Evenings  ", true)
	require.NoError(t, err)
	assert.Equal(t, "Evenings", preset.Name)
	require.Len(t, saver.calls, 1)
	assert.Equal(t, "showtimes", saver.calls[0].Scope)
	assert.Equal(t, []string{"18:00-21:00"}, saver.calls[0].Filters.TimeRanges)
	assert.True(t, saver.calls[0].IsFavorite)
}

func TestUnit_Filters_SaveAsPreset_InvalidNameNeverReachesBackend(t *testing.T) {
	saver := &recordingSaver{}
	f := NewFilters(filters.ShowtimeFeed, WithPresetSaver(saver))
	f.Seed(nil, nil)

	for _, name := range []string{"", "   ", strings.Repeat("x", 65)} {
		_, err := f.SaveAsPreset(context.Background(), name, false)
		assert.ErrorIs(t, err, ErrInvalidPresetName, name)
	}
	assert.Empty(t, saver.calls)

	_, err := f.SaveAsPreset(context.Background(), strings.Repeat("x", 64), false)
	assert.NoError(t, err)
}

func TestUnit_Filters_ApplyPreset(t *testing.T) {
	f := NewFilters(filters.MoviesList)
	f.Seed(nil, []int{1})
	f.ApplyPreset(internal.FilterPreset{Filters: internal.FilterPayload{
		CinemaIDs:     []int{3},
		WatchlistOnly: true,
		Status:        internal.GoingStatusGoing,
	}})
	assert.Equal(t, internal.FilterPayload{CinemaIDs: []int{3}, WatchlistOnly: true}, f.Payload())
}
