package keys

import (
	"testing"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/stretchr/testify/assert"
)

func TestUnit_Keys_Families(t *testing.T) {
	assert.Equal(t, `["movie",3,[1,2]]`, Movie(3, []int{2, 1, 2}).Hash())
	assert.Equal(t, `["movie",3,"showtimes"]`, MovieShowtimes(3).Hash())
	assert.Equal(t, `["user","cinema_selections"]`, CinemaSelections().Hash())
	assert.Equal(t, `["filter-presets","showtimes"]`, FilterPresets("showtimes").Hash())
	assert.Equal(t, `["cinema-presets"]`, CinemaPresets().Hash())

	assert.True(t, Movie(3, nil).HasPrefix(MovieFamily(3)))
	assert.True(t, MovieShowtimes(3).HasPrefix(MovieFamily(3)))
	assert.True(t, MovieShowtimesFor(3, internal.FilterPayload{Days: []string{"today"}}).HasPrefix(MovieShowtimes(3)))
	assert.False(t, Movie(30, nil).HasPrefix(MovieFamily(3)))
	assert.True(t, MyShowtimes(internal.FilterPayload{}).HasPrefix(AllShowtimes()))
	assert.True(t, UserShowtimes(4, internal.FilterPayload{}).HasPrefix(AllShowtimes()))
	assert.True(t, Movies(internal.FilterPayload{Query: "x"}).HasPrefix(AllMovies()))
	assert.False(t, Movies(internal.FilterPayload{}).HasPrefix(AllMovie()))
}

func TestUnit_Keys_EqualSelectionsHashEqual(t *testing.T) {
	a := MyShowtimes(internal.FilterPayload{
		CinemaIDs:  []int{3, 1},
		Days:       []string{"weekday:2", "relative:today"},
		TimeRanges: []string{"18:00-21:00", "06:00-12:00"},
	})
	b := MyShowtimes(internal.FilterPayload{
		CinemaIDs:  []int{1, 3, 3},
		Days:       []string{"relative:today", "weekday:2"},
		TimeRanges: []string{"18:00-21:00"},
	})
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, MyShowtimes(internal.FilterPayload{CinemaIDs: []int{}}).Hash(), MyShowtimes(internal.FilterPayload{}).Hash())
}
