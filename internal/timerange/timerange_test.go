package timerange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Label(t *testing.T) {
	tests := []struct {
		name   string
		ranges []string
		want   string
	}{
		{"nil", nil, "Any Time"},
		{"empty list", []string{}, "Any Time"},
		{"empty string", []string{""}, "Any Time"},
		{"preset", []string{"18:00-21:00"}, "Evening"},
		{"preset crossing midnight", []string{"21:00-03:00"}, "Late Night"},
		{"no match", []string{"18:00-18:05"}, "18:00-18:05"},
		{"start only", []string{"19:30-"}, "From 19:30"},
		{"end only", []string{"-11:00"}, "Until 11:00"},
		{"only first honored", []string{"06:00-12:00", "18:00-21:00"}, "Morning"},
		{"garbage passes through", []string{"soon"}, "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.ranges))
		})
	}
}

func TestUnit_Parse(t *testing.T) {
	r, err := Parse("09:15-23:45")
	require.NoError(t, err)
	assert.Equal(t, Range{Start: "09:15", End: "23:45"}, r)

	r, err = Parse("20:00")
	require.NoError(t, err)
	assert.Equal(t, Range{Start: "20:00"}, r)

	for _, bad := range []string{"25:00-26:00", "9:00-10:00", "ab:cd-"} {
		_, err := Parse(bad)
		require.ErrorIs(t, err, ErrInvalidTimeRange, bad)
	}
}

func TestUnit_FirstAndLookup(t *testing.T) {
	assert.True(t, First(nil).IsZero())
	assert.True(t, First([]string{"nope"}).IsZero())
	assert.Equal(t, Range{Start: "12:00", End: "18:00"}, First([]string{"12:00-18:00", "06:00-12:00"}))

	got, ok := Lookup("evening")
	require.True(t, ok)
	assert.Equal(t, "18:00-21:00", got)
	_, ok = Lookup("brunch")
	assert.False(t, ok)
	assert.Len(t, Presets(), 4)
}
