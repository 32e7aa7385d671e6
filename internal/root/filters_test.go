package root

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewfead/moviebuddy/internal"
)

func TestUnit_ParseDay(t *testing.T) {
	cases := map[string]string{
		"today":              "relative:today",
		"Tomorrow":           "relative:tomorrow",
		"day-after-tomorrow": "relative:day_after_tomorrow",
		"sat":                "weekday:6",
		"Sunday":             "weekday:7",
		"mon":                "weekday:1",
		"2026-10-18":         "2026-10-18",
		"weekday:3":          "weekday:3",
		"relative:today":     "relative:today",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := parseDay(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	for _, bad := range []string{"someday", "weekday:9", "2026-13-01", "s"} {
		_, err := parseDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestUnit_ParseTime(t *testing.T) {
	cases := map[string]string{
		"evening":     "18:00-21:00",
		"Late-Night":  "21:00-03:00",
		"late night":  "21:00-03:00",
		"10:00-14:00": "10:00-14:00",
		"19:00":       "19:00-",
		"any":         "",
		"":            "",
	}
	for in, want := range cases {
		got, err := parseTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseTime("teatime")
	assert.Error(t, err)
}

func TestUnit_ParseStatus(t *testing.T) {
	cases := map[string]internal.GoingStatus{
		"going":      internal.GoingStatusGoing,
		"INTERESTED": internal.GoingStatusInterested,
		"not-going":  internal.GoingStatusNotGoing,
		"not_going":  internal.GoingStatusNotGoing,
		"none":       internal.GoingStatusUnset,
	}
	for in, want := range cases {
		got, err := parseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseStatus("maybe")
	assert.Error(t, err)
}
