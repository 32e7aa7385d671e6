// Package timerange resolves "HH:MM-HH:MM" time-of-day filters to display labels.
//
// The filter is stored as a list but only its first element is ever honored: the
// selection is single-choice in practice.
package timerange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTimeRange = errors.New("invalid time range")

const AnyTime = "Any Time"

type Preset struct {
	Name  string
	Range string
}

// presets is matched by exact string, in order.
var presets = []Preset{
	{Name: "Morning", Range: "06:00-12:00"},
	{Name: "Afternoon", Range: "12:00-18:00"},
	{Name: "Evening", Range: "18:00-21:00"},
	{Name: "Late Night", Range: "21:00-03:00"},
}

func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// Range is a parsed time range. An empty bound is open.
type Range struct {
	Start string
	End   string
}

func (r Range) String() string {
	return r.Start + "-" + r.End
}

func (r Range) IsZero() bool {
	return r.Start == "" && r.End == ""
}

// Parse validates "HH:MM-HH:MM", "HH:MM-" or "-HH:MM". A bare "HH:MM" is a start bound.
func Parse(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, nil
	}
	start, end, found := strings.Cut(s, "-")
	if !found {
		end = ""
	}
	r := Range{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	for _, bound := range []string{r.Start, r.End} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse("15:04", bound); err != nil || len(bound) != 5 {
			return Range{}, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTimeRange, bound)
		}
	}
	return r, nil
}

// First returns the honored range of a selection. Invalid or missing ranges are the zero Range.
func First(ranges []string) Range {
	if len(ranges) == 0 {
		return Range{}
	}
	r, err := Parse(ranges[0])
	if err != nil {
		return Range{}
	}
	return r
}

// Label resolves the first selected range against the preset table.
func Label(ranges []string) string {
	if len(ranges) == 0 {
		return AnyTime
	}
	raw := strings.TrimSpace(ranges[0])
	for _, p := range presets {
		if p.Range == raw {
			return p.Name
		}
	}
	r, err := Parse(raw)
	if err != nil {
		return raw
	}
	switch {
	case r.Start != "" && r.End != "":
		return r.String()
	case r.Start != "":
		return "From " + r.Start
	case r.End != "":
		return "Until " + r.End
	default:
		return AnyTime
	}
}

// Lookup returns the range of a named preset, case-insensitively.
func Lookup(name string) (string, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p.Range, true
		}
	}
	return "", false
}
