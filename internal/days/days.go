// Package days converts between the day tokens a user selects (absolute dates, relative
// days and weekdays) and the concrete dates the API filters on.
//
// Tokens have three forms:
//
//	2026-10-18                  an ISO date
//	relative:today              today, tomorrow or day_after_tomorrow
//	weekday:6                   ISO weekday, 1 = Monday through 7 = Sunday
package days

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	RelativePrefix = "relative:"
	WeekdayPrefix  = "weekday:"

	Today            = RelativePrefix + "today"
	Tomorrow         = RelativePrefix + "tomorrow"
	DayAfterTomorrow = RelativePrefix + "day_after_tomorrow"

	// DefaultHorizon is how many days ahead weekday tokens are expanded.
	DefaultHorizon = 180
	DefaultZone    = "Europe/Amsterdam"

	isoLayout = "2006-01-02"
)

var ErrInvalidToken = errors.New("invalid day token")

// relativeNames is indexed by day offset from the anchor.
var relativeNames = []string{"today", "tomorrow", "day_after_tomorrow"}

type Kind uint8

const (
	KindRelative Kind = iota
	KindWeekday
	KindDate
)

type Token struct {
	Kind Kind
	// Offset is the day offset of a relative token.
	Offset int
	// Weekday is the ISO weekday of a weekday token.
	Weekday int
	// Date is the civil date (UTC midnight) of an ISO date token.
	Date time.Time
}

func Parse(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if name, ok := strings.CutPrefix(s, RelativePrefix); ok {
		i := slices.Index(relativeNames, name)
		if i < 0 {
			return Token{}, fmt.Errorf("%w: unknown relative day %q", ErrInvalidToken, name)
		}
		return Token{Kind: KindRelative, Offset: i}, nil
	}
	if num, ok := strings.CutPrefix(s, WeekdayPrefix); ok {
		n, err := strconv.Atoi(num)
		if err != nil || n < 1 || n > 7 {
			return Token{}, fmt.Errorf("%w: weekday must be 1..7, got %q", ErrInvalidToken, num)
		}
		return Token{Kind: KindWeekday, Weekday: n}, nil
	}
	d, err := time.ParseInLocation(isoLayout, s, time.UTC)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidToken, s)
	}
	return Token{Kind: KindDate, Date: d}, nil
}

func (t Token) String() string {
	switch t.Kind {
	case KindRelative:
		return RelativePrefix + relativeNames[t.Offset]
	case KindWeekday:
		return WeekdayPrefix + strconv.Itoa(t.Weekday)
	default:
		return t.Date.Format(isoLayout)
	}
}

// Relative returns the token for a day offset from the anchor. Only offsets 0, 1 and 2
// have one.
func Relative(offset int) (string, bool) {
	if offset < 0 || offset >= len(relativeNames) {
		return "", false
	}
	return RelativePrefix + relativeNames[offset], true
}

// Anchor returns now in the named zone, falling back to UTC for an unknown zone.
func Anchor(now time.Time, zone string) time.Time {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc)
}

// civil strips the clock and zone from t, keeping its calendar date as seen in its own zone.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Canonicalize parses, de-duplicates and orders tokens. ISO dates that fall on today,
// tomorrow or the day after (relative to anchor) collapse into their relative token.
// Relative tokens come first by offset, then weekdays by number, then dates. Invalid
// tokens are dropped. The result is nil when nothing valid remains.
func Canonicalize(tokens []string, anchor time.Time) []string {
	today := civil(anchor)
	seen := make(map[string]bool, len(tokens))
	var parsed []Token
	for _, raw := range tokens {
		t, err := Parse(raw)
		if err != nil {
			continue
		}
		if t.Kind == KindDate {
			offset := int(t.Date.Sub(today).Hours() / 24)
			if !t.Date.Before(today) && offset < len(relativeNames) {
				t = Token{Kind: KindRelative, Offset: offset}
			}
		}
		key := t.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		parsed = append(parsed, t)
	}
	if len(parsed) == 0 {
		return nil
	}
	slices.SortStableFunc(parsed, compareTokens)
	out := make([]string, len(parsed))
	for i, t := range parsed {
		out[i] = t.String()
	}
	return out
}

func compareTokens(a, b Token) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	switch a.Kind {
	case KindRelative:
		return a.Offset - b.Offset
	case KindWeekday:
		return a.Weekday - b.Weekday
	default:
		return a.Date.Compare(b.Date)
	}
}

type resolveConfig struct {
	horizon int
}

type Option func(*resolveConfig)

// WithHorizon sets how many days from the anchor weekday tokens expand across.
func WithHorizon(days int) Option {
	return func(c *resolveConfig) {
		if days > 0 {
			c.horizon = days
		}
	}
}

// ResolveForAPI turns tokens into sorted, unique ISO dates. Relative tokens resolve to one
// date each and weekday tokens to every matching date within the horizon. A nil result
// means "no day filter" and must be omitted from the request, not sent empty.
func ResolveForAPI(tokens []string, anchor time.Time, opts ...Option) []string {
	cfg := resolveConfig{horizon: DefaultHorizon}
	for _, opt := range opts {
		opt(&cfg)
	}
	today := civil(anchor)
	dates := make(map[string]bool)
	weekdays := make(map[int]bool)
	for _, raw := range tokens {
		t, err := Parse(raw)
		if err != nil {
			continue
		}
		switch t.Kind {
		case KindRelative:
			dates[today.AddDate(0, 0, t.Offset).Format(isoLayout)] = true
		case KindWeekday:
			weekdays[t.Weekday] = true
		case KindDate:
			dates[t.Date.Format(isoLayout)] = true
		}
	}
	if len(weekdays) > 0 {
		for i := range cfg.horizon {
			d := today.AddDate(0, 0, i)
			if weekdays[isoWeekday(d)] {
				dates[d.Format(isoLayout)] = true
			}
		}
	}
	if len(dates) == 0 {
		return nil
	}
	out := make([]string, 0, len(dates))
	for d := range dates {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

var relativeLabels = []string{"Today", "Tomorrow", "Day after tomorrow"}

// Label returns a short display label for one token. Unparseable tokens are returned as-is.
func Label(token string, anchor time.Time) string {
	t, err := Parse(token)
	if err != nil {
		return token
	}
	switch t.Kind {
	case KindRelative:
		return relativeLabels[t.Offset]
	case KindWeekday:
		// 2024-01-01 was a Monday.
		return time.Date(2024, 1, t.Weekday, 0, 0, 0, 0, time.UTC).Format("Mon")
	default:
		today := civil(anchor)
		if offset := int(t.Date.Sub(today).Hours() / 24); !t.Date.Before(today) && offset < len(relativeLabels) {
			return relativeLabels[offset]
		}
		return t.Date.Format("Mon 2 Jan")
	}
}

// Summary labels a whole selection, "Any Day" when it is empty.
func Summary(tokens []string, anchor time.Time) string {
	canonical := Canonicalize(tokens, anchor)
	if len(canonical) == 0 {
		return "Any Day"
	}
	labels := make([]string, len(canonical))
	for i, t := range canonical {
		labels[i] = Label(t, anchor)
	}
	return strings.Join(labels, ", ")
}
