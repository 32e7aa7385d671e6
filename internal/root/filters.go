package root

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/days"
	"github.com/drewfead/moviebuddy/internal/filters"
	"github.com/drewfead/moviebuddy/internal/session"
	"github.com/drewfead/moviebuddy/internal/timerange"
)

var errUnknownPreset = errors.New("unknown preset")

// filterFlags are the flags a screen offers, plus the preset flags every filtered
// command shares.
func filterFlags(screen filters.Screen) []cli.Flag {
	var out []cli.Flag
	if screen.Cinemas {
		out = append(out,
			&cli.IntSliceFlag{Name: "cinema", Aliases: []string{"c"}, Usage: "cinema id; repeat for several"},
			&cli.StringFlag{Name: "cinema-preset", Usage: "use the cinemas of a saved cinema preset"},
			&cli.BoolFlag{Name: "remember-cinemas", Usage: "store the cinema selection as my preferred cinemas"},
		)
	}
	if screen.Days {
		out = append(out, &cli.StringSliceFlag{Name: "day", Aliases: []string{"d"}, Usage: "today, tomorrow, a weekday (sat) or a date (2026-10-18)"})
	}
	if screen.TimeRanges {
		out = append(out, &cli.StringFlag{Name: "time", Usage: "morning, afternoon, evening, late-night or HH:MM-HH:MM"})
	}
	if screen.Status {
		out = append(out, &cli.StringFlag{Name: "status", Usage: "going, interested or not-going"})
	}
	if screen.WatchlistOnly {
		out = append(out, &cli.BoolFlag{Name: "watchlist", Usage: "only movies on my watchlist"})
	}
	if screen.Query {
		out = append(out, &cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "title search"})
	}
	return append(out,
		&cli.StringFlag{Name: "preset", Usage: "apply a saved filter preset by name"},
		&cli.BoolFlag{Name: "no-favorite", Usage: "do not start from my favorite preset"},
		&cli.StringFlag{Name: "save-preset", Usage: "save the resulting filters as a preset"},
		&cli.BoolFlag{Name: "favorite", Usage: "with --save-preset, make it my favorite"},
	)
}

// sessionFilters builds the filter selection of a screen. It starts from my favorite
// preset and preferred cinemas, applies --preset, then the individual flags.
func (a *app) sessionFilters(ctx context.Context, cmd *cli.Command, screen filters.Screen) (*session.Filters, error) {
	f := session.NewFilters(screen,
		session.WithPresetSaver(a.presets),
		session.WithCinemaPersister(func(ctx context.Context, ids []int) error {
			_, err := a.cinemas.SetPreferred(ctx, ids)
			return err
		}),
	)

	var favorite *internal.FilterPreset
	if !cmd.Bool("no-favorite") {
		var err error
		favorite, err = a.presets.FavoriteFilter(ctx, screen.Scope)
		if err != nil {
			return nil, err
		}
	}
	var preferred []int
	if screen.Cinemas {
		var err error
		preferred, err = a.cinemas.Preferred(ctx)
		if err != nil {
			return nil, err
		}
	}
	f.Seed(favorite, preferred)

	if name := cmd.String("preset"); name != "" {
		list, err := a.presets.Filters(ctx, screen.Scope)
		if err != nil {
			return nil, err
		}
		i := slices.IndexFunc(list, func(p internal.FilterPreset) bool { return strings.EqualFold(p.Name, name) })
		if i < 0 {
			return nil, fmt.Errorf("%w %q for %s", errUnknownPreset, name, screen.Name)
		}
		f.ApplyPreset(list[i])
	}

	if err := a.applyFilterFlags(ctx, cmd, f); err != nil {
		return nil, err
	}
	if screen.Cinemas && cmd.Bool("remember-cinemas") {
		if err := f.Cinemas.Save(ctx); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// resolveFilters is sessionFilters plus --save-preset and the free-text query.
func (a *app) resolveFilters(ctx context.Context, cmd *cli.Command, screen filters.Screen) (internal.FilterPayload, error) {
	f, err := a.sessionFilters(ctx, cmd, screen)
	if err != nil {
		return internal.FilterPayload{}, err
	}
	if name := cmd.String("save-preset"); name != "" {
		saved, err := f.SaveAsPreset(ctx, name, cmd.Bool("favorite"))
		if err != nil {
			return internal.FilterPayload{}, err
		}
		if _, err := fmt.Fprintf(a.out.errOut(), "saved preset %q (%d)\n", saved.Name, saved.ID); err != nil {
			return internal.FilterPayload{}, err
		}
	}
	p := f.Payload()
	if screen.Query {
		p.Query = strings.TrimSpace(cmd.String("query"))
	}
	return p, nil
}

func (a *app) applyFilterFlags(ctx context.Context, cmd *cli.Command, f *session.Filters) error {
	screen := f.Screen()
	if screen.Cinemas {
		if name := cmd.String("cinema-preset"); name != "" {
			list, err := a.presets.CinemaPresets(ctx)
			if err != nil {
				return err
			}
			i := slices.IndexFunc(list, func(p internal.CinemaPreset) bool { return strings.EqualFold(p.Name, name) })
			if i < 0 {
				return fmt.Errorf("%w %q for cinemas", errUnknownPreset, name)
			}
			f.Cinemas.Set(slices.Clone(list[i].CinemaIDs))
		}
		if cmd.IsSet("cinema") {
			f.Cinemas.Set(cmd.IntSlice("cinema"))
		}
	}
	if screen.Days && cmd.IsSet("day") {
		anchor := days.Anchor(a.now(), a.cfg.Timezone)
		tokens := make([]string, 0, len(cmd.StringSlice("day")))
		for _, raw := range cmd.StringSlice("day") {
			token, err := parseDay(raw)
			if err != nil {
				return err
			}
			tokens = append(tokens, token)
		}
		f.Days.Set(days.Canonicalize(tokens, anchor))
	}
	if screen.TimeRanges && cmd.IsSet("time") {
		r, err := parseTime(cmd.String("time"))
		if err != nil {
			return err
		}
		var ranges []string
		if r != "" {
			ranges = []string{r}
		}
		f.TimeRanges.Set(ranges)
	}
	if screen.Status && cmd.IsSet("status") {
		status, err := parseStatus(cmd.String("status"))
		if err != nil {
			return err
		}
		f.Status.Set(status)
	}
	if screen.WatchlistOnly && cmd.IsSet("watchlist") {
		f.WatchlistOnly.Set(cmd.Bool("watchlist"))
	}
	return nil
}

var dayAliases = map[string]string{
	"today":              days.Today,
	"tomorrow":           days.Tomorrow,
	"day-after-tomorrow": days.DayAfterTomorrow,
	"day_after_tomorrow": days.DayAfterTomorrow,
}

// parseDay turns a day flag into a day token. Tokens in their stored form pass through.
func parseDay(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if token, ok := dayAliases[s]; ok {
		return token, nil
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			iso := int(wd)
			if iso == 0 {
				iso = 7
			}
			return fmt.Sprintf("%s%d", days.WeekdayPrefix, iso), nil
		}
	}
	t, err := days.Parse(s)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// parseTime accepts a preset name or a literal range. "any" clears the filter.
func parseTime(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "any") {
		return "", nil
	}
	if r, ok := timerange.Lookup(strings.ReplaceAll(s, "-", " ")); ok {
		return r, nil
	}
	r, err := timerange.Parse(s)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

func parseStatus(raw string) (internal.GoingStatus, error) {
	s := internal.GoingStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")))
	switch s {
	case "NONE", "ANY":
		return internal.GoingStatusUnset, nil
	}
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q (valid: going, interested, not-going, none)", raw)
	}
	return s, nil
}
