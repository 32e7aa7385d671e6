package root

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/days"
	"github.com/drewfead/moviebuddy/internal/enrichment"
	"github.com/drewfead/moviebuddy/internal/filters"
	"github.com/drewfead/moviebuddy/internal/pagination"
	"github.com/drewfead/moviebuddy/internal/timerange"
)

const movieDetailTemplate = `{{.Source.Title}} ({{year .Source.ReleaseYear}}){{if .Source.Directors}} by {{join .Source.Directors}}{{end}}` +
	`{{if .Extra.Tagline}}
  {{.Extra.Tagline}}{{end}}{{if .Extra.Overview}}
  {{.Extra.Overview}}{{end}}{{range .Extra.Links}}
  {{.Display}}: {{.Href}}{{end}}{{range .Source.Showtimes}}
{{shortTime .Datetime}} | {{padCinema .Cinema.Name}} | #{{.ID}} {{status .Going}}{{if .FriendsGoing}} | going: {{names .FriendsGoing}}{{end}}{{end}}`

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "pages", Usage: "pages to load", Value: 1},
		&cli.BoolFlag{Name: "all", Usage: "load every page"},
	}
}

// loadPages fetches the first page and then keeps revealing the end of the list until
// enough pages are loaded or none are left.
func loadPages[T any](ctx context.Context, cmd *cli.Command, d *pagination.Driver[T]) ([]T, error) {
	if _, err := d.FetchFirst(ctx); err != nil {
		return nil, err
	}
	all, pages := cmd.Bool("all"), cmd.Int("pages")
	for loaded := 1; all || loaded < pages; loaded++ {
		fetched, err := d.OnSentinel(ctx, true)
		if err != nil {
			return nil, err
		}
		if !fetched {
			break
		}
	}
	return d.Items(), nil
}

func intArg(cmd *cli.Command, i int, name string) (int, error) {
	raw := cmd.Args().Get(i)
	if raw == "" {
		return 0, fmt.Errorf("missing %s argument", name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return n, nil
}

func moviesCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "movies",
		Usage: "list movies with upcoming showtimes",
		Flags: append(filterFlags(filters.MoviesList), pageFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := a.resolveFilters(ctx, cmd, filters.MoviesList)
			if err != nil {
				return err
			}
			movies, err := loadPages(ctx, cmd, a.catalog.Movies(p))
			if err != nil {
				return fmt.Errorf("list movies: %w", err)
			}
			return printList(a.out, movies, movieTemplate)
		},
	}
}

func movieCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "movie",
		Usage:     "show one movie and its showtimes",
		ArgsUsage: "MOVIE_ID",
		Flags:     filterFlags(filters.MovieDetail),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := intArg(cmd, 0, "movie id")
			if err != nil {
				return err
			}
			p, err := a.resolveFilters(ctx, cmd, filters.MovieDetail)
			if err != nil {
				return err
			}
			movie, err := a.catalog.Movie(ctx, id, p.CinemaIDs)
			if err != nil {
				return err
			}
			list, err := a.catalog.MovieShowtimes(ctx, id, p)
			if err != nil {
				return err
			}
			movie.Showtimes = list
			return printOne(a.out, enrichment.Enrich(ctx, movie, a.enrichers...), movieDetailTemplate)
		},
	}
}

func showtimesCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "showtimes",
		Usage: "list the showtimes I picked a status for",
		Flags: append(filterFlags(filters.ShowtimeFeed), pageFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := a.resolveFilters(ctx, cmd, filters.ShowtimeFeed)
			if err != nil {
				return err
			}
			list, err := loadPages(ctx, cmd, a.catalog.MyShowtimes(p))
			if err != nil {
				return fmt.Errorf("list my showtimes: %w", err)
			}
			return printList(a.out, list, showtimeTemplate)
		},
	}
}

func goingCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "going",
		Usage:     "set my status for a showtime",
		ArgsUsage: "SHOWTIME_ID going|interested|not-going",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "seat-row"},
			&cli.StringFlag{Name: "seat-number"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := intArg(cmd, 0, "showtime id")
			if err != nil {
				return err
			}
			status, err := parseStatus(cmd.Args().Get(1))
			if err != nil {
				return err
			}
			if status == internal.GoingStatusUnset {
				return fmt.Errorf("a status is required (valid: going, interested, not-going)")
			}
			update := internal.StatusUpdate{Going: status}
			if row := strings.TrimSpace(cmd.String("seat-row")); row != "" {
				update.SeatRow = &row
			}
			if seat := strings.TrimSpace(cmd.String("seat-number")); seat != "" {
				update.SeatNumber = &seat
			}
			st, err := a.catalog.SetStatus(ctx, id, update)
			if err != nil {
				return err
			}
			return printOne(a.out, st, showtimeTemplate)
		},
	}
}

func agendaCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "agenda",
		Usage: "my plans and my friends' plans, by start time",
		Flags: append(filterFlags(filters.UserAgenda),
			&cli.IntFlag{Name: "limit", Usage: "show at most this many entries; 0 shows all"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			me, err := a.me(ctx)
			if err != nil {
				return err
			}
			p, err := a.resolveFilters(ctx, cmd, filters.UserAgenda)
			if err != nil {
				return err
			}
			entries, err := a.agenda.Build(ctx, me, a.catalog.AgendaQuery(p), cmd.Int("limit"))
			if err != nil {
				return fmt.Errorf("build agenda: %w", err)
			}
			return printList(a.out, entries, agendaTemplate)
		},
	}
}

type dayRow struct {
	Token string `json:"token" yaml:"token"`
	Label string `json:"label" yaml:"label"`
}

func daysCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "days",
		Usage:     "show day filter choices, or how the given days read",
		ArgsUsage: "[DAY...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			anchor := days.Anchor(a.now(), a.cfg.Timezone)
			var tokens []string
			if cmd.Args().Len() == 0 {
				tokens = append(tokens, days.Today, days.Tomorrow, days.DayAfterTomorrow)
				for wd := 1; wd <= 7; wd++ {
					tokens = append(tokens, days.WeekdayPrefix+strconv.Itoa(wd))
				}
			} else {
				for _, raw := range cmd.Args().Slice() {
					token, err := parseDay(raw)
					if err != nil {
						return err
					}
					tokens = append(tokens, token)
				}
				tokens = days.Canonicalize(tokens, anchor)
			}
			rows := make([]dayRow, len(tokens))
			for i, t := range tokens {
				rows[i] = dayRow{Token: t, Label: days.Label(t, anchor)}
			}
			return printList(a.out, rows, `{{.Token}} | {{.Label}}`)
		},
	}
}

type timeRow struct {
	Name  string `json:"name" yaml:"name"`
	Range string `json:"range" yaml:"range"`
}

func timesCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "times",
		Usage:     "show time-of-day presets, or how the given range reads",
		ArgsUsage: "[RANGE]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var rows []timeRow
			if raw := cmd.Args().First(); raw != "" {
				r, err := parseTime(raw)
				if err != nil {
					return err
				}
				var ranges []string
				if r != "" {
					ranges = []string{r}
				}
				rows = append(rows, timeRow{Name: timerange.Label(ranges), Range: r})
			} else {
				for _, p := range timerange.Presets() {
					rows = append(rows, timeRow{Name: p.Name, Range: p.Range})
				}
			}
			return printList(a.out, rows, `{{.Name}} | {{.Range}}`)
		},
	}
}
