package root

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drewfead/moviebuddy/internal"
)

const (
	FormatDense = "dense"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// syncWriter wraps an *os.File and calls Sync after each Write so streamed output
// (e.g. a long showtime feed to stdout) appears immediately on Windows.
type syncWriter struct {
	f *os.File
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	n, err = w.f.Write(p)
	if err != nil {
		return n, err
	}
	_ = w.f.Sync()
	return n, nil
}

// printer renders command results. Dense output is one template line per item; json
// and yaml print the whole value.
type printer struct {
	format string
	out    io.Writer
	loc    *time.Location
}

func newPrinter(format string, out io.Writer, zone string) (*printer, error) {
	switch format {
	case FormatDense, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: dense, json, yaml)", format)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid --timezone %q: %w", zone, err)
	}
	return &printer{format: format, out: out, loc: loc}, nil
}

func (p *printer) funcs() template.FuncMap {
	const cinemaColumnWidth = 16 // pad so "Eye Filmmuseum" and "LAB111" align
	return template.FuncMap{
		"shortTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(p.loc).Format("Mon 02 Jan 15:04")
		},
		"padCinema": func(s string) string {
			return fmt.Sprintf("%-*s", cinemaColumnWidth, s)
		},
		"orStr": func(s *string, fallback string) string {
			if s == nil || *s == "" {
				return fallback
			}
			return *s
		},
		"year": func(y *int) string {
			if y == nil {
				return "?"
			}
			return fmt.Sprint(*y)
		},
		"status": func(s internal.GoingStatus) string {
			if s == internal.GoingStatusUnset {
				return "-"
			}
			return string(s)
		},
		"names": func(users []internal.User) string {
			out := make([]string, len(users))
			for i, u := range users {
				out[i] = u.DisplayName
			}
			return strings.Join(out, ", ")
		},
		"join": func(items []string) string {
			return strings.Join(items, ", ")
		},
		"ids": func(ids []int) string {
			out := make([]string, len(ids))
			for i, id := range ids {
				out[i] = fmt.Sprint(id)
			}
			return strings.Join(out, ",")
		},
		"star": func(b bool) string {
			if b {
				return "*"
			}
			return " "
		},
	}
}

func (p *printer) structured(v any) (bool, error) {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func printList[T any](p *printer, items []T, dense string) error {
	if items == nil {
		items = []T{}
	}
	if done, err := p.structured(items); done {
		return err
	}
	tmpl, err := template.New("dense").Funcs(p.funcs()).Parse(dense)
	if err != nil {
		return fmt.Errorf("dense template: %w", err)
	}
	for _, item := range items {
		if err := tmpl.Execute(p.out, item); err != nil {
			return err
		}
		if _, err := io.WriteString(p.out, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func printOne[T any](p *printer, item T, dense string) error {
	if done, err := p.structured(item); done {
		return err
	}
	tmpl, err := template.New("dense").Funcs(p.funcs()).Parse(dense)
	if err != nil {
		return fmt.Errorf("dense template: %w", err)
	}
	if err := tmpl.Execute(p.out, item); err != nil {
		return err
	}
	_, err = io.WriteString(p.out, "\n")
	return err
}

// Dense templates, one line per item.
const (
	cinemaTemplate       = `{{.ID}} | {{.Name}} | {{.City.Name}}`
	showtimeTemplate     = `{{shortTime .Datetime}} | {{padCinema .Cinema.Name}} | {{if .Movie}}{{.Movie.Title}}{{else}}-{{end}} | #{{.ID}} {{status .Going}}{{if .SeatRow}} seat {{orStr .SeatRow "?"}}-{{orStr .SeatNumber "?"}}{{end}}{{if .FriendsGoing}} | going: {{names .FriendsGoing}}{{end}}{{if .FriendsInterested}} | interested: {{names .FriendsInterested}}{{end}}`
	movieTemplate        = `{{.ID}} | {{.Title}} ({{year .ReleaseYear}}) | {{len .Showtimes}}/{{.TotalShowtimes}} showtimes{{if .FriendsGoingCount}} | {{.FriendsGoingCount}} friends going{{end}}{{if .Going}} | GOING{{end}}`
	agendaTemplate       = `{{shortTime .Showtime.Datetime}} | {{padCinema .Showtime.Cinema.Name}} | {{if .Showtime.Movie}}{{.Showtime.Movie.Title}}{{else}}-{{end}} | {{if .Mine}}me{{else}}{{.Owner.DisplayName}}{{end}}`
	userTemplate         = `{{.ID}} | {{.DisplayName}}`
	searchTemplate       = `{{.ID}} | {{.DisplayName}}{{if .IsFriend}} | friend{{else if .SentRequest}} | request sent{{else if .ReceivedRequest}} | request received{{end}}`
	filterPresetTemplate = `{{star .IsFavorite}} {{.ID}} | {{.Name}}{{if .Filters.Days}} | days: {{join .Filters.Days}}{{end}}{{if .Filters.CinemaIDs}} | cinemas: {{ids .Filters.CinemaIDs}}{{end}}{{if .Filters.TimeRanges}} | time: {{join .Filters.TimeRanges}}{{end}}{{if .Filters.Status}} | {{.Filters.Status}}{{end}}{{if .Filters.WatchlistOnly}} | watchlist{{end}}`
	cinemaPresetTemplate = `{{star .IsFavorite}} {{.ID}} | {{.Name}} | cinemas: {{ids .CinemaIDs}}`
)

// errOut takes notices that must not mix with structured output.
func (p *printer) errOut() io.Writer {
	return os.Stderr
}
