package root

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/api"
	"github.com/drewfead/moviebuddy/internal/config"
	"github.com/drewfead/moviebuddy/internal/enrichment"
	"github.com/drewfead/moviebuddy/internal/querycache"
	"github.com/drewfead/moviebuddy/internal/services"
	"github.com/drewfead/moviebuddy/internal/storage"
)

// RootOption configures the root command (e.g. for tests).
type RootOption func(*rootConfig)

type rootConfig struct {
	storage   internal.Storage
	transport http.RoundTripper
	now       func() time.Time
	out       io.Writer
	lookupEnv func(string) (string, bool)
	dotenv    string
	tmdbOpts  []enrichment.TMDBOption
}

// WithStorage replaces the storage named by --storage. Use in tests to keep a session
// across several runs.
func WithStorage(s internal.Storage) RootOption {
	return func(c *rootConfig) {
		c.storage = s
	}
}

// WithTransport sets the transport of the API client.
func WithTransport(rt http.RoundTripper) RootOption {
	return func(c *rootConfig) {
		c.transport = rt
	}
}

func WithClock(now func() time.Time) RootOption {
	return func(c *rootConfig) {
		c.now = now
	}
}

// WithWriter sends command output to w instead of stdout.
func WithWriter(w io.Writer) RootOption {
	return func(c *rootConfig) {
		c.out = w
	}
}

// WithLookupEnv replaces os.LookupEnv and disables the .env file.
func WithLookupEnv(lookup func(string) (string, bool)) RootOption {
	return func(c *rootConfig) {
		c.lookupEnv = lookup
		c.dotenv = ""
	}
}

// WithTMDBOptions configures the TMDB enrichment provider built when an api key is set.
func WithTMDBOptions(opts ...enrichment.TMDBOption) RootOption {
	return func(c *rootConfig) {
		c.tmdbOpts = append(c.tmdbOpts, opts...)
	}
}

// app holds everything a command needs. It is built in the root Before hook once flags
// and config are known.
type app struct {
	cfg       config.Config
	now       func() time.Time
	client    *api.Client
	cache     *querycache.Cache
	catalog   *services.Catalog
	cinemas   *services.Cinemas
	friends   *services.Friends
	presets   *services.Presets
	watchlist *services.Watchlist
	agenda    *services.Agenda
	enrichers []internal.EnrichmentProvider
	out       *printer
}

func Root(ctx context.Context, opts ...RootOption) (*cli.Command, error) {
	rc := &rootConfig{
		now:       time.Now,
		lookupEnv: os.LookupEnv,
		dotenv:    ".env",
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.out == nil {
		rc.out = &syncWriter{f: os.Stdout}
	}

	a := &app{now: rc.now}
	rootCmd := &cli.Command{
		Name:  "moviebuddy",
		Usage: "find showtimes, plan with friends and keep your filters",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file", Value: "moviebuddy.yaml"},
			&cli.StringFlag{Name: "api-url", Usage: "backend base URL, without /api/v1"},
			&cli.StringFlag{Name: "timezone", Usage: "IANA zone that days and times are shown in"},
			&cli.StringFlag{Name: "storage", Usage: "device storage URL (file://, sqlite://, redis://, memory://)"},
			&cli.StringFlag{Name: "tmdb-api-key", Usage: "enables TMDB enrichment on movie details"},
			&cli.IntFlag{Name: "page-size", Usage: "rows per page of paginated lists"},
			&cli.IntFlag{Name: "day-horizon", Usage: "days ahead that weekday filters expand to"},
			&cli.IntFlag{Name: "cache-entries", Usage: "maximum cached queries and responses"},
			&cli.DurationFlag{Name: "cache-ttl", Usage: "how long a cached query stays fresh"},
			&cli.StringFlag{Name: "format", Aliases: []string{"o"}, Usage: "output format: dense, json or yaml"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: "warn"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureLogging(cmd.String("log-level"))
			if err := a.build(ctx, cmd, rc); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if a.presets != nil {
				a.presets.Flush()
			}
			return nil
		},
		Commands: []*cli.Command{
			loginCommand(a),
			logoutCommand(a),
			cinemasCommand(a),
			moviesCommand(a),
			movieCommand(a),
			showtimesCommand(a),
			goingCommand(a),
			agendaCommand(a),
			friendsCommand(a),
			watchlistCommand(a),
			presetsCommand(a),
			cinemaPresetsCommand(a),
			daysCommand(a),
			timesCommand(a),
		},
	}
	return rootCmd, nil
}

func configureLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func (a *app) build(ctx context.Context, cmd *cli.Command, rc *rootConfig) error {
	cfg, err := config.Load(
		config.WithFile(cmd.String("config"), cmd.IsSet("config")),
		config.WithDotEnv(rc.dotenv),
		config.WithLookupEnv(rc.lookupEnv),
	)
	if err != nil {
		return err
	}
	if cmd.IsSet("api-url") {
		cfg.APIURL = cmd.String("api-url")
	}
	if cmd.IsSet("timezone") {
		cfg.Timezone = cmd.String("timezone")
	}
	if cmd.IsSet("storage") {
		cfg.Storage = cmd.String("storage")
	}
	if cmd.IsSet("tmdb-api-key") {
		cfg.TMDBAPIKey = cmd.String("tmdb-api-key")
	}
	if cmd.IsSet("page-size") {
		cfg.PageSize = cmd.Int("page-size")
	}
	if cmd.IsSet("day-horizon") {
		cfg.DayHorizon = cmd.Int("day-horizon")
	}
	if cmd.IsSet("cache-entries") {
		cfg.CacheEntries = cmd.Int("cache-entries")
	}
	if cmd.IsSet("cache-ttl") {
		cfg.CacheTTL = cmd.Duration("cache-ttl")
	}
	if cmd.IsSet("format") {
		cfg.Output = strings.ToLower(cmd.String("format"))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.out, err = newPrinter(cfg.Output, rc.out, cfg.Timezone)
	if err != nil {
		return err
	}

	st := rc.storage
	if st == nil {
		st, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
	}

	clientOpts := []api.Option{
		api.WithStorage(st),
		api.WithResponseCache(cfg.CacheEntries),
		api.WithClock(a.now),
	}
	if rc.transport != nil {
		clientOpts = append(clientOpts, api.WithTransport(rc.transport))
	}
	a.client, err = api.New(cfg.APIURL, clientOpts...)
	if err != nil {
		return err
	}

	a.cache = querycache.New(
		querycache.WithMaxEntries(cfg.CacheEntries),
		querycache.WithStaleTime(cfg.CacheTTL),
		querycache.WithClock(a.now),
	)
	a.catalog = services.NewCatalog(a.client, a.cache,
		services.WithCatalogClock(a.now),
		services.WithZone(cfg.Timezone),
		services.WithPageSize(cfg.PageSize),
		services.WithHorizon(cfg.DayHorizon),
	)
	a.cinemas = services.NewCinemas(a.client, a.cache)
	a.friends = services.NewFriends(a.client, a.cache)
	a.presets = services.NewPresets(a.client, a.cache, st)
	a.watchlist = services.NewWatchlist(a.client, a.cache)
	a.agenda = services.NewAgenda(a.client)

	a.enrichers = nil
	if cfg.TMDBAPIKey != "" {
		provider, err := enrichment.TMDB(cfg.TMDBAPIKey, rc.tmdbOpts...)
		if err != nil {
			slog.Info("TMDB enrichment not configured", "reason", "client init failed", "error", err)
		} else {
			a.enrichers = append(a.enrichers, provider)
			slog.Debug("TMDB enrichment configured")
		}
	} else {
		slog.Debug("TMDB enrichment not configured", "reason", "no api key")
	}
	return nil
}

// me is the logged-in user, read from the session token.
func (a *app) me(ctx context.Context) (internal.User, error) {
	token, err := a.client.Tokens().Load(ctx)
	if err != nil {
		return internal.User{}, err
	}
	id, ok := api.Subject(token)
	if !ok {
		return internal.User{}, fmt.Errorf("%w: session token names no user", api.ErrNotLoggedIn)
	}
	return internal.User{ID: id, DisplayName: "me"}, nil
}

func loginCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in and keep the session in device storage",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "defaults to $MOVIEBUDDY_PASSWORD"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			password := cmd.String("password")
			if password == "" {
				password = os.Getenv(config.EnvPrefix + "PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("a password is required: pass --password or set %sPASSWORD", config.EnvPrefix)
			}
			if _, err := a.client.Login(ctx, cmd.String("username"), password); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			_, err := fmt.Fprintf(a.out.out, "logged in as %s\n", cmd.String("username"))
			return err
		},
	}
}

func logoutCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the session",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.client.Logout(ctx); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out.out, "logged out")
			return err
		},
	}
}
