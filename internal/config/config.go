// Package config loads CLI settings. Later sources override earlier ones: defaults,
// a YAML file, a .env file, then MOVIEBUDDY_* environment variables. Flags are applied
// on top by the root command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/drewfead/moviebuddy/internal/days"
)

const EnvPrefix = "MOVIEBUDDY_"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	APIURL       string        `yaml:"api_url" validate:"required,url"`
	Timezone     string        `yaml:"timezone" validate:"required,timezone"`
	Storage      string        `yaml:"storage" validate:"required"`
	TMDBAPIKey   string        `yaml:"tmdb_api_key"`
	PageSize     int           `yaml:"page_size" validate:"min=1,max=100"`
	DayHorizon   int           `yaml:"day_horizon" validate:"min=1,max=366"`
	CacheEntries int           `yaml:"cache_entries" validate:"min=1"`
	CacheTTL     time.Duration `yaml:"cache_ttl" validate:"min=0"`
	Output       string        `yaml:"output" validate:"oneof=dense json yaml"`
}

// Default points at a local backend and keeps state next to the user's other config.
func Default() Config {
	return Config{
		APIURL:       "http://localhost:8000",
		Timezone:     days.DefaultZone,
		Storage:      "file://" + filepath.ToSlash(DefaultStatePath()),
		PageSize:     20,
		DayHorizon:   days.DefaultHorizon,
		CacheEntries: 500,
		CacheTTL:     5 * time.Minute,
		Output:       "dense",
	}
}

// DefaultStatePath is where device-local state lives when no storage URL is set.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "moviebuddy", "state.json")
}

type Option func(*loader)

type loader struct {
	file    string
	dotenv  string
	lookup  func(string) (string, bool)
	require bool
}

// WithFile reads a YAML file. A missing file is an error only when it was asked for
// explicitly with required.
func WithFile(path string, required bool) Option {
	return func(l *loader) {
		l.file = path
		l.require = required
	}
}

// WithDotEnv reads KEY=value pairs from path if it exists.
func WithDotEnv(path string) Option {
	return func(l *loader) {
		l.dotenv = path
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(l *loader) {
		l.lookup = lookup
	}
}

func Load(opts ...Option) (Config, error) {
	l := &loader{dotenv: ".env", lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	cfg := Default()

	if l.file != "" {
		data, err := os.ReadFile(l.file)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalid, l.file, err)
			}
		case errors.Is(err, os.ErrNotExist) && !l.require:
		default:
			return Config{}, fmt.Errorf("read config %s: %w", l.file, err)
		}
	}

	dotenv := map[string]string{}
	if l.dotenv != "" {
		values, err := godotenv.Read(l.dotenv)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", l.dotenv, err)
		}
	}
	lookup := func(name string) (string, bool) {
		if v, ok := l.lookup(EnvPrefix + name); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+name]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalid, EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}
	str("API_URL", &c.APIURL)
	str("TIMEZONE", &c.Timezone)
	str("STORAGE", &c.Storage)
	str("TMDB_API_KEY", &c.TMDBAPIKey)
	str("OUTPUT", &c.Output)
	for name, dst := range map[string]*int{
		"PAGE_SIZE":     &c.PageSize,
		"DAY_HORIZON":   &c.DayHorizon,
		"CACHE_ENTRIES": &c.CacheEntries,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup("CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sCACHE_TTL=%q: %w", ErrInvalid, EnvPrefix, v, err)
		}
		c.CacheTTL = d
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
