package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/filters"
)

var ErrInvalidPresetName = errors.New("invalid preset name")

// PresetSaver is the part of the backend that stores filter presets.
type PresetSaver interface {
	SaveFilterPreset(ctx context.Context, req internal.SavePresetRequest) (internal.FilterPreset, error)
}

// Filters is the filter state of one screen.
type Filters struct {
	screen filters.Screen
	saver  PresetSaver
	valid  *validator.Validate

	Cinemas       *Selection[[]int]
	Days          *Selection[[]string]
	TimeRanges    *Selection[[]string]
	Status        *Selection[internal.GoingStatus]
	WatchlistOnly *Selection[bool]
}

type FiltersOption func(*Filters)

// WithPresetSaver enables SaveAsPreset.
func WithPresetSaver(saver PresetSaver) FiltersOption {
	return func(f *Filters) {
		f.saver = saver
	}
}

// WithCinemaPersister makes Cinemas.Save store the preferred cinema selection.
func WithCinemaPersister(p Persister[[]int]) FiltersOption {
	return func(f *Filters) {
		f.Cinemas.persist = p
	}
}

func NewFilters(screen filters.Screen, opts ...FiltersOption) *Filters {
	f := &Filters{
		screen:        screen,
		valid:         validator.New(validator.WithRequiredStructEnabled()),
		Cinemas:       NewSelection(WithEqual(sameIDs)),
		Days:          NewSelection(WithEqual(sameStrings)),
		TimeRanges:    NewSelection(WithEqual(sameStrings)),
		Status:        NewSelection[internal.GoingStatus](),
		WatchlistOnly: NewSelection[bool](),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Filters) Screen() filters.Screen {
	return f.screen
}

// Seed initializes every selection from the user's favorite preset for this screen and
// their preferred cinemas. A preset that names cinemas takes precedence over the
// preferred list. Both may be nil.
func (f *Filters) Seed(favorite *internal.FilterPreset, preferredCinemas []int) {
	var p internal.FilterPayload
	if favorite != nil {
		p = f.screen.Apply(favorite.Filters)
	}
	cinemas := p.CinemaIDs
	if len(cinemas) == 0 {
		cinemas = preferredCinemas
	}
	f.Cinemas.Seed(slices.Clone(cinemas))
	f.Days.Seed(slices.Clone(p.Days))
	f.TimeRanges.Seed(slices.Clone(p.TimeRanges))
	f.Status.Seed(p.Status)
	f.WatchlistOnly.Seed(p.WatchlistOnly)
}

// Loaded reports whether every selection has a value.
func (f *Filters) Loaded() bool {
	_, c := f.Cinemas.Current()
	_, d := f.Days.Current()
	_, t := f.TimeRanges.Current()
	_, s := f.Status.Current()
	_, w := f.WatchlistOnly.Current()
	return c && d && t && s && w
}

// Payload is the current selection, restricted to the screen's filters.
func (f *Filters) Payload() internal.FilterPayload {
	cinemas, _ := f.Cinemas.Current()
	days, _ := f.Days.Current()
	ranges, _ := f.TimeRanges.Current()
	status, _ := f.Status.Current()
	watchlist, _ := f.WatchlistOnly.Current()
	return f.screen.Apply(internal.FilterPayload{
		CinemaIDs:     slices.Clone(cinemas),
		Days:          slices.Clone(days),
		TimeRanges:    slices.Clone(ranges),
		Status:        status,
		WatchlistOnly: watchlist,
	})
}

// ApplyPreset replaces the selection with a preset's filters.
func (f *Filters) ApplyPreset(p internal.FilterPreset) {
	payload := f.screen.Apply(p.Filters)
	f.Cinemas.Set(payload.CinemaIDs)
	f.Days.Set(payload.Days)
	f.TimeRanges.Set(payload.TimeRanges)
	f.Status.Set(payload.Status)
	f.WatchlistOnly.Set(payload.WatchlistOnly)
}

type presetName struct {
	Name string `validate:"required,max=64"`
}

// ValidatePresetName checks a preset name without any network call.
func (f *Filters) ValidatePresetName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := f.valid.Struct(presetName{Name: trimmed}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Tag() {
			case "required":
				return "", fmt.Errorf("%w: name is required", ErrInvalidPresetName)
			case "max":
				return "", fmt.Errorf("%w: name must be at most %s characters", ErrInvalidPresetName, verrs[0].Param())
			}
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidPresetName, err)
	}
	return trimmed, nil
}

// SaveAsPreset stores the current selection as a new preset for this screen.
func (f *Filters) SaveAsPreset(ctx context.Context, name string, favorite bool) (internal.FilterPreset, error) {
	trimmed, err := f.ValidatePresetName(name)
	if err != nil {
		return internal.FilterPreset{}, err
	}
	if f.saver == nil {
		return internal.FilterPreset{}, errors.New("no preset saver configured")
	}
	preset, err := f.saver.SaveFilterPreset(ctx, internal.SavePresetRequest{
		Name:       trimmed,
		Scope:      f.screen.Scope,
		Filters:    f.Payload(),
		IsFavorite: favorite,
	})
	if err != nil {
		slog.Warn("save-filter-preset", "scope", f.screen.Scope, "name", trimmed, "error", err)
		return internal.FilterPreset{}, fmt.Errorf("save preset %q: %w", trimmed, err)
	}
	return preset, nil
}

// sameIDs compares cinema selections as sets.
func sameIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

func sameStrings(a, b []string) bool {
	return slices.Equal(a, b)
}
