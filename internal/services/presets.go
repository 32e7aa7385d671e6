package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/presets"
	"github.com/drewfead/moviebuddy/internal/querycache"
)

type PresetsBackend interface {
	ListFilterPresets(ctx context.Context, scope string) ([]internal.FilterPreset, error)
	SaveFilterPreset(ctx context.Context, req internal.SavePresetRequest) (internal.FilterPreset, error)
	DeleteFilterPreset(ctx context.Context, presetID int) error
	FavoriteFilterPreset(ctx context.Context, presetID int) (internal.FilterPreset, error)

	ListCinemaPresets(ctx context.Context) ([]internal.CinemaPreset, error)
	SaveCinemaPreset(ctx context.Context, req internal.SaveCinemaPresetRequest) (internal.CinemaPreset, error)
	DeleteCinemaPreset(ctx context.Context, presetID int) error
	FavoriteCinemaPreset(ctx context.Context, presetID int) (internal.CinemaPreset, error)
}

// Presets serves saved filter and cinema presets in the user's display order. The order
// lives in device storage, one list per filter scope plus one for cinema presets.
type Presets struct {
	backend PresetsBackend
	cache   *querycache.Cache
	store   *presets.OrderStore

	mu       sync.Mutex
	managers map[string]*presets.Manager
}

func NewPresets(backend PresetsBackend, cache *querycache.Cache, storage internal.Storage) *Presets {
	return &Presets{
		backend:  backend,
		cache:    cache,
		store:    presets.NewOrderStore(storage),
		managers: make(map[string]*presets.Manager),
	}
}

func (p *Presets) manager(key string) *presets.Manager {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.managers[key]
	if !ok {
		m = presets.NewManager(p.store, key)
		p.managers[key] = m
	}
	return m
}

// Filters lists the filter presets of scope in display order.
func (p *Presets) Filters(ctx context.Context, scope string) ([]internal.FilterPreset, error) {
	live, err := querycache.Fetch(ctx, p.cache, keys.FilterPresets(scope), func(ctx context.Context) ([]internal.FilterPreset, error) {
		return p.backend.ListFilterPresets(ctx, scope)
	})
	if err != nil {
		return nil, fmt.Errorf("list filter presets: %w", err)
	}
	return presets.Apply(ctx, p.manager(presets.FilterOrderKey(scope)), live)
}

// FavoriteFilter is the favorite preset of scope, if there is one.
func (p *Presets) FavoriteFilter(ctx context.Context, scope string) (*internal.FilterPreset, error) {
	list, err := p.Filters(ctx, scope)
	if err != nil {
		return nil, err
	}
	for _, preset := range list {
		if preset.IsFavorite {
			return &preset, nil
		}
	}
	return nil, nil
}

func (p *Presets) SaveFilter(ctx context.Context, req internal.SavePresetRequest) (internal.FilterPreset, error) {
	saved, err := p.backend.SaveFilterPreset(ctx, req)
	if err != nil {
		slog.Warn("save-filter-preset", "scope", req.Scope, "error", err)
		return internal.FilterPreset{}, fmt.Errorf("save filter preset: %w", err)
	}
	p.cache.InvalidateQueries(keys.FilterPresets(req.Scope))
	return saved, nil
}

// SaveFilterPreset lets Presets back a session's save-as-preset action.
func (p *Presets) SaveFilterPreset(ctx context.Context, req internal.SavePresetRequest) (internal.FilterPreset, error) {
	return p.SaveFilter(ctx, req)
}

func (p *Presets) DeleteFilter(ctx context.Context, scope string, id int) error {
	if err := p.backend.DeleteFilterPreset(ctx, id); err != nil {
		slog.Warn("delete-filter-preset", "preset_id", id, "error", err)
		return fmt.Errorf("delete filter preset %d: %w", id, err)
	}
	p.cache.InvalidateQueries(keys.FilterPresets(scope))
	return nil
}

// ToggleFilterFavorite flips the favorite flag; the backend keeps at most one favorite
// per scope.
func (p *Presets) ToggleFilterFavorite(ctx context.Context, scope string, id int) (internal.FilterPreset, error) {
	preset, err := p.backend.FavoriteFilterPreset(ctx, id)
	if err != nil {
		slog.Warn("favorite-filter-preset", "preset_id", id, "error", err)
		return internal.FilterPreset{}, fmt.Errorf("favorite filter preset %d: %w", id, err)
	}
	p.cache.InvalidateQueries(keys.FilterPresets(scope))
	return preset, nil
}

// ReorderFilters stores ids as the display order of scope.
func (p *Presets) ReorderFilters(ctx context.Context, scope string, ids []int) error {
	return p.manager(presets.FilterOrderKey(scope)).SetOrder(ctx, ids)
}

// MoveFilter shifts a preset of scope by delta positions. The list must have been
// displayed first.
func (p *Presets) MoveFilter(ctx context.Context, scope string, id, delta int) error {
	if _, err := p.Filters(ctx, scope); err != nil {
		return err
	}
	return p.manager(presets.FilterOrderKey(scope)).Move(ctx, id, delta)
}

func (p *Presets) CinemaPresets(ctx context.Context) ([]internal.CinemaPreset, error) {
	live, err := querycache.Fetch(ctx, p.cache, keys.CinemaPresets(), p.backend.ListCinemaPresets)
	if err != nil {
		return nil, fmt.Errorf("list cinema presets: %w", err)
	}
	return presets.Apply(ctx, p.manager(presets.CinemaOrderKey), live)
}

func (p *Presets) SaveCinemaPreset(ctx context.Context, req internal.SaveCinemaPresetRequest) (internal.CinemaPreset, error) {
	saved, err := p.backend.SaveCinemaPreset(ctx, req)
	if err != nil {
		slog.Warn("save-cinema-preset", "error", err)
		return internal.CinemaPreset{}, fmt.Errorf("save cinema preset: %w", err)
	}
	p.cache.InvalidateQueries(keys.CinemaPresets())
	return saved, nil
}

func (p *Presets) DeleteCinemaPreset(ctx context.Context, id int) error {
	if err := p.backend.DeleteCinemaPreset(ctx, id); err != nil {
		slog.Warn("delete-cinema-preset", "preset_id", id, "error", err)
		return fmt.Errorf("delete cinema preset %d: %w", id, err)
	}
	p.cache.InvalidateQueries(keys.CinemaPresets())
	return nil
}

func (p *Presets) ToggleCinemaFavorite(ctx context.Context, id int) (internal.CinemaPreset, error) {
	preset, err := p.backend.FavoriteCinemaPreset(ctx, id)
	if err != nil {
		slog.Warn("favorite-cinema-preset", "preset_id", id, "error", err)
		return internal.CinemaPreset{}, fmt.Errorf("favorite cinema preset %d: %w", id, err)
	}
	p.cache.InvalidateQueries(keys.CinemaPresets())
	return preset, nil
}

func (p *Presets) ReorderCinemaPresets(ctx context.Context, ids []int) error {
	return p.manager(presets.CinemaOrderKey).SetOrder(ctx, ids)
}

func (p *Presets) MoveCinemaPreset(ctx context.Context, id, delta int) error {
	if _, err := p.CinemaPresets(ctx); err != nil {
		return err
	}
	return p.manager(presets.CinemaOrderKey).Move(ctx, id, delta)
}

// Flush waits for pending order writes. Call it before the process exits.
func (p *Presets) Flush() {
	p.mu.Lock()
	managers := make([]*presets.Manager, 0, len(p.managers))
	for _, m := range p.managers {
		managers = append(managers, m)
	}
	p.mu.Unlock()
	for _, m := range managers {
		m.Flush()
	}
}
