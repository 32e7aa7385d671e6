package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/querycache"
)

type CinemasBackend interface {
	internal.UtilsService
	GetCinemaSelections(ctx context.Context) ([]int, error)
	SetCinemaSelections(ctx context.Context, cinemaIDs []int) ([]int, error)
}

type Cinemas struct {
	backend CinemasBackend
	cache   *querycache.Cache
}

func NewCinemas(backend CinemasBackend, cache *querycache.Cache) *Cinemas {
	return &Cinemas{backend: backend, cache: cache}
}

func (c *Cinemas) List(ctx context.Context) ([]internal.Cinema, error) {
	return querycache.Fetch(ctx, c.cache, keys.Cinemas(), c.backend.ListCinemas)
}

// Lookup resolves cinema ids, skipping unknown ones.
func (c *Cinemas) Lookup(ctx context.Context, ids []int) ([]internal.Cinema, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []internal.Cinema
	for _, cinema := range all {
		if slices.Contains(ids, cinema.ID) {
			out = append(out, cinema)
		}
	}
	return out, nil
}

// Preferred is the user's saved cinema selection.
func (c *Cinemas) Preferred(ctx context.Context) ([]int, error) {
	return querycache.Fetch(ctx, c.cache, keys.CinemaSelections(), c.backend.GetCinemaSelections)
}

func (c *Cinemas) SetPreferred(ctx context.Context, ids []int) ([]int, error) {
	saved, err := c.backend.SetCinemaSelections(ctx, ids)
	if err != nil {
		slog.Warn("set-cinema-selections", "error", err)
		return nil, fmt.Errorf("set cinema selections: %w", err)
	}
	querycache.SetData(c.cache, keys.CinemaSelections(), saved)
	return saved, nil
}
