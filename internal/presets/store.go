package presets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/drewfead/moviebuddy/internal"
)

const (
	CinemaOrderKey       = "cinema_preset_order_v1"
	filterOrderKeyPrefix = "filter_preset_order_v1:"
)

func FilterOrderKey(scope string) string {
	return filterOrderKeyPrefix + scope
}

// OrderStore persists preset orders as JSON id lists.
type OrderStore struct {
	storage internal.Storage
}

func NewOrderStore(storage internal.Storage) *OrderStore {
	return &OrderStore{storage: storage}
}

// Load returns the stored order for key. A missing or unreadable value is an empty order.
func (s *OrderStore) Load(ctx context.Context, key string) ([]int, error) {
	raw, ok, err := s.storage.GetItem(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load preset order %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		slog.Warn("discard-preset-order", "key", key, "error", err)
		return nil, nil
	}
	return SanitizeOrderIDs(ids), nil
}

func (s *OrderStore) Save(ctx context.Context, key string, ids []int) error {
	if ids == nil {
		ids = []int{}
	}
	b, err := json.Marshal(SanitizeOrderIDs(ids))
	if err != nil {
		return fmt.Errorf("encode preset order: %w", err)
	}
	if err := s.storage.SetItem(ctx, key, string(b)); err != nil {
		return fmt.Errorf("save preset order %s: %w", key, err)
	}
	return nil
}
