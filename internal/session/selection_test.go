package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Selection_UndefinedUntilSeeded(t *testing.T) {
	s := NewSelection[[]int]()
	v, ok := s.Current()
	assert.False(t, ok)
	assert.Nil(t, v)

	s.Seed([]int{1, 2})
	v, ok = s.Current()
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)
}

func TestUnit_Selection_FirstSeedWins(t *testing.T) {
	s := NewSelection[string]()
	s.Seed("favorite")
	assert.True(t, s.Set("picked"))
	s.Seed("refetched favorite")

	v, _ := s.Current()
	assert.Equal(t, "picked", v)
	p, ok := s.Persisted()
	assert.True(t, ok)
	assert.Equal(t, "refetched favorite", p)

	assert.True(t, s.UsePersisted())
	v, _ = s.Current()
	assert.Equal(t, "refetched favorite", v)
}

func TestUnit_Selection_SetComparesFirst(t *testing.T) {
	s := NewSelection[[]string]()
	assert.True(t, s.Set([]string{"relative:today"}))
	assert.False(t, s.Set([]string{"relative:today"}))
	assert.True(t, s.Set(nil))
	assert.False(t, s.UsePersisted())
}

func TestUnit_Selection_Save(t *testing.T) {
	ctx := context.Background()
	var saved []int
	s := NewSelection(WithPersister[[]int](func(_ context.Context, v []int) error {
		saved = v
		return nil
	}))
	require.ErrorIs(t, s.Save(ctx), ErrNotLoaded)

	s.Seed([]int{1})
	s.Set([]int{1, 3})
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, []int{1, 3}, saved)
	p, _ := s.Persisted()
	assert.Equal(t, []int{1, 3}, p)
}

func TestUnit_Selection_SaveFailureKeepsPersisted(t *testing.T) {
	s := NewSelection(WithPersister[int](func(context.Context, int) error {
		return errors.New("offline")
	}))
	s.Seed(1)
	s.Set(2)
	require.Error(t, s.Save(context.Background()))
	p, _ := s.Persisted()
	assert.Equal(t, 1, p)
}
