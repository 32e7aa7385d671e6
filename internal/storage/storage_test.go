package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s internal.Storage) {
	t.Helper()
	ctx := t.Context()

	_, ok, err := s.GetItem(ctx, "cinema_preset_order_v1")
	require.NoError(t, err)
	assert.False(t, ok, "missing key")

	require.NoError(t, s.SetItem(ctx, "cinema_preset_order_v1", "[3,1,2]"))
	v, ok, err := s.GetItem(ctx, "cinema_preset_order_v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[3,1,2]", v)

	require.NoError(t, s.SetItem(ctx, "cinema_preset_order_v1", "[1]"), "overwrite")
	v, _, err = s.GetItem(ctx, "cinema_preset_order_v1")
	require.NoError(t, err)
	assert.Equal(t, "[1]", v)

	require.NoError(t, s.RemoveItem(ctx, "cinema_preset_order_v1"))
	_, ok, err = s.GetItem(ctx, "cinema_preset_order_v1")
	require.NoError(t, err)
	assert.False(t, ok, "removed key")
	require.NoError(t, s.RemoveItem(ctx, "never-set"), "removing a missing key is not an error")
}

func TestUnit_Storage_Backends(t *testing.T) {
	cases := map[string]func(t *testing.T) internal.Storage{
		"memory": func(*testing.T) internal.Storage { return Memory() },
		"file": func(t *testing.T) internal.Storage {
			return File(filepath.Join(t.TempDir(), "nested", "state.json"))
		},
		"sqlite": func(t *testing.T) internal.Storage {
			s, err := Open(t.Context(), "sqlite://"+filepath.Join(t.TempDir(), "state.db"))
			require.NoError(t, err)
			return s
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			exerciseStorage(t, build(t))
		})
	}
}

func TestUnit_File_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, File(path).SetItem(t.Context(), "auth_token_v1", "abc"))

	v, ok, err := File(path).GetItem(t.Context(), "auth_token_v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestUnit_Registry(t *testing.T) {
	_, err := Open(t.Context(), "s3://bucket/key")
	require.ErrorIs(t, err, ErrUnknownBackend)

	s, err := Open(t.Context(), "memory:")
	require.NoError(t, err)
	exerciseStorage(t, s)

	custom := Memory()
	r := NewRegistry(WithBackend("TEST", func(context.Context, *url.URL) (internal.Storage, error) {
		return custom, nil
	}))
	got, err := r.Open(t.Context(), "test://anything")
	require.NoError(t, err)
	assert.Same(t, custom, got)

	fileStore, err := Open(t.Context(), "file://"+filepath.Join(t.TempDir(), "x.json"))
	require.NoError(t, err)
	exerciseStorage(t, fileStore)
}

func TestIntegration_Redis(t *testing.T) {
	redisURL := os.Getenv("MOVIEBUDDY_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("MOVIEBUDDY_TEST_REDIS_URL is not set")
	}
	s, err := Open(t.Context(), redisURL+"?prefix=moviebuddy-test:")
	require.NoError(t, err)
	exerciseStorage(t, s)
}
