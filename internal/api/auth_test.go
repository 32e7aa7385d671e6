package api

import (
	"context"
	"testing"
	"time"

	"github.com/drewfead/moviebuddy/internal/api/apitest"
	"github.com/drewfead/moviebuddy/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_TokenStore(t *testing.T) {
	ctx := context.Background()
	backend := apitest.Seeded()
	now := apitest.Now
	store := NewTokenStore(storage.Memory(), func() time.Time { return now })

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, store.Save(ctx, "opaque-token"))
	tok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", tok)

	jwtToken := backend.IssueToken(apitest.AliceID, time.Hour)
	require.NoError(t, store.Save(ctx, jwtToken))
	tok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, jwtToken, tok)

	now = now.Add(time.Hour - 5*time.Second)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn, "inside the expiry leeway")
}

func TestUnit_Subject(t *testing.T) {
	backend := apitest.Seeded()
	id, ok := Subject(backend.IssueToken(apitest.CarolID, time.Hour))
	require.True(t, ok)
	assert.Equal(t, apitest.CarolID, id)

	_, ok = Subject("opaque-token")
	assert.False(t, ok)
}
