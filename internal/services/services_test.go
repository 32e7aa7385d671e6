package services

import (
	"context"
	"testing"
	"time"

	"github.com/drewfead/moviebuddy/internal/api"
	"github.com/drewfead/moviebuddy/internal/api/apitest"
	"github.com/drewfead/moviebuddy/internal/querycache"
	"github.com/stretchr/testify/require"
)

func clock() time.Time { return apitest.Now }

// aliceClient logs alice in against a freshly seeded backend.
func aliceClient(t *testing.T) (*apitest.Backend, *api.Client, *querycache.Cache) {
	t.Helper()
	backend := apitest.Seeded()
	srv := backend.Server(t)
	client, err := api.New(srv.URL, api.WithClock(clock))
	require.NoError(t, err)
	_, err = client.Login(context.Background(), "alice", apitest.Password)
	require.NoError(t, err)
	return backend, client, querycache.New(querycache.WithClock(clock))
}
