// Package storage provides the key-value stores used for device-local state such as
// preset display order and the session token.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/drewfead/moviebuddy/internal"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Opener builds a store from a parsed storage URL.
type Opener func(ctx context.Context, u *url.URL) (internal.Storage, error)

type Registry interface {
	Open(ctx context.Context, rawURL string) (internal.Storage, error)
}

type RegistryOption func(r *registry)

// NewRegistry returns a registry with the built-in backends: memory, file, sqlite and redis.
func NewRegistry(opts ...RegistryOption) Registry {
	r := &registry{
		openers: map[string]Opener{
			"memory": func(context.Context, *url.URL) (internal.Storage, error) { return Memory(), nil },
			"file":   openFile,
			"sqlite": openSQLite,
			"redis":  openRedis,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithBackend registers or replaces the opener for a URL scheme.
func WithBackend(scheme string, opener Opener) RegistryOption {
	return func(r *registry) {
		r.openers[strings.ToLower(scheme)] = opener
	}
}

type registry struct {
	openers map[string]Opener
}

func (r *registry) Open(ctx context.Context, rawURL string) (internal.Storage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse storage url %q: %w", rawURL, err)
	}
	opener, ok := r.openers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, u.Scheme)
	}
	return opener(ctx, u)
}

// Open uses the default registry.
func Open(ctx context.Context, rawURL string) (internal.Storage, error) {
	return NewRegistry().Open(ctx, rawURL)
}

// urlPath returns the filesystem path of file:///abs and file:rel style URLs.
func urlPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}
