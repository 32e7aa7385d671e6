package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/drewfead/moviebuddy/internal"
)

// TokenKey is the storage key of the session token.
const TokenKey = "access_token"

// expiryLeeway treats tokens about to expire as expired so a request does not race
// the expiry on its way to the server.
const expiryLeeway = 10 * time.Second

// TokenStore keeps the session token in device storage.
type TokenStore struct {
	storage internal.Storage
	now     func() time.Time
}

func NewTokenStore(storage internal.Storage, now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{storage: storage, now: now}
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	if err := s.storage.SetItem(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.storage.RemoveItem(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Load returns a usable token. Missing and expired tokens are ErrNotLoggedIn; an expired
// token is removed.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	token, ok, err := s.storage.GetItem(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if !ok || token == "" {
		return "", ErrNotLoggedIn
	}
	if exp, ok := Expiry(token); ok && !s.now().Add(expiryLeeway).Before(exp) {
		slog.Debug("token-expired", "expired_at", exp)
		if err := s.Clear(ctx); err != nil {
			slog.Warn("clear-expired-token", "error", err)
		}
		return "", fmt.Errorf("%w: session expired at %s", ErrNotLoggedIn, exp.Format(time.RFC3339))
	}
	return token, nil
}

// Expiry reads the exp claim of a JWT without verifying its signature; only the server
// can do that. Opaque tokens and tokens without exp report ok=false.
func Expiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Subject reads the sub claim, the user id, without verifying the token.
func Subject(token string) (int, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return 0, false
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, false
	}
	return id, true
}

type publicKey struct{}

// public marks a request that may be sent without a session.
func public(ctx context.Context) context.Context {
	return context.WithValue(ctx, publicKey{}, true)
}

func isPublic(ctx context.Context) bool {
	v, _ := ctx.Value(publicKey{}).(bool)
	return v
}

// bearerTransport attaches the stored token. Requests that need a session fail with
// ErrNotLoggedIn before reaching the network when there is none. A 401 drops the token.
type bearerTransport struct {
	base   http.RoundTripper
	tokens *TokenStore
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	token, err := t.tokens.Load(ctx)
	switch {
	case err == nil:
		req = req.Clone(ctx)
		req.Header.Set("Authorization", "Bearer "+token)
	case isPublic(ctx):
	default:
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		if err := t.tokens.Clear(ctx); err != nil {
			slog.Warn("clear-rejected-token", "error", err)
		}
	}
	return resp, nil
}
