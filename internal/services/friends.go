package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/keys"
	"github.com/drewfead/moviebuddy/internal/querycache"
)

type FriendsBackend interface {
	internal.FriendsService
	SearchUsers(ctx context.Context, query string) ([]internal.UserWithFriendStatus, error)
}

// Friends reads the social graph through the query cache. Changes are sent to the
// backend and then invalidate what they affect; nothing is updated optimistically.
type Friends struct {
	backend FriendsBackend
	cache   *querycache.Cache
}

func NewFriends(backend FriendsBackend, cache *querycache.Cache) *Friends {
	return &Friends{backend: backend, cache: cache}
}

func (f *Friends) List(ctx context.Context) ([]internal.User, error) {
	return querycache.Fetch(ctx, f.cache, keys.Friends(), f.backend.ListFriends)
}

// Requests lists pending requests; direction is keys.RequestsReceived or keys.RequestsSent.
func (f *Friends) Requests(ctx context.Context, direction string) ([]internal.User, error) {
	var list func(context.Context) ([]internal.User, error)
	switch direction {
	case keys.RequestsReceived:
		list = f.backend.ListReceivedRequests
	case keys.RequestsSent:
		list = f.backend.ListSentRequests
	default:
		return nil, fmt.Errorf("unknown request direction %q", direction)
	}
	return querycache.Fetch(ctx, f.cache, keys.FriendRequests(direction), list)
}

func (f *Friends) Search(ctx context.Context, query string) ([]internal.UserWithFriendStatus, error) {
	return querycache.Fetch(ctx, f.cache, keys.Users(query), func(ctx context.Context) ([]internal.UserWithFriendStatus, error) {
		return f.backend.SearchUsers(ctx, query)
	})
}

func (f *Friends) Send(ctx context.Context, userID int) error {
	return f.change(ctx, "send-friend-request", userID, f.backend.SendRequest, false)
}

func (f *Friends) Accept(ctx context.Context, userID int) error {
	return f.change(ctx, "accept-friend-request", userID, f.backend.AcceptRequest, true)
}

func (f *Friends) Decline(ctx context.Context, userID int) error {
	return f.change(ctx, "decline-friend-request", userID, f.backend.DeclineRequest, false)
}

// Cancel withdraws a request I sent.
func (f *Friends) Cancel(ctx context.Context, userID int) error {
	return f.change(ctx, "cancel-friend-request", userID, f.backend.DeclineRequest, false)
}

func (f *Friends) Remove(ctx context.Context, userID int) error {
	return f.change(ctx, "remove-friend", userID, f.backend.RemoveFriend, true)
}

// change runs one social-graph mutation. When the friend set changes, the friends
// shown on showtimes change too.
func (f *Friends) change(ctx context.Context, op string, userID int, call func(context.Context, int) error, friendSetChanged bool) error {
	if err := call(ctx, userID); err != nil {
		slog.Warn(op, "user_id", userID, "error", err)
		return fmt.Errorf("%s %d: %w", op, userID, err)
	}
	f.cache.InvalidateQueries(keys.Friends())
	f.cache.InvalidateQueries(keys.AllFriendRequests())
	f.cache.InvalidateQueries(keys.AllUsers())
	if friendSetChanged {
		f.cache.InvalidateQueries(keys.AllMovies())
		f.cache.InvalidateQueries(keys.AllShowtimes())
	}
	slog.Debug(op, "user_id", userID)
	return nil
}
