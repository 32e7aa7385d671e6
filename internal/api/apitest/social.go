package apitest

import (
	"cmp"
	"net/http"
	"slices"
	"strings"

	"github.com/drewfead/moviebuddy/internal"
)

func (b *Backend) usersLocked(ids []int) []internal.User {
	out := make([]internal.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.users[id])
	}
	slices.SortFunc(out, func(x, y internal.User) int { return cmp.Compare(x.ID, y.ID) })
	return out
}

func (b *Backend) listFriends(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.usersLocked(b.friendsOfLocked(currentUser(r.Context()))))
}

func (b *Backend) listReceived(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []int
	for p := range b.requests {
		if p.b == viewer {
			ids = append(ids, p.a)
		}
	}
	writeJSON(w, http.StatusOK, b.usersLocked(ids))
}

func (b *Backend) listSent(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []int
	for p := range b.requests {
		if p.a == viewer {
			ids = append(ids, p.b)
		}
	}
	writeJSON(w, http.StatusOK, b.usersLocked(ids))
}

func (b *Backend) sendRequest(w http.ResponseWriter, r *http.Request) {
	viewer, other := currentUser(r.Context()), pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case other == viewer:
		writeError(w, http.StatusBadRequest, "Cannot befriend yourself")
	case b.users[other].ID == 0:
		writeError(w, http.StatusNotFound, "User not found")
	case b.friends[key(viewer, other)]:
		writeError(w, http.StatusConflict, "Already friends")
	case b.requests[pair{viewer, other}] || b.requests[pair{other, viewer}]:
		writeError(w, http.StatusConflict, "Friend request already pending")
	default:
		b.requests[pair{viewer, other}] = true
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) acceptRequest(w http.ResponseWriter, r *http.Request) {
	viewer, other := currentUser(r.Context()), pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.requests[pair{other, viewer}] {
		writeError(w, http.StatusNotFound, "Friend request not found")
		return
	}
	delete(b.requests, pair{other, viewer})
	b.friends[key(viewer, other)] = true
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) declineRequest(w http.ResponseWriter, r *http.Request) {
	viewer, other := currentUser(r.Context()), pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.requests[pair{other, viewer}] && !b.requests[pair{viewer, other}] {
		writeError(w, http.StatusNotFound, "Friend request not found")
		return
	}
	delete(b.requests, pair{other, viewer})
	delete(b.requests, pair{viewer, other})
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) removeFriend(w http.ResponseWriter, r *http.Request) {
	viewer, other := currentUser(r.Context()), pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.friends[key(viewer, other)] {
		writeError(w, http.StatusNotFound, "Not friends with this user")
		return
	}
	delete(b.friends, key(viewer, other))
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) searchUsers(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r.Context())
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("query")))
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []int
	for id, u := range b.users {
		if id != viewer && strings.Contains(strings.ToLower(u.DisplayName), query) {
			ids = append(ids, id)
		}
	}
	out := make([]internal.UserWithFriendStatus, 0, len(ids))
	for _, u := range b.usersLocked(ids) {
		out = append(out, internal.UserWithFriendStatus{
			User:            u,
			IsFriend:        b.friends[key(viewer, u.ID)],
			SentRequest:     b.requests[pair{viewer, u.ID}],
			ReceivedRequest: b.requests[pair{u.ID, viewer}],
		})
	}
	writeJSON(w, http.StatusOK, out)
}
