// Package apitest is an in-memory moviebuddy backend for tests. It serves the same REST
// routes as the real API, issues real signed tokens, and can be told to fail any route.
package apitest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/days"
)

const (
	DefaultTokenTTL = time.Hour
	signingKey      = "apitest-signing-key-not-a-secret!"
)

type selection struct {
	update internal.StatusUpdate
}

type pair struct{ a, b int }

type failure struct {
	status int
	detail string
	times  int
}

// Backend is the fake. All exported mutators are safe for concurrent use.
type Backend struct {
	mu  sync.Mutex
	now func() time.Time
	loc *time.Location
	ttl time.Duration

	users     map[int]internal.User
	passwords map[string]int
	cinemas   []internal.Cinema
	movies    map[int]internal.Movie
	showtimes map[int]internal.Showtime

	selections   map[pair]selection // (user, showtime)
	friends      map[pair]bool      // symmetric
	requests     map[pair]bool      // (from, to)
	watchlists   map[int]map[int]bool
	watchSyncs   int
	cinemaPrefs  map[int][]int
	filterSets   map[int]internal.FilterPreset
	filterOwner  map[int]int
	cinemaSets   map[int]internal.CinemaPreset
	cinemaOwner  map[int]int
	nextID       int
	failures     map[string]*failure
	requestCount map[string]int
	requestIDs   []string

	router *mux.Router
}

type Option func(*Backend)

func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.ttl = ttl
	}
}

func New(opts ...Option) *Backend {
	loc, err := time.LoadLocation(days.DefaultZone)
	if err != nil {
		loc = time.UTC
	}
	b := &Backend{
		now:          time.Now,
		loc:          loc,
		ttl:          DefaultTokenTTL,
		users:        make(map[int]internal.User),
		passwords:    make(map[string]int),
		movies:       make(map[int]internal.Movie),
		showtimes:    make(map[int]internal.Showtime),
		selections:   make(map[pair]selection),
		friends:      make(map[pair]bool),
		requests:     make(map[pair]bool),
		watchlists:   make(map[int]map[int]bool),
		cinemaPrefs:  make(map[int][]int),
		filterSets:   make(map[int]internal.FilterPreset),
		filterOwner:  make(map[int]int),
		cinemaSets:   make(map[int]internal.CinemaPreset),
		cinemaOwner:  make(map[int]int),
		nextID:       1000,
		failures:     make(map[string]*failure),
		requestCount: make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.router = b.routes()
	return b
}

// Server starts an httptest server that is closed with the test.
func (b *Backend) Server(t interface{ Cleanup(func()) }) *httptest.Server {
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(b.recordMiddleware, b.failureMiddleware)
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/login/access-token", b.login).Methods(http.MethodPost).Name("login")
	v1.HandleFunc("/cinemas", b.listCinemas).Methods(http.MethodGet).Name("list-cinemas")

	authed := v1.NewRoute().Subrouter()
	authed.Use(b.authMiddleware)
	authed.HandleFunc("/movies", b.listMovies).Methods(http.MethodGet).Name("list-movies")
	authed.HandleFunc("/movies/{id:[0-9]+}", b.getMovie).Methods(http.MethodGet).Name("get-movie")
	authed.HandleFunc("/movies/{id:[0-9]+}/showtimes", b.getMovieShowtimes).Methods(http.MethodGet).Name("get-movie-showtimes")
	authed.HandleFunc("/showtimes/{id:[0-9]+}/selection", b.updateSelection).Methods(http.MethodPut).Name("update-selection")
	authed.HandleFunc("/me/showtimes", b.listMyShowtimes).Methods(http.MethodGet).Name("list-my-showtimes")
	authed.HandleFunc("/me/cinema-selections", b.getCinemaSelections).Methods(http.MethodGet).Name("get-cinema-selections")
	authed.HandleFunc("/me/cinema-selections", b.setCinemaSelections).Methods(http.MethodPut).Name("set-cinema-selections")
	authed.HandleFunc("/me/filter-presets", b.listFilterPresets).Methods(http.MethodGet).Name("list-filter-presets")
	authed.HandleFunc("/me/filter-presets", b.saveFilterPreset).Methods(http.MethodPost).Name("save-filter-preset")
	authed.HandleFunc("/me/filter-presets/{id:[0-9]+}", b.deleteFilterPreset).Methods(http.MethodDelete).Name("delete-filter-preset")
	authed.HandleFunc("/me/filter-presets/{id:[0-9]+}/favorite", b.favoriteFilterPreset).Methods(http.MethodPost).Name("favorite-filter-preset")
	authed.HandleFunc("/me/cinema-presets", b.listCinemaPresets).Methods(http.MethodGet).Name("list-cinema-presets")
	authed.HandleFunc("/me/cinema-presets", b.saveCinemaPreset).Methods(http.MethodPost).Name("save-cinema-preset")
	authed.HandleFunc("/me/cinema-presets/{id:[0-9]+}", b.deleteCinemaPreset).Methods(http.MethodDelete).Name("delete-cinema-preset")
	authed.HandleFunc("/me/cinema-presets/{id:[0-9]+}/favorite", b.favoriteCinemaPreset).Methods(http.MethodPost).Name("favorite-cinema-preset")
	authed.HandleFunc("/me/watchlist/sync", b.syncWatchlist).Methods(http.MethodPost).Name("sync-watchlist")
	authed.HandleFunc("/friends", b.listFriends).Methods(http.MethodGet).Name("list-friends")
	authed.HandleFunc("/friends/requests/received", b.listReceived).Methods(http.MethodGet).Name("list-received-requests")
	authed.HandleFunc("/friends/requests/sent", b.listSent).Methods(http.MethodGet).Name("list-sent-requests")
	authed.HandleFunc("/friends/requests/{id:[0-9]+}", b.sendRequest).Methods(http.MethodPost).Name("send-request")
	authed.HandleFunc("/friends/requests/{id:[0-9]+}/accept", b.acceptRequest).Methods(http.MethodPost).Name("accept-request")
	authed.HandleFunc("/friends/requests/{id:[0-9]+}", b.declineRequest).Methods(http.MethodDelete).Name("decline-request")
	authed.HandleFunc("/friends/{id:[0-9]+}", b.removeFriend).Methods(http.MethodDelete).Name("remove-friend")
	authed.HandleFunc("/users", b.searchUsers).Methods(http.MethodGet).Name("search-users")
	authed.HandleFunc("/users/{id:[0-9]+}/showtimes", b.listUserShowtimes).Methods(http.MethodGet).Name("list-user-showtimes")
	return r
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}

func (b *Backend) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requestCount[routeName(r)]++
		b.requestIDs = append(b.requestIDs, r.Header.Get("X-Request-ID"))
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		f, ok := b.failures[routeName(r)]
		if ok {
			if f.times > 0 {
				f.times--
				if f.times == 0 {
					delete(b.failures, routeName(r))
				}
			}
		}
		b.mu.Unlock()
		if ok {
			writeError(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (b *Backend) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims := jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(signingKey), nil
		}, jwt.WithTimeFunc(b.now))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		id, err := strconv.Atoi(claims.Subject)
		b.mu.Lock()
		_, known := b.users[id]
		b.mu.Unlock()
		if err != nil || !known {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), id)))
	})
}

// Fail makes the named route answer with status and detail. times <= 0 fails until
// Recover is called.
func (b *Backend) Fail(route string, status int, detail string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = &failure{status: status, detail: detail, times: times}
}

func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Requests is how many requests reached the named route.
func (b *Backend) Requests(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requestCount[route]
}

func (b *Backend) RequestIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.requestIDs...)
}

// IssueToken signs a token for userID that expires ttl from now.
func (b *Backend) IssueToken(userID int, ttl time.Duration) string {
	now := b.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		panic(fmt.Sprintf("sign token: %v", err))
	}
	return signed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("apitest-encode", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}
