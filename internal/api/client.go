// Package api is the REST client for the moviebuddy backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/httputil"
	"github.com/drewfead/moviebuddy/internal/storage"
)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 30 * time.Second
)

// Client implements internal.Backend over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  *TokenStore
	cache   *httputil.CacheTransport
}

var _ internal.Backend = (*Client)(nil)

type options struct {
	transport    http.RoundTripper
	storage      internal.Storage
	cacheEntries int
	timeout      time.Duration
	now          func() time.Time
}

type Option func(*options)

// WithTransport sets the innermost transport. Defaults to http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithStorage keeps the session token in s. Defaults to memory.
func WithStorage(s internal.Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithResponseCache caches responses the server marks cacheable. Zero disables it.
func WithResponseCache(maxEntries int) Option {
	return func(o *options) {
		o.cacheEntries = maxEntries
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{
		transport: http.DefaultTransport,
		timeout:   defaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.storage == nil {
		o.storage = storage.Memory()
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: parse api url %q: %w", ErrInvalidConfig, baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: api url %q must be http or https", ErrInvalidConfig, baseURL)
	}

	c := &Client{baseURL: u, tokens: NewTokenStore(o.storage, o.now)}
	rt := o.transport
	if o.cacheEntries > 0 {
		c.cache = &httputil.CacheTransport{
			Base:       rt,
			MaxEntries: o.cacheEntries,
			Now:        o.now,
			OnCacheHit: func(key string, hit bool) {
				slog.Debug("api-response-cache", "key", key, "hit", hit)
			},
		}
		rt = c.cache
	}
	rt = &bearerTransport{base: rt, tokens: c.tokens}
	rt = &httputil.RequestIDTransport{Base: rt}
	c.http = &http.Client{Transport: rt, Timeout: o.timeout}
	return c, nil
}

// Tokens exposes the session token store.
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// Logout forgets the session token and any cached responses.
func (c *Client) Logout(ctx context.Context) error {
	if c.cache != nil {
		c.cache.Purge()
	}
	return c.tokens.Clear(ctx)
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	form   url.Values
}

func (c *Client) send(ctx context.Context, r request, out any) error {
	u := *c.baseURL
	u.Path += apiPrefix + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.body != nil:
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && errors.Is(urlErr.Err, ErrNotLoggedIn) {
			return urlErr.Err
		}
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()
	slog.Debug("api-request", "method", r.method, "path", r.path, "status", resp.StatusCode, "elapsed", time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", r.method, r.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(r.method, r.path, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.send(ctx, request{method: http.MethodGet, path: path, query: query}, &out)
	return out, err
}

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// pageQuery encodes the page window and the filters. Empty filters are left out.
func pageQuery(q internal.ShowtimesQuery) url.Values {
	v := url.Values{}
	if q.Page.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Page.Limit))
	}
	if q.Page.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Page.Offset))
	}
	if !q.Page.SnapshotTime.IsZero() {
		v.Set("snapshot_time", q.Page.SnapshotTime.UTC().Format(time.RFC3339))
	}
	for _, id := range q.CinemaIDs {
		v.Add("cinema_ids", strconv.Itoa(id))
	}
	for _, d := range q.Days {
		v.Add("days", d)
	}
	if q.TimeMin != "" || q.TimeMax != "" {
		v.Set("time_ranges", q.TimeMin+"-"+q.TimeMax)
	}
	if q.Status != internal.GoingStatusUnset {
		v.Set("selected_status", string(q.Status))
	}
	if q.WatchlistOnly {
		v.Set("watchlist_only", "true")
	}
	return v
}

func (c *Client) ListMovies(ctx context.Context, q internal.MoviesQuery) ([]internal.Movie, error) {
	v := pageQuery(q.ShowtimesQuery)
	if q.Query != "" {
		v.Set("query", q.Query)
	}
	if q.ShowtimeLimit > 0 {
		v.Set("showtime_limit", strconv.Itoa(q.ShowtimeLimit))
	}
	return get[[]internal.Movie](ctx, c, "/movies", v)
}

func (c *Client) GetMovie(ctx context.Context, movieID int, cinemaIDs []int) (internal.Movie, error) {
	v := url.Values{}
	for _, id := range cinemaIDs {
		v.Add("cinema_ids", strconv.Itoa(id))
	}
	return get[internal.Movie](ctx, c, pathf("/movies/%d", movieID), v)
}

func (c *Client) GetMovieShowtimes(ctx context.Context, movieID int, q internal.ShowtimesQuery) ([]internal.Showtime, error) {
	return get[[]internal.Showtime](ctx, c, pathf("/movies/%d/showtimes", movieID), pageQuery(q))
}

func (c *Client) UpdateStatus(ctx context.Context, showtimeID int, update internal.StatusUpdate) (internal.Showtime, error) {
	var out internal.Showtime
	err := c.send(ctx, request{method: http.MethodPut, path: pathf("/showtimes/%d/selection", showtimeID), body: update}, &out)
	return out, err
}

func (c *Client) ListMyShowtimes(ctx context.Context, q internal.ShowtimesQuery) ([]internal.Showtime, error) {
	return get[[]internal.Showtime](ctx, c, "/me/showtimes", pageQuery(q))
}

func (c *Client) GetCinemaSelections(ctx context.Context) ([]int, error) {
	return get[[]int](ctx, c, "/me/cinema-selections", nil)
}

func (c *Client) SetCinemaSelections(ctx context.Context, cinemaIDs []int) ([]int, error) {
	if cinemaIDs == nil {
		cinemaIDs = []int{}
	}
	var out []int
	err := c.send(ctx, request{method: http.MethodPut, path: "/me/cinema-selections", body: map[string][]int{"cinema_ids": cinemaIDs}}, &out)
	return out, err
}

func (c *Client) ListFilterPresets(ctx context.Context, scope string) ([]internal.FilterPreset, error) {
	v := url.Values{}
	if scope != "" {
		v.Set("scope", scope)
	}
	return get[[]internal.FilterPreset](ctx, c, "/me/filter-presets", v)
}

func (c *Client) SaveFilterPreset(ctx context.Context, req internal.SavePresetRequest) (internal.FilterPreset, error) {
	var out internal.FilterPreset
	err := c.send(ctx, request{method: http.MethodPost, path: "/me/filter-presets", body: req}, &out)
	return out, err
}

func (c *Client) DeleteFilterPreset(ctx context.Context, presetID int) error {
	return c.send(ctx, request{method: http.MethodDelete, path: pathf("/me/filter-presets/%d", presetID)}, nil)
}

func (c *Client) FavoriteFilterPreset(ctx context.Context, presetID int) (internal.FilterPreset, error) {
	var out internal.FilterPreset
	err := c.send(ctx, request{method: http.MethodPost, path: pathf("/me/filter-presets/%d/favorite", presetID)}, &out)
	return out, err
}

func (c *Client) ListCinemaPresets(ctx context.Context) ([]internal.CinemaPreset, error) {
	return get[[]internal.CinemaPreset](ctx, c, "/me/cinema-presets", nil)
}

func (c *Client) SaveCinemaPreset(ctx context.Context, req internal.SaveCinemaPresetRequest) (internal.CinemaPreset, error) {
	var out internal.CinemaPreset
	err := c.send(ctx, request{method: http.MethodPost, path: "/me/cinema-presets", body: req}, &out)
	return out, err
}

func (c *Client) DeleteCinemaPreset(ctx context.Context, presetID int) error {
	return c.send(ctx, request{method: http.MethodDelete, path: pathf("/me/cinema-presets/%d", presetID)}, nil)
}

func (c *Client) FavoriteCinemaPreset(ctx context.Context, presetID int) (internal.CinemaPreset, error) {
	var out internal.CinemaPreset
	err := c.send(ctx, request{method: http.MethodPost, path: pathf("/me/cinema-presets/%d/favorite", presetID)}, &out)
	return out, err
}

func (c *Client) SyncWatchlist(ctx context.Context) error {
	return c.send(ctx, request{method: http.MethodPost, path: "/me/watchlist/sync"}, nil)
}

func (c *Client) ListFriends(ctx context.Context) ([]internal.User, error) {
	return get[[]internal.User](ctx, c, "/friends", nil)
}

func (c *Client) ListReceivedRequests(ctx context.Context) ([]internal.User, error) {
	return get[[]internal.User](ctx, c, "/friends/requests/received", nil)
}

func (c *Client) ListSentRequests(ctx context.Context) ([]internal.User, error) {
	return get[[]internal.User](ctx, c, "/friends/requests/sent", nil)
}

func (c *Client) SendRequest(ctx context.Context, userID int) error {
	return c.send(ctx, request{method: http.MethodPost, path: pathf("/friends/requests/%d", userID)}, nil)
}

func (c *Client) AcceptRequest(ctx context.Context, userID int) error {
	return c.send(ctx, request{method: http.MethodPost, path: pathf("/friends/requests/%d/accept", userID)}, nil)
}

func (c *Client) DeclineRequest(ctx context.Context, userID int) error {
	return c.send(ctx, request{method: http.MethodDelete, path: pathf("/friends/requests/%d", userID)}, nil)
}

func (c *Client) RemoveFriend(ctx context.Context, userID int) error {
	return c.send(ctx, request{method: http.MethodDelete, path: pathf("/friends/%d", userID)}, nil)
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]internal.UserWithFriendStatus, error) {
	return get[[]internal.UserWithFriendStatus](ctx, c, "/users", url.Values{"query": {query}})
}

func (c *Client) ListUserShowtimes(ctx context.Context, userID int, q internal.ShowtimesQuery) ([]internal.Showtime, error) {
	return get[[]internal.Showtime](ctx, c, pathf("/users/%d/showtimes", userID), pageQuery(q))
}

// Login exchanges credentials for a token and stores it for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (internal.Token, error) {
	var tok internal.Token
	err := c.send(public(ctx), request{
		method: http.MethodPost,
		path:   "/login/access-token",
		form:   url.Values{"username": {username}, "password": {password}},
	}, &tok)
	if err != nil {
		return internal.Token{}, err
	}
	if tok.AccessToken == "" {
		return internal.Token{}, errors.New("login response carried no access token")
	}
	if err := c.tokens.Save(ctx, tok.AccessToken); err != nil {
		return internal.Token{}, err
	}
	return tok, nil
}

func (c *Client) ListCinemas(ctx context.Context) ([]internal.Cinema, error) {
	return get[[]internal.Cinema](public(ctx), c, "/cinemas", nil)
}
