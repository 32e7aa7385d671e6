package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/drewfead/moviebuddy/internal/httputil"
)

const (
	maxCandidatesForDetails = 5
	defaultCacheEntries     = 256
)

// httpRequestRecord is appended by auditTransport for each outgoing request.
type httpRequestRecord struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Status int    `json:"status"`
}

type cacheEvent struct {
	Key string
	Hit bool
}

// callAudit collects what one Enrich call did on the wire.
type callAudit struct {
	requests []httpRequestRecord
	cache    []cacheEvent
}

type auditTransport struct {
	base http.RoundTripper
	e    *tmdbEnrichment
}

func (t *auditTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if t.e.audit != nil {
		t.e.audit.requests = append(t.e.audit.requests, httpRequestRecord{
			Method: req.Method,
			URL:    redactKey(req.URL.String()),
			Status: resp.StatusCode,
		})
	}
	return resp, nil
}

var apiKeyParam = regexp.MustCompile(`api_key=[^&]*`)

func redactKey(u string) string {
	return apiKeyParam.ReplaceAllString(u, "api_key=REDACTED")
}

type tmdbEnrichment struct {
	client *tmdb.Client
	cache  *httputil.CacheTransport

	// mu serialises Enrich calls; audit is only set while one runs.
	mu    sync.Mutex
	audit *callAudit
}

type TMDBOption func(*tmdbConfig)

type tmdbConfig struct {
	base         http.RoundTripper
	cacheEntries int
	timeout      time.Duration
}

// WithTransport sets the transport under the response cache.
func WithTransport(rt http.RoundTripper) TMDBOption {
	return func(c *tmdbConfig) {
		c.base = rt
	}
}

func WithCacheEntries(n int) TMDBOption {
	return func(c *tmdbConfig) {
		c.cacheEntries = n
	}
}

func WithTimeout(d time.Duration) TMDBOption {
	return func(c *tmdbConfig) {
		c.timeout = d
	}
}

// TMDB looks movies up on The Movie Database with a v4 read access token.
func TMDB(apiKey string, opts ...TMDBOption) (internal.EnrichmentProvider, error) {
	cfg := tmdbConfig{base: http.DefaultTransport, cacheEntries: defaultCacheEntries, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	tmdbClient, err := tmdb.InitV4(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	e := &tmdbEnrichment{client: tmdbClient}
	e.cache = &httputil.CacheTransport{
		Base:       cfg.base,
		MaxEntries: cfg.cacheEntries,
		OnCacheHit: e.recordCacheHit,
	}
	tmdbClient.SetClientConfig(http.Client{
		Timeout:   cfg.timeout,
		Transport: &auditTransport{base: e.cache, e: e},
	})
	return e, nil
}

func (e *tmdbEnrichment) recordCacheHit(cacheKey string, hit bool) {
	if e.audit != nil {
		e.audit.cache = append(e.audit.cache, cacheEvent{Key: redactKey(cacheKey), Hit: hit})
	}
}

// tmdbDetailsURLPat matches TMDB movie details URLs to extract the movie id.
var tmdbDetailsURLPat = regexp.MustCompile(`/movie/(\d+)(?:\?|$)`)

func (a *callAudit) searchCacheHit() bool {
	for _, ev := range a.cache {
		if strings.Contains(ev.Key, "search/movie") {
			return ev.Hit
		}
	}
	return false
}

func (a *callAudit) detailsCacheHits() []map[string]any {
	var out []map[string]any
	for _, ev := range a.cache {
		ms := tmdbDetailsURLPat.FindStringSubmatch(ev.Key)
		if len(ms) < 2 {
			continue
		}
		id, err := strconv.Atoi(ms[1])
		if err != nil {
			continue
		}
		out = append(out, map[string]any{"movie_id": id, "cache_hit": ev.Hit})
	}
	return out
}

// titleEqual normalizes both strings (collapse spaces, case-insensitive) for comparison.
func titleEqual(a, b string) bool {
	norm := func(s string) string {
		return strings.ToUpper(strings.Join(strings.Fields(s), " "))
	}
	return norm(a) == norm(b)
}

func directorMatch(hints []string, tmdbName string) bool {
	if tmdbName == "" {
		return false
	}
	for _, h := range hints {
		if titleEqual(h, tmdbName) {
			return true
		}
	}
	return false
}

// releaseYear reads the year of a TMDB release date ("1979-05-25").
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

// yearDiff is 0 when either year is unknown.
func yearDiff(expected, actual int) int {
	if expected <= 0 || actual <= 0 {
		return 0
	}
	d := actual - expected
	if d < 0 {
		return -d
	}
	return d
}

type candidate struct {
	result  *tmdb.MovieResult
	tagline string
}

// pickBestResult chooses the best TMDB result. With director hints it fetches details
// for up to maxCandidatesForDetails results and prefers a director match, then the
// closest release year. Without them it prefers an exact title match in the closest
// year and falls back to the first result.
func (e *tmdbEnrichment) pickBestResult(results []tmdb.MovieResult, title string, year int, directors []string) *candidate {
	if len(results) == 0 {
		return nil
	}
	if len(directors) == 0 {
		var best *tmdb.MovieResult
		for i := range results {
			r := &results[i]
			if !titleEqual(r.Title, title) && !titleEqual(r.OriginalTitle, title) {
				continue
			}
			if best == nil || yearDiff(year, releaseYear(r.ReleaseDate)) < yearDiff(year, releaseYear(best.ReleaseDate)) {
				best = r
			}
		}
		if best == nil {
			best = &results[0]
		}
		return &candidate{result: best}
	}

	n := min(len(results), maxCandidatesForDetails)
	type scored struct {
		candidate
		dir  bool
		diff int
	}
	var best *scored
	for i := 0; i < n; i++ {
		details, err := e.client.GetMovieDetails(int(results[i].ID), map[string]string{"append_to_response": "credits"})
		if err != nil {
			continue
		}
		var tmdbDirector string
		if details.MovieCreditsAppend != nil && details.Credits.MovieCredits != nil {
			for _, c := range details.Credits.MovieCredits.Crew {
				if c.Job == "Director" {
					tmdbDirector = c.Name
					break
				}
			}
		}
		s := &scored{
			candidate: candidate{result: &results[i], tagline: details.Tagline},
			dir:       directorMatch(directors, tmdbDirector),
			diff:      yearDiff(year, releaseYear(results[i].ReleaseDate)),
		}
		switch {
		case best == nil:
			best = s
		case s.dir && !best.dir:
			best = s
		case s.dir == best.dir && s.diff < best.diff:
			best = s
		}
	}
	if best != nil {
		return &best.candidate
	}
	return &candidate{result: &results[0]}
}

func (e *tmdbEnrichment) Enrich(_ context.Context, movie internal.EnrichedMovie) (internal.EnrichedMovie, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	audit := &callAudit{}
	e.audit = audit
	defer func() { e.audit = nil }()

	annotations := make(map[string]any)
	title := movie.Source.Title
	if movie.Source.OriginalTitle != nil && *movie.Source.OriginalTitle != "" {
		annotations["original_title"] = *movie.Source.OriginalTitle
	}
	if strings.TrimSpace(title) == "" {
		annotations["skipped"] = "no title"
		movie.Audits = append(movie.Audits, internal.EnrichmentAudit{
			Result:      internal.EnrichmentResultSuccess,
			At:          time.Now(),
			Annotations: annotations,
		})
		return movie, nil
	}

	searchResults, err := e.client.GetSearchMovies(title, map[string]string{
		"language": "en-US",
	})
	if err != nil {
		return movie, fmt.Errorf("failed to search for movie with title %s: %w", title, err)
	}

	var year int
	if movie.Source.ReleaseYear != nil {
		year = *movie.Source.ReleaseYear
	}
	result := internal.EnrichmentResultPartialSuccess
	if best := e.pickBestResult(searchResults.Results, title, year, movie.Source.Directors); best != nil {
		result = internal.EnrichmentResultSuccess
		movie.Extra = internal.MovieInfo{
			Title:    best.result.Title,
			Tagline:  best.tagline,
			Overview: best.result.Overview,
			Links: []internal.Link{
				{
					Href:    fmt.Sprintf("https://www.themoviedb.org/movie/%d", best.result.ID),
					Display: "TMDB",
				},
			},
		}
		annotations["tmdb_id"] = best.result.ID
	} else {
		annotations["no_match"] = title
	}

	annotations["cache_search"] = map[string]any{"hit": audit.searchCacheHit(), "query": title}
	if details := audit.detailsCacheHits(); len(details) > 0 {
		annotations["cache_details"] = details
	}
	if len(audit.requests) > 0 {
		reqs := make([]map[string]any, len(audit.requests))
		for i, r := range audit.requests {
			reqs[i] = map[string]any{"method": r.Method, "url": r.URL, "status": r.Status}
		}
		annotations["http_requests"] = reqs
	}

	movie.Audits = append(movie.Audits, internal.EnrichmentAudit{
		Result:      result,
		At:          time.Now(),
		Annotations: annotations,
	})
	return movie, nil
}
