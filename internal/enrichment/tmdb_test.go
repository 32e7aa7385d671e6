package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stalkerSearch = `{"page":1,"total_pages":1,"total_results":2,"results":[
	{"id":2,"title":"Stalker","original_title":"Stalker","overview":"A 2024 remake.","release_date":"2024-03-01"},
	{"id":1,"title":"Stalker","original_title":"Сталкер","overview":"A guide leads two men through the Zone.","release_date":"1979-05-25"}
]}`

var tmdbDetails = map[string]string{
	"1": `{"id":1,"title":"Stalker","tagline":"The Zone wants to be respected.","runtime":162,"credits":{"cast":[],"crew":[{"job":"Director","name":"Andrei Tarkovsky"}]}}`,
	"2": `{"id":2,"title":"Stalker","tagline":"","runtime":95,"credits":{"cast":[],"crew":[{"job":"Director","name":"Somebody Else"}]}}`,
}

var detailsPath = regexp.MustCompile(`/movie/(\d+)$`)

// fakeTMDB answers search and details requests from fixtures.
type fakeTMDB struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTMDB) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	var body string
	switch {
	case strings.HasSuffix(req.URL.Path, "/search/movie"):
		if strings.Contains(strings.ToLower(req.URL.Query().Get("query")), "stalker") {
			body = stalkerSearch
		} else {
			body = `{"page":1,"total_pages":0,"total_results":0,"results":[]}`
		}
	case detailsPath.MatchString(req.URL.Path):
		body = tmdbDetails[detailsPath.FindStringSubmatch(req.URL.Path)[1]]
	}
	if body == "" {
		return &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(`{}`)), Request: req}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type":  []string{"application/json"},
			"Cache-Control": []string{"public, max-age=300"},
		},
		Body:    io.NopCloser(strings.NewReader(body)),
		Request: req,
	}, nil
}

func (f *fakeTMDB) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func stalker() internal.Movie {
	return internal.Movie{ID: 101, Title: "Stalker", OriginalTitle: strp("Сталкер"), ReleaseYear: intp(1979), Directors: []string{"Andrei Tarkovsky"}}
}

func TestUnit_TMDB_DirectorHintPicksCandidate(t *testing.T) {
	provider, err := TMDB("token", WithTransport(&fakeTMDB{}))
	require.NoError(t, err)

	got := Enrich(context.Background(), stalker(), provider)
	require.Len(t, got.Audits, 1)
	assert.Equal(t, internal.EnrichmentResultSuccess, got.Audits[0].Result)
	assert.Equal(t, "A guide leads two men through the Zone.", got.Extra.Overview)
	assert.Equal(t, "The Zone wants to be respected.", got.Extra.Tagline)
	require.Len(t, got.Extra.Links, 1)
	assert.Equal(t, "https://www.themoviedb.org/movie/1", got.Extra.Links[0].Href)
	assert.Equal(t, 101, got.Source.ID)
}

func TestUnit_TMDB_YearHintWithoutDirectors(t *testing.T) {
	provider, err := TMDB("token", WithTransport(&fakeTMDB{}))
	require.NoError(t, err)
	movie := stalker()
	movie.Directors = nil
	movie.ReleaseYear = intp(2023)

	got := Enrich(context.Background(), movie, provider)
	assert.Equal(t, "A 2024 remake.", got.Extra.Overview)
	assert.Empty(t, got.Extra.Tagline)
}

func TestUnit_TMDB_SecondLookupIsCached(t *testing.T) {
	fake := &fakeTMDB{}
	provider, err := TMDB("token", WithTransport(fake))
	require.NoError(t, err)

	first := Enrich(context.Background(), stalker(), provider)
	calls := fake.Calls()
	require.Positive(t, calls)
	second := Enrich(context.Background(), stalker(), provider)

	assert.Equal(t, calls, fake.Calls())
	assert.Equal(t, first.Extra, second.Extra)
	search, ok := second.Audits[0].Annotations["cache_search"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, search["hit"])
}

func TestUnit_TMDB_NoMatchIsPartial(t *testing.T) {
	provider, err := TMDB("token", WithTransport(&fakeTMDB{}))
	require.NoError(t, err)

	got := Enrich(context.Background(), internal.Movie{ID: 9, Title: "Unknown Film"}, provider)
	require.Len(t, got.Audits, 1)
	assert.Equal(t, internal.EnrichmentResultPartialSuccess, got.Audits[0].Result)
	assert.Empty(t, got.Extra.Links)
}

func TestUnit_TMDB_SkipsUntitled(t *testing.T) {
	fake := &fakeTMDB{}
	provider, err := TMDB("token", WithTransport(fake))
	require.NoError(t, err)

	got := Enrich(context.Background(), internal.Movie{ID: 9}, provider)
	require.Len(t, got.Audits, 1)
	assert.Equal(t, "no title", got.Audits[0].Annotations["skipped"])
	assert.Zero(t, fake.Calls())
}

type failingProvider struct{}

func (failingProvider) Enrich(context.Context, internal.EnrichedMovie) (internal.EnrichedMovie, error) {
	return internal.EnrichedMovie{}, errors.New("provider down")
}

func TestUnit_Enrich_FailureIsAudited(t *testing.T) {
	got := Enrich(context.Background(), stalker(), failingProvider{})
	require.Len(t, got.Audits, 1)
	assert.Equal(t, internal.EnrichmentResultFailure, got.Audits[0].Result)
	assert.Equal(t, "provider down", got.Audits[0].Details)
	assert.Equal(t, "Stalker", got.Source.Title)
}

func TestUnit_RedactKey(t *testing.T) {
	assert.Equal(t,
		"https://api.themoviedb.org/3/search/movie?api_key=REDACTED&query=x",
		redactKey(fmt.Sprintf("https://api.themoviedb.org/3/search/movie?api_key=%s&query=x", "secret")))
}
