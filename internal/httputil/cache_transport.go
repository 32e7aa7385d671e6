// Package httputil holds the http.RoundTripper layers the API client is built from.
package httputil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultLRUMaxEntries = 1000

// CacheTransport is an http.RoundTripper that caches GET responses the server marked
// cacheable with max-age. Entries are keyed by method, URL and a fingerprint of the
// Authorization header, so one user's responses are never served to another.
// Any successful non-GET request empties the cache. Duplicate concurrent requests for
// the same key may both hit the backend.
type CacheTransport struct {
	Base http.RoundTripper

	// MaxEntries is the maximum number of responses to keep (LRU eviction).
	// Zero means defaultLRUMaxEntries (1000).
	MaxEntries int

	// OnCacheHit, if set, is called for every cacheable RoundTrip with the cache key and
	// whether it was a hit.
	OnCacheHit func(cacheKey string, hit bool)

	// Now defaults to time.Now.
	Now func() time.Time

	initOnce sync.Once
	cache    *lru.Cache[string, *cachedResponse]
	initErr  error
}

type cachedResponse struct {
	Status  int
	Header  http.Header
	Body    []byte
	Expires time.Time
}

func (t *CacheTransport) ensureCache() error {
	t.initOnce.Do(func() {
		size := t.MaxEntries
		if size <= 0 {
			size = defaultLRUMaxEntries
		}
		t.cache, t.initErr = lru.New[string, *cachedResponse](size)
	})
	return t.initErr
}

func (t *CacheTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Purge drops every cached response.
func (t *CacheTransport) Purge() {
	if err := t.ensureCache(); err == nil {
		t.cache.Purge()
	}
}

// Len is the number of cached responses.
func (t *CacheTransport) Len() int {
	if err := t.ensureCache(); err != nil {
		return 0
	}
	return t.cache.Len()
}

// CacheKey is the cache key of req.
func CacheKey(req *http.Request) string {
	key := req.Method + " " + req.URL.String()
	if auth := req.Header.Get("Authorization"); auth != "" {
		sum := sha256.Sum256([]byte(auth))
		key += " " + hex.EncodeToString(sum[:8])
	}
	return key
}

// RoundTrip implements http.RoundTripper.
func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.ensureCache(); err != nil {
		return nil, err
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Method != http.MethodGet {
		resp, err := base.RoundTrip(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			t.cache.Purge()
		}
		return resp, err
	}

	key := CacheKey(req)
	if !requestWantsFresh(req) {
		if entry, ok := t.cache.Get(key); ok {
			if t.now().Before(entry.Expires) {
				if t.OnCacheHit != nil {
					t.OnCacheHit(key, true)
				}
				return t.responseFromCache(req, entry), nil
			}
			t.cache.Remove(key)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if t.OnCacheHit != nil {
		t.OnCacheHit(key, false)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}
	noStore, maxAge := responseCacheControl(resp.Header)
	if noStore || maxAge <= 0 {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	t.cache.Add(key, &cachedResponse{
		Status:  resp.StatusCode,
		Header:  resp.Header.Clone(),
		Body:    body,
		Expires: t.now().Add(time.Duration(maxAge) * time.Second),
	})
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

func (t *CacheTransport) responseFromCache(req *http.Request, entry *cachedResponse) *http.Response {
	return &http.Response{
		Status:        strconv.Itoa(entry.Status) + " " + http.StatusText(entry.Status),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        entry.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}

// requestWantsFresh returns true if the request's Cache-Control asks to bypass cache (no-cache or max-age=0).
func requestWantsFresh(req *http.Request) bool {
	cc := req.Header.Get("Cache-Control")
	if cc == "" {
		return false
	}
	for part := range strings.SplitSeq(cc, ",") {
		part = strings.TrimSpace(part)
		if part == "no-cache" {
			return true
		}
		if after, ok := strings.CutPrefix(part, "max-age="); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(after)); err == nil && n <= 0 {
				return true
			}
		}
	}
	return false
}

// responseCacheControl parses Cache-Control from response headers.
// maxAge is in seconds, 0 when absent.
func responseCacheControl(header http.Header) (noStore bool, maxAge int) {
	for _, cc := range header["Cache-Control"] {
		for part := range strings.SplitSeq(cc, ",") {
			part = strings.TrimSpace(strings.ToLower(part))
			switch {
			case part == "no-store" || part == "no-cache":
				noStore = true
			case strings.HasPrefix(part, "max-age="):
				if n, err := strconv.Atoi(strings.TrimSpace(part[len("max-age="):])); err == nil && n > 0 {
					maxAge = n
				}
			}
		}
	}
	return noStore, maxAge
}
