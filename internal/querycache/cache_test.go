package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now), WithStaleTime(time.Minute)), clock
}

func TestUnit_Key_PrefixMatching(t *testing.T) {
	type filter struct {
		Days []string `json:"days"`
	}
	k := Key{"showtimes", "me", filter{Days: []string{"relative:today"}}}
	assert.True(t, k.HasPrefix(Key{"showtimes"}))
	assert.True(t, k.HasPrefix(Key{"showtimes", "me"}))
	assert.True(t, k.HasPrefix(Key{"showtimes", "me", filter{Days: []string{"relative:today"}}}))
	assert.False(t, k.HasPrefix(Key{"showtimes", "user"}))
	assert.False(t, k.HasPrefix(Key{"showtimes", "me", filter{}, "extra"}))
	assert.True(t, Key{"movie", 5}.HasPrefix(Key{}))
	assert.False(t, Key{"movie", 5}.HasPrefix(Key{"movie", "5"}), "numbers and strings differ")
	assert.Equal(t, Key{"a", map[string]int{"x": 1, "y": 2}}.Hash(), Key{"a", map[string]int{"y": 2, "x": 1}}.Hash())
}

func TestUnit_Fetch_ServesFreshDataAndRefetchesStale(t *testing.T) {
	c, clock := newTestCache()
	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		return "v" + string(rune('0'+calls.Add(1))), nil
	}

	got, err := Fetch(t.Context(), c, Key{"cinemas"}, fetch)
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	got, err = Fetch(t.Context(), c, Key{"cinemas"}, fetch)
	require.NoError(t, err)
	assert.Equal(t, "v1", got, "fresh data is served from cache")

	clock.Advance(2 * time.Minute)
	got, err = Fetch(t.Context(), c, Key{"cinemas"}, fetch)
	require.NoError(t, err)
	assert.Equal(t, "v2", got, "stale data is refetched")

	assert.Equal(t, 1, c.InvalidateQueries(Key{"cinemas"}))
	assert.True(t, c.State(Key{"cinemas"}).Invalidated)
	got, err = Fetch(t.Context(), c, Key{"cinemas"}, fetch)
	require.NoError(t, err)
	assert.Equal(t, "v3", got, "invalidated data is refetched")
	assert.False(t, c.State(Key{"cinemas"}).Invalidated)
}

func TestUnit_Fetch_ErrorsAreNotCached(t *testing.T) {
	c, _ := newTestCache()
	boom := errors.New("boom")
	_, err := Fetch(t.Context(), c, Key{"friends"}, func(context.Context) ([]int, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	_, ok := GetData[[]int](c, Key{"friends"})
	assert.False(t, ok)

	got, err := Fetch(t.Context(), c, Key{"friends"}, func(context.Context) ([]int, error) { return []int{1}, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestUnit_Fetch_SharesConcurrentCalls(t *testing.T) {
	c, _ := newTestCache()
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(context.Background(), c, Key{"movies"}, fetch)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the other goroutines time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []int{42, 42, 42, 42, 42}, results)
}

func TestUnit_Fetch_JoinedCallerOutlivesFirstCallerCancel(t *testing.T) {
	c, _ := newTestCache()
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
			return "fetched", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := Fetch(firstCtx, c, Key{"movies"}, fetch)
		firstDone <- err
	}()
	<-started

	joinedDone := make(chan struct{})
	var joined string
	var joinedErr error
	go func() {
		defer close(joinedDone)
		joined, joinedErr = Fetch(context.Background(), c, Key{"movies"}, fetch)
	}()
	// Give the second caller time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstDone:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	<-joinedDone
	require.NoError(t, joinedErr)
	assert.Equal(t, "fetched", joined)

	got, ok := GetData[string](c, Key{"movies"})
	require.True(t, ok)
	assert.Equal(t, "fetched", got)
}

func TestUnit_CancelQueries_StaleResponseCannotClobberOptimisticWrite(t *testing.T) {
	c, _ := newTestCache()
	key := Key{"movie", 7, []int{1}}
	SetData(c, key, "server-v1")
	c.InvalidateQueries(key)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	var got string
	var fetchErr error
	go func() {
		defer close(done)
		got, fetchErr = Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "server-stale", nil
		})
	}()
	<-started
	require.True(t, c.State(key).Fetching)

	c.CancelQueries(Key{"movie", 7})
	SetData(c, key, "optimistic")
	close(release)
	<-done

	require.NoError(t, fetchErr)
	assert.Equal(t, "optimistic", got, "a cancelled fetch returns the newer cached value")
	v, ok := GetData[string](c, key)
	require.True(t, ok)
	assert.Equal(t, "optimistic", v)
}

func TestUnit_CancelQueries_WithoutData(t *testing.T) {
	c, _ := newTestCache()
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		_, err := Fetch(context.Background(), c, Key{"cinemas"}, func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		done <- err
	}()
	<-started
	c.CancelQueries(Key{"cinemas"})
	require.ErrorIs(t, <-done, ErrCancelled)
}

func TestUnit_SetQueriesData_SkipsOtherTypes(t *testing.T) {
	c, _ := newTestCache()
	SetData(c, Key{"movie", 1, []int{}}, "movie detail")
	SetData(c, Key{"movie", 1, "showtimes"}, []int{10, 11})
	SetData(c, Key{"movie", 2, "showtimes"}, []int{20})
	SetData(c, Key{"movies"}, []int{99})

	n := SetQueriesData(c, Key{"movie", 1}, func(_ Key, old []int) []int {
		return append(append([]int{}, old...), 12)
	})
	assert.Equal(t, 1, n)

	v, _ := GetData[[]int](c, Key{"movie", 1, "showtimes"})
	assert.Equal(t, []int{10, 11, 12}, v)
	s, _ := GetData[string](c, Key{"movie", 1, []int{}})
	assert.Equal(t, "movie detail", s)
	other, _ := GetData[[]int](c, Key{"movie", 2, "showtimes"})
	assert.Equal(t, []int{20}, other)
	assert.Len(t, c.Keys(Key{"movie"}), 3)
}

func TestUnit_SnapshotRestore(t *testing.T) {
	c, _ := newTestCache()
	SetData(c, Key{"movies", "a"}, []string{"x"})
	SetData(c, Key{"showtimes", "me"}, []string{"y"})

	snap := c.Snapshot(Key{"movies"}, Key{"showtimes"}, Key{"movies", "a"})
	assert.Equal(t, 2, snap.Len(), "overlapping prefixes snapshot each entry once")

	SetQueriesData(c, Key{}, func(_ Key, _ []string) []string { return []string{"patched"} })
	v, _ := GetData[[]string](c, Key{"movies", "a"})
	require.Equal(t, []string{"patched"}, v)

	c.Restore(snap)
	v, _ = GetData[[]string](c, Key{"movies", "a"})
	assert.Equal(t, []string{"x"}, v)
	v, _ = GetData[[]string](c, Key{"showtimes", "me"})
	assert.Equal(t, []string{"y"}, v)
}

func TestUnit_RemoveQueries(t *testing.T) {
	c, _ := newTestCache()
	SetData(c, Key{"showtimes", "me", 1}, 1)
	SetData(c, Key{"showtimes", "user", 2}, 2)
	c.RemoveQueries(Key{"showtimes", "me"})
	assert.Empty(t, c.Keys(Key{"showtimes", "me"}))
	assert.Len(t, c.Keys(Key{"showtimes"}), 1)
}

func TestUnit_GetData_WrongType(t *testing.T) {
	c, _ := newTestCache()
	SetData(c, Key{"x"}, 1)
	_, ok := GetData[string](c, Key{"x"})
	assert.False(t, ok)
	_, err := Fetch(t.Context(), c, Key{"x"}, func(context.Context) (string, error) { return "", nil })
	require.ErrorIs(t, err, ErrWrongType)
}
