package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu    sync.Mutex
	lines map[string]string
	err   error
	calls map[string]int
	delay time.Duration
}

func newFakeCatalog(lines map[string]string) *fakeCatalog {
	return &fakeCatalog{lines: lines, calls: map[string]int{}}
}

func (f *fakeCatalog) LineNameByRouteID(_ context.Context, routeID string) (string, bool, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[routeID]++
	if f.err != nil {
		return "", false, f.err
	}
	name, ok := f.lines[routeID]
	return name, ok, nil
}

func (f *fakeCatalog) callCount(routeID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[routeID]
}

func TestResolveCachesHits(t *testing.T) {
	cat := newFakeCatalog(map[string]string{"9021": "21"})
	r := New(cat, time.Hour, nil)

	for i := 0; i < 5; i++ {
		name, err := r.Resolve(context.Background(), "9021")
		require.NoError(t, err)
		assert.Equal(t, "21", name)
	}
	assert.Equal(t, 1, cat.callCount("9021"))
}

func TestResolveDoesNotCacheMisses(t *testing.T) {
	cat := newFakeCatalog(map[string]string{})
	r := New(cat, time.Hour, nil)

	for i := 1; i <= 3; i++ {
		_, err := r.Resolve(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrRouteNotFound)
		assert.Equal(t, i, cat.callCount("nope"))
	}
}

func TestResolveMissThenCatalogUpdated(t *testing.T) {
	cat := newFakeCatalog(map[string]string{})
	r := New(cat, time.Hour, nil)

	_, err := r.Resolve(context.Background(), "9027")
	require.ErrorIs(t, err, ErrRouteNotFound)

	cat.mu.Lock()
	cat.lines["9027"] = "27"
	cat.mu.Unlock()

	name, err := r.Resolve(context.Background(), "9027")
	require.NoError(t, err)
	assert.Equal(t, "27", name)
}

func TestResolveDistinguishesCatalogFailure(t *testing.T) {
	cat := newFakeCatalog(nil)
	cat.err = errors.New("connection refused")
	r := New(cat, time.Hour, nil)

	_, err := r.Resolve(context.Background(), "9021")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRouteNotFound))
	assert.ErrorIs(t, err, cat.err)
}

func TestResolveExpiresAfterTTL(t *testing.T) {
	cat := newFakeCatalog(map[string]string{"9021": "21"})
	r := New(cat, 30*time.Millisecond, nil)

	_, err := r.Resolve(context.Background(), "9021")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = r.Resolve(context.Background(), "9021")
	require.NoError(t, err)

	assert.Equal(t, 2, cat.callCount("9021"))
}

func TestResolveConcurrent(t *testing.T) {
	cat := newFakeCatalog(map[string]string{"9021": "21", "9012": "12"})
	cat.delay = 5 * time.Millisecond
	r := New(cat, time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			route, want := "9021", "21"
			if i%2 == 0 {
				route, want = "9012", "12"
			}
			name, err := r.Resolve(context.Background(), route)
			assert.NoError(t, err)
			assert.Equal(t, want, name)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cat.callCount("9021"), 25)
	assert.GreaterOrEqual(t, cat.callCount("9021"), 1)
}

func TestFlushForcesRequery(t *testing.T) {
	cat := newFakeCatalog(map[string]string{"9021": "21"})
	r := New(cat, time.Hour, nil)

	_, _ = r.Resolve(context.Background(), "9021")
	r.Flush()
	_, _ = r.Resolve(context.Background(), "9021")

	assert.Equal(t, 2, cat.callCount("9021"))
}
