package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, ttl time.Duration) *Fetcher {
	t.Helper()
	f, err := New(Options{
		CacheDir:  t.TempDir(),
		TTL:       ttl,
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		Retry: RetryConfig{
			MaxRetries:       2,
			InitialBackoffMs: 1,
			MaxBackoffMs:     5,
		},
	})
	require.NoError(t, err)
	return f
}

func TestGetCachesResponse(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("<products/>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, time.Hour)
	ctx := context.Background()

	body, source, err := f.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, source)
	assert.Equal(t, "<products/>", string(body))

	body, source, err = f.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, "<products/>", string(body))

	assert.Equal(t, int32(1), hits.Load())
}

func TestGetExpiredCacheRefetches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, 50*time.Millisecond)
	ctx := context.Background()

	_, _, err := f.Get(ctx, srv.URL)
	require.NoError(t, err)

	// Age the cache entry past the TTL
	path := f.cachePath(srv.URL)
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))

	_, source, err := f.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, source)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, time.Hour)

	body, source, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, source)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetExhaustedRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(t, time.Hour)

	_, _, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)

	var retryErr *FetchRetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, http.StatusServiceUnavailable, retryErr.LastStatus)
	assert.Equal(t, 3, retryErr.Attempts)
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, time.Hour)

	_, _, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCachePathStable(t *testing.T) {
	f := newTestFetcher(t, time.Hour)

	a := f.cachePath("https://shop.example.com/feed.xml")
	b := f.cachePath("https://shop.example.com/feed.xml")
	c := f.cachePath("https://other.example.com/feed.xml")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, ".xml", filepath.Ext(a))
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.xml")

	require.NoError(t, writeAtomic(path, []byte("payload")))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewRequiresCacheDir(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, isRetryableStatus(http.StatusTooManyRequests))
	assert.True(t, isRetryableStatus(http.StatusInternalServerError))
	assert.True(t, isRetryableStatus(http.StatusBadGateway))
	assert.False(t, isRetryableStatus(http.StatusNotFound))
	assert.False(t, isRetryableStatus(http.StatusOK))
}
