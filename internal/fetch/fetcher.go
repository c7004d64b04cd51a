package fetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Source tells whether a body came from the network or the disk cache
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

// Fetcher retrieves feed bodies over HTTP with a disk-backed cache keyed
// by URL hash. Fresh cache entries bypass the network entirely.
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cacheDir   string
	ttl        time.Duration
	retry      RetryConfig
	userAgent  string
}

// Options configures a Fetcher
type Options struct {
	CacheDir  string
	TTL       time.Duration
	Timeout   time.Duration
	Retry     RetryConfig
	RateLimit rate.Limit
	UserAgent string
}

// New creates a Fetcher. The cache directory is created if missing.
func New(opts Options) (*Fetcher, error) {
	if opts.CacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoffMs == 0 {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "CatalogService/1.0"
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(opts.RateLimit, 1),
		cacheDir:   opts.CacheDir,
		ttl:        opts.TTL,
		retry:      opts.Retry,
		userAgent:  opts.UserAgent,
	}, nil
}

// cachePath maps a URL to its cache file via a 128-bit URL hash
func (f *Fetcher) cachePath(url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:])+".xml")
}

// Get returns the feed body for url, serving from the cache when the
// entry is younger than the TTL.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, Source, error) {
	path := f.cachePath(url)

	if body, ok := f.readFresh(path); ok {
		log.Debug().
			Str("component", "fetch").
			Str("url", url).
			Msg("Cache hit")
		return body, SourceCache, nil
	}

	body, err := f.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, SourceNetwork, err
	}

	if err := writeAtomic(path, body); err != nil {
		// A failed cache write never fails the fetch
		log.Warn().
			Str("component", "fetch").
			Str("url", url).
			Err(err).
			Msg("Failed to write cache entry")
	}

	return body, SourceNetwork, nil
}

// readFresh returns the cached body when its mtime is within the TTL
func (f *Fetcher) readFresh(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) >= f.ttl {
		return nil, false
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return body, true
}

// fetchWithRetry performs the GET with rate limiting, retrying 429 and
// 5xx responses with exponential backoff.
func (f *Fetcher) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= f.retry.MaxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "*/*")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < f.retry.MaxRetries {
				sleepCtx(ctx, calculateBackoff(attempt, f.retry))
				continue
			}
			break
		}

		lastStatus = resp.StatusCode

		if resp.StatusCode == http.StatusOK {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read response body: %w", err)
			}
			return body, nil
		}

		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()

		if !isRetryableStatus(resp.StatusCode) || attempt == f.retry.MaxRetries {
			break
		}

		var backoff time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			backoff = calculateRateLimitBackoff(attempt, f.retry, retryAfter)
		} else {
			backoff = calculateBackoff(attempt, f.retry)
		}
		sleepCtx(ctx, backoff)
	}

	return nil, &FetchRetryError{
		URL:        url,
		Attempts:   f.retry.MaxRetries + 1,
		LastStatus: lastStatus,
		LastError:  lastErr,
	}
}

// writeAtomic writes body via a temp file and rename so concurrent
// readers never observe a half-written entry.
func writeAtomic(path string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
