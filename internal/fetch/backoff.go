package fetch

import (
	"math"
	"math/rand"
	"strconv"
	"time"
)

// RetryConfig holds retry and backoff configuration
type RetryConfig struct {
	MaxRetries       int
	InitialBackoffMs int
	MaxBackoffMs     int
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:       3,
		InitialBackoffMs: 100,
		MaxBackoffMs:     30000,
	}
}

// FetchRetryError represents an error when all retry attempts are exhausted
type FetchRetryError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastError  error
}

func (e *FetchRetryError) Error() string {
	msg := "failed to fetch " + e.URL + " after " + strconv.Itoa(e.Attempts) + " attempts"
	if e.LastStatus != 0 {
		msg += " (HTTP " + strconv.Itoa(e.LastStatus) + ")"
	}
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *FetchRetryError) Unwrap() error {
	return e.LastError
}

// isRetryableStatus checks if an HTTP status code is retryable
// Retryable: 429, 500-504
func isRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// calculateBackoff calculates exponential backoff delay for a given attempt
// with jitter (0-25%) to prevent thundering herd
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	exponentialDelay := float64(config.InitialBackoffMs) * math.Pow(2.0, float64(attempt))
	cappedDelay := math.Min(exponentialDelay, float64(config.MaxBackoffMs))
	jitter := rand.Float64() * 0.25 * cappedDelay
	return time.Duration(cappedDelay+jitter) * time.Millisecond
}

// calculateRateLimitBackoff calculates backoff for HTTP 429 responses.
// Respects Retry-After when the server provides it, otherwise uses a
// 3x multiplier instead of 2x.
func calculateRateLimitBackoff(attempt int, config RetryConfig, retryAfterHeader string) time.Duration {
	if retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
			return time.Duration(seconds)*time.Second + jitter
		}
	}

	exponentialDelay := float64(config.InitialBackoffMs) * math.Pow(3.0, float64(attempt))
	cappedDelay := math.Min(exponentialDelay, float64(config.MaxBackoffMs))
	jitter := rand.Float64() * 0.25 * cappedDelay
	return time.Duration(cappedDelay+jitter) * time.Millisecond
}
