package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter throttles outbound fetches. Wait blocks until the next request
// is permitted; requests are delayed, never dropped.
type RateLimiter interface {
	Wait(ctx context.Context) error
	TryAcquire() bool
	Available() float64
}

// TokenBucket enforces a fixed minimum inter-request interval with an
// optional burst allowance.
type TokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a rate limiter permitting one request per interval,
// with capacity for burst requests. A non-positive interval is a
// configuration error and fails at construction, not at call time.
func NewTokenBucket(interval time.Duration, burst int) (*TokenBucket, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("rate limiter interval must be positive, got %s", interval)
	}
	if burst < 1 {
		burst = 1
	}

	return &TokenBucket{
		tokens:     float64(burst),
		capacity:   float64(burst),
		refillRate: float64(time.Second) / float64(interval),
		lastRefill: time.Now(),
	}, nil
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Wait blocks until a token is available or the context is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		tokensNeeded := 1.0 - tb.tokens
		waitDuration := time.Duration(tokensNeeded / tb.refillRate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitDuration):
			continue
		}
	}
}

// TryAcquire attempts to acquire a token without blocking.
func (tb *TokenBucket) TryAcquire() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens--
		return true
	}
	return false
}

// Available returns the current number of available tokens.
func (tb *TokenBucket) Available() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}

// NoOpRateLimiter is a rate limiter that doesn't limit. Used in tests.
type NoOpRateLimiter struct{}

// Wait always returns immediately
func (n *NoOpRateLimiter) Wait(_ context.Context) error {
	return nil
}

// TryAcquire always returns true
func (n *NoOpRateLimiter) TryAcquire() bool {
	return true
}

// Available always returns 1
func (n *NoOpRateLimiter) Available() float64 {
	return 1.0
}
