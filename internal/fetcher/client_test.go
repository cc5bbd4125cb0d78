package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/matchgraph-go/internal/cache"
	"github.com/quantmind-br/matchgraph-go/internal/domain"
)

// fakeSource scripts per-ref responses and counts fetches.
type fakeSource struct {
	fields   map[string]domain.RawFields
	errs     map[string]error
	failOnce map[string]int // remaining transient failures per ref
	calls    atomic.Int64
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		fields:   make(map[string]domain.RawFields),
		errs:     make(map[string]error),
		failOnce: make(map[string]int),
	}
}

func (s *fakeSource) Fetch(ctx context.Context, ref domain.PageRef) (domain.RawFields, error) {
	s.calls.Add(1)
	key := ref.String()
	if n := s.failOnce[key]; n > 0 {
		s.failOnce[key] = n - 1
		return nil, &domain.RetryableError{Err: errors.New("transient")}
	}
	if err, ok := s.errs[key]; ok {
		return nil, err
	}
	if fields, ok := s.fields[key]; ok {
		return fields, nil
	}
	return nil, fmt.Errorf("page %s: %w", ref, domain.ErrNotFound)
}

func (s *fakeSource) Close() error { return nil }

// countingLimiter records how often the limiter gated a fetch.
type countingLimiter struct {
	waits atomic.Int64
}

func (l *countingLimiter) Wait(_ context.Context) error { l.waits.Add(1); return nil }
func (l *countingLimiter) TryAcquire() bool             { return true }
func (l *countingLimiter) Available() float64           { return 1.0 }

func newTestClient(t *testing.T, src domain.PageSource, limiter RateLimiter, enableCache bool) *Client {
	t.Helper()

	var pageCache domain.Cache
	if enableCache {
		c, err := cache.NewBadgerCache(cache.Options{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { c.Close() })
		pageCache = c
	}

	client, err := NewClient(ClientOptions{
		Source:      src,
		Cache:       pageCache,
		Limiter:     limiter,
		Retrier:     fastRetrier(2),
		EnableCache: enableCache,
		CacheTTL:    time.Hour,
	})
	require.NoError(t, err)
	return client
}

// TestClient_Fetch tests the composed fetch pipeline
func TestClient_Fetch(t *testing.T) {
	ref := domain.PageRef{Kind: domain.PageTeam, ID: "arsenal"}

	t.Run("successful fetch", func(t *testing.T) {
		src := newFakeSource()
		src.fields[ref.String()] = domain.RawFields{"name": "Arsenal"}
		client := newTestClient(t, src, &NoOpRateLimiter{}, false)

		fields, err := client.Fetch(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, "Arsenal", fields["name"])
	})

	t.Run("transient failures retried to success", func(t *testing.T) {
		src := newFakeSource()
		src.fields[ref.String()] = domain.RawFields{"name": "Arsenal"}
		src.failOnce[ref.String()] = 2
		client := newTestClient(t, src, &NoOpRateLimiter{}, false)

		fields, err := client.Fetch(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, "Arsenal", fields["name"])
		assert.Equal(t, int64(3), src.calls.Load())
	})

	t.Run("exhaustion wraps in FetchFailedError", func(t *testing.T) {
		src := newFakeSource()
		src.errs[ref.String()] = &domain.RetryableError{Err: errors.New("still down")}
		client := newTestClient(t, src, &NoOpRateLimiter{}, false)

		_, err := client.Fetch(context.Background(), ref)
		var failed *domain.FetchFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, ref, failed.Ref)
		assert.Equal(t, 3, failed.Attempts)
	})

	t.Run("not found passes through unwrapped", func(t *testing.T) {
		src := newFakeSource()
		client := newTestClient(t, src, &NoOpRateLimiter{}, false)

		_, err := client.Fetch(context.Background(), ref)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		var failed *domain.FetchFailedError
		assert.False(t, errors.As(err, &failed))
		assert.Equal(t, int64(1), src.calls.Load())
	})

	t.Run("cache hit skips source and limiter", func(t *testing.T) {
		src := newFakeSource()
		src.fields[ref.String()] = domain.RawFields{"name": "Arsenal"}
		limiter := &countingLimiter{}
		client := newTestClient(t, src, limiter, true)

		ctx := context.Background()
		_, err := client.Fetch(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(1), src.calls.Load())
		assert.Equal(t, int64(1), limiter.waits.Load())

		fields, err := client.Fetch(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "Arsenal", fields["name"])
		assert.Equal(t, int64(1), src.calls.Load(), "second fetch must come from cache")
		assert.Equal(t, int64(1), limiter.waits.Load(), "cache hits must not consume limiter slots")
	})

	t.Run("cancelled context passes through", func(t *testing.T) {
		src := newFakeSource()
		src.fields[ref.String()] = domain.RawFields{"name": "Arsenal"}
		client := newTestClient(t, src, &NoOpRateLimiter{}, false)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Fetch(ctx, ref)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
