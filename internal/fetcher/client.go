package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/quantmind-br/matchgraph-go/internal/cache"
	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// Client is the single-entity fetch primitive. It composes the in-flight
// semaphore, the raw-payload cache, the rate limiter and the retry policy
// around a PageSource. The semaphore and rate limiter gate the same remote
// source, so they are process-global: constructed once and shared by every
// extraction run in the process.
type Client struct {
	source       domain.PageSource
	cache        domain.Cache
	limiter      RateLimiter
	retrier      *Retrier
	sem          *semaphore.Weighted
	cacheEnabled bool
	cacheTTL     time.Duration
	attemptTTL   time.Duration
	logger       *utils.Logger
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Source         domain.PageSource
	Cache          domain.Cache
	Limiter        RateLimiter
	Retrier        *Retrier
	MaxInFlight    int
	EnableCache    bool
	CacheTTL       time.Duration
	AttemptTimeout time.Duration
	Logger         *utils.Logger
}

// NewClient creates a new fetch client
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("page source is required")
	}
	if opts.Limiter == nil {
		opts.Limiter = &NoOpRateLimiter{}
	}
	if opts.Retrier == nil {
		opts.Retrier = NewRetrier(DefaultRetrierOptions())
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	return &Client{
		source:       opts.Source,
		cache:        opts.Cache,
		limiter:      opts.Limiter,
		retrier:      opts.Retrier,
		sem:          semaphore.NewWeighted(int64(opts.MaxInFlight)),
		cacheEnabled: opts.EnableCache,
		cacheTTL:     opts.CacheTTL,
		attemptTTL:   opts.AttemptTimeout,
		logger:       opts.Logger.WithComponent("fetcher"),
	}, nil
}

var _ domain.Fetcher = (*Client)(nil)

// Fetch returns the raw fields for a page reference. Cache hits skip the
// rate limiter entirely; misses wait for a limiter slot, then fetch with the
// retry policy. A successful fetch is cached even if the caller's resolution
// later fails, since raw data has no higher-level invariants to violate.
func (c *Client) Fetch(ctx context.Context, ref domain.PageRef) (domain.RawFields, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	if c.cacheEnabled && c.cache != nil {
		if fields, err := c.getFromCache(ctx, ref); err == nil {
			c.logger.Debug().Str("ref", ref.String()).Msg("Cache hit")
			return fields, nil
		}
	}

	fields, err := RetryWithValue(ctx, c.retrier, func() (domain.RawFields, error) {
		return c.fetchOnce(ctx, ref)
	})
	if err != nil {
		if ctx.Err() != nil {
			// Request-scoped cancellation or deadline: pass through so the
			// coordinator can report a cancellation cause.
			return nil, err
		}
		if !domain.IsRetryable(err) {
			// Non-retryable errors (NotFound, malformed data) pass through
			// unwrapped so callers can classify them.
			return nil, err
		}
		return nil, &domain.FetchFailedError{
			Ref:      ref,
			Attempts: c.retrier.MaxRetries() + 1,
			Err:      err,
		}
	}

	if c.cacheEnabled && c.cache != nil {
		if err := c.saveToCache(ctx, ref, fields); err != nil {
			c.logger.Warn().Err(err).Str("ref", ref.String()).Msg("Failed to cache payload")
		}
	}

	return fields, nil
}

// fetchOnce performs one rate-limited source fetch with a per-attempt
// deadline. Exceeding the deadline counts as a transient failure.
func (c *Client) fetchOnce(ctx context.Context, ref domain.PageRef) (domain.RawFields, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTTL)
	defer cancel()

	fields, err := c.source.Fetch(attemptCtx, ref)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &domain.RetryableError{Err: domain.ErrTimeout}
		}
		return nil, err
	}

	return fields, nil
}

// Close releases client resources
func (c *Client) Close() error {
	return c.source.Close()
}

func (c *Client) getFromCache(ctx context.Context, ref domain.PageRef) (domain.RawFields, error) {
	data, err := c.cache.Get(ctx, cache.RefKey(ref))
	if err != nil {
		return nil, err
	}

	var fields domain.RawFields
	if err := json.Unmarshal(data, &fields); err != nil {
		// A corrupt entry is treated as a miss.
		return nil, domain.ErrCacheMiss
	}

	return fields, nil
}

func (c *Client) saveToCache(ctx context.Context, ref domain.PageRef, fields domain.RawFields) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, cache.RefKey(ref), data, c.cacheTTL)
}
