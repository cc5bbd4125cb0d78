package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/fetcher"
	"github.com/quantmind-br/matchgraph-go/internal/registry"
	"github.com/quantmind-br/matchgraph-go/internal/resolve"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// fakeFetcher serves scripted pages, with optional transient failures.
// Refs in block hang until the caller's context is cancelled.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]domain.RawFields
	errs     map[string]error
	failOnce map[string]int
	block    map[string]bool
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    make(map[string]domain.RawFields),
		errs:     make(map[string]error),
		failOnce: make(map[string]int),
		block:    make(map[string]bool),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref domain.PageRef) (domain.RawFields, error) {
	key := ref.String()

	f.mu.Lock()
	f.calls[key]++
	blocked := f.block[key]
	failing := f.failOnce[key] > 0
	if failing {
		f.failOnce[key]--
	}
	err, hasErr := f.errs[key]
	fields, hasPage := f.pages[key]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if failing {
		return nil, &domain.RetryableError{Err: errors.New("transient")}
	}
	if hasErr {
		return nil, err
	}
	if hasPage {
		return fields, nil
	}
	return nil, fmt.Errorf("page %s: %w", ref, domain.ErrNotFound)
}

func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

const testDate = "2026-03-01T15:00:00Z"

// fixtureWorld builds a feed with one upcoming fixture, both teams' form
// lists, and the pair's head-to-head history.
func fixtureWorld() *fakeFetcher {
	f := newFakeFetcher()

	f.pages["team/arsenal"] = domain.RawFields{"name": "Arsenal", "country": "england"}
	f.pages["team/chelsea"] = domain.RawFields{"name": "Chelsea", "country": "england"}

	f.pages["match/m1"] = domain.RawFields{
		"home_team_id": "arsenal",
		"away_team_id": "chelsea",
		"date":         testDate,
		"status":       "scheduled",
	}

	// h1 appears in Arsenal's form and in the head-to-head history.
	f.pages["match/h1"] = domain.RawFields{
		"home_team_id": "arsenal",
		"away_team_id": "chelsea",
		"date":         "2026-02-01T15:00:00Z",
		"home_score":   "2",
		"away_score":   "0",
	}
	f.pages["match/h2"] = domain.RawFields{
		"home_team_id": "chelsea",
		"away_team_id": "arsenal",
		"date":         "2026-02-08T15:00:00Z",
		"home_score":   "1",
		"away_score":   "1",
	}

	f.pages["form/arsenal"] = domain.RawFields{"match_ids": "h1"}
	f.pages["form/chelsea"] = domain.RawFields{"match_ids": "h2"}
	f.pages["h2h/arsenal-chelsea"] = domain.RawFields{"match_ids": "h1,h2"}

	return f
}

func newTestCoordinator(f domain.Fetcher, strict bool) *Coordinator {
	return NewCoordinator(f, registry.New(), Options{
		FormDepth: 5,
		H2HDepth:  5,
		Strict:    strict,
		Workers:   4,
		Logger:    utils.NewNopLogger(),
	})
}

// TestCoordinator_ExtractMatch_Fixture tests the fixture branch set
func TestCoordinator_ExtractMatch_Fixture(t *testing.T) {
	t.Run("all branches resolve", func(t *testing.T) {
		c := newTestCoordinator(fixtureWorld(), false)

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, StateAssembled, result.State)
		assert.Empty(t, result.Warnings)

		fixture := result.Fixture
		require.NotNil(t, fixture)
		require.NotNil(t, fixture.HomeForm)
		require.NotNil(t, fixture.AwayForm)
		require.NotNil(t, fixture.HeadToHead)
		assert.Len(t, fixture.HomeForm.Matches, 1)
		assert.Len(t, fixture.HeadToHead.Matches, 2)
	})

	t.Run("shared history match is one instance", func(t *testing.T) {
		c := newTestCoordinator(fixtureWorld(), false)

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.NoError(t, err)

		formMatch := result.Fixture.HomeForm.Matches[0]
		h2hMatch := result.Fixture.HeadToHead.Matches[0]
		assert.Same(t, formMatch, h2hMatch)
	})

	t.Run("branch failure is a warning in non-strict mode", func(t *testing.T) {
		f := fixtureWorld()
		f.errs["h2h/arsenal-chelsea"] = &domain.FetchFailedError{
			Ref:      domain.PageRef{Kind: domain.PageHeadToHead, ID: "arsenal-chelsea"},
			Attempts: 4,
			Err:      errors.New("still down"),
		}
		c := newTestCoordinator(f, false)

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, StateAssembled, result.State)

		assert.Nil(t, result.Fixture.HeadToHead)
		require.NotNil(t, result.Fixture.HomeForm)
		require.NotNil(t, result.Fixture.AwayForm)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, resolve.BranchHeadToHead, result.Warnings[0].Branch)
	})

	t.Run("branch failure fails the request in strict mode", func(t *testing.T) {
		f := fixtureWorld()
		f.errs["h2h/arsenal-chelsea"] = errors.New("down")
		c := newTestCoordinator(f, true)

		result, err := c.ExtractMatch(context.Background(), "m1")
		assert.Error(t, err)
		assert.Equal(t, StateFailed, result.State)
		assert.ErrorIs(t, result.Err, err)
	})

	t.Run("strict failure cites the branch that failed", func(t *testing.T) {
		f := fixtureWorld()
		f.errs["h2h/arsenal-chelsea"] = errors.New("down")
		// Both form fetches hang until the head-to-head failure cancels
		// them, so they finish with a cancellation error.
		f.block["form/arsenal"] = true
		f.block["form/chelsea"] = true
		c := newTestCoordinator(f, true)

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.Error(t, err)
		assert.Equal(t, StateFailed, result.State)
		assert.Contains(t, err.Error(), resolve.BranchHeadToHead)
		assert.NotContains(t, err.Error(), "context canceled")
	})

	t.Run("base match failure is fatal", func(t *testing.T) {
		f := fixtureWorld()
		delete(f.pages, "match/m1")
		c := newTestCoordinator(f, false)

		result, err := c.ExtractMatch(context.Background(), "m1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, StateFailed, result.State)
	})

	t.Run("dropped history entries surface as warnings", func(t *testing.T) {
		f := fixtureWorld()
		delete(f.pages, "match/h2")
		c := newTestCoordinator(f, false)

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, StateAssembled, result.State)

		// h2 is gone from Chelsea's form and from the head-to-head list.
		assert.Len(t, result.Fixture.AwayForm.Matches, 0)
		assert.Len(t, result.Fixture.HeadToHead.Matches, 1)
		assert.Len(t, result.Warnings, 2)
	})
}

// TestCoordinator_ExtractMatch_Played tests the statistics branch
func TestCoordinator_ExtractMatch_Played(t *testing.T) {
	playedWorld := func() *fakeFetcher {
		f := newFakeFetcher()
		f.pages["team/arsenal"] = domain.RawFields{"name": "Arsenal"}
		f.pages["team/chelsea"] = domain.RawFields{"name": "Chelsea"}
		f.pages["match/m1"] = domain.RawFields{
			"home_team_id": "arsenal",
			"away_team_id": "chelsea",
			"date":         testDate,
			"home_score":   "3",
			"away_score":   "1",
		}
		return f
	}

	t.Run("statistics attached when present", func(t *testing.T) {
		f := playedWorld()
		f.pages["stats/m1"] = domain.RawFields{
			"possession.home": "58",
			"possession.away": "42",
		}
		c := newTestCoordinator(f, false)

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, StateAssembled, result.State)
		require.NotNil(t, result.Played)
		require.NotNil(t, result.Played.Statistics)
		assert.Equal(t, 58.0, result.Played.Statistics.Metrics["possession"].Home)
	})

	t.Run("statistics attach to a copy, not the registry instance", func(t *testing.T) {
		f := playedWorld()
		f.pages["stats/m1"] = domain.RawFields{
			"possession.home": "58",
			"possession.away": "42",
		}
		reg := registry.New()
		c := NewCoordinator(f, reg, Options{
			FormDepth: 5,
			H2HDepth:  5,
			Workers:   4,
			Logger:    utils.NewNopLogger(),
		})

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.NoError(t, err)
		require.NotNil(t, result.Played.Statistics)

		entity, ok := reg.Get(registry.KindMatch, "m1")
		require.True(t, ok)
		shared := entity.(*resolve.ResolvedMatch)
		assert.NotSame(t, shared.Played, result.Played)
		assert.Nil(t, shared.Played.Statistics)
	})

	t.Run("concurrent extractions do not share the root match", func(t *testing.T) {
		f := playedWorld()
		f.pages["stats/m1"] = domain.RawFields{
			"possession.home": "58",
			"possession.away": "42",
		}
		c := newTestCoordinator(f, false)

		results := make([]*Result, 2)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r, err := c.ExtractMatch(context.Background(), "m1")
				assert.NoError(t, err)
				results[i] = r
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			require.NotNil(t, r)
			assert.Equal(t, StateAssembled, r.State)
			require.NotNil(t, r.Played.Statistics)
		}
		assert.NotSame(t, results[0].Played, results[1].Played)
	})

	t.Run("absent statistics is no warning", func(t *testing.T) {
		c := newTestCoordinator(playedWorld(), false)

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, StateAssembled, result.State)
		assert.Nil(t, result.Played.Statistics)
		assert.Empty(t, result.Warnings)
	})

	t.Run("statistics fetch failure warns in non-strict mode", func(t *testing.T) {
		f := playedWorld()
		f.errs["stats/m1"] = &domain.FetchFailedError{
			Ref:      domain.PageRef{Kind: domain.PageStats, ID: "m1"},
			Attempts: 4,
			Err:      errors.New("down"),
		}
		c := newTestCoordinator(f, false)

		result, err := c.ExtractMatch(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, StateAssembled, result.State)
		assert.Nil(t, result.Played.Statistics)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, resolve.BranchStatistics, result.Warnings[0].Branch)
	})

	t.Run("statistics fetch failure fails in strict mode", func(t *testing.T) {
		f := playedWorld()
		f.errs["stats/m1"] = errors.New("down")
		c := newTestCoordinator(f, true)

		result, err := c.ExtractMatch(context.Background(), "m1")
		assert.Error(t, err)
		assert.Equal(t, StateFailed, result.State)
	})
}

// TestCoordinator_TransientBranchFailure tests recovery through the retry policy
func TestCoordinator_TransientBranchFailure(t *testing.T) {
	f := fixtureWorld()
	f.failOnce["form/arsenal"] = 2

	client, err := fetcher.NewClient(fetcher.ClientOptions{
		Source: f,
		Retrier: fetcher.NewRetrier(fetcher.RetrierOptions{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
		}),
	})
	require.NoError(t, err)
	defer client.Close()

	c := newTestCoordinator(client, false)

	result, err := c.ExtractMatch(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, StateAssembled, result.State)
	assert.Empty(t, result.Warnings)
	require.NotNil(t, result.Fixture.HomeForm)
	assert.Len(t, result.Fixture.HomeForm.Matches, 1)
	assert.Equal(t, 3, f.callCount("form/arsenal"))
}

// TestCoordinator_RequestTimeout tests the per-request deadline
func TestCoordinator_RequestTimeout(t *testing.T) {
	f := fixtureWorld()
	c := NewCoordinator(f, registry.New(), Options{
		RequestTimeout: time.Nanosecond,
		Logger:         utils.NewNopLogger(),
	})

	result, err := c.ExtractMatch(context.Background(), "m1")
	assert.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
}

// TestCoordinator_ExtractRound tests round-level aggregation
func TestCoordinator_ExtractRound(t *testing.T) {
	roundWorld := func() *fakeFetcher {
		f := fixtureWorld()
		f.pages["fixtures/england/premier-league/12"] = domain.RawFields{
			"match_ids": "m1,m2",
		}
		f.pages["match/m2"] = domain.RawFields{
			"home_team_id": "chelsea",
			"away_team_id": "arsenal",
			"date":         testDate,
			"home_score":   "0",
			"away_score":   "2",
		}
		return f
	}

	t.Run("extracts every fixture", func(t *testing.T) {
		c := newTestCoordinator(roundWorld(), false)

		result, err := c.ExtractRound(context.Background(), "england", "premier-league", "12")
		require.NoError(t, err)
		assert.Len(t, result.Results, 2)
		assert.Len(t, result.Assembled(), 2)
		assert.Empty(t, result.Warnings)
	})

	t.Run("fixture failure becomes a round warning in non-strict mode", func(t *testing.T) {
		f := roundWorld()
		delete(f.pages, "match/m2")
		c := newTestCoordinator(f, false)

		result, err := c.ExtractRound(context.Background(), "england", "premier-league", "12")
		require.NoError(t, err)
		assert.Len(t, result.Assembled(), 1)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, "match/m2", result.Warnings[0].Ref)
	})

	t.Run("fixture failure aborts in strict mode", func(t *testing.T) {
		f := roundWorld()
		delete(f.pages, "match/m2")
		c := newTestCoordinator(f, true)

		_, err := c.ExtractRound(context.Background(), "england", "premier-league", "12")
		assert.Error(t, err)
	})

	t.Run("empty fixture list is an error", func(t *testing.T) {
		f := roundWorld()
		f.pages["fixtures/england/premier-league/12"] = domain.RawFields{"match_ids": ""}
		c := newTestCoordinator(f, false)

		_, err := c.ExtractRound(context.Background(), "england", "premier-league", "12")
		var resErr *domain.ResolutionError
		assert.ErrorAs(t, err, &resErr)
	})

	t.Run("missing fixture page fails the round", func(t *testing.T) {
		f := roundWorld()
		delete(f.pages, "fixtures/england/premier-league/12")
		c := newTestCoordinator(f, false)

		_, err := c.ExtractRound(context.Background(), "england", "premier-league", "12")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
