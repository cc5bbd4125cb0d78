package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/registry"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// fakeFetcher serves scripted pages and counts fetches per ref.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]domain.RawFields
	errs  map[string]error
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string]domain.RawFields),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref domain.PageRef) (domain.RawFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ref.String()
	f.calls[key]++
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if fields, ok := f.pages[key]; ok {
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

func (f *fakeFetcher) addTeam(id, name string) {
	f.pages["team/"+id] = domain.RawFields{
		"name":    name,
		"country": "england",
	}
}

func (f *fakeFetcher) addFixture(id, homeID, awayID, date string) {
	f.pages["match/"+id] = domain.RawFields{
		"home_team_id": homeID,
		"away_team_id": awayID,
		"date":         date,
		"status":       "scheduled",
	}
}

func (f *fakeFetcher) addPlayed(id, homeID, awayID, date string, homeScore, awayScore int) {
	f.pages["match/"+id] = domain.RawFields{
		"home_team_id": homeID,
		"away_team_id": awayID,
		"date":         date,
		"status":       "completed",
		"home_score":   fmt.Sprint(homeScore),
		"away_score":   fmt.Sprint(awayScore),
	}
}

func newResolvers(f domain.Fetcher) (*TeamResolver, *MatchResolver, *registry.Registry) {
	log := utils.NewNopLogger()
	reg := registry.New()
	teams := NewTeamResolver(f, reg, log)
	matches := NewMatchResolver(f, reg, teams, log)
	return teams, matches, reg
}

// TestTeamResolver tests team construction and identity sharing
func TestTeamResolver(t *testing.T) {
	t.Run("resolves team fields", func(t *testing.T) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		teams, _, _ := newResolvers(f)

		team, err := teams.Resolve(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, "Arsenal", team.Name)
		assert.Equal(t, "england", team.Country)
	})

	t.Run("same id yields the same instance and one fetch", func(t *testing.T) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		teams, _, _ := newResolvers(f)

		a, err := teams.Resolve(context.Background(), "t1")
		require.NoError(t, err)
		b, err := teams.Resolve(context.Background(), "t1")
		require.NoError(t, err)

		assert.Same(t, a, b)
		assert.Equal(t, 1, f.callCount("team/t1"))
	})

	t.Run("missing name is a resolution error", func(t *testing.T) {
		f := newFakeFetcher()
		f.pages["team/t1"] = domain.RawFields{"country": "england"}
		teams, _, _ := newResolvers(f)

		_, err := teams.Resolve(context.Background(), "t1")
		var resErr *domain.ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "t1", resErr.Key)
	})
}

// TestMatchResolver tests the fixture/played branch
func TestMatchResolver(t *testing.T) {
	const date = "2026-03-01T15:00:00Z"

	t.Run("fixture without score", func(t *testing.T) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		f.addTeam("t2", "Chelsea")
		f.addFixture("m1", "t1", "t2", date)
		_, matches, _ := newResolvers(f)

		resolved, err := matches.Resolve(context.Background(), "m1")
		require.NoError(t, err)
		require.NotNil(t, resolved.Fixture)
		assert.Nil(t, resolved.Played)
		assert.Equal(t, domain.StatusScheduled, resolved.Fixture.Status)
		assert.Equal(t, "Arsenal", resolved.Fixture.HomeTeam.Name)
		assert.Equal(t, "Chelsea", resolved.Fixture.AwayTeam.Name)
	})

	t.Run("played with score forces completed status", func(t *testing.T) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		f.addTeam("t2", "Chelsea")
		f.addPlayed("m1", "t1", "t2", date, 2, 1)
		f.pages["match/m1"]["status"] = "live" // raw status lies
		_, matches, _ := newResolvers(f)

		resolved, err := matches.Resolve(context.Background(), "m1")
		require.NoError(t, err)
		require.NotNil(t, resolved.Played)
		assert.Nil(t, resolved.Fixture)
		assert.Equal(t, domain.StatusCompleted, resolved.Played.Status)
		assert.Equal(t, 2, resolved.Played.HomeScore)
		assert.Equal(t, 1, resolved.Played.AwayScore)
	})

	t.Run("completed status without score downgrades to unknown", func(t *testing.T) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		f.addTeam("t2", "Chelsea")
		f.addFixture("m1", "t1", "t2", date)
		f.pages["match/m1"]["status"] = "completed"
		_, matches, _ := newResolvers(f)

		resolved, err := matches.Resolve(context.Background(), "m1")
		require.NoError(t, err)
		require.NotNil(t, resolved.Fixture)
		assert.Equal(t, domain.StatusUnknown, resolved.Fixture.Status)
	})

	t.Run("shared teams are one instance", func(t *testing.T) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		f.addTeam("t2", "Chelsea")
		f.addTeam("t3", "Spurs")
		f.addPlayed("m1", "t1", "t2", date, 1, 0)
		f.addPlayed("m2", "t3", "t1", date, 0, 0)
		_, matches, reg := newResolvers(f)

		r1, err := matches.Resolve(context.Background(), "m1")
		require.NoError(t, err)
		r2, err := matches.Resolve(context.Background(), "m2")
		require.NoError(t, err)

		assert.Same(t, r1.Played.HomeTeam, r2.Played.AwayTeam)
		assert.Equal(t, 3, reg.Len(registry.KindTeam))
		assert.Equal(t, 1, f.callCount("team/t1"))
	})

	t.Run("invalid date is a resolution error", func(t *testing.T) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		f.addTeam("t2", "Chelsea")
		f.addFixture("m1", "t1", "t2", "yesterday")
		_, matches, _ := newResolvers(f)

		_, err := matches.Resolve(context.Background(), "m1")
		var resErr *domain.ResolutionError
		assert.ErrorAs(t, err, &resErr)
	})

	t.Run("ResolvePlayed rejects fixtures in history lists", func(t *testing.T) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		f.addTeam("t2", "Chelsea")
		f.addFixture("m1", "t1", "t2", date)
		_, matches, _ := newResolvers(f)

		_, err := matches.ResolvePlayed(context.Background(), "m1")
		var resErr *domain.ResolutionError
		assert.ErrorAs(t, err, &resErr)
		// The match exists, it just has no score yet. Reporting it as absent
		// would mislead retry and warning handling upstream.
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}

// TestStatisticsResolver tests metric pairing and absence handling
func TestStatisticsResolver(t *testing.T) {
	newStats := func(f domain.Fetcher) *StatisticsResolver {
		reg := registry.New()
		return NewStatisticsResolver(f, reg, utils.NewNopLogger())
	}

	t.Run("pairs home and away metrics", func(t *testing.T) {
		f := newFakeFetcher()
		f.pages["stats/m1"] = domain.RawFields{
			"possession.home":    "61.5",
			"possession.away":    "38.5",
			"shots_on_goal.home": "7",
			"shots_on_goal.away": "2",
		}

		stats, err := newStats(f).Resolve(context.Background(), "m1")
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.Equal(t, "m1", stats.MatchID)
		assert.Equal(t, domain.StatValue{Home: 61.5, Away: 38.5}, stats.Metrics["possession"])
		assert.Equal(t, domain.StatValue{Home: 7, Away: 2}, stats.Metrics["shots_on_goal"])
	})

	t.Run("missing page is nil without error", func(t *testing.T) {
		f := newFakeFetcher()

		stats, err := newStats(f).Resolve(context.Background(), "m1")
		require.NoError(t, err)
		assert.Nil(t, stats)
	})

	t.Run("unpaired and non-numeric metrics are dropped", func(t *testing.T) {
		f := newFakeFetcher()
		f.pages["stats/m1"] = domain.RawFields{
			"possession.home": "61.5",
			"possession.away": "38.5",
			"corners.home":    "5", // no away side
			"cards.home":      "many",
			"cards.away":      "2",
		}

		stats, err := newStats(f).Resolve(context.Background(), "m1")
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.Len(t, stats.Metrics, 1)
		assert.Contains(t, stats.Metrics, "possession")
	})

	t.Run("all metrics unusable is nil without error", func(t *testing.T) {
		f := newFakeFetcher()
		f.pages["stats/m1"] = domain.RawFields{"corners.home": "5"}

		stats, err := newStats(f).Resolve(context.Background(), "m1")
		require.NoError(t, err)
		assert.Nil(t, stats)
	})

	t.Run("fetch failure propagates", func(t *testing.T) {
		f := newFakeFetcher()
		f.errs["stats/m1"] = &domain.FetchFailedError{
			Ref: domain.PageRef{Kind: domain.PageStats, ID: "m1"}, Attempts: 4, Err: errors.New("down"),
		}

		_, err := newStats(f).Resolve(context.Background(), "m1")
		var failed *domain.FetchFailedError
		assert.ErrorAs(t, err, &failed)
	})
}

// TestFormResolver tests history order, depth capping, and partial failures
func TestFormResolver(t *testing.T) {
	const date = "2026-03-01T15:00:00Z"

	setupForm := func(matchIDs string) (*fakeFetcher, *FormResolver, *domain.Team) {
		f := newFakeFetcher()
		f.addTeam("t1", "Arsenal")
		f.addTeam("t2", "Chelsea")
		f.pages["form/t1"] = domain.RawFields{"match_ids": matchIDs}
		for i := 1; i <= 6; i++ {
			f.addPlayed(fmt.Sprintf("m%d", i), "t1", "t2", date, i, 0)
		}

		teams, matches, _ := newResolvers(f)
		team, err := teams.Resolve(context.Background(), "t1")
		if err != nil {
			panic(err)
		}
		return f, NewFormResolver(f, matches, 4, utils.NewNopLogger()), team
	}

	t.Run("source order restored after parallel resolution", func(t *testing.T) {
		_, forms, team := setupForm("m3, m1, m2")

		form, warnings, err := forms.Resolve(context.Background(), team, 5, BranchHomeForm)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, form.Matches, 3)
		assert.Equal(t, "m3", form.Matches[0].ID)
		assert.Equal(t, "m1", form.Matches[1].ID)
		assert.Equal(t, "m2", form.Matches[2].ID)
	})

	t.Run("history capped at k", func(t *testing.T) {
		_, forms, team := setupForm("m1,m2,m3,m4,m5,m6")

		form, _, err := forms.Resolve(context.Background(), team, 5, BranchHomeForm)
		require.NoError(t, err)
		assert.Len(t, form.Matches, 5)
		assert.Equal(t, "m5", form.Matches[4].ID)
	})

	t.Run("failed entries drop with warnings", func(t *testing.T) {
		f, forms, team := setupForm("m1,m2,m3")
		delete(f.pages, "match/m2")

		form, warnings, err := forms.Resolve(context.Background(), team, 5, BranchAwayForm)
		require.NoError(t, err)
		require.Len(t, form.Matches, 2)
		assert.Equal(t, "m1", form.Matches[0].ID)
		assert.Equal(t, "m3", form.Matches[1].ID)
		require.Len(t, warnings, 1)
		assert.Equal(t, BranchAwayForm, warnings[0].Branch)
		assert.Equal(t, "match/m2", warnings[0].Ref)
	})

	t.Run("empty history list yields an empty form", func(t *testing.T) {
		_, forms, team := setupForm("")

		form, warnings, err := forms.Resolve(context.Background(), team, 5, BranchHomeForm)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.NotNil(t, form)
		assert.Empty(t, form.Matches)
		assert.Same(t, team, form.Team)
	})

	t.Run("list fetch failure fails the form", func(t *testing.T) {
		f, forms, team := setupForm("m1")
		f.errs["form/t1"] = errors.New("down")

		_, _, err := forms.Resolve(context.Background(), team, 5, BranchHomeForm)
		assert.Error(t, err)
	})
}

// TestHeadToHeadResolver tests pair canonicalization
func TestHeadToHeadResolver(t *testing.T) {
	const date = "2026-03-01T15:00:00Z"

	setup := func() (*fakeFetcher, *HeadToHeadResolver, *domain.Team, *domain.Team) {
		f := newFakeFetcher()
		f.addTeam("chelsea", "Chelsea")
		f.addTeam("arsenal", "Arsenal")
		f.addPlayed("m1", "arsenal", "chelsea", date, 2, 1)
		f.pages["h2h/arsenal-chelsea"] = domain.RawFields{"match_ids": "m1"}

		teams, matches, _ := newResolvers(f)
		a, err := teams.Resolve(context.Background(), "arsenal")
		if err != nil {
			panic(err)
		}
		b, err := teams.Resolve(context.Background(), "chelsea")
		if err != nil {
			panic(err)
		}
		return f, NewHeadToHeadResolver(f, matches, 4, utils.NewNopLogger()), a, b
	}

	t.Run("pair id is order independent", func(t *testing.T) {
		assert.Equal(t, PairID("arsenal", "chelsea"), PairID("chelsea", "arsenal"))
	})

	t.Run("both orderings hit the same page", func(t *testing.T) {
		f, h2h, a, b := setup()

		h1, _, err := h2h.Resolve(context.Background(), a, b, 5)
		require.NoError(t, err)
		h2, _, err := h2h.Resolve(context.Background(), b, a, 5)
		require.NoError(t, err)

		assert.Len(t, h1.Matches, 1)
		assert.Len(t, h2.Matches, 1)
		assert.Equal(t, 2, f.callCount("h2h/arsenal-chelsea"))
	})

	t.Run("teams that never met yield an empty history", func(t *testing.T) {
		f, h2h, a, b := setup()
		f.pages["h2h/arsenal-chelsea"] = domain.RawFields{"match_ids": ""}

		head, warnings, err := h2h.Resolve(context.Background(), a, b, 5)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.NotNil(t, head)
		assert.Empty(t, head.Matches)
	})

	t.Run("same team is an error", func(t *testing.T) {
		_, h2h, a, _ := setup()

		_, _, err := h2h.Resolve(context.Background(), a, a, 5)
		var resErr *domain.ResolutionError
		assert.ErrorAs(t, err, &resErr)
	})
}
