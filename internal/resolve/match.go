package resolve

import (
	"context"
	"errors"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/registry"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// ResolvedMatch is the outcome of a match resolution: exactly one of Fixture
// or Played is set. A resolved fixture has no dependent branches yet; the
// coordinator attaches form and head-to-head afterwards.
type ResolvedMatch struct {
	Fixture *domain.FixtureMatch
	Played  *domain.PlayedMatch
}

// MatchResolver builds matches from raw match pages, branching on the
// presence of a final score. Played matches are registered so that the same
// historical match reached through a form list and a head-to-head list is a
// single shared instance.
type MatchResolver struct {
	fetcher domain.Fetcher
	reg     *registry.Registry
	teams   *TeamResolver
	logger  *utils.Logger
}

// NewMatchResolver creates a match resolver.
func NewMatchResolver(fetcher domain.Fetcher, reg *registry.Registry, teams *TeamResolver, logger *utils.Logger) *MatchResolver {
	return &MatchResolver{
		fetcher: fetcher,
		reg:     reg,
		teams:   teams,
		logger:  logger.WithComponent("resolve.match"),
	}
}

// Resolve returns the unique match instance for the referenced match id.
func (r *MatchResolver) Resolve(ctx context.Context, matchID string) (*ResolvedMatch, error) {
	e, err := r.reg.GetOrCreate(ctx, registry.KindMatch, matchID, func(ctx context.Context) (any, error) {
		return r.build(ctx, matchID)
	})
	if err != nil {
		return nil, err
	}
	return e.(*ResolvedMatch), nil
}

// ResolvePlayed resolves a match that is expected to be completed, as inside
// form and head-to-head history lists. A fixture in a history list is
// malformed source data.
func (r *MatchResolver) ResolvePlayed(ctx context.Context, matchID string) (*domain.PlayedMatch, error) {
	resolved, err := r.Resolve(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if resolved.Played == nil {
		return nil, domain.NewResolutionError(registry.KindMatch, matchID, errors.New("match is not played"))
	}
	return resolved.Played, nil
}

func (r *MatchResolver) build(ctx context.Context, matchID string) (*ResolvedMatch, error) {
	ref := domain.PageRef{Kind: domain.PageMatch, ID: matchID}
	fields, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	homeID, err := requireField(fields, registry.KindMatch, matchID, fieldHomeTeamID)
	if err != nil {
		return nil, err
	}
	awayID, err := requireField(fields, registry.KindMatch, matchID, fieldAwayTeamID)
	if err != nil {
		return nil, err
	}

	rawDate, err := requireField(fields, registry.KindMatch, matchID, fieldDate)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(registry.KindMatch, matchID, rawDate)
	if err != nil {
		return nil, err
	}

	home, err := r.teams.Resolve(ctx, homeID)
	if err != nil {
		return nil, err
	}
	away, err := r.teams.Resolve(ctx, awayID)
	if err != nil {
		return nil, err
	}

	base := domain.Match{
		ID:          matchID,
		URL:         fields[fieldURL],
		Country:     fields[fieldCountry],
		Competition: fields[fieldCompetition],
		Date:        date,
		Round:       fields[fieldRound],
		HomeTeam:    home,
		AwayTeam:    away,
		Status:      domain.ParseMatchStatus(fields[fieldStatus]),
	}

	if hasScore(fields) {
		homeScore, err := parseScore(registry.KindMatch, matchID, fieldHomeScore, fields[fieldHomeScore])
		if err != nil {
			return nil, err
		}
		awayScore, err := parseScore(registry.KindMatch, matchID, fieldAwayScore, fields[fieldAwayScore])
		if err != nil {
			return nil, err
		}

		// A final score implies Completed regardless of what the raw status
		// field claims.
		base.Status = domain.StatusCompleted
		played := &domain.PlayedMatch{
			Match:     base,
			HomeScore: homeScore,
			AwayScore: awayScore,
		}
		r.logger.Debug().Str("id", matchID).Int("home", homeScore).Int("away", awayScore).Msg("Resolved played match")
		return &ResolvedMatch{Played: played}, nil
	}

	// Fixtures never carry a final score; a completed status without one is
	// inconsistent source data and downgrades to unknown.
	if base.Status == domain.StatusCompleted {
		base.Status = domain.StatusUnknown
	}

	fixture := &domain.FixtureMatch{Match: base}
	r.logger.Debug().Str("id", matchID).Time("date", date).Msg("Resolved fixture")
	return &ResolvedMatch{Fixture: fixture}, nil
}
