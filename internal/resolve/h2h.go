package resolve

import (
	"context"
	"errors"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// HeadToHeadResolver builds the shared history of two teams. The team pair
// is canonicalized so both orderings address the same source page.
type HeadToHeadResolver struct {
	fetcher domain.Fetcher
	matches *MatchResolver
	workers int
	logger  *utils.Logger
}

// NewHeadToHeadResolver creates a head-to-head resolver.
func NewHeadToHeadResolver(fetcher domain.Fetcher, matches *MatchResolver, workers int, logger *utils.Logger) *HeadToHeadResolver {
	if workers <= 0 {
		workers = 1
	}
	return &HeadToHeadResolver{
		fetcher: fetcher,
		matches: matches,
		workers: workers,
		logger:  logger.WithComponent("resolve.h2h"),
	}
}

// PairID is the canonical page identifier for a team pair.
func PairID(teamA, teamB string) string {
	a, b := domain.CanonicalPair(teamA, teamB)
	return a + "-" + b
}

// Resolve fetches the pair's shared history and resolves up to k of its
// matches with the same partial-failure tolerance as form resolution.
func (r *HeadToHeadResolver) Resolve(ctx context.Context, teamA, teamB *domain.Team, k int) (*domain.HeadToHead, []domain.Warning, error) {
	if teamA.ID == teamB.ID {
		return nil, nil, domain.NewResolutionError("h2h", teamA.ID, errors.New("head-to-head teams must differ"))
	}

	pairID := PairID(teamA.ID, teamB.ID)
	ref := domain.PageRef{Kind: domain.PageHeadToHead, ID: pairID}
	fields, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	// Teams that never met have an empty shared history, not an error.
	ids := capIDs(splitIDs(fields[fieldMatchIDs]), k)
	matches, warnings, err := resolveHistory(ctx, r.matches, ids, r.workers, BranchHeadToHead)
	if err != nil {
		return nil, nil, err
	}

	r.logger.Debug().
		Str("pair", pairID).
		Int("matches", len(matches)).
		Int("dropped", len(warnings)).
		Msg("Resolved head-to-head")

	return &domain.HeadToHead{TeamA: teamA, TeamB: teamB, Matches: matches}, warnings, nil
}
