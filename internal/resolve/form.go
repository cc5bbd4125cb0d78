package resolve

import (
	"context"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// BranchHomeForm and friends name the dependent branches in warnings and
// failure causes.
const (
	BranchHomeForm   = "home_team_form"
	BranchAwayForm   = "away_team_form"
	BranchHeadToHead = "head_to_head"
	BranchStatistics = "statistics"
)

// FormResolver builds a team's recent form: the team's last k played
// matches, most recent first, with the covered period derived from the match
// dates.
type FormResolver struct {
	fetcher domain.Fetcher
	matches *MatchResolver
	workers int
	logger  *utils.Logger
}

// NewFormResolver creates a form resolver. workers bounds the per-list
// resolution concurrency.
func NewFormResolver(fetcher domain.Fetcher, matches *MatchResolver, workers int, logger *utils.Logger) *FormResolver {
	if workers <= 0 {
		workers = 1
	}
	return &FormResolver{
		fetcher: fetcher,
		matches: matches,
		workers: workers,
		logger:  logger.WithComponent("resolve.form"),
	}
}

// Resolve fetches the team's ordered history list and resolves up to k of
// its matches. Individual match failures are dropped with warnings; only the
// list fetch itself or cancellation fails the form as a whole.
func (r *FormResolver) Resolve(ctx context.Context, team *domain.Team, k int, branch string) (*domain.TeamForm, []domain.Warning, error) {
	ref := domain.PageRef{Kind: domain.PageTeamForm, ID: team.ID}
	fields, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	// A missing or blank list is a team with no recent matches, not an
	// error: the form is simply empty.
	ids := capIDs(splitIDs(fields[fieldMatchIDs]), k)
	matches, warnings, err := resolveHistory(ctx, r.matches, ids, r.workers, branch)
	if err != nil {
		return nil, nil, err
	}

	r.logger.Debug().
		Str("team", team.Name).
		Int("matches", len(matches)).
		Int("dropped", len(warnings)).
		Msg("Resolved team form")

	return domain.NewTeamForm(team, matches), warnings, nil
}
