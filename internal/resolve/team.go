package resolve

import (
	"context"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/registry"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// TeamResolver builds Team entities from raw team pages. The fetch runs
// inside the registry builder, so concurrent requests for the same team
// perform a single fetch and share one instance.
type TeamResolver struct {
	fetcher domain.Fetcher
	reg     *registry.Registry
	logger  *utils.Logger
}

// NewTeamResolver creates a team resolver.
func NewTeamResolver(fetcher domain.Fetcher, reg *registry.Registry, logger *utils.Logger) *TeamResolver {
	return &TeamResolver{
		fetcher: fetcher,
		reg:     reg,
		logger:  logger.WithComponent("resolve.team"),
	}
}

// Resolve returns the unique Team instance for the referenced team id.
func (r *TeamResolver) Resolve(ctx context.Context, teamID string) (*domain.Team, error) {
	e, err := r.reg.GetOrCreate(ctx, registry.KindTeam, teamID, func(ctx context.Context) (any, error) {
		return r.build(ctx, teamID)
	})
	if err != nil {
		return nil, err
	}
	return e.(*domain.Team), nil
}

func (r *TeamResolver) build(ctx context.Context, teamID string) (*domain.Team, error) {
	ref := domain.PageRef{Kind: domain.PageTeam, ID: teamID}
	fields, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	name, err := requireField(fields, registry.KindTeam, teamID, fieldName)
	if err != nil {
		return nil, err
	}

	team := &domain.Team{
		ID:      teamID,
		Name:    name,
		Country: fields[fieldCountry],
		URL:     fields[fieldURL],
	}

	r.logger.Debug().Str("team", team.Name).Str("id", teamID).Msg("Resolved team")
	return team, nil
}
