package resolve

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/registry"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// Raw statistics fields come in per-side pairs: "<metric>.home" and
// "<metric>.away". Only pairs where both sides parse as numbers are kept;
// partially present metrics are omitted rather than failing the whole page.
const (
	statHomeSuffix = ".home"
	statAwaySuffix = ".away"
)

// StatisticsResolver builds MatchStatistics for played matches. Statistics
// missing at the source are not an error: Resolve returns (nil, nil).
type StatisticsResolver struct {
	fetcher domain.Fetcher
	reg     *registry.Registry
	logger  *utils.Logger
}

// NewStatisticsResolver creates a statistics resolver.
func NewStatisticsResolver(fetcher domain.Fetcher, reg *registry.Registry, logger *utils.Logger) *StatisticsResolver {
	return &StatisticsResolver{
		fetcher: fetcher,
		reg:     reg,
		logger:  logger.WithComponent("resolve.stats"),
	}
}

// Resolve returns the statistics for a played match, or (nil, nil) when the
// source has none.
func (r *StatisticsResolver) Resolve(ctx context.Context, matchID string) (*domain.MatchStatistics, error) {
	e, err := r.reg.GetOrCreate(ctx, registry.KindStats, matchID, func(ctx context.Context) (any, error) {
		return r.build(ctx, matchID)
	})
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return e.(*domain.MatchStatistics), nil
}

func (r *StatisticsResolver) build(ctx context.Context, matchID string) (*domain.MatchStatistics, error) {
	ref := domain.PageRef{Kind: domain.PageStats, ID: matchID}
	fields, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug().Str("match", matchID).Msg("No statistics at source")
			return nil, nil
		}
		return nil, err
	}

	metrics := parseMetrics(fields)
	if len(metrics) == 0 {
		r.logger.Debug().Str("match", matchID).Msg("Statistics page had no usable metrics")
		return nil, nil
	}

	return &domain.MatchStatistics{MatchID: matchID, Metrics: metrics}, nil
}

// parseMetrics pairs up home/away fields into metric values.
func parseMetrics(fields domain.RawFields) map[string]domain.StatValue {
	metrics := make(map[string]domain.StatValue)
	for name, raw := range fields {
		if !strings.HasSuffix(name, statHomeSuffix) {
			continue
		}
		metric := strings.TrimSuffix(name, statHomeSuffix)

		home, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}
		away, err := strconv.ParseFloat(strings.TrimSpace(fields[metric+statAwaySuffix]), 64)
		if err != nil {
			continue
		}

		metrics[metric] = domain.StatValue{Home: home, Away: away}
	}
	return metrics
}
