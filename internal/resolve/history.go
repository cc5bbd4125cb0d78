package resolve

import (
	"context"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// resolveHistory resolves an ordered list of historical match ids with
// bounded concurrency. Source order (most recent first) is restored after
// the parallel joins complete, regardless of completion order. A match whose
// resolution fails is dropped and recorded as a warning rather than failing
// the whole list. Cancellation is the one hard failure.
func resolveHistory(ctx context.Context, matches *MatchResolver, ids []string, workers int, branch string) ([]*domain.PlayedMatch, []domain.Warning, error) {
	resolved := make([]*domain.PlayedMatch, len(ids))
	indexes := make([]int, len(ids))
	for i := range ids {
		indexes[i] = i
	}

	errs := utils.ParallelForEach(ctx, indexes, workers, func(ctx context.Context, i int) error {
		played, err := matches.ResolvePlayed(ctx, ids[i])
		if err != nil {
			return err
		}
		resolved[i] = played
		return nil
	})

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	var warnings []domain.Warning
	out := make([]*domain.PlayedMatch, 0, len(ids))
	for i, m := range resolved {
		if m == nil {
			reason := "resolution failed"
			if errs[i] != nil {
				reason = errs[i].Error()
			}
			warnings = append(warnings, domain.Warning{
				Branch: branch,
				Ref:    "match/" + ids[i],
				Reason: reason,
			})
			continue
		}
		out = append(out, m)
	}

	return out, warnings, nil
}

// capIDs bounds a history list to the configured depth, preserving order.
func capIDs(ids []string, k int) []string {
	if k > 0 && len(ids) > k {
		return ids[:k]
	}
	return ids
}
