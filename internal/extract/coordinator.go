package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/registry"
	"github.com/quantmind-br/matchgraph-go/internal/resolve"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// State is the coordinator's per-request extraction state.
type State string

const (
	StatePending             State = "pending"
	StateFetchingBase        State = "fetching_base"
	StateResolvingDependents State = "resolving_dependents"
	StateAssembled           State = "assembled"
	StateFailed              State = "failed"
)

// Options configures a Coordinator.
type Options struct {
	FormDepth      int
	H2HDepth       int
	Strict         bool
	Workers        int
	RequestTimeout time.Duration
	Progress       bool
	Logger         *utils.Logger
}

// Result is the terminal outcome of one match extraction. Assembled results
// carry the fully linked root match plus non-fatal warnings; Failed results
// carry the first fatal cause in Err.
type Result struct {
	State    State
	MatchID  string
	Fixture  *domain.FixtureMatch
	Played   *domain.PlayedMatch
	Warnings []domain.Warning
	Duration time.Duration
	Err      error
}

// RoundResult aggregates the extractions of one round request.
type RoundResult struct {
	Country     string
	Competition string
	Round       string
	Results     []*Result
	Warnings    []domain.Warning
	Duration    time.Duration
}

// Assembled returns the successfully extracted results.
func (r *RoundResult) Assembled() []*Result {
	out := make([]*Result, 0, len(r.Results))
	for _, res := range r.Results {
		if res.State == StateAssembled {
			out = append(out, res)
		}
	}
	return out
}

// Coordinator is the top-level orchestrator. Given a target request it
// schedules resolver calls in dependency order, bounds concurrency, and
// aggregates partial failures into a fully linked graph rooted at one match.
type Coordinator struct {
	fetcher domain.Fetcher
	reg     *registry.Registry
	teams   *resolve.TeamResolver
	matches *resolve.MatchResolver
	stats   *resolve.StatisticsResolver
	forms   *resolve.FormResolver
	h2h     *resolve.HeadToHeadResolver
	opts    Options
	logger  *utils.Logger
}

// NewCoordinator creates a coordinator and its resolver set on top of a
// shared fetch client and registry.
func NewCoordinator(fetcher domain.Fetcher, reg *registry.Registry, opts Options) *Coordinator {
	if opts.FormDepth <= 0 {
		opts.FormDepth = 5
	}
	if opts.H2HDepth <= 0 {
		opts.H2HDepth = 5
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	logger := opts.Logger.WithComponent("coordinator")
	teams := resolve.NewTeamResolver(fetcher, reg, opts.Logger)
	matches := resolve.NewMatchResolver(fetcher, reg, teams, opts.Logger)

	return &Coordinator{
		fetcher: fetcher,
		reg:     reg,
		teams:   teams,
		matches: matches,
		stats:   resolve.NewStatisticsResolver(fetcher, reg, opts.Logger),
		forms:   resolve.NewFormResolver(fetcher, matches, opts.Workers, opts.Logger),
		h2h:     resolve.NewHeadToHeadResolver(fetcher, matches, opts.Workers, opts.Logger),
		opts:    opts,
		logger:  logger,
	}
}

// ExtractMatch runs the per-request state machine
// Pending -> FetchingBase -> ResolvingDependents -> Assembled | Failed
// for a single match id.
func (c *Coordinator) ExtractMatch(ctx context.Context, matchID string) (*Result, error) {
	start := time.Now()
	result := &Result{State: StatePending, MatchID: matchID}

	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	result.State = StateFetchingBase
	resolved, err := c.matches.Resolve(ctx, matchID)
	if err != nil {
		return c.fail(result, start, fmt.Errorf("base match resolution: %w", err))
	}

	result.State = StateResolvingDependents
	if resolved.Fixture != nil {
		fixture := cloneFixture(resolved.Fixture)
		warnings, err := c.resolveFixtureBranches(ctx, fixture)
		if err != nil {
			return c.fail(result, start, err)
		}
		result.Fixture = fixture
		result.Warnings = warnings
	} else {
		played := clonePlayed(resolved.Played)
		warnings, err := c.resolvePlayedBranches(ctx, played)
		if err != nil {
			return c.fail(result, start, err)
		}
		result.Played = played
		result.Warnings = warnings
	}

	result.State = StateAssembled
	result.Duration = time.Since(start)

	c.logger.Info().
		Str("match", matchID).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("Extraction assembled")

	return result, nil
}

// resolveFixtureBranches resolves {home form, away form, head-to-head}
// concurrently. Branches are independent: a failure in one never aborts the
// others unless strict mode is set, in which case the first failure fails
// the whole request.
func (c *Coordinator) resolveFixtureBranches(ctx context.Context, fixture *domain.FixtureMatch) ([]domain.Warning, error) {
	branchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type branchOut struct {
		warnings []domain.Warning
		err      error
		branch   string
	}

	outs := make([]branchOut, 3)
	var wg sync.WaitGroup

	runBranch := func(i int, branch string, fn func(context.Context) ([]domain.Warning, error)) {
		defer wg.Done()
		warnings, err := fn(branchCtx)
		outs[i] = branchOut{warnings: warnings, err: err, branch: branch}
		if err != nil && c.opts.Strict {
			cancel()
		}
	}

	wg.Add(3)
	go runBranch(0, resolve.BranchHomeForm, func(ctx context.Context) ([]domain.Warning, error) {
		form, warnings, err := c.forms.Resolve(ctx, fixture.HomeTeam, c.opts.FormDepth, resolve.BranchHomeForm)
		if err != nil {
			return nil, err
		}
		fixture.HomeForm = form
		return warnings, nil
	})
	go runBranch(1, resolve.BranchAwayForm, func(ctx context.Context) ([]domain.Warning, error) {
		form, warnings, err := c.forms.Resolve(ctx, fixture.AwayTeam, c.opts.FormDepth, resolve.BranchAwayForm)
		if err != nil {
			return nil, err
		}
		fixture.AwayForm = form
		return warnings, nil
	})
	go runBranch(2, resolve.BranchHeadToHead, func(ctx context.Context) ([]domain.Warning, error) {
		h2h, warnings, err := c.h2h.Resolve(ctx, fixture.HomeTeam, fixture.AwayTeam, c.opts.H2HDepth)
		if err != nil {
			return nil, err
		}
		fixture.HeadToHead = h2h
		return warnings, nil
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}

	if c.opts.Strict {
		// The cancel fired on the first real failure, so sibling branches may
		// have died with a cancellation error. The reported cause must be the
		// branch that actually failed, not an innocent cancelled sibling.
		var cause *branchOut
		for i := range outs {
			if outs[i].err == nil {
				continue
			}
			if cause == nil {
				cause = &outs[i]
			}
			if !isCancellation(outs[i].err) {
				cause = &outs[i]
				break
			}
		}
		if cause != nil {
			return nil, fmt.Errorf("branch %s: %w", cause.branch, cause.err)
		}
	}

	var warnings []domain.Warning
	for _, out := range outs {
		if out.err != nil {
			c.logger.Warn().Err(out.err).Str("branch", out.branch).Msg("Branch unavailable")
			warnings = append(warnings, domain.Warning{
				Branch: out.branch,
				Reason: out.err.Error(),
			})
			continue
		}
		warnings = append(warnings, out.warnings...)
	}

	return warnings, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// resolvePlayedBranches resolves the statistics branch for a played match.
// Statistics absent at the source are not a warning; only a failed fetch is.
func (c *Coordinator) resolvePlayedBranches(ctx context.Context, played *domain.PlayedMatch) ([]domain.Warning, error) {
	stats, err := c.stats.Resolve(ctx, played.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		if c.opts.Strict {
			return nil, fmt.Errorf("branch %s: %w", resolve.BranchStatistics, err)
		}
		c.logger.Warn().Err(err).Str("branch", resolve.BranchStatistics).Msg("Branch unavailable")
		return []domain.Warning{{
			Branch: resolve.BranchStatistics,
			Ref:    "stats/" + played.ID,
			Reason: err.Error(),
		}}, nil
	}

	played.Statistics = stats
	return nil, nil
}

// ExtractRound lists the fixtures of a (country, competition, round) page
// and extracts each one. Individual fixture failures become round-level
// warnings unless strict mode is set.
func (c *Coordinator) ExtractRound(ctx context.Context, country, competition, round string) (*RoundResult, error) {
	start := time.Now()

	roundID := fmt.Sprintf("%s/%s/%s", country, competition, round)
	c.logger.Info().
		Str("country", country).
		Str("competition", competition).
		Str("round", round).
		Msg("Starting round extraction")

	fields, err := c.fetcher.Fetch(ctx, domain.PageRef{Kind: domain.PageFixtures, ID: roundID})
	if err != nil {
		return nil, fmt.Errorf("fixture list: %w", err)
	}

	ids := splitRoundIDs(fields["match_ids"])
	if len(ids) == 0 {
		return nil, domain.NewResolutionError("fixtures", roundID, fmt.Errorf("no fixtures listed"))
	}

	result := &RoundResult{
		Country:     country,
		Competition: competition,
		Round:       round,
	}

	var bar interface{ Add(int) error }
	if c.opts.Progress {
		bar = utils.NewProgressBar(len(ids), utils.DescFixtures)
	}

	for _, id := range ids {
		res, err := c.ExtractMatch(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if c.opts.Strict {
				return nil, fmt.Errorf("fixture %s: %w", id, err)
			}
			result.Warnings = append(result.Warnings, domain.Warning{
				Branch: "fixture",
				Ref:    "match/" + id,
				Reason: err.Error(),
			})
		}
		result.Results = append(result.Results, res)
		result.Warnings = append(result.Warnings, res.Warnings...)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	result.Duration = time.Since(start)

	c.logger.Info().
		Int("fixtures", len(ids)).
		Int("assembled", len(result.Assembled())).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("Round extraction completed")

	return result, nil
}

func (c *Coordinator) fail(result *Result, start time.Time, err error) (*Result, error) {
	result.State = StateFailed
	result.Err = err
	result.Duration = time.Since(start)
	c.logger.Error().Err(err).Str("match", result.MatchID).Msg("Extraction failed")
	return result, err
}

// cloneFixture and clonePlayed copy the root match shell so dependent
// branches attach to a request-local value. The registry instance stays the
// shared identity for teams and history matches and is never mutated after
// registration; the root of a request is request output, not a shared
// entity.
func cloneFixture(f *domain.FixtureMatch) *domain.FixtureMatch {
	clone := *f
	return &clone
}

func clonePlayed(p *domain.PlayedMatch) *domain.PlayedMatch {
	clone := *p
	return &clone
}

func splitRoundIDs(raw string) []string {
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
