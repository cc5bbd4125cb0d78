package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantmind-br/matchgraph-go/internal/cache"
	"github.com/quantmind-br/matchgraph-go/internal/config"
	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/extract"
	"github.com/quantmind-br/matchgraph-go/internal/fetcher"
	"github.com/quantmind-br/matchgraph-go/internal/manifest"
	"github.com/quantmind-br/matchgraph-go/internal/output"
	"github.com/quantmind-br/matchgraph-go/internal/registry"
	"github.com/quantmind-br/matchgraph-go/internal/serialize"
	"github.com/quantmind-br/matchgraph-go/internal/source"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// Orchestrator coordinates the match extraction process end to end: it owns
// the fetch pipeline, the entity registry, the coordinator, and the output
// sink built from one configuration.
type Orchestrator struct {
	config      *config.Config
	fetcher     *fetcher.Client
	cache       domain.Cache
	reg         *registry.Registry
	coordinator *extract.Coordinator
	coordOpts   extract.Options
	logger      *utils.Logger
}

// OrchestratorOptions contains options for creating an orchestrator
type OrchestratorOptions struct {
	Config   *config.Config
	Verbose  bool
	Progress bool
}

// NewOrchestrator creates a new orchestrator with the given configuration
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := cfg.Logging.Level
	if logLevel == "" {
		logLevel = "info"
	}
	if opts.Verbose {
		logLevel = "debug"
	}
	logFormat := cfg.Logging.Format
	if logFormat == "" {
		logFormat = "pretty"
	}

	logger := utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  logFormat,
		Verbose: opts.Verbose,
	})

	feed, err := source.NewFeedSource(source.FeedSourceOptions{
		BaseURL:   cfg.Feed.BaseURL,
		Timeout:   cfg.Feed.Timeout,
		UserAgent: cfg.Feed.UserAgent,
		ProxyURL:  cfg.Feed.ProxyURL,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create feed source: %w", err)
	}

	var pageCache domain.Cache
	if cfg.Cache.Enabled {
		pageCache, err = cache.NewBadgerCache(cache.Options{
			Directory: cfg.Cache.Directory,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
	}

	limiter, err := fetcher.NewTokenBucket(cfg.Fetch.RequestInterval, cfg.Fetch.Burst)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	retrier := fetcher.NewRetrier(fetcher.RetrierOptions{
		MaxRetries:      cfg.Fetch.MaxRetries,
		InitialInterval: cfg.Fetch.RetryBackoffBase,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	})

	client, err := fetcher.NewClient(fetcher.ClientOptions{
		Source:         feed,
		Cache:          pageCache,
		Limiter:        limiter,
		Retrier:        retrier,
		MaxInFlight:    cfg.Fetch.MaxInFlight,
		EnableCache:    cfg.Cache.Enabled,
		CacheTTL:       cfg.Cache.TTL,
		AttemptTimeout: cfg.Fetch.AttemptTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch client: %w", err)
	}

	reg := registry.New()
	coordOpts := extract.Options{
		FormDepth:      cfg.Extraction.FormDepth,
		H2HDepth:       cfg.Extraction.H2HDepth,
		Strict:         cfg.Extraction.Strict,
		Workers:        cfg.Extraction.Workers,
		RequestTimeout: cfg.Extraction.RequestTimeout,
		Progress:       opts.Progress,
		Logger:         logger,
	}

	return &Orchestrator{
		config:      cfg,
		fetcher:     client,
		cache:       pageCache,
		reg:         reg,
		coordinator: extract.NewCoordinator(client, reg, coordOpts),
		coordOpts:   coordOpts,
		logger:      logger.WithComponent("orchestrator"),
	}, nil
}

// Run extracts one round and writes the resulting document to outputPath.
// An empty outputPath falls back to the configured output path.
func (o *Orchestrator) Run(ctx context.Context, country, competition, round, outputPath string) error {
	return o.runWith(ctx, o.coordinator, country, competition, round, outputPath)
}

func (o *Orchestrator) runWith(ctx context.Context, coordinator *extract.Coordinator, country, competition, round, outputPath string) error {
	startTime := time.Now()

	if outputPath == "" {
		outputPath = o.config.Output.Path
	}

	o.logger.Info().
		Str("country", country).
		Str("competition", competition).
		Str("round", round).
		Str("output", outputPath).
		Msg("Starting match extraction")

	result, err := coordinator.ExtractRound(ctx, country, competition, round)
	if err != nil {
		if ctx.Err() != nil {
			o.logger.Warn().Msg("Extraction cancelled")
			return ctx.Err()
		}
		return fmt.Errorf("round extraction failed: %w", err)
	}

	var fixtures []*domain.FixtureMatch
	var played []*domain.PlayedMatch
	for _, res := range result.Assembled() {
		if res.Fixture != nil {
			fixtures = append(fixtures, res.Fixture)
		}
		if res.Played != nil {
			played = append(played, res.Played)
		}
	}

	doc, err := serialize.BuildDocument(country, competition, round, fixtures, played, result.Warnings, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("document assembly failed: %w", err)
	}

	sink, err := output.NewFileSink(output.FileSinkOptions{
		Path:      outputPath,
		Gzip:      o.config.Output.Gzip,
		Overwrite: o.config.Output.Overwrite,
		Logger:    o.logger,
	})
	if err != nil {
		return err
	}
	if err := sink.Write(ctx, doc); err != nil {
		return err
	}

	o.logger.Info().
		Int("matches", len(doc.Matches)).
		Int("warnings", len(doc.Warnings)).
		Dur("duration", time.Since(startTime)).
		Msg("Match extraction completed")

	return nil
}

// ExtractMatch extracts a single match without writing output, for callers
// that assemble documents themselves.
func (o *Orchestrator) ExtractMatch(ctx context.Context, matchID string) (*extract.Result, error) {
	return o.coordinator.ExtractMatch(ctx, matchID)
}

// Close releases all resources held by the orchestrator
func (o *Orchestrator) Close() error {
	var firstErr error
	if o.fetcher != nil {
		firstErr = o.fetcher.Close()
	}
	if o.cache != nil {
		if err := o.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// targetCoordinator returns the shared coordinator, or a derived one when
// the target overrides depths or strictness. Derived coordinators reuse the
// orchestrator's fetch pipeline and registry.
func (o *Orchestrator) targetCoordinator(target manifest.Target) *extract.Coordinator {
	if target.FormDepth <= 0 && target.H2HDepth <= 0 && target.Strict == nil {
		return o.coordinator
	}

	opts := o.coordOpts
	if target.FormDepth > 0 {
		opts.FormDepth = target.FormDepth
	}
	if target.H2HDepth > 0 {
		opts.H2HDepth = target.H2HDepth
	}
	if target.Strict != nil {
		opts.Strict = *target.Strict
	}
	return extract.NewCoordinator(o.fetcher, o.reg, opts)
}

// ManifestResult represents the result of processing one manifest target
type ManifestResult struct {
	Target   manifest.Target
	Error    error
	Duration time.Duration
}

// RunManifest extracts all targets defined in the manifest. Targets share
// the orchestrator's fetch pipeline and registry, so teams appearing in
// several rounds resolve once.
func (o *Orchestrator) RunManifest(ctx context.Context, manifestCfg *manifest.Config) error {
	startTime := time.Now()
	totalTargets := len(manifestCfg.Targets)

	o.logger.Info().
		Int("targets", totalTargets).
		Bool("continue_on_error", manifestCfg.Options.ContinueOnError).
		Str("output", manifestCfg.Options.Output).
		Msg("Starting manifest execution")

	concurrency := manifestCfg.Options.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	if concurrency > 3 {
		concurrency = 3
	}

	results := make([]ManifestResult, totalTargets)
	var resultsMu sync.Mutex
	var firstError error
	var firstErrorMu sync.Mutex

	var cancelCtx context.Context
	var cancel context.CancelFunc
	if manifestCfg.Options.ContinueOnError {
		cancelCtx = ctx
	} else {
		cancelCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	type targetWithIndex struct {
		target manifest.Target
		index  int
	}

	targets := make([]targetWithIndex, totalTargets)
	for i, t := range manifestCfg.Targets {
		targets[i] = targetWithIndex{target: t, index: i}
	}

	errs := utils.ParallelForEach(cancelCtx, targets, concurrency, func(ctx context.Context, item targetWithIndex) error {
		targetStart := time.Now()
		target := item.target
		idx := item.index

		o.logger.Info().
			Int("target_idx", idx).
			Str("country", target.Country).
			Str("competition", target.Competition).
			Str("round", target.Round).
			Msg("Processing target")

		err := o.runWith(ctx, o.targetCoordinator(target), target.Country, target.Competition, target.Round, manifestCfg.OutputPath(target))
		targetDuration := time.Since(targetStart)

		resultsMu.Lock()
		results[idx] = ManifestResult{
			Target:   target,
			Error:    err,
			Duration: targetDuration,
		}
		resultsMu.Unlock()

		if err != nil {
			o.logger.Error().
				Err(err).
				Int("target_idx", idx).
				Dur("duration", targetDuration).
				Msg("Target extraction failed")

			firstErrorMu.Lock()
			if firstError == nil {
				firstError = fmt.Errorf("target %s/%s/%s failed: %w",
					target.Country, target.Competition, target.Round, err)
			}
			firstErrorMu.Unlock()

			if !manifestCfg.Options.ContinueOnError {
				if cancel != nil {
					cancel()
				}
				return err
			}
		}

		return nil
	})

	if ctx.Err() != nil {
		o.logger.Warn().Msg("Manifest execution cancelled")
		return ctx.Err()
	}

	if !manifestCfg.Options.ContinueOnError && firstError != nil {
		o.logger.Warn().Msg("Stopping execution (continue_on_error=false)")
		return firstError
	}

	if err := utils.FirstError(errs); err != nil && firstError == nil {
		firstError = err
	}

	successCount := 0
	for _, r := range results {
		if r.Error == nil {
			successCount++
		}
	}

	o.logger.Info().
		Dur("total_duration", time.Since(startTime)).
		Int("total", totalTargets).
		Int("success", successCount).
		Int("failed", totalTargets-successCount).
		Msg("Manifest execution completed")

	if firstError != nil {
		return fmt.Errorf("manifest completed with %d/%d failures: %w",
			totalTargets-successCount, totalTargets, firstError)
	}

	return nil
}
