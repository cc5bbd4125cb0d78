package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantmind-br/matchgraph-go/internal/app"
	"github.com/quantmind-br/matchgraph-go/internal/config"
	"github.com/quantmind-br/matchgraph-go/internal/manifest"
	"github.com/quantmind-br/matchgraph-go/pkg/version"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "matchgraph",
	Short: "Extract linked match data from sports feeds",
	Long: `Matchgraph extracts match fixtures and results from a remote feed and
assembles them into deduplicated JSON documents: each fixture is linked to
both teams, their recent form, and the head-to-head history, with every
shared entity serialized in full exactly once.`,
	Version: version.Short(),
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one round or a manifest of rounds",
	Long: `Extract fetches every fixture of a round, resolves the dependent team,
form, head-to-head, and statistics pages, and writes one JSON document.

A round is addressed by country, competition, and round name:

  matchgraph extract -c england -l premier-league -r 12

Batch runs load targets from a manifest file instead:

  matchgraph extract --manifest rounds.yaml`,
	RunE: runExtract,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.matchgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	extractCmd.Flags().StringP("country", "c", "", "Country the competition belongs to")
	extractCmd.Flags().StringP("competition", "l", "", "Competition (league) name")
	extractCmd.Flags().StringP("round", "r", "", "Round to extract")
	extractCmd.Flags().String("manifest", "", "Manifest file with multiple targets")
	extractCmd.Flags().StringP("output", "o", "", "Output file path")
	extractCmd.Flags().String("base-url", "", "Feed base URL")
	extractCmd.Flags().Int("form-depth", config.DefaultFormDepth, "Recent matches per team form")
	extractCmd.Flags().Int("h2h-depth", config.DefaultH2HDepth, "Recent head-to-head matches")
	extractCmd.Flags().Bool("strict", false, "Fail the extraction on any branch failure")
	extractCmd.Flags().Bool("no-cache", false, "Disable caching")
	extractCmd.Flags().Duration("cache-ttl", 24*time.Hour, "Cache TTL")
	extractCmd.Flags().Int("max-in-flight", config.DefaultMaxInFlight, "Max concurrent fetches")
	extractCmd.Flags().Duration("request-interval", config.DefaultRequestInterval, "Minimum interval between fetches")
	extractCmd.Flags().Bool("gzip", false, "Compress output with gzip")
	extractCmd.Flags().Bool("force", false, "Overwrite an existing output file")
	extractCmd.Flags().Bool("no-progress", false, "Disable the progress bar")

	_ = viper.BindPFlag("feed.base_url", extractCmd.Flags().Lookup("base-url"))
	_ = viper.BindPFlag("extraction.form_depth", extractCmd.Flags().Lookup("form-depth"))
	_ = viper.BindPFlag("extraction.h2h_depth", extractCmd.Flags().Lookup("h2h-depth"))
	_ = viper.BindPFlag("extraction.strict", extractCmd.Flags().Lookup("strict"))
	_ = viper.BindPFlag("cache.ttl", extractCmd.Flags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("fetch.max_in_flight", extractCmd.Flags().Lookup("max-in-flight"))
	_ = viper.BindPFlag("fetch.request_interval", extractCmd.Flags().Lookup("request-interval"))
	_ = viper.BindPFlag("output.gzip", extractCmd.Flags().Lookup("gzip"))
	_ = viper.BindPFlag("output.overwrite", extractCmd.Flags().Lookup("force"))

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Path, _ = cmd.Flags().GetString("output")
	}

	manifestPath, _ := cmd.Flags().GetString("manifest")
	country, _ := cmd.Flags().GetString("country")
	competition, _ := cmd.Flags().GetString("competition")
	round, _ := cmd.Flags().GetString("round")

	if manifestPath == "" && (country == "" || competition == "" || round == "") {
		return fmt.Errorf("either --manifest or all of --country, --competition, and --round are required")
	}

	var manifestCfg *manifest.Config
	if manifestPath != "" {
		manifestCfg, err = manifest.NewLoader().Load(manifestPath)
		if err != nil {
			return err
		}
		if manifestCfg.Options.Gzip {
			cfg.Output.Gzip = true
		}
		if manifestCfg.Options.CacheTTL > 0 {
			cfg.Cache.TTL = manifestCfg.Options.CacheTTL
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	noProgress, _ := cmd.Flags().GetBool("no-progress")

	orchestrator, err := app.NewOrchestrator(app.OrchestratorOptions{
		Config:   cfg,
		Verbose:  verbose,
		Progress: !noProgress,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Close()

	if manifestCfg != nil {
		return orchestrator.RunManifest(ctx, manifestCfg)
	}

	return orchestrator.Run(ctx, country, competition, round, cfg.Output.Path)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
