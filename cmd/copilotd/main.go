package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/homecopilot/core/internal/candidate"
	"github.com/homecopilot/core/internal/config"
	"github.com/homecopilot/core/internal/logging"
	"github.com/homecopilot/core/internal/service"
)

func main() {
	var cliOverrides config.CLIOverrides

	rootCmd := &cobra.Command{
		Use:   "copilotd",
		Short: "copilotd - privacy-first smart-home inference pipeline",
		Long:  "Ingests device events, mines routine patterns, and surfaces automation candidates for review, entirely on-device.",
		SilenceUsage: true,
	}

	f := rootCmd.PersistentFlags()
	cliOverrides.ConfigPath = f.StringP("config", "f", "", "Path to YAML config file (overrides COPILOT_CONFIG env)")
	cliOverrides.DataPath = f.String("data-path", "", "Data directory for persisted state")
	cliOverrides.PoolSize = f.Int("pool-size", 0, "Worker pool size (1-4)")
	cliOverrides.LogLevel = f.String("log-level", "", "Log level (debug|info|warn|error)")
	cliOverrides.ThrottleSec = f.Int("mine-throttle-sec", 0, "Minimum seconds between mining passes")
	cliOverrides.MineInterval = f.Duration("mine-interval", 0, "Mining daemon interval")

	rootCmd.AddCommand(
		runCmd(&cliOverrides),
		statsCmd(&cliOverrides),
		pruneCmd(&cliOverrides),
		mineCmd(&cliOverrides),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadCore(flags *pflag.FlagSet, o *config.CLIOverrides) (*service.Core, error) {
	configPath := ""
	if o.ConfigPath != nil && *o.ConfigPath != "" {
		configPath = *o.ConfigPath
	} else {
		configPath = os.Getenv("COPILOT_CONFIG")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyExplicitFlags(flags, cfg, o)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logging.Init(cfg.Logging.Level)

	return service.New(cfg)
}

func runCmd(o *config.CLIOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the inference pipeline as a long-lived daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner()

			core, err := loadCore(cmd.Flags(), o)
			if err != nil {
				return err
			}
			log := logging.Named("copilotd")

			core.Start()
			log.Info().Msg("core started, background daemons running")
			log.Info().Msg("copilotd is ready")

			ctx, cancel := context.WithCancel(context.Background())
			waitForShutdown(ctx, cancel)

			log.Info().Msg("initiating graceful shutdown")
			core.Stop()
			log.Info().Msg("copilotd shutdown complete")
			return nil
		},
	}
}

func statsCmd(o *config.CLIOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate pipeline statistics and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := loadCore(cmd.Flags(), o)
			if err != nil {
				return err
			}
			defer core.Stop()

			for k, v := range core.GetStats() {
				fmt.Printf("%s: %v\n", k, v)
			}
			return nil
		},
	}
}

func pruneCmd(o *config.CLIOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Run one graph pruning pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := loadCore(cmd.Flags(), o)
			if err != nil {
				return err
			}
			defer core.Stop()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			result, err := core.Prune(ctx)
			if err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}
			fmt.Printf("nodes removed: %d, edges removed: %d\n", result.NodesRemoved, result.EdgesRemoved)
			return nil
		},
	}
}

func mineCmd(o *config.CLIOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Print pending candidate patterns and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := loadCore(cmd.Flags(), o)
			if err != nil {
				return err
			}
			defer core.Stop()

			pending := candidate.StatePending
			for _, c := range core.List(&pending) {
				fmt.Printf("%s  pattern=%s  created=%d\n", c.CandidateID, c.PatternID, c.CreatedAtMs)
			}
			return nil
		},
	}
}

// applyExplicitFlags applies only the CLI flags the user explicitly set, so
// unset flags never clobber values resolved from YAML or environment
// variables.
func applyExplicitFlags(flags *pflag.FlagSet, cfg *config.Config, o *config.CLIOverrides) {
	overrides := config.CLIOverrides{}

	if flags.Changed("data-path") {
		overrides.DataPath = o.DataPath
	}
	if flags.Changed("pool-size") {
		overrides.PoolSize = o.PoolSize
	}
	if flags.Changed("log-level") {
		overrides.LogLevel = o.LogLevel
	}
	if flags.Changed("mine-throttle-sec") {
		overrides.ThrottleSec = o.ThrottleSec
	}
	if flags.Changed("mine-interval") {
		overrides.MineInterval = o.MineInterval
	}

	cfg.ApplyCLIOverrides(&overrides)
}

// waitForShutdown blocks until an OS interrupt or termination signal is
// received, then cancels ctx to initiate graceful shutdown.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		cancel()
	case <-ctx.Done():
	}
}

func printBanner() {
	banner := `
   _    _                      _____           _ _       _
  | |  | |                    / ____|         (_) |     | |
  | |__| | ___  _ __ ___   ___| |     ___ _ __  _| | ___ | |_
  |  __  |/ _ \| '_ ` + "`" + ` _ \ / _ \ |    / _ \ '_ \| | |/ _ \| __|
  | |  | | (_) | | | | | |  __/ |___| (_) | |_) | | | (_) | |_
  |_|  |_|\___/|_| |_| |_|\___|\_____\___/| .__/|_|_|\___/ \__|
                                          | |
                                          |_|
    privacy-first smart-home inference pipeline
    ─────────────────────────────────────────────
`
	fmt.Print(banner)
}
