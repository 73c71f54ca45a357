package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/popgen-sim/infsites/sim"
	"github.com/popgen-sim/infsites/sim/store"
)

// rootCmd is the base command for the CLI
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "infsites",
		Short:         "Forward-time infinite-sites population genetics simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String(logFlagName, viper.GetString(logLevelKey), "Log level (trace, debug, info, warn, error, fatal, panic)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFlagName), logLevelKey)
	cmd.PersistentFlags().String(logFileFlagName, "", "Also write logs to this rotating file")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.AddCommand(newRunCmd(), newConfigCmd())
	return cmd
}

// newRunCmd executes the simulation described by a config file and flags.
func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := configureLogger(cmd.ErrOrStderr()); err != nil {
				return err
			}
			cfg, err := loadRunConfig(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSimulation(ctx, cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, configFlagName, "", "Path to a YAML simulation config")

	cmd.Flags().Int64(seedFlagName, 42, "Master random seed")
	bindFlagToConfig(cmd.Flags().Lookup(seedFlagName), seedConfigKey)
	cmd.Flags().Int(generationsFlagName, 100, "Number of generations per replicate")
	bindFlagToConfig(cmd.Flags().Lookup(generationsFlagName), generationsConfigKey)
	cmd.Flags().Int(replicatesFlagName, 1, "Number of independent replicates")
	bindFlagToConfig(cmd.Flags().Lookup(replicatesFlagName), replicatesConfigKey)
	cmd.Flags().IntP(parallelFlagName, "p", 1, "Number of replicates run concurrently")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)
	cmd.Flags().Float64(mutationRateFlagName, 1e-5, "Per-site mutation rate")
	bindFlagToConfig(cmd.Flags().Lookup(mutationRateFlagName), mutationRateConfigKey)
	cmd.Flags().String(mutationModelFlagName, string(sim.MutationModelStrict), "Mutation model (strict, relaxed)")
	bindFlagToConfig(cmd.Flags().Lookup(mutationModelFlagName), mutationModelConfigKey)
	cmd.Flags().Float64(recombinationRateFlagName, 0, "Recombination rate in [0, 0.5]")
	bindFlagToConfig(cmd.Flags().Lookup(recombinationRateFlagName), recombinationRateConfigKey)
	cmd.Flags().String(metricsOutFlagName, "", "Write Prometheus text-format metrics to this file")
	bindFlagToConfig(cmd.Flags().Lookup(metricsOutFlagName), metricsOutConfigKey)
	cmd.Flags().String(snapshotStoreFlagName, "", "Snapshot store backend (memory, sqlite)")
	bindFlagToConfig(cmd.Flags().Lookup(snapshotStoreFlagName), snapshotStoreConfigKey)
	cmd.Flags().String(snapshotPathFlagName, "", "SQLite database path for snapshots")
	bindFlagToConfig(cmd.Flags().Lookup(snapshotPathFlagName), snapshotPathConfigKey)
	return cmd
}

func runSimulation(ctx context.Context, cmd *cobra.Command, cfg *sim.SimConfig) error {
	runID := uuid.NewString()
	metrics := sim.NewMetrics()
	opts := sim.ReplicateOptions{RunID: runID, Metrics: metrics}

	if cfg.Output.SnapshotStore != "" {
		st, err := store.NewStore(cfg.Output.SnapshotStore, cfg.Output.SnapshotPath)
		if err != nil {
			return err
		}
		if err := st.Init(ctx); err != nil {
			return fmt.Errorf("initializing snapshot store: %w", err)
		}
		defer func() {
			if err := store.CloseIfSupported(st); err != nil {
				logrus.Warnf("closing snapshot store: %v", err)
			}
		}()
		opts.Store = st
	}

	logrus.Infof("Starting run %s: seed=%d generations=%d replicates=%d parallelism=%d",
		runID, cfg.Seed, cfg.Generations, cfg.Replicates, cfg.Parallelism)
	startTime := time.Now()

	results, err := sim.RunReplicates(ctx, *cfg, opts)
	if err != nil {
		return err
	}

	if err := printSummary(cmd.OutOrStdout(), runID, results, metrics.Snapshot(), time.Since(startTime)); err != nil {
		return err
	}
	if cfg.Output.Metrics != "" {
		labels := sim.NewSimulationKey(cfg.Seed).Labels()
		labels["run_id"] = runID
		if err := metrics.WriteTextfile(cfg.Output.Metrics, labels); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	logrus.Info("Simulation complete.")
	return nil
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("%v", err)
	}
}
