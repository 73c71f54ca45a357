package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/popgen-sim/infsites/sim"
)

const (
	envPrefix = "INFSITES"

	configFlagName            = "config"
	seedFlagName              = "seed"
	generationsFlagName       = "generations"
	replicatesFlagName        = "replicates"
	parallelFlagName          = "parallel"
	mutationRateFlagName      = "mutation-rate"
	mutationModelFlagName     = "mutation-model"
	recombinationRateFlagName = "recombination-rate"
	metricsOutFlagName        = "metrics-out"
	snapshotStoreFlagName     = "snapshot-store"
	snapshotPathFlagName      = "snapshot-path"
	logFlagName               = "log"
	logFileFlagName           = "log-file"

	seedConfigKey              = "seed"
	generationsConfigKey       = "generations"
	replicatesConfigKey        = "replicates"
	parallelConfigKey          = "parallelism"
	mutationRateConfigKey      = "mutation.rate"
	mutationModelConfigKey     = "mutation.model"
	recombinationRateConfigKey = "recombination.rate"
	metricsOutConfigKey        = "output.metrics"
	snapshotStoreConfigKey     = "output.snapshot_store"
	snapshotPathConfigKey      = "output.snapshot_path"

	logLevelKey      = "log.level"
	logFilenameKey   = "log.filename"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogLevel      = "error"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// configureLogger sets the logrus level and, when a log file is configured,
// mirrors log output into a rotating file.
func configureLogger(stderr io.Writer) error {
	level, err := logrus.ParseLevel(viper.GetString(logLevelKey))
	if err != nil {
		return fmt.Errorf("invalid log level %q", viper.GetString(logLevelKey))
	}
	logrus.SetLevel(level)

	logPath := strings.TrimSpace(viper.GetString(logFilenameKey))
	if logPath == "" {
		logrus.SetOutput(stderr)
		return nil
	}
	logrus.SetOutput(io.MultiWriter(stderr, &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}))
	return nil
}

// loadRunConfig reads the simulation config file, if any, then applies the
// values set by flags or INFSITES_* environment variables on top.
func loadRunConfig(path string) (*sim.SimConfig, error) {
	cfg := sim.DefaultSimConfig()
	if path != "" {
		loaded, err := sim.LoadSimConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if viper.IsSet(seedConfigKey) {
		cfg.Seed = viper.GetInt64(seedConfigKey)
	}
	if viper.IsSet(generationsConfigKey) {
		cfg.Generations = viper.GetInt(generationsConfigKey)
	}
	if viper.IsSet(replicatesConfigKey) {
		cfg.Replicates = viper.GetInt(replicatesConfigKey)
	}
	if viper.IsSet(parallelConfigKey) {
		cfg.Parallelism = viper.GetInt(parallelConfigKey)
	}
	if viper.IsSet(mutationRateConfigKey) {
		cfg.Mutation.Rate = viper.GetFloat64(mutationRateConfigKey)
	}
	if viper.IsSet(mutationModelConfigKey) {
		cfg.Mutation.Model = sim.MutationModel(viper.GetString(mutationModelConfigKey))
	}
	if viper.IsSet(recombinationRateConfigKey) {
		cfg.Recombination.Rate = viper.GetFloat64(recombinationRateConfigKey)
	}
	if viper.IsSet(metricsOutConfigKey) {
		cfg.Output.Metrics = viper.GetString(metricsOutConfigKey)
	}
	if viper.IsSet(snapshotStoreConfigKey) {
		cfg.Output.SnapshotStore = viper.GetString(snapshotStoreConfigKey)
	}
	if viper.IsSet(snapshotPathConfigKey) {
		cfg.Output.SnapshotPath = viper.GetString(snapshotPathConfigKey)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
