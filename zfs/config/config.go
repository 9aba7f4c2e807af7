// Package config loads the exporter settings from flags, ZPOOL_PROMETHEUS_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ReneHollander/zpool-prometheus/zfs/ioctl"
	"github.com/ReneHollander/zpool-prometheus/zfs/zpool"
)

const EnvPrefix = "ZPOOL_PROMETHEUS"

const (
	KeyDevice          = "device"
	KeyKStatDir        = "kstat_dir"
	KeyMinLatencyIndex = "min_latency_index"
	KeyMinSizeIndex    = "min_size_index"
	KeyLogLevel        = "log_level"
	KeyExporterMetrics = "exporter_metrics"
)

// maxIndex is the highest histogram bucket a uint64 nanosecond or byte value can land in.
const maxIndex = 63

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Device string
	// KStatDir is empty when pool kstats should not be read.
	KStatDir        string
	MinLatencyIndex int
	MinSizeIndex    int
	LogLevel        zerolog.Level
	ExporterMetrics bool
}

// New returns a viper instance with the defaults set and environment lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// ZPOOL_PROMETHEUS_KSTAT_DIR= turns the iostats category off.
	v.AllowEmptyEnv(true)
	SetDefaults(v)
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDevice, ioctl.DefaultDevice)
	v.SetDefault(KeyKStatDir, zpool.DefaultKStatDir)
	v.SetDefault(KeyMinLatencyIndex, zpool.DefaultMinLatencyIndex)
	v.SetDefault(KeyMinSizeIndex, zpool.DefaultMinSizeIndex)
	v.SetDefault(KeyLogLevel, zerolog.LevelWarnValue)
	v.SetDefault(KeyExporterMetrics, false)
}

// ReadFile merges the config file at path into v. An empty path is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Device:          v.GetString(KeyDevice),
		KStatDir:        v.GetString(KeyKStatDir),
		MinLatencyIndex: v.GetInt(KeyMinLatencyIndex),
		MinSizeIndex:    v.GetInt(KeyMinSizeIndex),
		ExporterMetrics: v.GetBool(KeyExporterMetrics),
	}

	var errs []error
	if c.Device == "" {
		errs = append(errs, fmt.Errorf("%w: %s must not be empty", ErrInvalid, KeyDevice))
	}
	for _, idx := range []struct {
		key string
		v   int
	}{
		{KeyMinLatencyIndex, c.MinLatencyIndex},
		{KeyMinSizeIndex, c.MinSizeIndex},
	} {
		if idx.v < 0 || idx.v > maxIndex {
			errs = append(errs, fmt.Errorf("%w: %s must be between 0 and %d, got %d", ErrInvalid, idx.key, maxIndex, idx.v))
		}
	}
	level, err := zerolog.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalid, KeyLogLevel, err))
	}
	c.LogLevel = level

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) ExporterOptions() zpool.Options {
	opts := zpool.Options{
		MinLatencyIndex: c.MinLatencyIndex,
		MinSizeIndex:    c.MinSizeIndex,
		ExporterMetrics: c.ExporterMetrics,
	}
	if c.KStatDir != "" {
		opts.KStats = zpool.KStatFS(c.KStatDir)
	}
	return opts
}
