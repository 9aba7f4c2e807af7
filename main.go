package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/common/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ReneHollander/zpool-prometheus/zfs/config"
	"github.com/ReneHollander/zpool-prometheus/zfs/ioctl"
	"github.com/ReneHollander/zpool-prometheus/zfs/zpool"
)

const commandName = "zpool_prometheus"

func newLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(level)
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   commandName + " [pool]",
		Short: "Print ZFS pool statistics in Prometheus text format",
		Long: `zpool_prometheus reads the statistics of every imported ZFS pool, or only of the
named pool, and writes them to stdout in the Prometheus text exposition format. The output is
meant for the node_exporter textfile collector or a telegraf exec input.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version.Version,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadFile(v, configFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			// Usage is only useful for argument errors.
			cmd.SilenceUsage = true

			var filter string
			if len(args) > 0 {
				filter = args[0]
			}
			return run(cmd.Context(), cfg, filter)
		},
	}
	cmd.SetVersionTemplate(version.Print(commandName) + "\n")

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	f.String(config.KeyDevice, ioctl.DefaultDevice, "ZFS control device")
	f.String(config.KeyKStatDir, zpool.DefaultKStatDir, "Directory holding the per pool kstats, empty to skip them")
	f.Int(config.KeyMinLatencyIndex, zpool.DefaultMinLatencyIndex, "First latency histogram bucket to print (2^n ns)")
	f.Int(config.KeyMinSizeIndex, zpool.DefaultMinSizeIndex, "First request size histogram bucket to print (2^n bytes)")
	f.String(config.KeyLogLevel, zerolog.LevelWarnValue, "Log level for diagnostics on stderr")
	f.Bool(config.KeyExporterMetrics, false, "Append metrics about the exporter itself")
	for _, key := range []string{
		config.KeyDevice,
		config.KeyKStatDir,
		config.KeyMinLatencyIndex,
		config.KeyMinSizeIndex,
		config.KeyLogLevel,
		config.KeyExporterMetrics,
	} {
		if err := v.BindPFlag(key, f.Lookup(key)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config, filter string) error {
	log := newLogger(cfg.LogLevel)

	b, err := openBackend(cfg.Device)
	if err != nil {
		return err
	}
	defer b.Close()

	out := bufio.NewWriter(os.Stdout)
	x := zpool.NewExporter(out, log, cfg.ExporterOptions())
	if err := x.Run(ctx, b, filter); err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log := newLogger(zerolog.ErrorLevel)
		log.Error().Err(err).Msg(commandName + " failed")
		os.Exit(1)
	}
}
