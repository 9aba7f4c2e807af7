package zpool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/ReneHollander/zpool-prometheus/zfs/prom"
	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

const commandName = "zpool_prometheus"

var ErrNoRootStats = errors.New("root vdev has no statistics")

// Backend reads pool statistics, normally through /dev/zfs.
type Backend interface {
	// PoolNames lists the imported pools.
	PoolNames() ([]string, error)
	// PoolStats refreshes and decodes the statistics of one pool.
	PoolStats(name string) (*vdev.Pool, error)
}

type Options struct {
	MinLatencyIndex int
	MinSizeIndex    int
	// KStats holds the per pool kstat directories. Nil disables the iostats category.
	KStats fs.FS
	// ExporterMetrics appends metrics about the exporter itself, including Go runtime and
	// process metrics.
	ExporterMetrics bool
}

func DefaultOptions() Options {
	return Options{
		MinLatencyIndex: DefaultMinLatencyIndex,
		MinSizeIndex:    DefaultMinSizeIndex,
		KStats:          KStatFS(DefaultKStatDir),
	}
}

// Exporter writes pool statistics to one output stream. HELP and TYPE lines are written once
// per metric name over the lifetime of the Exporter.
type Exporter struct {
	e       *prom.Emitter
	log     zerolog.Logger
	opts    Options
	now     func() time.Time
	metrics *exporterMetrics
}

func NewExporter(w io.Writer, log zerolog.Logger, opts Options) *Exporter {
	return &Exporter{
		e:       prom.NewEmitter(w),
		log:     log,
		opts:    opts,
		now:     time.Now,
		metrics: newExporterMetrics(opts.ExporterMetrics),
	}
}

type category struct {
	name string
	run  func() error
}

// ExportPool writes all statistic categories of pool. A failing category is logged and does
// not keep the others from running; the failures are returned joined.
func (x *Exporter) ExportPool(ctx context.Context, pool *vdev.Pool) error {
	if pool.Root == nil || pool.Root.Stats == nil {
		return ErrNoRootStats
	}
	name := pool.Name
	root := pool.Root

	if e := x.log.Debug(); e.Enabled() {
		vdevs := 0
		root.Walk(func(*vdev.Vdev) { vdevs++ })
		e.Str("pool", name).
			Str("state", vdev.PoolStateName(pool.State)).
			Str("size", humanize.IBytes(root.Stats.Space)).
			Str("alloc", humanize.IBytes(root.Stats.Alloc)).
			Int("vdevs", vdevs).
			Msg("exporting pool")
	}

	x.e.Comment(fmt.Sprintf("%s stats for %s", commandName, prom.EscapeLabelValue(name)))

	categories := []category{
		{"summary", func() error {
			return Walk(SummaryExtractor{E: x.e}, root, name, "", true)
		}},
		{"latency", func() error {
			return Walk(LatencyExtractor{E: x.e, MinIndex: x.opts.MinLatencyIndex}, root, name, "", true)
		}},
		{"size", func() error {
			return Walk(SizeExtractor{E: x.e, MinIndex: x.opts.MinSizeIndex}, root, name, "", true)
		}},
		{"queue", func() error {
			return Walk(QueueExtractor{E: x.e}, root, name, "", false)
		}},
		{"scan", func() error {
			return ReportScan(x.e, pool.Scan, name, x.now())
		}},
		{"iostats", func() error {
			if x.opts.KStats == nil {
				return nil
			}
			return ReportIOStats(x.e, x.opts.KStats, name)
		}},
	}

	var errs []error
	for _, c := range categories {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		err := c.run()
		if err == nil {
			continue
		}
		if werr := x.e.Err(); werr != nil {
			return fmt.Errorf("writing metrics: %w", werr)
		}
		x.log.Error().Err(err).Str("pool", name).Str("category", c.name).Msg("cannot export statistics")
		x.metrics.categoryErrors.WithLabelValues(c.name).Inc()
		errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
	}
	return errors.Join(errs...)
}

func (x *Exporter) skipPool(name string, err error) {
	x.log.Warn().Err(err).Str("pool", name).Msg("skipping pool")
	x.metrics.poolErrors.Inc()
}

// Run exports every pool the backend knows about, or only the pool named filter. Pools that
// cannot be read are logged and skipped. Only a failure to list pools or to write the output
// is returned.
func (x *Exporter) Run(ctx context.Context, b Backend, filter string) error {
	start := x.now()

	names, err := b.PoolNames()
	if err != nil {
		return fmt.Errorf("listing pools: %w", err)
	}

	matched := 0
	for _, name := range names {
		if filter != "" && name != filter {
			continue
		}
		matched++
		if err := ctx.Err(); err != nil {
			return err
		}

		pool, err := b.PoolStats(name)
		if err != nil {
			x.skipPool(name, err)
			continue
		}
		if pool.Name == "" {
			pool.Name = name
		}
		// Category failures were logged by ExportPool already.
		err = x.ExportPool(ctx, pool)
		if werr := x.e.Err(); werr != nil {
			return fmt.Errorf("writing metrics: %w", werr)
		}
		if errors.Is(err, ErrNoRootStats) {
			x.skipPool(name, err)
			continue
		}
		x.metrics.poolsExported.Inc()
	}
	if matched == 0 {
		x.log.Info().Str("filter", filter).Int("pools", len(names)).Msg("no pool matched")
	}

	x.metrics.duration.Set(x.now().Sub(start).Seconds())
	if x.opts.ExporterMetrics {
		mfs, err := x.metrics.registry.Gather()
		if err != nil {
			x.log.Warn().Err(err).Msg("cannot gather exporter metrics")
		}
		if err := x.e.Families(mfs); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return x.e.Err()
}
