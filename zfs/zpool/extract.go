package zpool

import (
	"errors"
	"fmt"
	"math"

	"github.com/ReneHollander/zpool-prometheus/zfs/prom"
	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

const (
	poolMeasurement    = "zpool_stats"
	scanMeasurement    = "zpool_scan_stats"
	latencyMeasurement = "zpool_latency"
	queueMeasurement   = "zpool_vdev"
	sizeMeasurement    = "zpool_req"
	iostatsMeasurement = "zpool_iostats"
)

const (
	// DefaultMinLatencyIndex skips latency buckets below 1024ns.
	DefaultMinLatencyIndex = 10
	// DefaultMinSizeIndex skips request size buckets below 512 bytes.
	DefaultMinSizeIndex = 9
)

var (
	ErrNoExtendedStats = errors.New("no extended vdev statistics")
	ErrMissingStat     = errors.New("missing statistic")
)

// stat maps a vdev_stats_ex key to the name it is exported under. Optional keys only exist
// on newer kernels.
type stat struct {
	key      string
	short    string
	optional bool
}

var latencyStats = []stat{
	{"vdev_tot_r_lat_histo", "total_read", false},
	{"vdev_tot_w_lat_histo", "total_write", false},
	{"vdev_disk_r_lat_histo", "disk_read", false},
	{"vdev_disk_w_lat_histo", "disk_write", false},
	{"vdev_sync_r_lat_histo", "sync_read", false},
	{"vdev_sync_w_lat_histo", "sync_write", false},
	{"vdev_async_r_lat_histo", "async_read", false},
	{"vdev_async_w_lat_histo", "async_write", false},
	{"vdev_scrub_histo", "scrub", false},
	{"vdev_trim_histo", "trim", true},
	{"vdev_rebuild_histo", "rebuild", true},
}

var sizeStats = []stat{
	{"vdev_sync_ind_r_histo", "sync_read_ind", false},
	{"vdev_sync_ind_w_histo", "sync_write_ind", false},
	{"vdev_async_ind_r_histo", "async_read_ind", false},
	{"vdev_async_ind_w_histo", "async_write_ind", false},
	{"vdev_ind_scrub_histo", "scrub_read_ind", false},
	{"vdev_sync_agg_r_histo", "sync_read_agg", false},
	{"vdev_sync_agg_w_histo", "sync_write_agg", false},
	{"vdev_async_agg_r_histo", "async_read_agg", false},
	{"vdev_async_agg_w_histo", "async_write_agg", false},
	{"vdev_agg_scrub_histo", "scrub_read_agg", false},
	{"vdev_ind_trim_histo", "trim_write_ind", true},
	{"vdev_agg_trim_histo", "trim_write_agg", true},
}

var queueStats = []stat{
	{"vdev_sync_r_active_queue", "sync_r_active_queue", false},
	{"vdev_sync_w_active_queue", "sync_w_active_queue", false},
	{"vdev_async_r_active_queue", "async_r_active_queue", false},
	{"vdev_async_w_active_queue", "async_w_active_queue", false},
	{"vdev_async_scrub_active_queue", "async_scrub_active_queue", false},
	{"vdev_async_trim_active_queue", "async_trim_active_queue", true},
	{"vdev_sync_r_pend_queue", "sync_r_pend_queue", false},
	{"vdev_sync_w_pend_queue", "sync_w_pend_queue", false},
	{"vdev_async_r_pend_queue", "async_r_pend_queue", false},
	{"vdev_async_w_pend_queue", "async_w_pend_queue", false},
	{"vdev_async_scrub_pend_queue", "async_scrub_pend_queue", false},
	{"vdev_async_trim_pend_queue", "async_trim_pend_queue", true},
}

func vdevError(v *vdev.Vdev, parent string, err error) error {
	return fmt.Errorf("vdev %s: %w", prom.VdevName(v, parent), err)
}

// SummaryExtractor writes the counters zpool status and zpool list show. Vdevs without
// vdev_stats are skipped.
type SummaryExtractor struct {
	E *prom.Emitter
}

func (x SummaryExtractor) Extract(v *vdev.Vdev, pool, parent string) error {
	s := v.Stats
	if s == nil {
		return nil
	}
	l := prom.Labels(
		prom.Label("name", pool),
		prom.Label("state", vdev.StateName(s.State, s.Aux)),
		prom.VdevLabels(v, parent),
	)

	var free uint64
	if s.Space > s.Alloc {
		free = s.Space - s.Alloc
	}
	frag := math.NaN()
	if s.Fragmentation != vdev.FragmentationInvalid {
		frag = float64(s.Fragmentation) / 100
	}

	p := poolMeasurement
	x.E.U64(p, "state", l, s.State, prom.Gauge("current state, see zfs.h"))
	x.E.U64(p, "aux_state", l, s.Aux, prom.Gauge("auxiliary state, see zfs.h"))

	x.E.U64(p, "alloc_bytes", l, s.Alloc, prom.Gauge("allocated size"))
	x.E.U64(p, "free_bytes", l, free, prom.Gauge("free space"))
	x.E.U64(p, "size_bytes", l, s.Space, prom.Gauge("pool size"))

	x.E.U64(p, "read_bytes", l, s.BytesRead, prom.Counter("read bytes"))
	x.E.U64(p, "read_errors", l, s.ReadErrors, prom.Counter("read errors"))
	x.E.U64(p, "read_ops", l, s.OpsRead, prom.Counter("read ops"))

	x.E.U64(p, "write_bytes", l, s.BytesWrite, prom.Counter("write bytes"))
	x.E.U64(p, "write_errors", l, s.WriteErrors, prom.Counter("write errors"))
	x.E.U64(p, "write_ops", l, s.OpsWrite, prom.Counter("write ops"))

	x.E.U64(p, "cksum_errors", l, s.ChecksumErrors, prom.Counter("checksum errors"))
	x.E.F64(p, "fragmentation_ratio", l, frag, prom.Gauge("free space fragmentation metric"))
	x.E.U64(p, "slow_ios", l, s.SlowIOs, prom.Counter("slow I/Os"))
	x.E.U64(p, "self_healed_bytes", l, s.SelfHealed, prom.Counter("bytes repaired by self healing"))

	return x.E.Err()
}

func extendedStats(v *vdev.Vdev, parent string) (*vdev.ExtendedStats, error) {
	if v.Ex == nil {
		return nil, vdevError(v, parent, ErrNoExtendedStats)
	}
	return v.Ex, nil
}

func writeHistograms(e *prom.Emitter, stats []stat, measurement, unit string, bound prom.BucketBound, minIndex int, help string,
	v *vdev.Vdev, pool, parent string,
) error {
	ex, err := extendedStats(v, parent)
	if err != nil {
		return err
	}
	l := prom.Labels(prom.Label("name", pool), prom.VdevLabels(v, parent))
	for _, st := range stats {
		buckets, ok := ex.Histogram(st.key)
		if !ok {
			if st.optional {
				continue
			}
			return vdevError(v, parent, fmt.Errorf("%w: %s", ErrMissingStat, st.key))
		}
		name := measurement + "_" + st.short + "_" + unit
		if err := e.Histogram(name, l, buckets, minIndex, bound, prom.Histogram(help)); err != nil {
			return vdevError(v, parent, fmt.Errorf("%s: %w", st.key, err))
		}
	}
	return nil
}

// LatencyExtractor writes the I/O latency histograms of a vdev.
type LatencyExtractor struct {
	E        *prom.Emitter
	MinIndex int
}

func (x LatencyExtractor) Extract(v *vdev.Vdev, pool, parent string) error {
	return writeHistograms(x.E, latencyStats, latencyMeasurement, "seconds", prom.LatencyBucket, x.MinIndex,
		"latency distribution", v, pool, parent)
}

// SizeExtractor writes the request size histograms of a vdev, both for independent and
// aggregated I/Os.
type SizeExtractor struct {
	E        *prom.Emitter
	MinIndex int
}

func (x SizeExtractor) Extract(v *vdev.Vdev, pool, parent string) error {
	return writeHistograms(x.E, sizeStats, sizeMeasurement, "bytes", prom.SizeBucket, x.MinIndex,
		"I/O request size distribution", v, pool, parent)
}

// QueueExtractor writes the ZIO scheduler queue depths. They are only kept up to date for
// the root vdev, so walk it without descending.
type QueueExtractor struct {
	E *prom.Emitter
}

func (x QueueExtractor) Extract(v *vdev.Vdev, pool, parent string) error {
	ex, err := extendedStats(v, parent)
	if err != nil {
		return err
	}
	l := prom.Labels(prom.Label("name", pool), prom.VdevLabels(v, parent))
	for _, st := range queueStats {
		value, ok := ex.Scalar(st.key)
		if !ok {
			if st.optional {
				continue
			}
			return vdevError(v, parent, fmt.Errorf("%w: %s", ErrMissingStat, st.key))
		}
		x.E.U64(queueMeasurement, st.short, l, value, prom.Gauge("queue depth"))
	}
	return x.E.Err()
}
