package prom

import (
	"bytes"
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

func lines(b *bytes.Buffer) []string {
	return strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
}

func countPrefix(ls []string, prefix string) int {
	n := 0
	for _, l := range ls {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func TestDescribeOnce(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	for i := range 5 {
		e.U64("zpool_stats", "read_ops", Label("vdev", "disk-"+strconv.Itoa(i)), uint64(i), Counter("read ops"))
	}
	e.U64("zpool_stats", "read_ops", "", 1, Gauge("different text"))
	require.NoError(t, e.Err())

	ls := lines(&buf)
	assert.Equal(t, 1, countPrefix(ls, "# HELP zpool_stats_read_ops "))
	assert.Equal(t, 1, countPrefix(ls, "# TYPE zpool_stats_read_ops "))
	assert.Equal(t, "# HELP zpool_stats_read_ops read ops", ls[0])
	assert.Equal(t, "# TYPE zpool_stats_read_ops counter", ls[1])
	assert.Len(t, ls, 8)
	assert.Equal(t, "zpool_stats_read_ops 1", ls[7])
}

func TestDescribeWithoutMeta(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	e.U64("zpool", "x", "", 1, nil)
	assert.False(t, e.Seen("zpool_x"))
	e.U64("zpool", "x", "", 2, Gauge(""))
	assert.True(t, e.Seen("zpool_x"))

	want := []string{
		"zpool_x 1",
		"# TYPE zpool_x gauge",
		"zpool_x 2",
	}
	if diff := cmp.Diff(want, lines(&buf)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestU64Mask(t *testing.T) {
	tests := []struct {
		in   uint64
		want uint64
	}{
		{0, 0},
		{42, 42},
		{1<<52 - 1, 1<<52 - 1},
		{1 << 52, 0},
		{1<<52 + 7, 7},
		{math.MaxUint64, 1<<52 - 1},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewEmitter(&buf).U64("p", "v", "", tt.in, nil)
		assert.Equal(t, "p_v "+strconv.FormatUint(tt.want, 10)+"\n", buf.String(), "input %d", tt.in)
	}

	r := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		v := r.Uint64()
		var buf bytes.Buffer
		NewEmitter(&buf).U64("p", "v", "", v, nil)
		got, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(buf.String(), "p_v ")), 10, 64)
		require.NoError(t, err)
		require.Equal(t, v%(1<<52), got)
	}
}

func TestF64(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	e.F64("zpool_scan_stats", "percent_issued_done_ratio", `name="tank"`, 12.5, Gauge("percent of bytes issued"))
	e.F64("zpool_scan_stats", "percent_issued_done_ratio", `name="pool"`, 100, nil)
	e.F64("zpool_stats", "fragmentation_ratio", "", math.NaN(), nil)
	e.F64("zpool_stats", "x", "", math.Inf(1), nil)

	want := []string{
		"# HELP zpool_scan_stats_percent_issued_done_ratio percent of bytes issued",
		"# TYPE zpool_scan_stats_percent_issued_done_ratio gauge",
		`zpool_scan_stats_percent_issued_done_ratio{name="tank"} 12.5`,
		`zpool_scan_stats_percent_issued_done_ratio{name="pool"} 100`,
		"zpool_stats_fragmentation_ratio NaN",
		"zpool_stats_x +Inf",
	}
	if diff := cmp.Diff(want, lines(&buf)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestComment(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	e.Comment("zpool_prometheus stats for tank")
	assert.Equal(t, "### zpool_prometheus stats for tank\n", buf.String())
}

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestStickyWriteError(t *testing.T) {
	w := &failingWriter{}
	e := NewEmitter(w)
	e.U64("p", "a", "", 1, Counter("a"))
	require.Error(t, e.Err())
	e.U64("p", "b", "", 1, Counter("b"))
	e.F64("p", "c", "", 1, nil)
	assert.Error(t, e.Histogram("p_h", "", []uint64{1}, 0, SizeBucket, nil))
	assert.Equal(t, 1, w.writes)
}

func TestEscapeLabelValue(t *testing.T) {
	assert.Equal(t, `name="my\"pool"`, Label("name", `my"pool`))
	assert.Equal(t, `a\\b`, EscapeLabelValue(`a\b`))
	assert.Equal(t, `line\nbreak`, EscapeLabelValue("line\nbreak"))
	assert.Equal(t, "plain", EscapeLabelValue("plain"))
	assert.Equal(t, `a="1",b="2"`, Labels(Label("a", "1"), "", Label("b", "2")))
	assert.Equal(t, "", Labels("", ""))
}

func TestVdevLabels(t *testing.T) {
	root := &vdev.Vdev{Type: "root", ID: 0}
	mirror := &vdev.Vdev{Type: "mirror", ID: 1}
	disk := &vdev.Vdev{Type: "disk", ID: 0, Path: `/dev/disk/by-id/ata-"odd"`}
	orphan := &vdev.Vdev{Type: vdev.UnknownType, ID: vdev.UnknownID}

	rootName := VdevName(root, "")
	assert.Equal(t, "root", rootName)
	mirrorName := VdevName(mirror, rootName)
	assert.Equal(t, "root/mirror-1", mirrorName)
	assert.Equal(t, "root/mirror-1/disk-0", VdevName(disk, mirrorName))
	assert.Equal(t, "root/unknown-18446744073709551615", VdevName(orphan, rootName))

	assert.Equal(t, `vdev="root"`, VdevLabels(root, ""))
	assert.Equal(t, `vdev="root/mirror-1/disk-0",path="/dev/disk/by-id/ata-\"odd\""`, VdevLabels(disk, mirrorName))
}

func TestValidExposition(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	e.Comment("zpool_prometheus stats for my\"pool")
	for _, v := range []string{"root", "root/mirror-0", `root/mirror-0/disk-0`} {
		l := Labels(Label("name", `my"pool`), Label("state", "ONLINE"), Label("vdev", v))
		e.U64("zpool_stats", "alloc_bytes", l, 1<<40, Gauge("allocated size"))
		e.U64("zpool_stats", "read_errors", l, 3, Counter("read errors"))
		e.F64("zpool_stats", "fragmentation_ratio", l, math.NaN(), Gauge("free space fragmentation metric"))
		require.NoError(t, e.Histogram("zpool_latency_total_read_seconds", Labels(Label("name", "tank"), Label("vdev", v)),
			[]uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, 10, LatencyBucket, Histogram("latency distribution")))
		require.NoError(t, e.Histogram("zpool_req_sync_read_ind_bytes", Label("vdev", v),
			[]uint64{0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3}, 9, SizeBucket, Histogram("I/O request size distribution")))
	}
	require.NoError(t, e.Err())

	var p expfmt.TextParser
	families, err := p.TextToMetricFamilies(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err, buf.String())
	require.Contains(t, families, "zpool_latency_total_read_seconds")
	h := families["zpool_latency_total_read_seconds"]
	require.Len(t, h.GetMetric(), 3)
	assert.Equal(t, uint64(120), h.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Len(t, families["zpool_stats_alloc_bytes"].GetMetric(), 3)

	// Writing the same names again must not produce a second header.
	e.U64("zpool_stats", "alloc_bytes", Label("vdev", "other"), 1, Gauge("allocated size"))
	_, err = p.TextToMetricFamilies(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
}

func TestFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpool_prometheus_pools_exported_total",
		Help: "Pools exported.",
	})
	reg.MustRegister(c)
	c.Add(2)
	mfs, err := reg.Gather()
	require.NoError(t, err)

	var buf bytes.Buffer
	e := NewEmitter(&buf)
	require.NoError(t, e.Families(mfs))
	require.NoError(t, e.Families(mfs))
	assert.Equal(t, "# HELP zpool_prometheus_pools_exported_total Pools exported.\n"+
		"# TYPE zpool_prometheus_pools_exported_total counter\n"+
		"zpool_prometheus_pools_exported_total 2\n", buf.String())
	assert.True(t, e.Seen("zpool_prometheus_pools_exported_total"))
}
