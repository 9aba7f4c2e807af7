package zpool

import (
	"bytes"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/require"

	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

// histogram returns a kernel sized (37 bucket) histogram with count in every bucket.
func histogram(count uint64) []uint64 {
	h := make([]uint64, 37)
	for i := range h {
		h[i] = count
	}
	return h
}

func extended() *vdev.ExtendedStats {
	ex := &vdev.ExtendedStats{
		Histograms: map[string][]uint64{},
		Scalars:    map[string]uint64{},
	}
	for _, st := range latencyStats {
		if !st.optional {
			ex.Histograms[st.key] = histogram(1)
		}
	}
	for _, st := range sizeStats {
		if !st.optional {
			ex.Histograms[st.key] = histogram(2)
		}
	}
	for _, st := range queueStats {
		if !st.optional {
			ex.Scalars[st.key] = 3
		}
	}
	return ex
}

func healthy(space, alloc uint64) *vdev.Stats {
	return &vdev.Stats{
		State:         vdev.StateHealthy,
		Space:         space,
		Alloc:         alloc,
		Fragmentation: 10,
	}
}

// testPool is a mirror of two disks plus a log disk.
func testPool(name string) *vdev.Pool {
	disk := func(id uint64, path string) *vdev.Vdev {
		return &vdev.Vdev{Type: "disk", ID: id, Path: path, Stats: healthy(1<<30, 1<<20), Ex: extended()}
	}
	return &vdev.Pool{
		Name: name,
		Root: &vdev.Vdev{
			Type:  "root",
			ID:    0,
			Stats: healthy(2<<30, 2<<20),
			Ex:    extended(),
			Children: []*vdev.Vdev{
				{
					Type:     "mirror",
					ID:       0,
					Stats:    healthy(1<<30, 1<<20),
					Ex:       extended(),
					Children: []*vdev.Vdev{disk(0, "/dev/sda1"), disk(1, "/dev/sdb1")},
				},
				disk(1, "/dev/nvme0n1"),
			},
		},
		Scan: &vdev.ScanStats{
			Func:      vdev.ScanFuncScrub,
			State:     vdev.ScanStateFinished,
			StartTime: 1700000000,
			EndTime:   1700003600,
			ToExamine: 1 << 30,
			Examined:  1 << 30,
			Issued:    1 << 30,
		},
	}
}

func parse(t *testing.T, b []byte) map[string]*dto.MetricFamily {
	t.Helper()
	var p expfmt.TextParser
	families, err := p.TextToMetricFamilies(bytes.NewReader(b))
	require.NoError(t, err, string(b))
	return families
}

func labelsOf(m *dto.Metric) map[string]string {
	l := map[string]string{}
	for _, lp := range m.GetLabel() {
		l[lp.GetName()] = lp.GetValue()
	}
	return l
}
