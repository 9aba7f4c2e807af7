package zpool

import (
	"bytes"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ReneHollander/zpool-prometheus/zfs/prom"
	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

func TestReportScanAbsent(t *testing.T) {
	tests := []struct {
		name string
		ps   *vdev.ScanStats
	}{
		{"no snapshot", nil},
		{"state out of range", &vdev.ScanStats{State: 7, Func: vdev.ScanFuncScrub}},
		{"function out of range", &vdev.ScanStats{State: vdev.ScanStateScanning, Func: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, ReportScan(prom.NewEmitter(&buf), tt.ps, "tank", time.Now()))
			assert.Zero(t, buf.Len())
		})
	}
}

func TestReportScanScanning(t *testing.T) {
	ps := &vdev.ScanStats{
		Func:           vdev.ScanFuncResilver,
		State:          vdev.ScanStateScanning,
		StartTime:      1000,
		PassStart:      1000,
		PassPausedSecs: 20,
		ToExamine:      1_000_000,
		Examined:       500_000,
		Issued:         250_000,
		PassExamined:   400_000,
		PassIssued:     200_000,
		Errors:         2,
	}
	now := time.Unix(1100, 0)

	p := computeScanProgress(ps, now)
	assert.Equal(t, scanProgress{
		scanRate:    5000,
		issueRate:   2500,
		remaining:   300,
		toIssue:     750_000,
		examinedPct: 50,
		issuedPct:   25,
	}, p)

	var buf bytes.Buffer
	require.NoError(t, ReportScan(prom.NewEmitter(&buf), ps, `my"pool`, now))

	families := parse(t, buf.Bytes())
	assert.Len(t, families, 17)
	l := `{name="my\"pool",state="scanning"}`
	for _, want := range []string{
		`zpool_scan_stats_info{name="my\"pool",state="scanning",function="resilver"} 1`,
		"zpool_scan_stats_remaining_time_seconds" + l + " 300",
		"zpool_scan_stats_examined_pass_bytes" + l + " 400000",
		"zpool_scan_stats_issued_pass_bytes" + l + " 200000",
		"zpool_scan_stats_percent_examined_done_ratio" + l + " 50",
		"zpool_scan_stats_issued_bytes_per_second" + l + " 2500",
		"zpool_scan_stats_to_issue_bytes" + l + " 750000",
		"zpool_scan_stats_paused_seconds" + l + " 20",
	} {
		assert.Contains(t, buf.String(), want+"\n")
	}
}

func TestReportScanFinished(t *testing.T) {
	ps := &vdev.ScanStats{
		Func:         vdev.ScanFuncScrub,
		State:        vdev.ScanStateFinished,
		PassStart:    1000,
		EndTime:      2000,
		ToExamine:    400,
		Examined:     400,
		Issued:       400,
		PassExamined: 400,
		PassIssued:   400,
	}
	p := computeScanProgress(ps, time.Unix(5000, 0))
	assert.Equal(t, scanProgress{examinedPct: 100, issuedPct: 100}, p)

	var buf bytes.Buffer
	require.NoError(t, ReportScan(prom.NewEmitter(&buf), ps, "tank", time.Unix(5000, 0)))
	assert.Contains(t, buf.String(), `zpool_scan_stats_examined_bytes_per_second{name="tank",state="finished"} 0`+"\n")
	assert.Contains(t, buf.String(), `zpool_scan_stats_remaining_time_seconds{name="tank",state="finished"} 0`+"\n")
}

func TestScanProgressEdgeCases(t *testing.T) {
	// Nothing to examine: no division by zero.
	p := computeScanProgress(&vdev.ScanStats{State: vdev.ScanStateScanning, PassStart: 100}, time.Unix(100, 0))
	assert.Equal(t, scanProgress{scanRate: 1, issueRate: 1}, p)

	// More issued than there is to examine: the estimate is unknown.
	p = computeScanProgress(&vdev.ScanStats{
		State:     vdev.ScanStateScanning,
		ToExamine: 10,
		Issued:    20,
	}, time.Unix(100, 0))
	assert.Equal(t, UnknownTime, p.remaining)
	assert.Zero(t, p.toIssue)
	assert.Equal(t, 200.0, p.issuedPct)

	var buf bytes.Buffer
	require.NoError(t, ReportScan(prom.NewEmitter(&buf), &vdev.ScanStats{
		State:     vdev.ScanStateScanning,
		ToExamine: 10,
		Issued:    20,
	}, "tank", time.Unix(100, 0)))
	assert.Contains(t, buf.String(),
		`zpool_scan_stats_remaining_time_seconds{name="tank",state="scanning"} `+strconv.FormatUint(prom.Mask, 10)+"\n")
}

func TestScanRemainingTimeFinite(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	now := time.Unix(1_800_000_000, 0)
	for range 1000 {
		total := r.Uint64N(1 << 50)
		issued := r.Uint64N(total + 1)
		ps := &vdev.ScanStats{
			State:          vdev.ScanStateScanning,
			ToExamine:      total,
			Issued:         issued,
			PassIssued:     r.Uint64N(issued + 1),
			PassExamined:   r.Uint64N(total + 1),
			PassStart:      uint64(now.Unix()) - r.Uint64N(1_000_000),
			PassPausedSecs: r.Uint64N(2_000_000),
		}
		p := computeScanProgress(ps, now)
		require.GreaterOrEqual(t, p.issueRate, uint64(1))
		require.GreaterOrEqual(t, p.scanRate, uint64(1))
		require.NotEqual(t, UnknownTime, p.remaining)
		require.LessOrEqual(t, p.remaining, total-issued)
	}
}
