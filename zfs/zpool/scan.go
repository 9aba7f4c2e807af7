package zpool

import (
	"math"
	"time"

	"github.com/ReneHollander/zpool-prometheus/zfs/prom"
	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

// UnknownTime is reported as the remaining time when it cannot be estimated.
const UnknownTime uint64 = math.MaxUint64

// scanProgress holds the values derived from a scan snapshot.
type scanProgress struct {
	scanRate, issueRate uint64
	remaining           uint64
	toIssue             uint64
	examinedPct         float64
	issuedPct           float64
}

func computeScanProgress(ps *vdev.ScanStats, now time.Time) scanProgress {
	var p scanProgress
	total := ps.ToExamine
	if total > 0 {
		p.examinedPct = 100 * float64(ps.Examined) / float64(total)
		p.issuedPct = 100 * float64(ps.Issued) / float64(total)
	}
	if ps.State != vdev.ScanStateScanning {
		return p
	}

	elapsed := now.Unix() - int64(ps.PassStart) - int64(ps.PassPausedSecs)
	if elapsed <= 0 {
		elapsed = 1
	}
	p.scanRate = max(ps.PassExamined/uint64(elapsed), 1)
	p.issueRate = max(ps.PassIssued/uint64(elapsed), 1)

	p.remaining = UnknownTime
	if total >= ps.Issued {
		p.remaining = (total - ps.Issued) / p.issueRate
		p.toIssue = total - ps.Issued
	}
	return p
}

// ReportScan writes the progress of the last or running scrub or resilver of a pool. Nothing
// is written for a nil snapshot or one whose state or function is unknown.
func ReportScan(e *prom.Emitter, ps *vdev.ScanStats, pool string, now time.Time) error {
	if ps == nil || !ps.State.Valid() || !ps.Func.Valid() {
		return nil
	}
	p := computeScanProgress(ps, now)

	l := prom.Labels(prom.Label("name", pool), prom.Label("state", ps.State.String()))
	m := scanMeasurement
	e.U64(m, "info", prom.Labels(l, prom.Label("function", ps.Func.String())), 1, prom.Gauge("scan function"))
	e.U64(m, "start_ts_seconds", l, ps.StartTime, prom.Gauge("scan start timestamp (epoch)"))
	e.U64(m, "end_ts_seconds", l, ps.EndTime, prom.Gauge("scan end timestamp (epoch)"))
	e.U64(m, "pause_ts_seconds", l, ps.PassPauseTime, prom.Gauge("scan paused at timestamp (epoch)"))
	e.U64(m, "paused_seconds", l, ps.PassPausedSecs, prom.Gauge("scan pause duration"))
	e.U64(m, "remaining_time_seconds", l, p.remaining, prom.Gauge("estimate of examination time remaining"))
	e.U64(m, "errors", l, ps.Errors, prom.Counter("errors detected during scan"))
	e.U64(m, "examined_bytes", l, ps.Examined, prom.Counter("bytes examined"))
	e.U64(m, "issued_bytes", l, ps.Issued, prom.Counter("bytes issued"))
	e.U64(m, "examined_pass_bytes", l, ps.PassExamined, prom.Counter("bytes examined for this pass"))
	e.U64(m, "issued_pass_bytes", l, ps.PassIssued, prom.Counter("bytes issued for this pass"))
	e.F64(m, "percent_examined_done_ratio", l, p.examinedPct, prom.Gauge("percent of bytes examined"))
	e.F64(m, "percent_issued_done_ratio", l, p.issuedPct, prom.Gauge("percent of bytes issued"))
	e.U64(m, "examined_bytes_per_second", l, p.scanRate, prom.Gauge("examination rate over current pass"))
	e.U64(m, "issued_bytes_per_second", l, p.issueRate, prom.Gauge("issue rate over current pass"))
	e.U64(m, "to_examine_bytes", l, ps.ToExamine, prom.Gauge("total bytes to scan"))
	e.U64(m, "to_issue_bytes", l, p.toIssue, prom.Gauge("bytes remaining to issue"))

	return e.Err()
}
