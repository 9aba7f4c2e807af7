package vdev

// ScanState is dsl_scan_state_t.
type ScanState uint64

const (
	ScanStateNone ScanState = iota
	ScanStateScanning
	ScanStateFinished
	ScanStateCanceled
	numScanStates
)

var scanStateNames = [numScanStates]string{"none", "scanning", "finished", "canceled"}

func (s ScanState) Valid() bool {
	return s < numScanStates
}

func (s ScanState) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return scanStateNames[s]
}

// ScanFunc is pool_scan_func_t.
type ScanFunc uint64

const (
	ScanFuncNone ScanFunc = iota
	ScanFuncScrub
	ScanFuncResilver
	ScanFuncErrorScrub
	numScanFuncs
)

func (f ScanFunc) Valid() bool {
	return f < numScanFuncs
}

func (f ScanFunc) String() string {
	switch f {
	case ScanFuncNone:
		return "none_requested"
	case ScanFuncScrub:
		return "scrub"
	case ScanFuncResilver:
		return "resilver"
	case ScanFuncErrorScrub:
		return "errorscrub"
	}
	return "scan"
}

// Indices into the scan_stats uint64 array (pool_scan_stat_t).
const (
	scanFunc = iota
	scanState
	scanStartTime
	scanEndTime
	scanToExamine
	scanExamined
	scanSkipped
	scanProcessed
	scanErrors
	scanPassExam
	scanPassStart
	scanPassScrubPause
	scanPassScrubSpentPaused
	scanPassIssued
	scanIssued
)

// ScanStats is a scrub/resilver progress snapshot. Times are seconds since the epoch,
// byte counts are full width.
type ScanStats struct {
	Func      ScanFunc
	State     ScanState
	StartTime uint64
	EndTime   uint64
	ToExamine uint64
	Examined  uint64
	Processed uint64
	Errors    uint64

	PassExamined   uint64
	PassStart      uint64
	PassPauseTime  uint64
	PassPausedSecs uint64
	PassIssued     uint64
	Issued         uint64
}

func parseScanStats(a []uint64) *ScanStats {
	at := func(i int) uint64 {
		if i < len(a) {
			return a[i]
		}
		return 0
	}
	return &ScanStats{
		Func:           ScanFunc(at(scanFunc)),
		State:          ScanState(at(scanState)),
		StartTime:      at(scanStartTime),
		EndTime:        at(scanEndTime),
		ToExamine:      at(scanToExamine),
		Examined:       at(scanExamined),
		Processed:      at(scanProcessed),
		Errors:         at(scanErrors),
		PassExamined:   at(scanPassExam),
		PassStart:      at(scanPassStart),
		PassPauseTime:  at(scanPassScrubPause),
		PassPausedSecs: at(scanPassScrubSpentPaused),
		PassIssued:     at(scanPassIssued),
		Issued:         at(scanIssued),
	}
}
