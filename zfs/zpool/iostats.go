package zpool

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/prometheus/common/model"

	"github.com/ReneHollander/zpool-prometheus/zfs/kstat"
	"github.com/ReneHollander/zpool-prometheus/zfs/prom"
)

// DefaultKStatDir is where the SPL publishes the per pool kstats.
const DefaultKStatDir = "/proc/spl/kstat/zfs"

// ReportIOStats writes the unsigned rows of the pool's iostats kstat as counters. Kernels
// without the kstat, or systems without procfs, produce no output.
func ReportIOStats(e *prom.Emitter, fsys fs.FS, pool string) error {
	data, err := fs.ReadFile(fsys, path.Join(pool, "iostats"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil
		}
		return err
	}

	l := prom.Label("name", pool)
	r := kstat.KStatReader{Data: data}
	for {
		row, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("iostats of %s: %w", pool, err)
		}
		if !r.RowIsUnsigned() {
			continue
		}
		if !model.MetricNameRE.MatchString(iostatsMeasurement + "_" + row) {
			continue
		}
		v, err := r.RowDataAsUInt64()
		if err != nil {
			return fmt.Errorf("iostats of %s: row %q: %w", pool, row, err)
		}
		e.U64(iostatsMeasurement, row, l, v, prom.Counter("pool I/O statistic from the iostats kstat"))
	}
	return e.Err()
}

// KStatFS returns the file system ReportIOStats reads pool kstats from.
func KStatFS(dir string) fs.FS {
	return os.DirFS(dir)
}
