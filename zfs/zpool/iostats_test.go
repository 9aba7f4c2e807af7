package zpool

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ReneHollander/zpool-prometheus/zfs/prom"
)

func TestReportIOStats(t *testing.T) {
	fsys := fstest.MapFS{
		"tank/iostats": &fstest.MapFile{Data: []byte(`41 1 0x01 5 1088 6213651187 1021340347585
name                            type data
trim_bytes_written              4    49152
signed_row                      3    -1
label                           7    tank
bad-name                        4    1
arc_read_count                  2    17
`)},
		"broken/iostats": &fstest.MapFile{Data: []byte("41 2 0x01 0 0 0 0\n")},
	}

	var buf bytes.Buffer
	require.NoError(t, ReportIOStats(prom.NewEmitter(&buf), fsys, "tank"))
	assert.Equal(t, `# HELP zpool_iostats_trim_bytes_written pool I/O statistic from the iostats kstat
# TYPE zpool_iostats_trim_bytes_written counter
zpool_iostats_trim_bytes_written{name="tank"} 49152
# HELP zpool_iostats_arc_read_count pool I/O statistic from the iostats kstat
# TYPE zpool_iostats_arc_read_count counter
zpool_iostats_arc_read_count{name="tank"} 17
`, buf.String())

	buf.Reset()
	require.NoError(t, ReportIOStats(prom.NewEmitter(&buf), fsys, "missing"))
	assert.Zero(t, buf.Len())

	err := ReportIOStats(prom.NewEmitter(&buf), fsys, "broken")
	assert.ErrorContains(t, err, "iostats of broken")
}
