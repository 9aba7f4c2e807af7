package vdev

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ReneHollander/zpool-prometheus/zfs/nvlist"
)

// Config keys (ZPOOL_CONFIG_*) read by the decoder.
const (
	configName        = "name"
	configState       = "state"
	configVdevTree    = "vdev_tree"
	configType        = "type"
	configID          = "id"
	configPath        = "path"
	configChildren    = "children"
	configVdevStats   = "vdev_stats"
	configVdevStatsEx = "vdev_stats_ex"
	configScanStats   = "scan_stats"
)

// maxDepth is well above the kernel's own nvlist recursion limit.
const maxDepth = 32

var (
	ErrInvalidConfig = errors.New("invalid pool config")
	ErrNoVdevTree    = errors.New("pool config has no vdev tree")
)

func unexpected(key string, want, got nvlist.NVType) error {
	return fmt.Errorf("%w: %q is a %v, expected %v", ErrInvalidConfig, key, got, want)
}

type decoder struct {
	r    nvlist.NVListReader
	scan *ScanStats
}

// ParsePoolStats decodes the config nvlist returned by the pool stats ioctl.
func ParsePoolStats(data []byte) (*Pool, error) {
	d := decoder{r: nvlist.NVListReader{Data: data}}
	pool := &Pool{}

	for {
		token, err := d.r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		switch d.r.Name() {
		case configName:
			if token != nvlist.TypeString {
				return nil, unexpected(configName, nvlist.TypeString, token)
			}
			s, err := d.r.String()
			if err != nil {
				return nil, err
			}
			pool.Name = strings.Clone(s)
		case configState:
			if token != nvlist.TypeUint64 {
				return nil, unexpected(configState, nvlist.TypeUint64, token)
			}
			pool.State = d.r.UInt64()
		case configVdevTree:
			if token != nvlist.TypeNvlist {
				return nil, unexpected(configVdevTree, nvlist.TypeNvlist, token)
			}
			pool.Root, err = d.parseVdev(0, true)
			if err != nil {
				return nil, err
			}
		default:
			if err := d.r.SkipValue(); err != nil {
				return nil, err
			}
		}
	}

	if pool.Root == nil {
		return nil, ErrNoVdevTree
	}
	pool.Scan = d.scan
	return pool, nil
}

func (d *decoder) parseVdev(depth int, root bool) (*Vdev, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: vdev tree deeper than %d", ErrInvalidConfig, maxDepth)
	}
	v := &Vdev{Type: UnknownType, ID: UnknownID}
	r := &d.r

	for {
		token, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		switch r.Name() {
		case configChildren:
			if token != nvlist.TypeNvlistArray {
				return nil, unexpected(configChildren, nvlist.TypeNvlistArray, token)
			}
			numChildren := r.NumElements()
			v.Children = make([]*Vdev, 0, numChildren)
			for range numChildren {
				child, err := d.parseVdev(depth+1, false)
				if err != nil {
					return nil, err
				}
				v.Children = append(v.Children, child)
			}
		case configType:
			if token != nvlist.TypeString {
				return nil, unexpected(configType, nvlist.TypeString, token)
			}
			s, err := r.String()
			if err != nil {
				return nil, err
			}
			v.Type = strings.Clone(s)
		case configID:
			if token != nvlist.TypeUint64 {
				return nil, unexpected(configID, nvlist.TypeUint64, token)
			}
			v.ID = r.UInt64()
		case configPath:
			if token != nvlist.TypeString {
				return nil, unexpected(configPath, nvlist.TypeString, token)
			}
			s, err := r.String()
			if err != nil {
				return nil, err
			}
			v.Path = strings.Clone(s)
		case configVdevStats:
			if token != nvlist.TypeUint64Array {
				return nil, unexpected(configVdevStats, nvlist.TypeUint64Array, token)
			}
			a, err := r.UInt64Array(nil)
			if err != nil {
				return nil, err
			}
			v.Stats = parseStats(a)
		case configVdevStatsEx:
			if token != nvlist.TypeNvlist {
				return nil, unexpected(configVdevStatsEx, nvlist.TypeNvlist, token)
			}
			v.Ex, err = d.parseExtended()
			if err != nil {
				return nil, err
			}
		case configScanStats:
			if token != nvlist.TypeUint64Array {
				return nil, unexpected(configScanStats, nvlist.TypeUint64Array, token)
			}
			a, err := r.UInt64Array(nil)
			if err != nil {
				return nil, err
			}
			// Only the root vdev carries pool wide progress.
			if root {
				d.scan = parseScanStats(a)
			}
		default:
			if err := r.SkipValue(); err != nil {
				return nil, err
			}
		}
	}

	return v, nil
}

func (d *decoder) parseExtended() (*ExtendedStats, error) {
	ex := &ExtendedStats{
		Histograms: make(map[string][]uint64),
		Scalars:    make(map[string]uint64),
	}
	r := &d.r
	for {
		token, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		switch token {
		case nvlist.TypeUint64:
			ex.Scalars[strings.Clone(r.Name())] = r.UInt64()
		case nvlist.TypeUint64Array:
			a, err := r.UInt64Array(nil)
			if err != nil {
				return nil, err
			}
			ex.Histograms[strings.Clone(r.Name())] = a
		default:
			if err := r.SkipValue(); err != nil {
				return nil, err
			}
		}
	}
	return ex, nil
}

func parseStats(a []uint64) *Stats {
	at := func(i int) uint64 {
		if i < len(a) {
			return a[i]
		}
		return 0
	}
	frag := FragmentationInvalid
	if statFragmentation < len(a) {
		frag = a[statFragmentation]
	}
	return &Stats{
		State:          at(statState),
		Aux:            at(statAux),
		Alloc:          at(statAlloc),
		Space:          at(statSpace),
		OpsRead:        at(statOpsRead),
		OpsWrite:       at(statOpsWrite),
		BytesRead:      at(statBytesRead),
		BytesWrite:     at(statBytesWrite),
		ReadErrors:     at(statReadErrors),
		WriteErrors:    at(statWriteErrors),
		ChecksumErrors: at(statChecksumErrors),
		SelfHealed:     at(statSelfHealed),
		Fragmentation:  frag,
		SlowIOs:        at(statSlowIOs),
	}
}
