// Package vdev holds the in-memory form of a pool's device tree as decoded from the config
// nvlist the kernel returns for a pool, together with the scan progress snapshot.
package vdev

import "math"

// UnknownID is used when a vdev carries no id.
const UnknownID uint64 = math.MaxUint64

// UnknownType is used when a vdev carries no type.
const UnknownType = "unknown"

// FragmentationInvalid is reported by vdevs without metaslabs (ZFS_FRAG_INVALID).
const FragmentationInvalid uint64 = math.MaxUint64

// Pool is one refreshed snapshot of a pool. It is built per poll and never mutated.
type Pool struct {
	Name  string
	State uint64
	Root  *Vdev
	// Scan is nil when the kernel reported no scan statistics.
	Scan *ScanStats
}

// Vdev is a node of the device tree.
type Vdev struct {
	Type string
	ID   uint64
	// Path is empty for vdevs without a backing device.
	Path string
	// Stats is nil when the node carries no vdev_stats array.
	Stats *Stats
	// Ex is nil when the node carries no vdev_stats_ex list.
	Ex       *ExtendedStats
	Children []*Vdev
}

// Stats is the subset of vdev_stat_t the exporter reports.
type Stats struct {
	State          uint64
	Aux            uint64
	Alloc          uint64
	Space          uint64
	OpsRead        uint64
	OpsWrite       uint64
	BytesRead      uint64
	BytesWrite     uint64
	ReadErrors     uint64
	WriteErrors    uint64
	ChecksumErrors uint64
	SelfHealed     uint64
	Fragmentation  uint64
	SlowIOs        uint64
}

// ExtendedStats holds the vdev_stats_ex list: power-of-two histograms and queue depths,
// keyed by their config name (vdev_tot_r_lat_histo, vdev_sync_r_active_queue, ...).
type ExtendedStats struct {
	Histograms map[string][]uint64
	Scalars    map[string]uint64
}

// Histogram returns the named histogram and whether it was present.
func (e *ExtendedStats) Histogram(key string) ([]uint64, bool) {
	if e == nil {
		return nil, false
	}
	h, ok := e.Histograms[key]
	return h, ok
}

// Scalar returns the named scalar and whether it was present.
func (e *ExtendedStats) Scalar(key string) (uint64, bool) {
	if e == nil {
		return 0, false
	}
	v, ok := e.Scalars[key]
	return v, ok
}

// Walk calls fn for v and all of its descendants, depth first.
func (v *Vdev) Walk(fn func(*Vdev)) {
	fn(v)
	for _, c := range v.Children {
		c.Walk(fn)
	}
}
