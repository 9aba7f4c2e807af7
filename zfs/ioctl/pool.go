package ioctl

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ReneHollander/zpool-prometheus/zfs/nvlist"
)

// initialRespSize is the first guess for a config nvlist; Ioctl grows it on demand.
const initialRespSize = 256 * 1024

// PoolNames lists the imported pools, sorted by name like zpool_iter does.
func (h *ZFSHandle) PoolNames() ([]string, error) {
	cmd := Cmd{}
	resp := make([]byte, initialRespSize)
	err := h.Ioctl(ZFS_IOC_POOL_CONFIGS, &cmd, nil, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("error listing pool configs: %w", err)
	}

	var names []string
	r := nvlist.NVListReader{Data: resp}
	for {
		token, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error decoding pool configs: %w", err)
		}
		if token != nvlist.TypeNvlist {
			return nil, fmt.Errorf("invalid pool configs: %q is a %v", r.Name(), token)
		}
		names = append(names, strings.Clone(r.Name()))
		if err := r.Skip(); err != nil {
			return nil, fmt.Errorf("error decoding pool configs: %w", err)
		}
	}
	slices.Sort(names)
	return names, nil
}

// PoolStats asks the kernel to refresh the statistics of the named pool and returns the
// resulting config nvlist.
func (h *ZFSHandle) PoolStats(name string) ([]byte, error) {
	cmd := Cmd{}
	if err := cmd.SetName(name); err != nil {
		return nil, fmt.Errorf("invalid pool name %q: %w", name, err)
	}
	resp := make([]byte, initialRespSize)
	if err := h.Ioctl(ZFS_IOC_POOL_STATS, &cmd, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("error refreshing stats for pool %q: %w", name, err)
	}
	return resp, nil
}
