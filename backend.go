package main

import (
	"fmt"

	"github.com/ReneHollander/zpool-prometheus/zfs/ioctl"
	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

// ioctlBackend reads pool statistics from the kernel through /dev/zfs.
type ioctlBackend struct {
	h *ioctl.ZFSHandle
}

func openBackend(device string) (*ioctlBackend, error) {
	h, err := ioctl.Open(device)
	if err != nil {
		return nil, err
	}
	return &ioctlBackend{h: h}, nil
}

func (b *ioctlBackend) PoolNames() ([]string, error) {
	return b.h.PoolNames()
}

func (b *ioctlBackend) PoolStats(name string) (*vdev.Pool, error) {
	data, err := b.h.PoolStats(name)
	if err != nil {
		return nil, err
	}
	pool, err := vdev.ParsePoolStats(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding stats for pool %q: %w", name, err)
	}
	return pool, nil
}

func (b *ioctlBackend) Close() error {
	return b.h.Close()
}
