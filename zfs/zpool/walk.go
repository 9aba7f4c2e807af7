// Package zpool renders the statistics of ZFS pools in the Prometheus text format.
package zpool

import (
	"errors"

	"github.com/ReneHollander/zpool-prometheus/zfs/prom"
	"github.com/ReneHollander/zpool-prometheus/zfs/vdev"
)

// An Extractor writes the statistics of one vdev. parent is the hierarchical name of the
// parent vdev, empty for the root.
type Extractor interface {
	Extract(v *vdev.Vdev, pool, parent string) error
}

type ExtractorFunc func(v *vdev.Vdev, pool, parent string) error

func (f ExtractorFunc) Extract(v *vdev.Vdev, pool, parent string) error {
	return f(v, pool, parent)
}

// Walk runs x on v and, with descend set, on all of its descendants depth first. An error from
// x stops the walk below that vdev only. The errors of all children are returned joined.
func Walk(x Extractor, v *vdev.Vdev, pool, parent string, descend bool) error {
	if err := x.Extract(v, pool, parent); err != nil {
		return err
	}
	if !descend || len(v.Children) == 0 {
		return nil
	}

	name := prom.VdevName(v, parent)
	var errs []error
	for _, child := range v.Children {
		if err := Walk(x, child, pool, name, descend); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
