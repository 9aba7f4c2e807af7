// Package ioctl provides a pure-Go low-level wrapper around ZFS's ioctl interface and the few
// pool queries the exporter needs on top of it.
package ioctl

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the ZFS control device on Linux.
const DefaultDevice = "/dev/zfs"

// zfsDevMajor and zfsDevMinor identify /dev/zfs when it has to be created by hand.
const (
	zfsDevMajor = 10
	zfsDevMinor = 54
)

type ZFSHandle struct {
	zfsHandle *os.File
}

// Open opens the ZFS control device at path, creating the device node first when it is
// missing (as inside minimal containers).
func Open(path string) (*ZFSHandle, error) {
	zfsHandle, err := os.Open(path)
	if os.IsNotExist(err) {
		if err := unix.Mknod(path, unix.S_IFCHR|0o666, int(unix.Mkdev(zfsDevMajor, zfsDevMinor))); err != nil {
			return nil, fmt.Errorf("failed to create ZFS device node %s: %w", path, err)
		}
		zfsHandle, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ZFS device node %s: %w", path, err)
	}
	return &ZFSHandle{
		zfsHandle: zfsHandle,
	}, nil
}

func (h *ZFSHandle) Close() error {
	return h.zfsHandle.Close()
}

// Ioctl issues a low-level ioctl syscall with only some common wrappers. All unsafety is
// contained in here. When the kernel reports ENOMEM for the response buffer it is grown to
// the size the kernel asked for and the call is retried.
func (h *ZFSHandle) Ioctl(ioctl Ioctl, cmd *Cmd, request []byte, config []byte, resp *[]byte) error {
	for {
		// WARNING: Here be dragons! This is completely outside of Go's safety net and uses various
		// criticial runtime workarounds to make sure that memory is safely handled
		if resp != nil && *resp != nil {
			cmd.Nvlist_dst = uint64(uintptr(unsafe.Pointer(&(*resp)[0])))
			cmd.Nvlist_dst_size = uint64(len(*resp))
		}
		if request != nil {
			cmd.Nvlist_src = uint64(uintptr(unsafe.Pointer(&request[0])))
			cmd.Nvlist_src_size = uint64(len(request))
		}
		if config != nil {
			cmd.Nvlist_conf = uint64(uintptr(unsafe.Pointer(&config[0])))
			cmd.Nvlist_conf_size = uint64(len(config))
		}
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, h.zfsHandle.Fd(), uintptr(ioctl), uintptr(unsafe.Pointer(cmd)))
		runtime.KeepAlive(request)
		runtime.KeepAlive(config)
		if resp != nil {
			runtime.KeepAlive(*resp)
		}
		runtime.KeepAlive(cmd)
		if errno == unix.ENOMEM && resp != nil && *resp != nil {
			*resp = make([]byte, cmd.Nvlist_dst_size)
			continue
		}
		if errno != 0 {
			return errno
		}
		return nil
	}
}
