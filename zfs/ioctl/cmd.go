package ioctl

import (
	"errors"
	"fmt"
)

// Ioctl is a /dev/zfs request number.
type Ioctl uintptr

// Linux request numbers, ZFS_IOC_FIRST is ('Z' << 8).
const (
	zfsIocFirst Ioctl = 'Z' << 8

	ZFS_IOC_POOL_CREATE = zfsIocFirst + iota - 1
	ZFS_IOC_POOL_DESTROY
	ZFS_IOC_POOL_IMPORT
	ZFS_IOC_POOL_EXPORT
	ZFS_IOC_POOL_CONFIGS
	ZFS_IOC_POOL_STATS
)

const (
	maxPathLen = 4096
	maxNameLen = 256

	// cmdSize is larger than any zfs_cmd_t the kernel copies in or out.
	cmdSize = 16 * 1024
)

// Cmd mirrors the head of zfs_cmd_t up to zc_cookie. The tail is padding so the kernel
// never reads or writes past the struct.
type Cmd struct {
	Name              [maxPathLen]byte
	Nvlist_src        uint64
	Nvlist_src_size   uint64
	Nvlist_dst        uint64
	Nvlist_dst_size   uint64
	Nvlist_dst_filled int32
	_                 int32
	History           uint64
	Value             [maxPathLen * 2]byte
	String            [maxNameLen]byte
	Guid              uint64
	Nvlist_conf       uint64
	Nvlist_conf_size  uint64
	Cookie            uint64
	_                 [cmdSize - 12624]byte
}

func (c *Cmd) Clear() {
	*c = Cmd{}
}

func (c *Cmd) SetName(name string) error {
	return stringToDelimitedBuf(name, c.Name[:])
}

func (c *Cmd) GetName() string {
	return delimitedBufToString(c.Name[:])
}

func delimitedBufToString(buf []byte) string {
	i := 0
	for ; i < len(buf); i++ {
		if buf[i] == 0x00 {
			break
		}
	}
	return string(buf[:i])
}

func stringToDelimitedBuf(str string, buf []byte) error {
	if len(str) > len(buf)-1 {
		return fmt.Errorf("string longer than target buffer (%v > %v)", len(str), len(buf)-1)
	}
	for i := 0; i < len(str); i++ {
		if str[i] == 0x00 {
			return errors.New("string contains null byte, this is unsupported by ZFS")
		}
		buf[i] = str[i]
	}
	buf[len(str)] = 0x00
	return nil
}
