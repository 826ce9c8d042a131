// Package blockdev provides the raw block device helpers the installer and
// update environment need beyond a plain os.File: a size query so callers
// can refuse an undersized region instead of silently truncating, and a
// pre-write check that a device is not the source of a live mount.
//
// Grounded on pkg/pillar/zboot.go's treatment of raw partitions as named
// block devices; golang.org/x/sys/unix and github.com/moby/sys/mountinfo
// are both direct dependencies of the teacher's go.mod.
package blockdev

import (
	"os"
	"unsafe"

	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"

	"github.com/Elektrobit/rupdate/pkg/rerror"
)

// Size returns the size in bytes of the block device backing f, via the
// BLKGETSIZE64 ioctl.
func Size(f *os.File) (uint64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, rerror.Wrap(rerror.IoError, errno, "querying block device size")
	}
	return size, nil
}

// EnsureNotMounted fails if device is currently the source of a live
// mount. It protects against a misconfigured deployment pointing the
// update environment or an inactive image target at a partition that is
// actually in use — userspace and the bootloader never race per spec §5,
// but a wrong device path is a real failure mode worth catching before any
// byte is written.
func EnsureNotMounted(device string) error {
	var mountedAt string
	_, err := mountinfo.GetMounts(func(info *mountinfo.Info) (skip, stop bool) {
		if info.Source == device {
			mountedAt = info.Mountpoint
			return false, true
		}
		return true, false
	})
	if err != nil {
		return rerror.Wrap(rerror.IoError, err, "reading mount table")
	}
	if mountedAt != "" {
		return rerror.Newf(rerror.IoError, "device %s is mounted at %s, refusing to write", device, mountedAt)
	}
	return nil
}
