package updateenv

import (
	"os"

	"github.com/Elektrobit/rupdate/pkg/blockdev"
	"github.com/Elektrobit/rupdate/pkg/rerror"
)

// Open validates and opens the raw device backing a two-slot UpdateEnv
// region, per SPEC_FULL.md §4.4: it refuses a device that is currently
// mounted, and a region too small to hold both slots at their configured
// offsets, before handing back a ready Environment. The caller closes the
// returned file once the Environment is no longer needed.
func Open(device string, offsets [NumSlots]int64, slotSize int64) (*Environment, *os.File, error) {
	if err := blockdev.EnsureNotMounted(device); err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, rerror.Wrapf(rerror.IoError, err, "opening update environment device %s", device)
	}

	size, err := blockdev.Size(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	var maxOffset int64
	for _, off := range offsets {
		if off > maxOffset {
			maxOffset = off
		}
	}
	required := uint64(maxOffset) + uint64(slotSize)
	if size < required {
		f.Close()
		return nil, nil, rerror.Newf(rerror.IoError, "update environment device %s is %d bytes, too small for %d-byte slots at offsets %v", device, size, slotSize, offsets)
	}

	return NewEnvironment(f, offsets, slotSize), f, nil
}
