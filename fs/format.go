package fs

import (
	"fmt"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/device"
	"github.com/tfg13/sdi4fs/tree"
)

// Format initializes a blank, correctly sized device as an empty SDI4FS
// image: header, zeroed bmap, and a root directory written to slot 1.
// There is no production "make empty image" tool (§1's OUT OF SCOPE line
// names one as an external host concern); this exists purely so tests can
// build fixtures without a real mkfs binary.
func Format(dev device.Device, sizeB uint64, now clock.Source) error {
	if sizeB < MinSizeB || sizeB > MaxSizeB {
		return fmt.Errorf("fs: format: size_b %d out of range [%d, %d]", sizeB, MinSizeB, MaxSizeB)
	}
	if uint64(dev.Size()) != sizeB {
		return fmt.Errorf("fs: format: device size %d does not match requested size_b %d", dev.Size(), sizeB)
	}

	bmapSizeB, logStartB, logSize := computeLayout(sizeB)
	if logSize == 0 {
		return fmt.Errorf("fs: format: size_b %d too small to hold any log slots", sizeB)
	}

	zeroBmap := make([]byte, bmapSizeB)
	if _, err := dev.WriteAt(zeroBmap, headerRegionSize); err != nil {
		return fmt.Errorf("fs: format: zeroing bmap: %w", err)
	}

	rootInode := block.NewDirectoryINode(RootINodeID, now)
	root := tree.NewRootDirectory(&formatAllocator{}, rootInode)
	rootBuf := root.PrimaryINode().Encode(now)
	if _, err := dev.WriteAt(rootBuf, logStartB); err != nil {
		return fmt.Errorf("fs: format: writing root directory: %w", err)
	}

	hdr := header{
		sizeB:          sizeB,
		writePtr:       2,
		bmapValid:      true,
		nextBlockID:    2,
		usedBlocks:     1,
		lastUmountTime: now.Now(),
	}
	if logSize == 1 {
		hdr.writePtr = 1
	}
	bmap := make([]uint32, logSize)
	bmap[RootINodeID-1] = 1
	bmapBuf := make([]byte, bmapSizeB)
	for i, slot := range bmap {
		writeU32(bmapBuf, i*4, slot)
	}
	if _, err := dev.WriteAt(bmapBuf, headerRegionSize); err != nil {
		return fmt.Errorf("fs: format: writing bmap: %w", err)
	}
	if _, err := dev.WriteAt(hdr.encode(), 0); err != nil {
		return fmt.Errorf("fs: format: writing header: %w", err)
	}
	return dev.Sync()
}

// formatAllocator never allocates: the root directory's two hardlinks
// ("." and ".." both pointing at itself) always fit inline, the same
// guarantee NewChildDirectory's doc comment relies on.
type formatAllocator struct{}

func (formatAllocator) Alloc() *block.DirectoryEntryList { return nil }
func (formatAllocator) Dealloc(*block.DirectoryEntryList) {}
