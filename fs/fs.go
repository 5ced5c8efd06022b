// Package fs is the FS core (§2(e)): it owns the device handle, the bmap,
// header fields and the open-file table, and implements mount, unmount,
// recovery, gc, block-id allocation, save/free, path traversal, and every
// public operation.
//
// Unlike the actor-per-object style common in this codebase's lineage (one
// goroutine and a pair of channels per stateful object), FS and everything
// it touches is driven by direct synchronous method calls: the design
// mandates a strictly single-threaded, non-suspending model (§5), and
// introducing goroutines here would only add false concurrency with
// nothing to synchronize against.
package fs

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/config"
	"github.com/tfg13/sdi4fs/device"
	"github.com/tfg13/sdi4fs/logging"
	"github.com/tfg13/sdi4fs/tree"
)

// RootINodeID is the fixed, never-freed id of the root directory's INode
// (I9, B5).
const RootINodeID = 1

// FS is a mounted SDI4FS image.
type FS struct {
	dev    device.Device
	logger *slog.Logger
	clk    clock.Source

	sizeB        uint64
	bmapStartB   int64
	bmapSizeB    uint32
	logStartB    int64
	logSize      uint32
	writePtr     uint32
	nextBlockID  uint32
	usedBlocks   uint32

	bmap []uint32 // index blockID-1 -> 1-based log slot, 0 = absent

	openFiles map[uint32]*tree.File
}

// Mount reads the header, computes the on-disk layout, and either loads a
// valid bmap from disk or runs recovery (§4.2).
func Mount(dev device.Device, cfg config.Config, logger *slog.Logger) (*FS, error) {
	if logger == nil {
		logger = logging.Default
	}

	hdrBuf := make([]byte, headerRegionSize)
	if _, err := dev.ReadAt(hdrBuf, 0); err != nil {
		return nil, fmt.Errorf("fs: reading header: %w", err)
	}
	hdr, err := decodeHeader(hdrBuf)
	if err != nil {
		return nil, err
	}
	if hdr.sizeB < MinSizeB || hdr.sizeB > MaxSizeB {
		return nil, fmt.Errorf("fs: image size_b %d out of range [%d, %d]", hdr.sizeB, MinSizeB, MaxSizeB)
	}

	f := &FS{
		dev:         dev,
		logger:      logger,
		sizeB:       hdr.sizeB,
		writePtr:    hdr.writePtr,
		nextBlockID: hdr.nextBlockID,
		usedBlocks:  hdr.usedBlocks,
		openFiles:   make(map[uint32]*tree.File),
	}
	f.calcLayout()

	if hdr.usedBlocks > f.logSize || hdr.writePtr > f.logSize || hdr.writePtr == 0 {
		return nil, fmt.Errorf("fs: header inconsistent with layout (usedBlocks=%d writePtr=%d logSize=%d)", hdr.usedBlocks, hdr.writePtr, f.logSize)
	}

	f.bmap = make([]uint32, f.logSize)

	if hdr.bmapValid {
		if err := f.loadBMap(); err != nil {
			return nil, err
		}
		if cfg.ForcePseudoClock {
			f.clk = clock.NewPseudo(hdr.lastUmountTime + 1)
		} else {
			f.clk = clock.Real{}
		}
	} else {
		logger.Warn("bmap invalid on disk, running recovery", "image_size", f.sizeB)
		pseudoSeed, err := f.reconstructBMap()
		if err != nil {
			return nil, err
		}
		if cfg.ForcePseudoClock {
			f.clk = clock.NewPseudo(pseudoSeed)
		} else {
			f.clk = clock.Real{}
		}
	}

	// Mark the mount in-flight: a crash from here on requires recovery.
	if err := f.writeBMapValid(false); err != nil {
		return nil, err
	}

	return f, nil
}

// calcLayout computes bmapSizeB, logStartB and logSize from sizeB (§3.1,
// §4.2 step 2).
func (f *FS) calcLayout() {
	f.bmapStartB = headerRegionSize
	f.bmapSizeB, f.logStartB, f.logSize = computeLayout(f.sizeB)
}

// computeLayout is calcLayout's pure core, reused by Format to lay out a
// freshly initialized image before any FS exists to mount it.
func computeLayout(sizeB uint64) (bmapSizeB uint32, logStartB int64, logSize uint32) {
	avail := sizeB - headerRegionSize
	bmapSizeB = uint32(math.Ceil(float64(avail)/(1024.0*4096.0))) * 4096
	logStartB = headerRegionSize + int64(bmapSizeB)
	logSize = uint32((sizeB - headerRegionSize - uint64(bmapSizeB)) / block.Size)
	return
}

func (f *FS) loadBMap() error {
	buf := make([]byte, f.bmapSizeB)
	if _, err := f.dev.ReadAt(buf, f.bmapStartB); err != nil {
		return fmt.Errorf("fs: reading bmap: %w", err)
	}
	for i := uint32(0); i < f.logSize; i++ {
		f.bmap[i] = readU32(buf, int(i*4))
	}
	return nil
}

func (f *FS) saveBMap() error {
	buf := make([]byte, f.bmapSizeB)
	for i := uint32(0); i < f.logSize; i++ {
		writeU32(buf, int(i*4), f.bmap[i])
	}
	if _, err := f.dev.WriteAt(buf, f.bmapStartB); err != nil {
		return fmt.Errorf("fs: writing bmap: %w", err)
	}
	return nil
}

func (f *FS) writeBMapValid(valid bool) error {
	hdrBuf := make([]byte, headerRegionSize)
	if _, err := f.dev.ReadAt(hdrBuf, 0); err != nil {
		return fmt.Errorf("fs: re-reading header: %w", err)
	}
	v := uint32(0)
	if valid {
		v = 1
	}
	writeU32(hdrBuf, offBMapValid, v)
	if _, err := f.dev.WriteAt(hdrBuf, 0); err != nil {
		return fmt.Errorf("fs: writing header: %w", err)
	}
	return nil
}

// Unmount persists the bmap, writes back header fields, marks the bmap
// valid, and flushes the device (§4.12). No further calls are permitted on
// f afterwards.
func (f *FS) Unmount() error {
	if err := f.saveBMap(); err != nil {
		return err
	}
	hdr := header{
		sizeB:          f.sizeB,
		writePtr:       f.writePtr,
		bmapValid:      true,
		nextBlockID:    f.nextBlockID,
		usedBlocks:     f.usedBlocks,
		lastUmountTime: f.clk.Now(),
	}
	if _, err := f.dev.WriteAt(hdr.encode(), 0); err != nil {
		return fmt.Errorf("fs: writing header at unmount: %w", err)
	}
	f.bmap = nil
	return f.dev.Sync()
}

func readU32(buf []byte, off int) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

func writeU32(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}
