package fs

import (
	"github.com/tfg13/sdi4fs/block"
)

// wrapSlot keeps a 1-based log-slot/id value inside [1, logSize].
func (f *FS) wrapSlot(v uint32) uint32 {
	if v > f.logSize {
		return v - f.logSize
	}
	if v < 1 {
		return v + f.logSize
	}
	return v
}

// getNextBlockID scans up to logSize positions starting at the nextBlockID
// hint and returns the first free id, or 0 when the image is full (§4.4).
// It does not mark anything used; only saveBlock does that. A caller that
// allocates several ids in one operation before any of them are saved may
// observe the same id suggested twice only if no other id is free, which
// the budget prechecks in §4.8/§4.10 are sized to prevent.
func (f *FS) getNextBlockID() uint32 {
	if f.usedBlocks == f.logSize {
		return 0
	}
	for i := uint32(0); i < f.logSize; i++ {
		candidate := f.wrapSlot(f.nextBlockID + i)
		if f.bmap[candidate-1] == 0 {
			f.nextBlockID = f.wrapSlot(candidate + 1)
			return candidate
		}
	}
	return 0
}

// gc finds the next usable log slot at or after writePtr (§4.5). A pristine
// slot (id 0) is returned as-is. A superseded slot (bmap no longer points
// at it) is invalidated on disk and returned immediately, the same slot,
// without continuing the scan — it is free the moment it's zeroed. Returns
// 0 if none found within logSize iterations, which the usedBlocks < logSize
// precondition rules out.
func (f *FS) gc() (uint32, error) {
	for i := uint32(0); i < f.logSize; i++ {
		slot := f.wrapSlot(f.writePtr + i)
		buf, err := f.readSlot(slot)
		if err != nil {
			return 0, err
		}
		id := block.PeekID(buf)
		if id == 0 {
			return slot, nil
		}
		if f.bmap[id-1] != slot {
			// superseded copy: invalidate on disk, then return this same
			// slot immediately. It is now a zeroed, free slot; moving on
			// to writePtr+i+1 instead would skip past it and could walk
			// the whole log without ever returning a slot it just freed.
			if err := f.invalidateSlot(slot); err != nil {
				return 0, err
			}
			return slot, nil
		}
		// live, keep scanning
	}
	return 0, nil
}

func (f *FS) invalidateSlot(slot uint32) error {
	buf := make([]byte, block.Size)
	return f.writeSlot(slot, buf)
}

// saveBlock persists blk to the next reclaimed log slot and updates the
// bmap and writePtr (§4.5).
func (f *FS) saveBlock(blk block.Block) error {
	slot, err := f.gc()
	if err != nil {
		return err
	}
	if slot == 0 {
		return errOutOfSpace
	}
	buf := blk.Encode(f.clk)
	if err := f.writeSlot(slot, buf); err != nil {
		return err
	}
	id := blk.ID()
	if f.bmap[id-1] == 0 {
		f.usedBlocks++
	}
	f.bmap[id-1] = slot
	f.writePtr = f.wrapSlot(slot + 1)
	return nil
}

// saveBlocks persists every block in blocks, in order, stopping at the
// first failure.
func (f *FS) saveBlocks(blocks []block.Block) error {
	for _, b := range blocks {
		if err := f.saveBlock(b); err != nil {
			return err
		}
	}
	return nil
}

// freeBlock marks id's slot free. id 0 or 1 (the root INode) may never be
// freed (§4.5).
func (f *FS) freeBlock(id uint32) {
	if id == 0 || id == RootINodeID {
		return
	}
	if f.bmap[id-1] == 0 {
		return
	}
	f.bmap[id-1] = 0
	f.usedBlocks--
}

// hasBudget reports whether at least n more blocks can be allocated,
// mirroring every operation's precheck in §4.8/§4.10.
func (f *FS) hasBudget(n uint32) bool {
	return f.usedBlocks+n <= f.logSize
}
