package fs

import (
	"fmt"

	"github.com/tfg13/sdi4fs/block"
)

func (f *FS) slotForID(id uint32) (uint32, bool) {
	if id == 0 || id > f.logSize {
		return 0, false
	}
	slot := f.bmap[id-1]
	return slot, slot != 0
}

func (f *FS) slotOffset(slot uint32) int64 {
	return f.logStartB + int64(slot-1)*block.Size
}

func (f *FS) readSlot(slot uint32) ([]byte, error) {
	buf := make([]byte, block.Size)
	if _, err := f.dev.ReadAt(buf, f.slotOffset(slot)); err != nil {
		return nil, fmt.Errorf("fs: reading slot %d: %w", slot, err)
	}
	return buf, nil
}

func (f *FS) writeSlot(slot uint32, buf []byte) error {
	if _, err := f.dev.WriteAt(buf, f.slotOffset(slot)); err != nil {
		return fmt.Errorf("fs: writing slot %d: %w", slot, err)
	}
	return nil
}

// readRaw returns the live Size-byte image of id, or errCorruption if id
// has no bmap entry.
func (f *FS) readRaw(id uint32) ([]byte, error) {
	slot, ok := f.slotForID(id)
	if !ok {
		return nil, fmt.Errorf("fs: block %d not present in bmap: %w", id, errCorruption)
	}
	return f.readSlot(slot)
}

// peekINodeType reads only the packed type/inlined byte of the INode at id
// (§4.7), without decoding the rest of the block.
func (f *FS) peekINodeType(id uint32) (uint8, error) {
	slot, ok := f.slotForID(id)
	if !ok {
		return 0, fmt.Errorf("fs: block %d not present in bmap: %w", id, errCorruption)
	}
	buf := make([]byte, 1)
	off := f.slotOffset(slot) + block.TypeByteOffset
	if _, err := f.dev.ReadAt(buf, off); err != nil {
		return 0, fmt.Errorf("fs: peeking type of block %d: %w", id, err)
	}
	return buf[0] >> 4, nil
}

func (f *FS) loadDirectoryINode(id uint32) (*block.DirectoryINode, error) {
	raw, err := f.readRaw(id)
	if err != nil {
		return nil, err
	}
	return block.DecodeDirectoryINode(raw)
}

func (f *FS) loadFileINode(id uint32) (*block.FileINode, error) {
	raw, err := f.readRaw(id)
	if err != nil {
		return nil, err
	}
	return block.DecodeFileINode(raw)
}

func (f *FS) loadDirEntryList(id uint32) (*block.DirectoryEntryList, error) {
	raw, err := f.readRaw(id)
	if err != nil {
		return nil, err
	}
	return block.DecodeDirectoryEntryList(raw)
}

func (f *FS) loadDataBlockList(id uint32) (*block.DataBlockList, error) {
	raw, err := f.readRaw(id)
	if err != nil {
		return nil, err
	}
	return block.DecodeDataBlockList(raw)
}

func (f *FS) loadDataBlock(id uint32) (*block.DataBlock, error) {
	raw, err := f.readRaw(id)
	if err != nil {
		return nil, err
	}
	return block.DecodeDataBlock(raw)
}
