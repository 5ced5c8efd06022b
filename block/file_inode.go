package block

import (
	"fmt"

	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/stream"
)

// FileINode is the primary INode of a File (§3.6). Inlined, it carries its
// own raw payload (up to MaxBytesPerINode bytes); external, it carries up to
// MaxDataBlockListsPerFile ids of DataBlockLists.
type FileINode struct {
	INode
	data    [MaxBytesPerINode]byte // valid iff Inlined
	entries []uint32               // valid iff !Inlined
}

// NewFileINode constructs a fresh, inlined, empty FileINode.
func NewFileINode(id uint32, now clock.Source) *FileINode {
	return &FileINode{INode: newINode(id, TypeRegularFile, now)}
}

// DecodeFileINode reads a FileINode from a positioned Size-byte buffer.
func DecodeFileINode(buf []byte) (*FileINode, error) {
	hdr, err := decodeINodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.Type != TypeRegularFile {
		return nil, fmt.Errorf("block: reading FileINode from INode of type %d: %w", hdr.Type, errCorruptBlock)
	}
	f := &FileINode{INode: hdr}
	if hdr.Inlined {
		copy(f.data[:], buf[inodeSize:inodeSize+hdr.InternalSizeB])
	} else {
		for i := 0; i < MaxDataBlockListsPerFile; i++ {
			id := stream.Get32(buf, inodeSize+4*i)
			if id == 0 {
				break // no gaps allowed
			}
			f.entries = append(f.entries, id)
		}
	}
	return f, nil
}

// Encode implements Block.
func (f *FileINode) Encode(now clock.Source) []byte {
	buf := make([]byte, Size)
	f.encodeINodeHeader(buf, now)
	if f.Inlined {
		copy(buf[inodeSize:], f.data[:f.InternalSizeB])
	} else {
		for i := 0; i < MaxDataBlockListsPerFile; i++ {
			var id uint32
			if i < len(f.entries) {
				id = f.entries[i]
			}
			stream.Put32(buf, inodeSize+4*i, id)
		}
	}
	return buf
}

// SetInternalSizeB validates against MaxFileSize before delegating (§9's
// "file size limit exceeded" diagnostic).
func (f *FileINode) SetInternalSizeB(size uint32) error {
	if uint64(size) > MaxFileSize {
		return fmt.Errorf("block: FileINode %d: file size limit exceeded (%d)", f.ID(), size)
	}
	f.InternalSizeB = size
	return nil
}

// ReadInline copies n bytes at pos out of the inline payload.
func (f *FileINode) ReadInline(target []byte, pos, n uint32) error {
	if !f.Inlined {
		return fmt.Errorf("block: FileINode %d: inline read on non-inline file", f.ID())
	}
	if pos > MaxBytesPerINode || pos+n > MaxBytesPerINode {
		return fmt.Errorf("block: FileINode %d: out-of-bound inline read pos=%d n=%d", f.ID(), pos, n)
	}
	copy(target, f.data[pos:pos+n])
	return nil
}

// WriteInline copies n bytes from source into the inline payload at pos.
func (f *FileINode) WriteInline(source []byte, pos, n uint32) error {
	if !f.Inlined {
		return fmt.Errorf("block: FileINode %d: inline write on non-inline file", f.ID())
	}
	if pos > MaxBytesPerINode || pos+n > MaxBytesPerINode {
		return fmt.Errorf("block: FileINode %d: out-of-bound inline write pos=%d n=%d", f.ID(), pos, n)
	}
	copy(f.data[pos:pos+n], source[:n])
	return nil
}

// UserVisibleSize returns the on-disk footprint users see in ls output.
func (f *FileINode) UserVisibleSize() uint32 {
	if f.Inlined {
		return Size
	}
	numberOfDataBlocks := ceilDiv(f.InternalSizeB, MaxBytesPerDataBlock)
	return uint32(1+len(f.entries)) * Size + numberOfDataBlocks*Size
}

func ceilDiv(n, d uint32) uint32 {
	if n == 0 {
		return 0
	}
	return (n + d - 1) / d
}

// PushDataBlockList records a newly allocated DataBlockList id, failing if
// the file's list table is full.
func (f *FileINode) PushDataBlockList(id uint32) bool {
	if len(f.entries) == MaxDataBlockListsPerFile {
		return false
	}
	f.entries = append(f.entries, id)
	return true
}

// PopDataBlockList drops and returns the last DataBlockList id, refusing to
// empty below 1 (I7's "last DataBlock is never removed" extends to lists).
func (f *FileINode) PopDataBlockList() (uint32, bool) {
	if len(f.entries) <= 1 {
		return 0, false
	}
	id := f.entries[len(f.entries)-1]
	f.entries = f.entries[:len(f.entries)-1]
	return id, true
}

// GetDataBlockList returns the DataBlockList id at index.
func (f *FileINode) GetDataBlockList(index int) (uint32, bool) {
	if index < 0 || index >= len(f.entries) {
		return 0, false
	}
	return f.entries[index], true
}

// NumberOfDataBlockLists reports the external list count.
func (f *FileINode) NumberOfDataBlockLists() int { return len(f.entries) }

// ConvertToNonInline moves the inline payload into dataBlock, records
// blockList as the file's first DataBlockList, and flips the mode flag
// (§4.11).
func (f *FileINode) ConvertToNonInline(blockList *DataBlockList, dataBlock *DataBlock) error {
	if !f.Inlined {
		return fmt.Errorf("block: FileINode %d already non-inline", f.ID())
	}
	if err := dataBlock.Write(f.data[:f.InternalSizeB], 0, f.InternalSizeB); err != nil {
		return err
	}
	f.entries = append(f.entries, blockList.ID())
	f.Inlined = false
	return nil
}
