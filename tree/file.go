package tree

import (
	"fmt"
	"math"

	"github.com/tfg13/sdi4fs/block"
)

// DataBlockListAllocator lets a File grow or shrink its external storage
// without a back-reference to FS.
type DataBlockListAllocator interface {
	Alloc() *block.DataBlockList
	Dealloc(*block.DataBlockList)
}

// File is one FileINode plus ordered DataBlockLists plus ordered
// DataBlocks, plus a single in-memory one-block read/write cache (§3.9).
type File struct {
	alloc              DataBlockListAllocator
	inode              *block.FileINode
	blockLists         []*block.DataBlockList
	numberOfDataBlocks uint32
	cached             *block.DataBlock
}

// LoadFile wraps an already-decoded FileINode and its already-loaded
// external DataBlockLists (empty if inode is inlined) into a File.
func LoadFile(alloc DataBlockListAllocator, inode *block.FileINode, blockLists []*block.DataBlockList) *File {
	f := &File{alloc: alloc, inode: inode, blockLists: blockLists}
	if !inode.Inlined {
		f.numberOfDataBlocks = uint32(math.Ceil(float64(inode.InternalSizeB) / float64(block.MaxBytesPerDataBlock)))
	}
	return f
}

// NewFile creates a fresh, inlined, empty File.
func NewFile(alloc DataBlockListAllocator, inode *block.FileINode) *File {
	return &File{alloc: alloc, inode: inode}
}

// PrimaryINode returns the File's own INode.
func (f *File) PrimaryINode() *block.FileINode { return f.inode }

// NumberOfDataBlocks reports the external DataBlock count.
func (f *File) NumberOfDataBlocks() uint32 { return f.numberOfDataBlocks }

// ConvertToNonInline moves the inline payload into dataBlock and allocates
// the file's first DataBlockList to reference it (§4.11). The caller
// guarantees budget was precomputed: an allocation failure here is a
// defensive dead end, not an expected path.
func (f *File) ConvertToNonInline(dataBlock *block.DataBlock) ([]block.Block, error) {
	if !f.inode.Inlined {
		return nil, fmt.Errorf("tree: file %d already non-inline", f.inode.ID())
	}
	newList := f.alloc.Alloc()
	if newList == nil {
		return nil, fmt.Errorf("tree: cannot allocate DataBlockList for file %d", f.inode.ID())
	}
	newList.PushDataBlock(dataBlock.ID())
	if err := f.inode.ConvertToNonInline(newList, dataBlock); err != nil {
		return nil, err
	}
	f.blockLists = append(f.blockLists, newList)
	f.numberOfDataBlocks++
	f.setCached(dataBlock)
	return []block.Block{newList, f.inode, dataBlock}, nil
}

// AddDataBlock appends dataBlock to the file's last DataBlockList,
// allocating a new list when the current one is full (§4.10's write path).
func (f *File) AddDataBlock(dataBlock *block.DataBlock) ([]block.Block, error) {
	if f.inode.Inlined {
		return nil, fmt.Errorf("tree: cannot add DataBlock to inline file %d", f.inode.ID())
	}
	var changed []block.Block
	if f.numberOfDataBlocks%block.MaxDataBlocksPerDataBlockList == 0 {
		newList := f.alloc.Alloc()
		if newList == nil {
			return nil, fmt.Errorf("tree: cannot allocate DataBlockList for file %d", f.inode.ID())
		}
		if !f.inode.PushDataBlockList(newList.ID()) {
			return nil, fmt.Errorf("tree: file %d is full", f.inode.ID())
		}
		f.blockLists = append(f.blockLists, newList)
		changed = append(changed, f.inode)
	}
	last := f.blockLists[len(f.blockLists)-1]
	last.PushDataBlock(dataBlock.ID())
	changed = append(changed, last)
	f.numberOfDataBlocks++
	f.setCached(dataBlock)
	return changed, nil
}

// RemoveDataBlock pops the last DataBlock id, deallocating the last
// DataBlockList if it becomes empty and more than one list remains
// (§4.10's truncate path; I7's "last DataBlock is never removed").
func (f *File) RemoveDataBlock() ([]block.Block, error) {
	if f.inode.Inlined {
		return nil, fmt.Errorf("tree: cannot remove DataBlock from inline file %d", f.inode.ID())
	}
	last := f.blockLists[len(f.blockLists)-1]
	last.PopDataBlock()
	f.numberOfDataBlocks--

	if f.numberOfDataBlocks%block.MaxDataBlocksPerDataBlockList == 0 && f.numberOfDataBlocks > 0 {
		f.alloc.Dealloc(last)
		f.blockLists = f.blockLists[:len(f.blockLists)-1]
		f.inode.PopDataBlockList()
		return []block.Block{f.inode}, nil
	}
	return []block.Block{last}, nil
}

// GetDataBlockID resolves a logical block number to its DataBlock id.
func (f *File) GetDataBlockID(blockNo uint32) (uint32, bool) {
	if f.inode.Inlined || blockNo >= f.numberOfDataBlocks {
		return 0, false
	}
	listNo := int(blockNo / block.MaxDataBlocksPerDataBlockList)
	return f.blockLists[listNo].GetDataBlock(int(blockNo % block.MaxDataBlocksPerDataBlockList))
}

// Blocks appends the INode id and, if external, every DataBlockList id and
// its referenced DataBlock ids, to result (used by recovery traversal).
func (f *File) Blocks(result []uint32) []uint32 {
	result = append(result, f.inode.ID())
	if !f.inode.Inlined {
		for _, l := range f.blockLists {
			result = append(result, l.ID())
			result = l.Blocks(result)
		}
	}
	return result
}

func (f *File) setCached(db *block.DataBlock) { f.cached = db }

// CachedDataBlockID returns the id of the currently cached block, or 0 if
// none is cached.
func (f *File) CachedDataBlockID() uint32 {
	if f.cached == nil {
		return 0
	}
	return f.cached.ID()
}

// CachedDataBlockIsDirty reports whether the cached block has unsaved
// writes.
func (f *File) CachedDataBlockIsDirty() bool {
	return f.cached != nil && f.cached.IsDirty()
}

// ReleaseCachedDataBlock clears and returns the cached block (nil if none).
func (f *File) ReleaseCachedDataBlock() *block.DataBlock {
	db := f.cached
	f.cached = nil
	return db
}

// SetCachedDataBlock installs db as the single-slot read/write cache,
// write-through-on-eviction (§9): callers must persist whatever was
// previously cached before calling this.
func (f *File) SetCachedDataBlock(db *block.DataBlock) { f.cached = db }

// ReadFromCachedDataBlock copies n bytes at pos from the cached block.
func (f *File) ReadFromCachedDataBlock(target []byte, pos, n uint32) error {
	if f.cached == nil {
		return fmt.Errorf("tree: file %d: no cached DataBlock", f.inode.ID())
	}
	return f.cached.Read(target, pos, n)
}

// WriteToCachedDataBlock copies n bytes from source into the cached block
// at pos.
func (f *File) WriteToCachedDataBlock(source []byte, pos, n uint32) error {
	if f.cached == nil {
		return fmt.Errorf("tree: file %d: no cached DataBlock", f.inode.ID())
	}
	return f.cached.Write(source, pos, n)
}
