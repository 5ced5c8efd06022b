package fs

import (
	"fmt"

	"github.com/tfg13/sdi4fs/block"
)

// reconstructBMap runs the three-pass recovery algorithm (§4.3) when the
// prior unmount left bmap_valid at 0. It returns a pseudoTime seed (the
// highest lastWriteTime observed, plus one) for callers that need a
// persisted monotonic clock instead of the wall clock.
func (f *FS) reconstructBMap() (uint32, error) {
	// Pass A: find the last-written slot and the highest block id.
	var lastWritePtr uint32
	var latestWriteTime uint32
	var nextID uint32
	for slot := uint32(1); slot <= f.logSize; slot++ {
		buf, err := f.readSlot(slot)
		if err != nil {
			return 0, err
		}
		id := block.PeekID(buf)
		wt := block.PeekLastWriteTime(buf)
		if id != 0 && wt >= latestWriteTime {
			latestWriteTime = wt
			lastWritePtr = slot
		}
		if id != 0 && id > nextID {
			nextID = id
		}
	}
	nextID++
	f.nextBlockID = nextID
	f.writePtr = lastWritePtr + 1
	if f.writePtr > f.logSize {
		f.writePtr = 1
	}
	pseudoSeed := latestWriteTime + 1

	// Pass B: rebuild bmap, scanning from just after lastWritePtr so ties
	// resolve toward the physically newer, later-in-sweep copy.
	f.usedBlocks = 0
	for i := range f.bmap {
		f.bmap[i] = 0
	}
	latestWriteTimes := make([]uint32, f.logSize)
	start := lastWritePtr + 1
	if start > f.logSize {
		start = 1
	}
	for i := uint32(0); i < f.logSize; i++ {
		slot := f.wrapSlot(start + i)
		buf, err := f.readSlot(slot)
		if err != nil {
			return 0, err
		}
		id := block.PeekID(buf)
		if id == 0 {
			continue
		}
		wt := block.PeekLastWriteTime(buf)
		if f.bmap[id-1] == 0 {
			f.usedBlocks++
		}
		if wt >= latestWriteTimes[id-1] {
			f.bmap[id-1] = slot
			latestWriteTimes[id-1] = wt
		}
	}

	// Pass C: prune everything unreachable from root.
	marked := make([]bool, f.logSize)
	root, err := f.loadDirectory(RootINodeID)
	if err != nil {
		return 0, fmt.Errorf("fs: recovery: loading root: %w", err)
	}
	if err := f.markReachable(root, marked); err != nil {
		return 0, err
	}
	for id := uint32(1); id <= f.logSize; id++ {
		if f.bmap[id-1] != 0 && !marked[id-1] {
			f.logger.Warn("recovery: dropping unreachable block", "id", id)
			f.bmap[id-1] = 0
			f.usedBlocks--
		}
	}
	if f.usedBlocks == 0 {
		return 0, fmt.Errorf("fs: recovery failed, zero live blocks found")
	}
	return pseudoSeed, nil
}

// markReachable depth-first marks dir, every DirectoryEntryList it holds,
// and everything reachable through its non-"."/".." links.
func (f *FS) markReachable(dir interface {
	PrimaryINode() *block.DirectoryINode
	Blocks() []*block.DirectoryEntryList
	Ls() []string
	SearchHardlink(string) (uint32, bool)
}, marked []bool) error {
	marked[dir.PrimaryINode().ID()-1] = true
	for _, l := range dir.Blocks() {
		marked[l.ID()-1] = true
	}
	for _, name := range dir.Ls() {
		if name == "." || name == ".." {
			continue
		}
		id, ok := dir.SearchHardlink(name)
		if !ok {
			continue
		}
		typ, err := f.peekINodeType(id)
		if err != nil {
			return err
		}
		switch typ {
		case block.TypeDir:
			child, err := f.loadDirectory(id)
			if err != nil {
				return err
			}
			if err := f.markReachable(child, marked); err != nil {
				return err
			}
		case block.TypeRegularFile:
			ids, err := f.fileBlockIDs(id)
			if err != nil {
				return err
			}
			for _, bid := range ids {
				marked[bid-1] = true
			}
		default:
			f.logger.Warn("recovery: traversal found unknown INode type", "id", id, "type", typ)
		}
	}
	return nil
}
