package fs

import (
	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/tree"
)

// loadDirectory reads id's DirectoryINode and, if external, every
// DirectoryEntryList it references, wrapping the result as a tree.Directory.
func (f *FS) loadDirectory(id uint32) (*tree.Directory, error) {
	inode, err := f.loadDirectoryINode(id)
	if err != nil {
		return nil, err
	}
	var lists []*block.DirectoryEntryList
	if !inode.Inlined {
		for _, lid := range inode.DirEntryListIDs() {
			l, err := f.loadDirEntryList(lid)
			if err != nil {
				return nil, err
			}
			lists = append(lists, l)
		}
	}
	return tree.LoadDirectory(&dirEntryListAllocator{fs: f}, inode, lists), nil
}

// loadFile reads id's FileINode and, if external, every DataBlockList it
// references, wrapping the result as a tree.File.
func (f *FS) loadFile(id uint32) (*tree.File, error) {
	inode, err := f.loadFileINode(id)
	if err != nil {
		return nil, err
	}
	var lists []*block.DataBlockList
	if !inode.Inlined {
		for i := 0; i < inode.NumberOfDataBlockLists(); i++ {
			lid, _ := inode.GetDataBlockList(i)
			l, err := f.loadDataBlockList(lid)
			if err != nil {
				return nil, err
			}
			lists = append(lists, l)
		}
	}
	return tree.LoadFile(&dataBlockListAllocator{fs: f}, inode, lists), nil
}

// fileBlockIDs enumerates every block id belonging to file id: its primary
// INode, every DataBlockList, and every DataBlock (used by recovery).
func (f *FS) fileBlockIDs(id uint32) ([]uint32, error) {
	file, err := f.loadFile(id)
	if err != nil {
		return nil, err
	}
	return file.Blocks(nil), nil
}

// directoryBlockIDs returns the Directory's own primary INode id followed by
// every DirectoryEntryList id it holds.
func directoryBlockIDs(dir *tree.Directory) []uint32 {
	result := []uint32{dir.PrimaryINode().ID()}
	for _, l := range dir.Blocks() {
		result = append(result, l.ID())
	}
	return result
}
