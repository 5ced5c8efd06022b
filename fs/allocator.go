package fs

import "github.com/tfg13/sdi4fs/block"

// dirEntryListAllocator is the concrete tree.DirEntryListAllocator FS hands
// to every Directory it loads, translating Alloc/Dealloc into
// getNextBlockID/freeBlock calls without giving Directory a back-reference
// to FS (§9's BlockAllocator pattern; mirrors initCallbacks' anonymous
// DirEntryListAllocator).
type dirEntryListAllocator struct {
	fs *FS
}

func (a *dirEntryListAllocator) Alloc() *block.DirectoryEntryList {
	if !a.fs.hasBudget(1) {
		return nil
	}
	id := a.fs.getNextBlockID()
	if id == 0 {
		return nil
	}
	return block.NewDirectoryEntryList(id)
}

func (a *dirEntryListAllocator) Dealloc(l *block.DirectoryEntryList) {
	a.fs.freeBlock(l.ID())
}

// dataBlockListAllocator is the File-side counterpart.
type dataBlockListAllocator struct {
	fs *FS
}

func (a *dataBlockListAllocator) Alloc() *block.DataBlockList {
	if !a.fs.hasBudget(1) {
		return nil
	}
	id := a.fs.getNextBlockID()
	if id == 0 {
		return nil
	}
	return block.NewDataBlockList(id)
}

func (a *dataBlockListAllocator) Dealloc(l *block.DataBlockList) {
	a.fs.freeBlock(l.ID())
}
