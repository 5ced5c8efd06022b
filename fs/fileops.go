package fs

import (
	"fmt"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/tree"
)

// budgetNonInlineSwitch etc. name the remaining free-block prechecks of
// §4.10 not already covered by budgetMkdirTouch/budgetRmdirRm in dirops.go.
const (
	budgetNonInlineSwitch = 3
	budgetAddDataBlock    = 3
	budgetRemoveDataBlock = 1
)

// Touch creates an empty regular file at abs (§4.9).
func (f *FS) Touch(abs string) error {
	p, err := normalizePath(abs)
	if err != nil {
		return err
	}
	if !f.hasBudget(budgetMkdirTouch) {
		return fmt.Errorf("fs: touch %q: %w", abs, errOutOfSpace)
	}
	parent, name, err := f.searchParent(p)
	if err != nil {
		return fmt.Errorf("fs: touch %q: %w", abs, err)
	}
	if name == "" {
		return fmt.Errorf("fs: touch %q: root always exists: %w", abs, errAlreadyExists)
	}
	if _, exists := parent.SearchHardlink(name); exists {
		return fmt.Errorf("fs: touch %q: %w", abs, errAlreadyExists)
	}
	if parent.ChildCount() == block.MaxHardlinksPerDir {
		return fmt.Errorf("fs: touch %q: parent full: %w", abs, errCapacityExceeded)
	}

	newID := f.getNextBlockID()
	if newID == 0 {
		return fmt.Errorf("fs: touch %q: %w", abs, errOutOfSpace)
	}
	newInode := block.NewFileINode(newID, f.clk)

	changed, err := parent.AddHardlink(newInode, name)
	if err != nil {
		return fmt.Errorf("fs: touch %q: %w", abs, err)
	}
	return f.saveBlocks(changed)
}

// Rm removes the hardlink at abs and, once its link counter reaches zero,
// frees every block the file owns (§4.9).
func (f *FS) Rm(abs string) error {
	p, err := normalizePath(abs)
	if err != nil {
		return err
	}
	if !f.hasBudget(budgetRmdirRm) {
		return fmt.Errorf("fs: rm %q: %w", abs, errOutOfSpace)
	}
	parent, name, err := f.searchParent(p)
	if err != nil {
		return fmt.Errorf("fs: rm %q: %w", abs, err)
	}
	id, ok := parent.SearchHardlink(name)
	if !ok {
		return fmt.Errorf("fs: rm %q: %w", abs, errNotFound)
	}
	typ, err := f.peekINodeType(id)
	if err != nil {
		return err
	}
	if typ != block.TypeRegularFile {
		return fmt.Errorf("fs: rm %q: not a file: %w", abs, errWrongType)
	}
	file, err := f.loadFile(id)
	if err != nil {
		return err
	}

	changed, err := parent.RmHardlink(file.PrimaryINode(), name)
	if err != nil {
		return fmt.Errorf("fs: rm %q: %w", abs, err)
	}
	if err := f.saveBlocks(changed); err != nil {
		return err
	}

	if file.PrimaryINode().LinkCounter == 0 {
		for _, bid := range file.Blocks(nil) {
			f.freeBlock(bid)
		}
	}
	return nil
}

// FileSize returns abs's internal (user-visible) size in bytes (§4.9). For
// a file that is currently open, the open handle's in-memory INode is
// consulted, so unflushed writes are reflected.
func (f *FS) FileSize(abs string) (uint32, error) {
	p, err := normalizePath(abs)
	if err != nil {
		return 0, err
	}
	id, typ, err := f.resolve(p)
	if err != nil {
		return 0, fmt.Errorf("fs: filesize %q: %w", abs, err)
	}
	if typ != block.TypeRegularFile {
		return 0, fmt.Errorf("fs: filesize %q: not a file: %w", abs, errWrongType)
	}
	if file, open := f.openFiles[id]; open {
		return file.PrimaryINode().InternalSizeB, nil
	}
	inode, err := f.loadFileINode(id)
	if err != nil {
		return 0, err
	}
	return inode.InternalSizeB, nil
}

// Open loads abs into the open-file table and returns its handle, the
// file's own primary INode id (§4.9, §6.2). A file already open may not be
// opened a second time: the single in-memory File owns the one-block
// write-back cache and a second handle would let it go stale unnoticed.
func (f *FS) Open(abs string) (uint32, error) {
	p, err := normalizePath(abs)
	if err != nil {
		return 0, err
	}
	id, typ, err := f.resolve(p)
	if err != nil {
		return 0, fmt.Errorf("fs: open %q: %w", abs, err)
	}
	if typ != block.TypeRegularFile {
		return 0, fmt.Errorf("fs: open %q: not a file: %w", abs, errWrongType)
	}
	if _, open := f.openFiles[id]; open {
		return 0, fmt.Errorf("fs: open %q: %w", abs, errAlreadyExists)
	}
	file, err := f.loadFile(id)
	if err != nil {
		return 0, err
	}
	f.openFiles[id] = file
	return id, nil
}

func (f *FS) openFile(handle uint32) (*tree.File, error) {
	file, ok := f.openFiles[handle]
	if !ok {
		return nil, fmt.Errorf("fs: unknown file handle %d: %w", handle, errNotFound)
	}
	return file, nil
}

// evictCache persists file's cached DataBlock if dirty, then releases it.
func evictCache(f *FS, file *tree.File) error {
	if !file.CachedDataBlockIsDirty() {
		file.ReleaseCachedDataBlock()
		return nil
	}
	cached := file.ReleaseCachedDataBlock()
	if err := f.saveBlock(cached); err != nil {
		return err
	}
	cached.ClearDirty()
	return nil
}

// Flush persists handle's primary INode and, if dirty, its cached
// DataBlock, then forces the underlying device to durable storage (§4.9).
func (f *FS) Flush(handle uint32) error {
	file, err := f.openFile(handle)
	if err != nil {
		return err
	}
	if err := f.saveBlock(file.PrimaryINode()); err != nil {
		return err
	}
	if err := evictCache(f, file); err != nil {
		return err
	}
	return f.dev.Sync()
}

// Close flushes and removes handle from the open-file table (§4.9).
func (f *FS) Close(handle uint32) error {
	if err := f.Flush(handle); err != nil {
		return err
	}
	delete(f.openFiles, handle)
	return nil
}

// Read copies n bytes starting at pos out of the open file handle into a
// newly allocated buffer (§4.9, §4.10).
func (f *FS) Read(handle uint32, pos, n uint32) ([]byte, error) {
	if n < 1 {
		return nil, fmt.Errorf("fs: read: must read at least 1 byte: %w", errInvalidArgument)
	}
	file, err := f.openFile(handle)
	if err != nil {
		return nil, err
	}
	fileSize := file.PrimaryINode().InternalSizeB
	if pos >= fileSize || pos+n > fileSize {
		return nil, fmt.Errorf("fs: read: invalid byte range pos=%d n=%d size=%d: %w", pos, n, fileSize, errInvalidArgument)
	}

	target := make([]byte, n)
	if file.PrimaryINode().Inlined {
		if err := file.PrimaryINode().ReadInline(target, pos, n); err != nil {
			return nil, err
		}
		return target, nil
	}

	endPos := pos + n
	currentPos := pos
	var copied uint32
	for currentPos < endPos {
		bytesLeft := endPos - currentPos
		dataBlockNo := currentPos / block.MaxBytesPerDataBlock
		dataBlockID, ok := file.GetDataBlockID(dataBlockNo)
		if !ok {
			return nil, fmt.Errorf("fs: read: no data block %d for handle %d: %w", dataBlockNo, handle, errCorruption)
		}
		blockStart := currentPos - dataBlockNo*block.MaxBytesPerDataBlock
		blockBytes := block.MaxBytesPerDataBlock - blockStart
		if blockBytes > bytesLeft {
			blockBytes = bytesLeft
		}
		if file.CachedDataBlockID() != dataBlockID {
			if err := evictCache(f, file); err != nil {
				return nil, err
			}
			db, err := f.loadDataBlock(dataBlockID)
			if err != nil {
				return nil, err
			}
			file.SetCachedDataBlock(db)
		}
		if err := file.ReadFromCachedDataBlock(target[copied:], blockStart, blockBytes); err != nil {
			return nil, err
		}
		currentPos += blockBytes
		copied += blockBytes
	}
	return target, nil
}

// Write copies source into the open file handle starting at pos, growing
// the file as needed (§4.9, §4.10, §4.11).
func (f *FS) Write(handle uint32, source []byte, pos uint32) error {
	n := uint32(len(source))
	if n < 1 {
		return fmt.Errorf("fs: write: must write at least 1 byte: %w", errInvalidArgument)
	}
	file, err := f.openFile(handle)
	if err != nil {
		return err
	}
	inode := file.PrimaryINode()
	fSize := inode.InternalSizeB
	if pos > fSize {
		return fmt.Errorf("fs: write: pos %d beyond file size %d: %w", pos, fSize, errInvalidArgument)
	}
	if uint64(pos)+uint64(n) >= block.MaxFileSize {
		return fmt.Errorf("fs: write: max file size exceeded: %w", errCapacityExceeded)
	}

	if inode.Inlined && pos+n <= block.MaxBytesPerINode {
		if err := inode.WriteInline(source, pos, n); err != nil {
			return err
		}
		if pos+n <= fSize {
			return nil
		}
		return inode.SetInternalSizeB(pos + n)
	}

	if inode.Inlined {
		if err := f.switchNonInline(file); err != nil {
			return err
		}
	}

	endPos := pos + n
	currentPos := pos
	var copied uint32
	changedMeta := make(map[uint32]block.Block)
	for currentPos < endPos {
		bytesLeft := endPos - currentPos
		dataBlockNo := currentPos / block.MaxBytesPerDataBlock
		if file.NumberOfDataBlocks() == dataBlockNo {
			changed, err := f.addDataBlock(file)
			if err != nil {
				return err
			}
			for _, b := range changed {
				changedMeta[b.ID()] = b
			}
		} else {
			dataBlockID, ok := file.GetDataBlockID(dataBlockNo)
			if !ok {
				return fmt.Errorf("fs: write: no data block %d for handle %d: %w", dataBlockNo, handle, errCorruption)
			}
			if dataBlockID != file.CachedDataBlockID() {
				if err := evictCache(f, file); err != nil {
					return err
				}
				db, err := f.loadDataBlock(dataBlockID)
				if err != nil {
					return err
				}
				file.SetCachedDataBlock(db)
			}
		}
		blockStart := currentPos - dataBlockNo*block.MaxBytesPerDataBlock
		blockBytes := block.MaxBytesPerDataBlock - blockStart
		if blockBytes > bytesLeft {
			blockBytes = bytesLeft
		}
		if err := file.WriteToCachedDataBlock(source[copied:], blockStart, blockBytes); err != nil {
			return err
		}
		currentPos += blockBytes
		copied += blockBytes
	}

	if pos+n > fSize {
		if err := inode.SetInternalSizeB(pos + n); err != nil {
			return err
		}
	}
	return f.saveBlocks(dedupBlocks(mapValues(changedMeta)))
}

// Truncate shrinks the open file handle to size bytes, freeing any
// DataBlocks no longer needed (§4.9, §4.10). Growing is not supported;
// write past the current end instead.
func (f *FS) Truncate(handle uint32, size uint32) error {
	file, err := f.openFile(handle)
	if err != nil {
		return err
	}
	inode := file.PrimaryINode()
	fSize := inode.InternalSizeB
	if size >= fSize {
		return fmt.Errorf("fs: truncate: new size %d must be smaller than current size %d: %w", size, fSize, errInvalidArgument)
	}

	newCount := blockCount(size)
	oldCount := blockCount(fSize)

	if err := evictCache(f, file); err != nil {
		return err
	}
	if !inode.Inlined && oldCount != newCount {
		if err := f.removeDataBlocks(file, oldCount-newCount); err != nil {
			return err
		}
	}
	if err := inode.SetInternalSizeB(size); err != nil {
		return err
	}
	return f.saveBlock(inode)
}

// blockCount returns the number of DataBlocks a non-inline file of size
// bytes occupies, yielding 0 for size 0 (§4.10's truncate math). Truncate
// only acts on the difference for non-inline files; an inline file holds
// no DataBlocks, so nothing is removed from it.
func blockCount(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	count := size/block.MaxBytesPerDataBlock + 1
	if size%block.MaxBytesPerDataBlock == 0 {
		count--
	}
	return count
}

// switchNonInline moves file's inline payload into a freshly allocated
// DataBlock (§4.11).
func (f *FS) switchNonInline(file *tree.File) error {
	if !f.hasBudget(budgetNonInlineSwitch) {
		return fmt.Errorf("fs: write: too full to switch file %d to non-inline: %w", file.PrimaryINode().ID(), errOutOfSpace)
	}
	newID := f.getNextBlockID()
	if newID == 0 {
		return fmt.Errorf("fs: write: %w", errOutOfSpace)
	}
	newDataBlock := block.NewDataBlock(newID)
	changed, err := file.ConvertToNonInline(newDataBlock)
	if err != nil {
		return err
	}
	return f.saveBlocks(changed)
}

// addDataBlock allocates and appends one new DataBlock to file, evicting
// whatever was previously cached first, and returns every metadata block
// that changed as a result (§4.10).
func (f *FS) addDataBlock(file *tree.File) ([]block.Block, error) {
	if !f.hasBudget(budgetAddDataBlock) {
		return nil, fmt.Errorf("fs: write: too full to add a data block to file %d: %w", file.PrimaryINode().ID(), errOutOfSpace)
	}
	maxDataBlocks := uint32(block.MaxDataBlocksPerDataBlockList) * uint32(block.MaxDataBlockListsPerFile)
	if file.NumberOfDataBlocks() == maxDataBlocks {
		return nil, fmt.Errorf("fs: write: file %d at max size: %w", file.PrimaryINode().ID(), errCapacityExceeded)
	}
	if err := evictCache(f, file); err != nil {
		return nil, err
	}
	newID := f.getNextBlockID()
	if newID == 0 {
		return nil, fmt.Errorf("fs: write: %w", errOutOfSpace)
	}
	newDataBlock := block.NewDataBlock(newID)
	return file.AddDataBlock(newDataBlock)
}

// removeDataBlocks pops n DataBlocks off file's tail (§4.10's truncate
// path).
func (f *FS) removeDataBlocks(file *tree.File, n uint32) error {
	if !f.hasBudget(budgetRemoveDataBlock) {
		return fmt.Errorf("fs: truncate: too full to remove a data block from file %d: %w", file.PrimaryINode().ID(), errOutOfSpace)
	}
	if file.NumberOfDataBlocks() <= n {
		return fmt.Errorf("fs: truncate: invalid block count %d for file %d with %d blocks: %w", n, file.PrimaryINode().ID(), file.NumberOfDataBlocks(), errInvalidArgument)
	}
	changed := make(map[uint32]block.Block)
	for i := uint32(0); i < n; i++ {
		lastID, _ := file.GetDataBlockID(file.NumberOfDataBlocks() - 1)
		blocks, err := file.RemoveDataBlock()
		if err != nil {
			return err
		}
		f.freeBlock(lastID)
		for _, b := range blocks {
			changed[b.ID()] = b
		}
	}
	return f.saveBlocks(mapValues(changed))
}

// dedupBlocks drops duplicate entries by id, first occurrence wins.
func dedupBlocks(blocks []block.Block) []block.Block {
	seen := make(map[uint32]bool, len(blocks))
	result := make([]block.Block, 0, len(blocks))
	for _, b := range blocks {
		if seen[b.ID()] {
			continue
		}
		seen[b.ID()] = true
		result = append(result, b)
	}
	return result
}

func mapValues(m map[uint32]block.Block) []block.Block {
	result := make([]block.Block, 0, len(m))
	for _, b := range m {
		result = append(result, b)
	}
	return result
}
