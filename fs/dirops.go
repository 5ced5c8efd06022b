package fs

import (
	"fmt"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/tree"
)

// budgetMkdirTouch etc. name the free-block prechecks of §4.8: worst case
// is rewriting the primary INode, allocating one new external list, one new
// target block, and one replacement log slot.
const (
	budgetMkdirTouch = 4
	budgetRmdirRm    = 2
	budgetRename     = 5
	budgetLink       = 3
)

// linkTarget is satisfied structurally by both *block.DirectoryINode and
// *block.FileINode; it lets rename hold either kind of moved entity in one
// local variable without redeclaring tree's own unexported interface.
type linkTarget interface {
	ID() uint32
	IncrementLinkCounter() bool
	DecrementLinkCounter()
}

func (f *FS) linkTargetFor(id uint32, typ uint8) (linkTarget, error) {
	switch typ {
	case block.TypeDir:
		return f.loadDirectoryINode(id)
	case block.TypeRegularFile:
		return f.loadFileINode(id)
	default:
		return nil, fmt.Errorf("fs: unknown INode type %d at %d: %w", typ, id, errCorruption)
	}
}

// loadDirByPath resolves an already-normalized absolute path to a loaded
// Directory, failing if it does not exist or is not a directory.
func (f *FS) loadDirByPath(p string) (*tree.Directory, error) {
	id, typ, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	if typ != block.TypeDir {
		return nil, fmt.Errorf("fs: %q is not a directory: %w", p, errWrongType)
	}
	return f.loadDirectory(id)
}

// Mkdir creates an empty directory at abs (§4.9).
func (f *FS) Mkdir(abs string) error {
	p, err := normalizePath(abs)
	if err != nil {
		return err
	}
	if !f.hasBudget(budgetMkdirTouch) {
		return fmt.Errorf("fs: mkdir %q: %w", abs, errOutOfSpace)
	}
	parent, name, err := f.searchParent(p)
	if err != nil {
		return fmt.Errorf("fs: mkdir %q: %w", abs, err)
	}
	if name == "" {
		return fmt.Errorf("fs: mkdir %q: root always exists: %w", abs, errAlreadyExists)
	}
	if _, exists := parent.SearchHardlink(name); exists {
		return fmt.Errorf("fs: mkdir %q: %w", abs, errAlreadyExists)
	}
	if parent.ChildCount() == block.MaxHardlinksPerDir {
		return fmt.Errorf("fs: mkdir %q: parent full: %w", abs, errCapacityExceeded)
	}
	if parent.PrimaryINode().LinkCounter == block.MaxNumberOfLinksToINode {
		return fmt.Errorf("fs: mkdir %q: parent link counter full: %w", abs, errCapacityExceeded)
	}

	newID := f.getNextBlockID()
	if newID == 0 {
		return fmt.Errorf("fs: mkdir %q: %w", abs, errOutOfSpace)
	}
	newInode := block.NewDirectoryINode(newID, f.clk)
	child := tree.NewChildDirectory(&dirEntryListAllocator{fs: f}, newInode, parent)

	changed, err := parent.AddHardlink(child.PrimaryINode(), name)
	if err != nil {
		return fmt.Errorf("fs: mkdir %q: %w", abs, err)
	}
	// The child's ".." link bumped parent's linkCounter; an external parent's
	// INode is not otherwise in the changed set.
	return f.saveBlocks(dedupBlocks(append(changed, parent.PrimaryINode())))
}

// Rmdir removes the empty directory at abs (§4.9). Root may never be
// removed.
func (f *FS) Rmdir(abs string) error {
	p, err := normalizePath(abs)
	if err != nil {
		return err
	}
	if !f.hasBudget(budgetRmdirRm) {
		return fmt.Errorf("fs: rmdir %q: %w", abs, errOutOfSpace)
	}
	parent, name, err := f.searchParent(p)
	if err != nil {
		return fmt.Errorf("fs: rmdir %q: %w", abs, err)
	}
	if name == "" {
		return fmt.Errorf("fs: rmdir %q: cannot remove root: %w", abs, errInvalidArgument)
	}
	id, ok := parent.SearchHardlink(name)
	if !ok {
		return fmt.Errorf("fs: rmdir %q: %w", abs, errNotFound)
	}
	if id == RootINodeID {
		return fmt.Errorf("fs: rmdir %q: cannot remove root: %w", abs, errInvalidArgument)
	}
	typ, err := f.peekINodeType(id)
	if err != nil {
		return err
	}
	if typ != block.TypeDir {
		return fmt.Errorf("fs: rmdir %q: not a directory: %w", abs, errWrongType)
	}
	dir, err := f.loadDirectory(id)
	if err != nil {
		return err
	}
	if dir.ChildCount() > 2 {
		return fmt.Errorf("fs: rmdir %q: directory not empty: %w", abs, errCapacityExceeded)
	}

	changed, err := parent.RmHardlink(dir.PrimaryINode(), name)
	if err != nil {
		return fmt.Errorf("fs: rmdir %q: %w", abs, err)
	}
	// ".." in the removed directory pointed at parent: drop that reference
	// too so parent's linkCounter reflects reality, then free every block
	// the removed directory still owns.
	if _, err := dir.RmHardlink(parent.PrimaryINode(), ".."); err != nil {
		return fmt.Errorf("fs: rmdir %q: inconsistent directory: %w", abs, err)
	}
	if err := f.saveBlocks(dedupBlocks(append(changed, parent.PrimaryINode()))); err != nil {
		return err
	}
	for _, bid := range directoryBlockIDs(dir) {
		f.freeBlock(bid)
	}
	return nil
}

// Ls lists abs's children, "." and ".." included, one formatted line per
// entry with a header prepended iff non-empty (§4.9, §6.4).
func (f *FS) Ls(abs string) ([]string, error) {
	p, err := normalizePath(abs)
	if err != nil {
		return nil, err
	}
	dir, err := f.loadDirByPath(p)
	if err != nil {
		return nil, fmt.Errorf("fs: ls %q: %w", abs, err)
	}
	names := dir.Ls()
	if len(names) == 0 {
		return nil, nil
	}
	lines := make([]string, 0, len(names)+1)
	lines = append(lines, "t #links size disksize t_created t_mod name")
	for _, name := range names {
		cid, _ := dir.SearchHardlink(name)
		ctyp, err := f.peekINodeType(cid)
		if err != nil {
			return nil, err
		}
		line, err := f.lsLine(cid, ctyp, name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (f *FS) lsLine(id uint32, typ uint8, name string) (string, error) {
	switch typ {
	case block.TypeDir:
		inode, err := f.loadDirectoryINode(id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("d %d %d %d %d %d %s", inode.LinkCounter, inode.InternalSizeB, inode.UserVisibleSize(), inode.CreationTime, inode.LastWriteTime(), name), nil
	case block.TypeRegularFile:
		inode, err := f.loadFileINode(id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("f %d %d %d %d %d %s", inode.LinkCounter, inode.InternalSizeB, inode.UserVisibleSize(), inode.CreationTime, inode.LastWriteTime(), name), nil
	default:
		return "", fmt.Errorf("fs: ls: unknown INode type %d at %d: %w", typ, id, errCorruption)
	}
}

// Link creates a new hardlink at src pointing at the existing regular file
// named tgt (§4.9). Mirrors the preserved quirk: tgt is resolved as a name
// inside src's own parent directory, not as a path of its own.
func (f *FS) Link(src, tgt string) error {
	sp, err := normalizePath(src)
	if err != nil {
		return err
	}
	if !f.hasBudget(budgetLink) {
		return fmt.Errorf("fs: link %q %q: %w", src, tgt, errOutOfSpace)
	}
	parent, name, err := f.searchParent(sp)
	if err != nil {
		return fmt.Errorf("fs: link %q %q: %w", src, tgt, err)
	}
	if name == "" {
		return fmt.Errorf("fs: link %q %q: %w", src, tgt, errInvalidArgument)
	}
	if _, exists := parent.SearchHardlink(name); exists {
		return fmt.Errorf("fs: link %q %q: %w", src, tgt, errAlreadyExists)
	}
	targetID, ok := parent.SearchHardlink(tgt)
	if !ok {
		return fmt.Errorf("fs: link %q %q: target: %w", src, tgt, errNotFound)
	}
	typ, err := f.peekINodeType(targetID)
	if err != nil {
		return err
	}
	if typ != block.TypeRegularFile {
		return fmt.Errorf("fs: link %q %q: target is not a regular file: %w", src, tgt, errWrongType)
	}
	targetInode, err := f.loadFileINode(targetID)
	if err != nil {
		return err
	}
	changed, err := parent.AddHardlink(targetInode, name)
	if err != nil {
		return fmt.Errorf("fs: link %q %q: %w", src, tgt, err)
	}
	return f.saveBlocks(changed)
}

// Rename moves src to dst (§4.9).
func (f *FS) Rename(src, dst string) error {
	sp, err := normalizePath(src)
	if err != nil {
		return err
	}
	dp, err := normalizePath(dst)
	if err != nil {
		return err
	}
	if isDescendant(sp, dp) {
		return fmt.Errorf("fs: rename %q %q: destination is a descendant of source: %w", src, dst, errInvalidArgument)
	}
	if !f.hasBudget(budgetRename) {
		return fmt.Errorf("fs: rename %q %q: %w", src, dst, errOutOfSpace)
	}

	oldParentPath, oldName := splitLast(sp)
	newParentPath, newName := splitLast(dp)
	if oldName == "" {
		return fmt.Errorf("fs: rename %q %q: cannot move root: %w", src, dst, errInvalidArgument)
	}

	oldParent, err := f.loadDirByPath(oldParentPath)
	if err != nil {
		return fmt.Errorf("fs: rename %q %q: %w", src, dst, err)
	}
	srcID, ok := oldParent.SearchHardlink(oldName)
	if !ok {
		return fmt.Errorf("fs: rename %q %q: %w", src, dst, errNotFound)
	}
	srcType, err := f.peekINodeType(srcID)
	if err != nil {
		return err
	}

	sameParent := oldParentPath == newParentPath
	var newParent *tree.Directory
	if sameParent {
		newParent = oldParent
	} else {
		newParent, err = f.loadDirByPath(newParentPath)
		if err != nil {
			return fmt.Errorf("fs: rename %q %q: %w", src, dst, err)
		}
	}
	if _, exists := newParent.SearchHardlink(newName); exists {
		return fmt.Errorf("fs: rename %q %q: %w", src, dst, errAlreadyExists)
	}
	if !sameParent && newParent.ChildCount() == block.MaxHardlinksPerDir {
		return fmt.Errorf("fs: rename %q %q: destination parent full: %w", src, dst, errCapacityExceeded)
	}

	srcTarget, err := f.linkTargetFor(srcID, srcType)
	if err != nil {
		return err
	}
	changedRm, err := oldParent.RmHardlink(srcTarget, oldName)
	if err != nil {
		return fmt.Errorf("fs: rename %q %q: %w", src, dst, err)
	}
	if err := f.saveBlocks(changedRm); err != nil {
		return err
	}
	changedAdd, err := newParent.AddHardlink(srcTarget, newName)
	if err != nil {
		return fmt.Errorf("fs: rename %q %q: %w", src, dst, err)
	}
	if err := f.saveBlocks(changedAdd); err != nil {
		return err
	}

	if !sameParent && srcType == block.TypeDir {
		movedDir, err := f.loadDirectory(srcID)
		if err != nil {
			return err
		}
		changedDotDotRm, err := movedDir.RmHardlink(oldParent.PrimaryINode(), "..")
		if err != nil {
			return fmt.Errorf("fs: rename %q %q: %w", src, dst, err)
		}
		if err := f.saveBlocks(changedDotDotRm); err != nil {
			return err
		}
		changedDotDotAdd, err := movedDir.AddHardlink(newParent.PrimaryINode(), "..")
		if err != nil {
			return fmt.Errorf("fs: rename %q %q: %w", src, dst, err)
		}
		return f.saveBlocks(changedDotDotAdd)
	}
	return nil
}
