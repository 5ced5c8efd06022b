// Package tree implements the Directory and File aggregates: each combines
// a primary INode with zero or more external list blocks into one logical
// entity, presenting the inline/external split as a single interface and
// returning a deduplicated "changed blocks" list from every mutation for FS
// to persist (§4.8, §4.10, §9's changed-blocks convention).
package tree

import (
	"fmt"

	"github.com/tfg13/sdi4fs/block"
)

// DirEntryListAllocator lets a Directory grow or shrink its external
// storage without a back-reference to FS (§9's BlockAllocator pattern).
// Alloc returns nil only if the caller failed to honor the budget precheck
// FS performs before any mutation begins; Directory still defends against
// that case (see addHardlink's rollback path).
type DirEntryListAllocator interface {
	Alloc() *block.DirectoryEntryList
	Dealloc(*block.DirectoryEntryList)
}

// linkTarget is satisfied by both DirectoryINode and FileINode: addHardlink
// and rmHardlink only ever need to touch the target's link counter, never
// its type-specific body.
type linkTarget interface {
	ID() uint32
	IncrementLinkCounter() bool
	DecrementLinkCounter()
}

// Directory is one DirectoryINode plus an ordered set of
// DirectoryEntryLists (§3.9). Both are loaded by the caller (FS) up front;
// Directory never reaches back into the log itself.
type Directory struct {
	alloc      DirEntryListAllocator
	inode      *block.DirectoryINode
	childCount uint32
	entryLists []*block.DirectoryEntryList
}

// LoadDirectory wraps an already-decoded DirectoryINode and its already-
// loaded external DirectoryEntryLists (empty if inode is inlined) into a
// Directory.
func LoadDirectory(alloc DirEntryListAllocator, inode *block.DirectoryINode, entryLists []*block.DirectoryEntryList) *Directory {
	d := &Directory{alloc: alloc, inode: inode, entryLists: entryLists}
	if inode.Inlined {
		d.childCount = uint32(inode.NumberOfHardlinks())
	} else {
		for _, l := range entryLists {
			d.childCount += uint32(l.NumberOfHardlinks())
		}
	}
	return d
}

// NewChildDirectory creates a fresh, inlined DirectoryINode for a new
// non-root directory and links "." to itself and ".." to parent, mirroring
// the two hardlinks every directory starts with. Neither link allocates
// (both fit in a brand-new inline INode), so the changed-blocks results of
// both calls are discarded, matching the reference implementation.
func NewChildDirectory(alloc DirEntryListAllocator, inode *block.DirectoryINode, parent *Directory) *Directory {
	d := &Directory{alloc: alloc, inode: inode}
	d.AddHardlink(inode, ".")
	d.AddHardlink(parent.inode, "..")
	return d
}

// NewRootDirectory creates the root directory's INode with "." and both
// pointing ".." at itself (root is its own parent, §3.9, B5).
func NewRootDirectory(alloc DirEntryListAllocator, inode *block.DirectoryINode) *Directory {
	d := &Directory{alloc: alloc, inode: inode}
	d.AddHardlink(inode, ".")
	d.AddHardlink(inode, "..")
	return d
}

// PrimaryINode returns the Directory's own INode.
func (d *Directory) PrimaryINode() *block.DirectoryINode { return d.inode }

// ChildCount reports the number of hardlinks this directory currently
// holds, including "." and "..".
func (d *Directory) ChildCount() uint32 { return d.childCount }

// AddHardlink links name to target, following the placement policy of
// §4.8: inline while there's room, then converting to external, then
// filling or extending DirectoryEntryLists. Returns the deduplicated set of
// blocks that must now be persisted, and an error identifying why nothing
// was changed when the link could not be added.
func (d *Directory) AddHardlink(target linkTarget, name string) ([]block.Block, error) {
	if _, exists := d.searchHardlink(name); exists {
		return nil, fmt.Errorf("tree: hardlink %q already present in directory %d", name, d.inode.ID())
	}
	if d.childCount == block.MaxHardlinksPerDir {
		return nil, fmt.Errorf("tree: directory %d: max hardlinks reached", d.inode.ID())
	}
	if !target.IncrementLinkCounter() {
		return nil, fmt.Errorf("tree: max links to INode %d reached", target.ID())
	}

	var changed []block.Block
	changed = append(changed, asBlock(target))

	link, err := block.NewHardlink(name, target.ID())
	if err != nil {
		target.DecrementLinkCounter()
		return nil, err
	}

	successInline := false
	if d.inode.Inlined {
		if d.inode.AddLink(link) {
			successInline = true
			changed = append(changed, d.inode)
		}
	}
	if !successInline && d.inode.Inlined {
		newList := d.alloc.Alloc()
		if newList == nil {
			// Budget prechecks make this unreachable; defend anyway and
			// roll back the increment and pending link (§9 supplemented
			// features, mirroring Directory.cc's addHardlink).
			target.DecrementLinkCounter()
			return nil, fmt.Errorf("tree: cannot allocate DirectoryEntryList for directory %d", d.inode.ID())
		}
		if err := d.inode.ConvertToNonInline(newList); err != nil {
			target.DecrementLinkCounter()
			return nil, err
		}
		changed = append(changed, d.inode)
		d.entryLists = append(d.entryLists, newList)
		changed = append(changed, newList)
	}
	if !successInline {
		placed := false
		for _, l := range d.entryLists {
			if l.AddLink(link) {
				placed = true
				changed = append(changed, l)
				break
			}
		}
		if !placed {
			newList := d.alloc.Alloc()
			if newList == nil {
				target.DecrementLinkCounter()
				return nil, fmt.Errorf("tree: cannot allocate DirectoryEntryList(2) for directory %d", d.inode.ID())
			}
			newList.AddLink(link)
			d.entryLists = append(d.entryLists, newList)
			d.inode.AddDirEntryList(newList.ID())
			changed = append(changed, d.inode, newList)
		}
	}
	d.childCount++
	seen := make(map[uint32]bool, len(changed))
	unique := changed[:0]
	for _, b := range changed {
		if !seen[b.ID()] {
			seen[b.ID()] = true
			unique = append(unique, b)
		}
	}
	return unique, nil
}

// RmHardlink unlinks name, decrementing target's link counter and, if the
// containing DirectoryEntryList becomes empty, deallocating it (§4.8).
// Directory never converts back to inline once external (I5).
func (d *Directory) RmHardlink(target linkTarget, name string) ([]block.Block, error) {
	if name == "" || containsSlash(name) {
		return nil, fmt.Errorf("tree: %q is not a valid link name", name)
	}
	target.DecrementLinkCounter()
	changed := []block.Block{asBlock(target)}

	if d.inode.Inlined {
		if _, ok := d.inode.RemoveLink(name); !ok {
			return nil, fmt.Errorf("tree: hardlink %q not found in directory %d", name, d.inode.ID())
		}
		changed = append(changed, d.inode)
	} else {
		found := false
		for i, l := range d.entryLists {
			if _, ok := l.RemoveLink(name); ok {
				found = true
				if l.NumberOfHardlinks() == 0 {
					d.alloc.Dealloc(l)
					d.inode.RemoveDirEntryList(l.ID())
					d.entryLists = append(d.entryLists[:i], d.entryLists[i+1:]...)
					changed = append(changed, d.inode)
				} else {
					changed = append(changed, l)
				}
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("tree: hardlink %q not found in directory %d", name, d.inode.ID())
		}
	}
	d.childCount--
	return changed, nil
}

// SearchHardlink resolves name to a target id, or (0, false) if absent.
func (d *Directory) SearchHardlink(name string) (uint32, bool) {
	if name == "" || containsSlash(name) {
		return 0, false
	}
	return d.searchHardlink(name)
}

func (d *Directory) searchHardlink(name string) (uint32, bool) {
	if d.inode.Inlined {
		if l, ok := d.inode.FindLink(name); ok {
			return l.Target, true
		}
		return 0, false
	}
	for _, l := range d.entryLists {
		if e, ok := l.FindLink(name); ok {
			return e.Target, true
		}
	}
	return 0, false
}

// Ls returns every link name, "." and ".." included, in insertion order.
func (d *Directory) Ls() []string {
	if d.inode.Inlined {
		return d.inode.Ls(nil)
	}
	var result []string
	for _, l := range d.entryLists {
		result = l.Ls(result)
	}
	return result
}

// Blocks returns the external DirectoryEntryLists currently held in memory.
func (d *Directory) Blocks() []*block.DirectoryEntryList { return d.entryLists }

func containsSlash(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return true
		}
	}
	return false
}

func asBlock(t linkTarget) block.Block {
	b, ok := t.(block.Block)
	if !ok {
		panic("tree: linkTarget does not implement block.Block")
	}
	return b
}
