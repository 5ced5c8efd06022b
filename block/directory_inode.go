package block

import (
	"fmt"

	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/stream"
)

// DirectoryINode is the primary INode of a Directory (§3.4). Inlined, it
// carries up to MaxLinksPerDirEntryList Hardlinks directly; external, it
// carries up to MaxDirEntryListsPerDir ids of DirectoryEntryLists instead.
// The two representations are a mode flag over one block, not subclassing
// (§9).
type DirectoryINode struct {
	INode
	entries        []Hardlink // valid iff Inlined
	dirEntryListIDs []uint32  // valid iff !Inlined
}

// NewDirectoryINode constructs a fresh, inlined, empty DirectoryINode.
func NewDirectoryINode(id uint32, now clock.Source) *DirectoryINode {
	return &DirectoryINode{INode: newINode(id, TypeDir, now)}
}

// DecodeDirectoryINode reads a DirectoryINode from a positioned Size-byte
// buffer.
func DecodeDirectoryINode(buf []byte) (*DirectoryINode, error) {
	hdr, err := decodeINodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.Type != TypeDir {
		return nil, fmt.Errorf("block: reading DirectoryINode from INode of type %d: %w", hdr.Type, errCorruptBlock)
	}
	d := &DirectoryINode{INode: hdr}
	if hdr.Inlined {
		off := inodeSize + dirInlinePad
		for i := 0; i < MaxLinksPerDirEntryList; i++ {
			entryOff := off + i*hardlinkRecordSize
			id := stream.Get32(buf, entryOff)
			if id == 0 {
				continue
			}
			name := stream.GetString(buf, entryOff+4, MaxLinkNameLength)
			d.entries = append(d.entries, Hardlink{Name: name, Target: id})
		}
	} else {
		for i := 0; i < MaxDirEntryListsPerDir; i++ {
			id := stream.Get32(buf, inodeSize+4*i)
			if id == 0 {
				break // no gaps allowed
			}
			d.dirEntryListIDs = append(d.dirEntryListIDs, id)
		}
	}
	return d, nil
}

// Encode implements Block.
func (d *DirectoryINode) Encode(now clock.Source) []byte {
	buf := make([]byte, Size)
	d.encodeINodeHeader(buf, now)
	if d.Inlined {
		off := inodeSize + dirInlinePad
		for i := 0; i < MaxLinksPerDirEntryList; i++ {
			entryOff := off + i*hardlinkRecordSize
			if i < len(d.entries) {
				stream.Put32(buf, entryOff, d.entries[i].Target)
				stream.PutString(buf, entryOff+4, MaxLinkNameLength, d.entries[i].Name)
			} else {
				stream.Put32(buf, entryOff, 0)
			}
		}
	} else {
		for i := 0; i < MaxDirEntryListsPerDir; i++ {
			var id uint32
			if i < len(d.dirEntryListIDs) {
				id = d.dirEntryListIDs[i]
			}
			stream.Put32(buf, inodeSize+4*i, id)
		}
	}
	return buf
}

// UserVisibleSize returns the on-disk footprint users see in ls output
// (§3.4's disksize column): one block for the INode itself, plus one per
// external DirectoryEntryList.
func (d *DirectoryINode) UserVisibleSize() uint32 {
	return uint32(len(d.dirEntryListIDs)+1) * Size
}

// AddLink appends link to the inline table, failing if full or not inlined.
func (d *DirectoryINode) AddLink(link Hardlink) bool {
	if !d.Inlined {
		return false
	}
	if len(d.entries) >= MaxLinksPerDirEntryList {
		return false
	}
	d.entries = append(d.entries, link)
	return true
}

// RemoveLink removes and returns the inline entry named name.
func (d *DirectoryINode) RemoveLink(name string) (Hardlink, bool) {
	if !d.Inlined {
		return Hardlink{}, false
	}
	for i, e := range d.entries {
		if e.Name == name {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return e, true
		}
	}
	return Hardlink{}, false
}

// FindLink returns the inline entry named name without removing it.
func (d *DirectoryINode) FindLink(name string) (Hardlink, bool) {
	if !d.Inlined {
		return Hardlink{}, false
	}
	for _, e := range d.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Hardlink{}, false
}

// NumberOfHardlinks reports the inline entry count.
func (d *DirectoryINode) NumberOfHardlinks() int { return len(d.entries) }

// Ls appends every inline link name in insertion order to result.
func (d *DirectoryINode) Ls(result []string) []string {
	for _, e := range d.entries {
		result = append(result, e.Name)
	}
	return result
}

// DirEntryListIDs returns the external list ids (valid only when !Inlined).
func (d *DirectoryINode) DirEntryListIDs() []uint32 { return d.dirEntryListIDs }

// AddDirEntryList records a newly allocated external list id.
func (d *DirectoryINode) AddDirEntryList(id uint32) bool {
	if d.Inlined {
		return false
	}
	if len(d.dirEntryListIDs) == MaxDirEntryListsPerDir {
		return false
	}
	d.dirEntryListIDs = append(d.dirEntryListIDs, id)
	return true
}

// RemoveDirEntryList drops id from the external list table.
func (d *DirectoryINode) RemoveDirEntryList(id uint32) bool {
	for i, v := range d.dirEntryListIDs {
		if v == id {
			d.dirEntryListIDs = append(d.dirEntryListIDs[:i], d.dirEntryListIDs[i+1:]...)
			return true
		}
	}
	return false
}

// ConvertToNonInline moves every inline entry into the given (empty)
// external list and flips the mode flag. Callers must have already verified
// entryList is freshly allocated and empty.
func (d *DirectoryINode) ConvertToNonInline(entryList *DirectoryEntryList) error {
	if !d.Inlined {
		return fmt.Errorf("block: DirectoryINode %d already non-inline", d.ID())
	}
	if entryList.NumberOfHardlinks() != 0 {
		return fmt.Errorf("block: DirectoryINode %d conversion target list is not empty", d.ID())
	}
	for _, e := range d.entries {
		if !entryList.AddLink(e) {
			return fmt.Errorf("block: DirectoryINode %d: cannot store hardlink during conversion", d.ID())
		}
	}
	d.entries = nil
	d.Inlined = false
	d.dirEntryListIDs = append(d.dirEntryListIDs, entryList.ID())
	return nil
}
