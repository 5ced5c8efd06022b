package block

import (
	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/stream"
)

// DirectoryEntryList holds an ordered set of up to MaxLinksPerDirEntryList
// Hardlinks, behind 24 bytes of padding matching the inlined-INode layout's
// reserved prefix (§3.5).
type DirectoryEntryList struct {
	Base
	entries []Hardlink
}

// NewDirectoryEntryList constructs a fresh, empty DirectoryEntryList with
// the given id.
func NewDirectoryEntryList(id uint32) *DirectoryEntryList {
	return &DirectoryEntryList{Base: newBase(id)}
}

// DecodeDirectoryEntryList reads a DirectoryEntryList from a positioned
// Size-byte buffer.
func DecodeDirectoryEntryList(buf []byte) (*DirectoryEntryList, error) {
	base, err := decodeBase(buf)
	if err != nil {
		return nil, err
	}
	del := &DirectoryEntryList{Base: base}
	off := headerSize + direntryPad
	for i := 0; i < MaxLinksPerDirEntryList; i++ {
		entryOff := off + i*hardlinkRecordSize
		id := stream.Get32(buf, entryOff)
		if id == 0 {
			continue
		}
		name := stream.GetString(buf, entryOff+4, MaxLinkNameLength)
		del.entries = append(del.entries, Hardlink{Name: name, Target: id})
	}
	return del, nil
}

// Encode implements Block.
func (del *DirectoryEntryList) Encode(now clock.Source) []byte {
	buf := make([]byte, Size)
	del.encodeHeader(buf, now)
	off := headerSize + direntryPad
	for i := 0; i < MaxLinksPerDirEntryList; i++ {
		entryOff := off + i*hardlinkRecordSize
		if i < len(del.entries) {
			stream.Put32(buf, entryOff, del.entries[i].Target)
			stream.PutString(buf, entryOff+4, MaxLinkNameLength, del.entries[i].Name)
		} else {
			stream.Put32(buf, entryOff, 0)
		}
	}
	return buf
}

// AddLink appends link, failing if the list is already full.
func (del *DirectoryEntryList) AddLink(link Hardlink) bool {
	if len(del.entries) >= MaxLinksPerDirEntryList {
		return false
	}
	del.entries = append(del.entries, link)
	return true
}

// RemoveLink removes and returns the entry named name, or (Hardlink{}, false)
// if not present.
func (del *DirectoryEntryList) RemoveLink(name string) (Hardlink, bool) {
	for i, e := range del.entries {
		if e.Name == name {
			del.entries = append(del.entries[:i], del.entries[i+1:]...)
			return e, true
		}
	}
	return Hardlink{}, false
}

// FindLink returns the entry named name without removing it.
func (del *DirectoryEntryList) FindLink(name string) (Hardlink, bool) {
	for _, e := range del.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Hardlink{}, false
}

// NumberOfHardlinks reports how many entries this list currently holds.
func (del *DirectoryEntryList) NumberOfHardlinks() int { return len(del.entries) }

// Ls appends every link name in insertion order to result.
func (del *DirectoryEntryList) Ls(result []string) []string {
	for _, e := range del.entries {
		result = append(result, e.Name)
	}
	return result
}
