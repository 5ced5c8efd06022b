package block

import "fmt"

// Hardlink is a (name, target-id) pair stored inside a directory's inline
// entries or one of its DirectoryEntryLists. "." and ".." are ordinary
// Hardlinks, counted like any other (§3.9, §9).
type Hardlink struct {
	Name   string
	Target uint32
}

// NewHardlink validates name against the on-disk length limits (non-empty,
// shorter than MaxLinkNameLength) before constructing a Hardlink; it does
// not check for '/', which is the caller's (Directory's) responsibility
// since it differs by call site.
func NewHardlink(name string, target uint32) (Hardlink, error) {
	if len(name) == 0 || len(name) >= MaxLinkNameLength {
		return Hardlink{}, fmt.Errorf("block: hardlink name %q exceeds limits (1..%d)", name, MaxLinkNameLength-1)
	}
	return Hardlink{Name: name, Target: target}, nil
}
