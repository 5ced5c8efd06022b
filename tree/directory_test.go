package tree_test

import (
	"fmt"
	"testing"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/tree"
)

// fakeDirAllocator hands out incrementing ids, standing in for FS's
// getNextBlockID/freeBlock pair in tests that never touch a device.
type fakeDirAllocator struct {
	next uint32
}

func (a *fakeDirAllocator) Alloc() *block.DirectoryEntryList {
	a.next++
	return block.NewDirectoryEntryList(a.next)
}

func (a *fakeDirAllocator) Dealloc(*block.DirectoryEntryList) {}

func TestRootDirectoryHasSelfReferencingDotDot(t *testing.T) {
	clk := clock.NewPseudo(1)
	inode := block.NewDirectoryINode(1, clk)
	root := tree.NewRootDirectory(&fakeDirAllocator{next: 1}, inode)

	if root.ChildCount() != 2 {
		t.Fatalf("ChildCount = %d, want 2", root.ChildCount())
	}
	for _, name := range []string{".", ".."} {
		id, ok := root.SearchHardlink(name)
		if !ok || id != 1 {
			t.Fatalf("SearchHardlink(%q) = (%d, %v), want (1, true)", name, id, ok)
		}
	}
}

func TestAddRmHardlinkRoundTrip(t *testing.T) {
	clk := clock.NewPseudo(1)
	alloc := &fakeDirAllocator{next: 1}
	rootInode := block.NewDirectoryINode(1, clk)
	root := tree.NewRootDirectory(alloc, rootInode)

	childInode := block.NewDirectoryINode(2, clk)
	child := tree.NewChildDirectory(alloc, childInode, root)
	if _, err := root.AddHardlink(child.PrimaryINode(), "child"); err != nil {
		t.Fatalf("AddHardlink: %s", err)
	}
	if id, ok := root.SearchHardlink("child"); !ok || id != 2 {
		t.Fatalf("SearchHardlink(child) = (%d, %v)", id, ok)
	}
	if childInode.LinkCounter != 2 { // "." plus the link from root
		t.Fatalf("child link counter = %d, want 2", childInode.LinkCounter)
	}

	if _, err := root.RmHardlink(child.PrimaryINode(), "child"); err != nil {
		t.Fatalf("RmHardlink: %s", err)
	}
	if _, ok := root.SearchHardlink("child"); ok {
		t.Fatalf("SearchHardlink(child) still found after RmHardlink")
	}
	if childInode.LinkCounter != 1 {
		t.Fatalf("child link counter after rm = %d, want 1", childInode.LinkCounter)
	}
}

func TestAddHardlinkConvertsToExternalPastInlineCapacity(t *testing.T) {
	clk := clock.NewPseudo(1)
	alloc := &fakeDirAllocator{next: 1}
	rootInode := block.NewDirectoryINode(1, clk)
	root := tree.NewRootDirectory(alloc, rootInode)

	// Two links ("." and "..") already occupy two inline slots;
	// exceed MaxLinksPerDirEntryList children to force conversion.
	for i := 0; i < block.MaxLinksPerDirEntryList+5; i++ {
		fileInode := block.NewFileINode(uint32(1000+i), clk)
		name := string(rune('a' + (i % 26)))
		name += string(rune('A' + (i / 26)))
		if _, err := root.AddHardlink(fileInode, name); err != nil {
			t.Fatalf("AddHardlink iteration %d: %s", i, err)
		}
	}
	if len(root.Blocks()) == 0 {
		t.Fatalf("expected directory to have converted to external representation")
	}
}

func TestAddHardlinkRejectsDuplicateName(t *testing.T) {
	clk := clock.NewPseudo(1)
	alloc := &fakeDirAllocator{next: 1}
	rootInode := block.NewDirectoryINode(1, clk)
	root := tree.NewRootDirectory(alloc, rootInode)

	fileInode := block.NewFileINode(50, clk)
	if _, err := root.AddHardlink(fileInode, "dup"); err != nil {
		t.Fatalf("first AddHardlink: %s", err)
	}
	if _, err := root.AddHardlink(fileInode, "dup"); err == nil {
		t.Fatalf("expected error adding duplicate name")
	}
}

// TestAddHardlinkRejectsAtMaxCapacity covers B2: the (MaxHardlinksPerDir+1)th
// child must fail, leaving the directory's observable child count unchanged.
func TestAddHardlinkRejectsAtMaxCapacity(t *testing.T) {
	clk := clock.NewPseudo(1)
	alloc := &fakeDirAllocator{next: 1}
	rootInode := block.NewDirectoryINode(1, clk)
	root := tree.NewRootDirectory(alloc, rootInode)

	// root starts with "." and ".."; fill the rest up to capacity.
	for i := uint32(0); root.ChildCount() < block.MaxHardlinksPerDir; i++ {
		fileInode := block.NewFileINode(1000+i, clk)
		if _, err := root.AddHardlink(fileInode, fmt.Sprintf("f%d", i)); err != nil {
			t.Fatalf("AddHardlink at count %d: %s", root.ChildCount(), err)
		}
	}

	before := root.ChildCount()
	overflow := block.NewFileINode(999999, clk)
	if _, err := root.AddHardlink(overflow, "overflow"); err == nil {
		t.Fatalf("expected capacity error at %d children", before)
	}
	if root.ChildCount() != before {
		t.Fatalf("ChildCount changed after rejected AddHardlink: %d -> %d", before, root.ChildCount())
	}
}
