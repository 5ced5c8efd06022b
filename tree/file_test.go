package tree_test

import (
	"bytes"
	"testing"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/tree"
)

type fakeFileAllocator struct {
	next uint32
}

func (a *fakeFileAllocator) Alloc() *block.DataBlockList {
	a.next++
	return block.NewDataBlockList(a.next)
}

func (a *fakeFileAllocator) Dealloc(*block.DataBlockList) {}

func TestFileInlineWriteRead(t *testing.T) {
	clk := clock.NewPseudo(1)
	inode := block.NewFileINode(1, clk)
	f := tree.NewFile(&fakeFileAllocator{next: 100}, inode)

	payload := []byte("small file contents")
	if err := inode.WriteInline(payload, 0, uint32(len(payload))); err != nil {
		t.Fatalf("WriteInline: %s", err)
	}
	if err := inode.SetInternalSizeB(uint32(len(payload))); err != nil {
		t.Fatalf("SetInternalSizeB: %s", err)
	}
	if f.NumberOfDataBlocks() != 0 {
		t.Fatalf("inline file unexpectedly reports %d data blocks", f.NumberOfDataBlocks())
	}
}

func TestConvertToNonInlineMovesPayload(t *testing.T) {
	clk := clock.NewPseudo(1)
	inode := block.NewFileINode(1, clk)
	f := tree.NewFile(&fakeFileAllocator{next: 100}, inode)

	payload := bytes.Repeat([]byte("y"), 50)
	if err := inode.WriteInline(payload, 0, uint32(len(payload))); err != nil {
		t.Fatalf("WriteInline: %s", err)
	}
	if err := inode.SetInternalSizeB(uint32(len(payload))); err != nil {
		t.Fatalf("SetInternalSizeB: %s", err)
	}

	newBlock := block.NewDataBlock(200)
	changed, err := f.ConvertToNonInline(newBlock)
	if err != nil {
		t.Fatalf("ConvertToNonInline: %s", err)
	}
	if len(changed) != 3 {
		t.Fatalf("ConvertToNonInline returned %d changed blocks, want 3", len(changed))
	}
	if inode.Inlined {
		t.Fatalf("inode still reports Inlined after conversion")
	}
	if f.NumberOfDataBlocks() != 1 {
		t.Fatalf("NumberOfDataBlocks = %d, want 1", f.NumberOfDataBlocks())
	}

	got := make([]byte, len(payload))
	if err := f.ReadFromCachedDataBlock(got, 0, uint32(len(payload))); err != nil {
		t.Fatalf("ReadFromCachedDataBlock: %s", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload lost across non-inline conversion")
	}
}

func TestAddAndRemoveDataBlock(t *testing.T) {
	clk := clock.NewPseudo(1)
	inode := block.NewFileINode(1, clk)
	f := tree.NewFile(&fakeFileAllocator{next: 100}, inode)

	first := block.NewDataBlock(201)
	if _, err := f.ConvertToNonInline(first); err != nil {
		t.Fatalf("ConvertToNonInline: %s", err)
	}
	second := block.NewDataBlock(202)
	if _, err := f.AddDataBlock(second); err != nil {
		t.Fatalf("AddDataBlock: %s", err)
	}
	if f.NumberOfDataBlocks() != 2 {
		t.Fatalf("NumberOfDataBlocks = %d, want 2", f.NumberOfDataBlocks())
	}
	if id, ok := f.GetDataBlockID(1); !ok || id != 202 {
		t.Fatalf("GetDataBlockID(1) = (%d, %v), want (202, true)", id, ok)
	}

	if _, err := f.RemoveDataBlock(); err != nil {
		t.Fatalf("RemoveDataBlock: %s", err)
	}
	if f.NumberOfDataBlocks() != 1 {
		t.Fatalf("NumberOfDataBlocks after remove = %d, want 1", f.NumberOfDataBlocks())
	}
}
