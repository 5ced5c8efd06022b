package block_test

import (
	"bytes"
	"testing"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/clock"
)

func TestDataBlockRoundTrip(t *testing.T) {
	clk := clock.NewPseudo(1)
	db := block.NewDataBlock(7)
	payload := bytes.Repeat([]byte("x"), 100)
	if err := db.Write(payload, 10, uint32(len(payload))); err != nil {
		t.Fatalf("write: %s", err)
	}
	buf := db.Encode(clk)
	if len(buf) != block.Size {
		t.Fatalf("encoded size = %d, want %d", len(buf), block.Size)
	}

	decoded, err := block.DecodeDataBlock(buf)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if decoded.ID() != 7 {
		t.Fatalf("id = %d, want 7", decoded.ID())
	}
	got := make([]byte, len(payload))
	if err := decoded.Read(got, 10, uint32(len(payload))); err != nil {
		t.Fatalf("read: %s", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round-tripped payload mismatch")
	}
}

func TestDirectoryEntryListRoundTrip(t *testing.T) {
	clk := clock.NewPseudo(1)
	del := block.NewDirectoryEntryList(3)
	for i, name := range []string{"alpha", "beta", "gamma"} {
		link, err := block.NewHardlink(name, uint32(10+i))
		if err != nil {
			t.Fatalf("NewHardlink(%q): %s", name, err)
		}
		if !del.AddLink(link) {
			t.Fatalf("AddLink(%q) unexpectedly full", name)
		}
	}

	buf := del.Encode(clk)
	decoded, err := block.DecodeDirectoryEntryList(buf)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if decoded.NumberOfHardlinks() != 3 {
		t.Fatalf("NumberOfHardlinks = %d, want 3", decoded.NumberOfHardlinks())
	}
	link, ok := decoded.FindLink("beta")
	if !ok || link.Target != 11 {
		t.Fatalf("FindLink(beta) = %+v, %v", link, ok)
	}
}

func TestFileINodeInlineRoundTrip(t *testing.T) {
	clk := clock.NewPseudo(1)
	inode := block.NewFileINode(5, clk)
	payload := []byte("hello, sdi4fs")
	if err := inode.WriteInline(payload, 0, uint32(len(payload))); err != nil {
		t.Fatalf("WriteInline: %s", err)
	}
	if err := inode.SetInternalSizeB(uint32(len(payload))); err != nil {
		t.Fatalf("SetInternalSizeB: %s", err)
	}

	buf := inode.Encode(clk)
	decoded, err := block.DecodeFileINode(buf)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if !decoded.Inlined {
		t.Fatalf("decoded FileINode not inlined")
	}
	got := make([]byte, len(payload))
	if err := decoded.ReadInline(got, 0, uint32(len(payload))); err != nil {
		t.Fatalf("ReadInline: %s", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round-tripped inline payload mismatch: got %q", got)
	}
}

func TestPeekType(t *testing.T) {
	clk := clock.NewPseudo(1)
	dir := block.NewDirectoryINode(1, clk)
	buf := dir.Encode(clk)
	if got := block.PeekType(buf); got != block.TypeDir {
		t.Fatalf("PeekType = %d, want %d", got, block.TypeDir)
	}
}
