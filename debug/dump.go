// Package debug prints human-readable dumps of decoded blocks, useful when
// diagnosing an image by hand.
package debug

import (
	"bytes"
	"fmt"
	"log"

	"github.com/tfg13/sdi4fs/block"
)

// PrintBlock logs a type-appropriate summary of blk.
func PrintBlock(blk block.Block) {
	switch b := blk.(type) {
	case *block.DirectoryINode:
		log.Printf("DirectoryINode %d: links=%d size_b=%d inlined=%v\n", b.ID(), b.LinkCounter, b.InternalSizeB, b.Inlined)
	case *block.FileINode:
		log.Printf("FileINode %d: links=%d size_b=%d inlined=%v\n", b.ID(), b.LinkCounter, b.InternalSizeB, b.Inlined)
	case *block.DirectoryEntryList:
		buf := bytes.NewBuffer(nil)
		for _, name := range b.Ls(nil) {
			target, _ := b.FindLink(name)
			fmt.Fprintf(buf, "  %q -> %d\n", name, target.Target)
		}
		log.Printf("DirectoryEntryList %d:\n%s", b.ID(), buf.String())
	case *block.DataBlockList:
		log.Printf("DataBlockList %d: %d data blocks\n", b.ID(), b.Len())
	case *block.DataBlock:
		log.Printf("DataBlock %d\n", b.ID())
	default:
		log.Printf("Block %d (unrecognized type)\n", blk.ID())
	}
}
