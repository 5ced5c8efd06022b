// Package block implements the on-disk block types and their codecs:
// Block, DataBlock, DataBlockList, DirectoryEntryList, INode,
// DirectoryINode, FileINode and the Hardlink record embedded in the
// directory-shaped ones. Every codec consumes or produces exactly Size
// bytes; unused trailing space is left as-is by readers and zeroed by
// writers.
package block

import (
	"fmt"

	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/stream"
)

// Block is satisfied by every typed block; FS only needs the id and the
// ability to serialize when it decides a block must be persisted.
type Block interface {
	ID() uint32
	Encode(now clock.Source) []byte
}

// Base is the common header every block type embeds: an id and the
// timestamp of its most recent write. A persisted slot whose id is zero is
// free or invalidated (I1).
type Base struct {
	id            uint32
	lastWriteTime uint32
}

func newBase(id uint32) Base {
	if id == 0 {
		panic("block: id zero is not a valid block identifier")
	}
	return Base{id: id}
}

func (b Base) ID() uint32 { return b.id }

// LastWriteTime returns the timestamp stamped by the most recent Encode.
func (b Base) LastWriteTime() uint32 { return b.lastWriteTime }

func decodeBase(buf []byte) (Base, error) {
	id := stream.Get32(buf, 0)
	if id == 0 {
		return Base{}, fmt.Errorf("block: encountered id-zero slot: %w", errCorruptBlock)
	}
	return Base{id: id, lastWriteTime: stream.Get32(buf, 4)}, nil
}

func (b *Base) encodeHeader(buf []byte, now clock.Source) {
	stream.Put32(buf, 0, b.id)
	b.lastWriteTime = now.Now()
	stream.Put32(buf, 4, b.lastWriteTime)
}

var errCorruptBlock = fmt.Errorf("corrupt block")

// PeekID reads only the id field of a raw, positioned Size-byte slot,
// returning 0 if the slot is free.
func PeekID(buf []byte) uint32 {
	return stream.Get32(buf, 0)
}

// PeekLastWriteTime reads only the timestamp field of a raw slot.
func PeekLastWriteTime(buf []byte) uint32 {
	return stream.Get32(buf, 4)
}

// PeekType reads the upper nibble of the packed type/inlined byte of an
// INode-shaped slot without decoding the rest of the block (§4.7).
func PeekType(buf []byte) uint8 {
	return buf[TypeByteOffset] >> 4
}
