package block

import (
	"fmt"

	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/stream"
)

// INode is the metadata shared by DirectoryINode and FileINode (§3.3): a
// Block plus creation time, a size field (meaning differs by subtype, see
// §9's note on inline/external not being inheritance), the packed
// type/inlined byte, and a link counter.
type INode struct {
	Base
	CreationTime  uint32
	InternalSizeB uint32
	Type          uint8
	Inlined       bool
	LinkCounter   uint16
}

// newINode constructs a fresh, inlined, zero-size, zero-link INode of the
// given type, stamping CreationTime from now.
func newINode(id uint32, typ uint8, now clock.Source) INode {
	if typ > 0xF {
		panic(fmt.Sprintf("block: illegal INode type %d", typ))
	}
	return INode{
		Base:         newBase(id),
		CreationTime: now.Now(),
		Inlined:      true,
		Type:         typ,
	}
}

// decodeINodeHeader reads the Block header plus the 20-byte INode header
// (§3.3) from buf, leaving the type-specific body for the caller.
func decodeINodeHeader(buf []byte) (INode, error) {
	base, err := decodeBase(buf)
	if err != nil {
		return INode{}, err
	}
	n := INode{Base: base}
	n.CreationTime = stream.Get32(buf, 8)
	n.InternalSizeB = stream.Get32(buf, 12)
	typeAndInlined := stream.Get8(buf, 16)
	n.Type = typeAndInlined >> 4
	n.Inlined = typeAndInlined&0x08 != 0
	// byte 17 is reserved, skipped
	n.LinkCounter = stream.Get16(buf, 18)
	return n, nil
}

// encodeINodeHeader writes the Block header plus the 20-byte INode header
// into buf, stamping LastWriteTime from now.
func (n *INode) encodeINodeHeader(buf []byte, now clock.Source) {
	n.Base.encodeHeader(buf, now)
	stream.Put32(buf, 8, n.CreationTime)
	stream.Put32(buf, 12, n.InternalSizeB)
	var typeAndInlined uint8 = n.Type<<4 | boolBit(n.Inlined, 0x08)
	stream.Put8(buf, 16, typeAndInlined)
	stream.Put8(buf, 17, 0)
	stream.Put16(buf, 18, n.LinkCounter)
}

func boolBit(b bool, mask uint8) uint8 {
	if b {
		return mask
	}
	return 0
}

// IncrementLinkCounter bumps LinkCounter, refusing once
// MaxNumberOfLinksToINode is reached (§4.8 addHardlink).
func (n *INode) IncrementLinkCounter() bool {
	if n.LinkCounter == MaxNumberOfLinksToINode {
		return false
	}
	n.LinkCounter++
	return true
}

// DecrementLinkCounter drops LinkCounter by one. Callers are expected to
// never call this on an already-zero counter (the aggregate layer
// guarantees a matching increment happened first).
func (n *INode) DecrementLinkCounter() {
	n.LinkCounter--
}
