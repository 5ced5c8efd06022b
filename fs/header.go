package fs

import (
	"fmt"

	"github.com/tfg13/sdi4fs/stream"
)

// Header layout (§6.1), little-endian, padded to a full block so the bmap
// region starts on a block boundary.
const (
	headerMagic       = 0x53444934 // "SDI4"
	headerUsedSize    = 36
	headerRegionSize  = 4096 // padding to a fixed prefix

	offMagic       = 0
	offReserved    = 4
	offSizeB       = 8
	offWritePtr    = 16
	offBMapValid   = 20
	offNextBlockID = 24
	offUsedBlocks  = 28
	offLastUmount  = 32

	// MinSizeB / MaxSizeB bound a plausible image (§4.2's [MIN, MAX] range).
	MinSizeB = 64 * 1024
	MaxSizeB = 1 << 40
)

type header struct {
	sizeB          uint64
	writePtr       uint32
	bmapValid      bool
	nextBlockID    uint32
	usedBlocks     uint32
	lastUmountTime uint32
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < headerUsedSize {
		return header{}, fmt.Errorf("fs: header buffer too small")
	}
	if stream.Get32(buf, offMagic) != headerMagic {
		return header{}, fmt.Errorf("fs: bad magic: %w", errNotSDI4FSImage)
	}
	h := header{
		sizeB:          stream.Get64(buf, offSizeB),
		writePtr:       stream.Get32(buf, offWritePtr),
		bmapValid:      stream.Get32(buf, offBMapValid) == 1,
		nextBlockID:    stream.Get32(buf, offNextBlockID),
		usedBlocks:     stream.Get32(buf, offUsedBlocks),
		lastUmountTime: stream.Get32(buf, offLastUmount),
	}
	return h, nil
}

func (h header) encode() []byte {
	buf := make([]byte, headerRegionSize)
	stream.Put32(buf, offMagic, headerMagic)
	stream.Put64(buf, offSizeB, h.sizeB)
	stream.Put32(buf, offWritePtr, h.writePtr)
	if h.bmapValid {
		stream.Put32(buf, offBMapValid, 1)
	} else {
		stream.Put32(buf, offBMapValid, 0)
	}
	stream.Put32(buf, offNextBlockID, h.nextBlockID)
	stream.Put32(buf, offUsedBlocks, h.usedBlocks)
	stream.Put32(buf, offLastUmount, h.lastUmountTime)
	return buf
}

var errNotSDI4FSImage = fmt.Errorf("not an SDI4FS image")
