package block

import (
	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/stream"
)

// DataBlockList holds an ordered, gap-free list of up to
// MaxDataBlocksPerDataBlockList DataBlock ids (§3.7).
type DataBlockList struct {
	Base
	entries []uint32
}

// NewDataBlockList constructs a fresh, empty DataBlockList with the given id.
func NewDataBlockList(id uint32) *DataBlockList {
	return &DataBlockList{Base: newBase(id)}
}

// DecodeDataBlockList reads a DataBlockList from a positioned Size-byte buffer.
func DecodeDataBlockList(buf []byte) (*DataBlockList, error) {
	base, err := decodeBase(buf)
	if err != nil {
		return nil, err
	}
	dbl := &DataBlockList{Base: base}
	for i := 0; i < MaxDataBlocksPerDataBlockList; i++ {
		id := stream.Get32(buf, headerSize+4*i)
		if id == 0 {
			break // no gaps allowed
		}
		dbl.entries = append(dbl.entries, id)
	}
	return dbl, nil
}

// Encode implements Block.
func (dbl *DataBlockList) Encode(now clock.Source) []byte {
	buf := make([]byte, Size)
	dbl.encodeHeader(buf, now)
	for i := 0; i < MaxDataBlocksPerDataBlockList; i++ {
		var id uint32
		if i < len(dbl.entries) {
			id = dbl.entries[i]
		}
		stream.Put32(buf, headerSize+4*i, id)
	}
	return buf
}

// PushDataBlock appends id, failing if the list is already full.
func (dbl *DataBlockList) PushDataBlock(id uint32) bool {
	if len(dbl.entries) == MaxDataBlocksPerDataBlockList {
		return false
	}
	dbl.entries = append(dbl.entries, id)
	return true
}

// PopDataBlock removes and returns the last id, or (0, false) if empty.
func (dbl *DataBlockList) PopDataBlock() (uint32, bool) {
	if len(dbl.entries) == 0 {
		return 0, false
	}
	id := dbl.entries[len(dbl.entries)-1]
	dbl.entries = dbl.entries[:len(dbl.entries)-1]
	return id, true
}

// GetDataBlock returns the id at index, or (0, false) if out of range.
func (dbl *DataBlockList) GetDataBlock(index int) (uint32, bool) {
	if index < 0 || index >= len(dbl.entries) {
		return 0, false
	}
	return dbl.entries[index], true
}

// Len reports the number of DataBlock ids currently held.
func (dbl *DataBlockList) Len() int { return len(dbl.entries) }

// Blocks appends every referenced DataBlock id to result.
func (dbl *DataBlockList) Blocks(result []uint32) []uint32 {
	return append(result, dbl.entries...)
}
