package block

import (
	"fmt"

	"github.com/tfg13/sdi4fs/clock"
)

// DataBlock holds exactly MaxBytesPerDataBlock payload bytes, plus an
// in-memory dirty flag tracking whether Write has touched it since it was
// last persisted (§3.8, §4.10's cached-block rules).
type DataBlock struct {
	Base
	data  [MaxBytesPerDataBlock]byte
	dirty bool
}

// NewDataBlock constructs a fresh, empty DataBlock with the given id.
func NewDataBlock(id uint32) *DataBlock {
	return &DataBlock{Base: newBase(id)}
}

// DecodeDataBlock reads a DataBlock from a positioned Size-byte buffer.
func DecodeDataBlock(buf []byte) (*DataBlock, error) {
	base, err := decodeBase(buf)
	if err != nil {
		return nil, err
	}
	db := &DataBlock{Base: base}
	copy(db.data[:], buf[headerSize:headerSize+MaxBytesPerDataBlock])
	return db, nil
}

// Encode implements Block.
func (db *DataBlock) Encode(now clock.Source) []byte {
	buf := make([]byte, Size)
	db.encodeHeader(buf, now)
	copy(buf[headerSize:], db.data[:])
	return buf
}

// IsDirty reports whether Write has been called since the last ClearDirty
// (Encode does not reset it).
func (db *DataBlock) IsDirty() bool { return db.dirty }

// ClearDirty resets the dirty flag (called after a successful persist).
func (db *DataBlock) ClearDirty() { db.dirty = false }

// Read copies n bytes starting at pos into target.
func (db *DataBlock) Read(target []byte, pos, n uint32) error {
	if pos > MaxBytesPerDataBlock || pos+n > MaxBytesPerDataBlock {
		return fmt.Errorf("block: out-of-bound data read at block %d: pos=%d n=%d", db.ID(), pos, n)
	}
	copy(target, db.data[pos:pos+n])
	return nil
}

// Write copies n bytes from source into pos, marking the block dirty.
func (db *DataBlock) Write(source []byte, pos, n uint32) error {
	if pos > MaxBytesPerDataBlock || pos+n > MaxBytesPerDataBlock {
		return fmt.Errorf("block: out-of-bound data write at block %d: pos=%d n=%d", db.ID(), pos, n)
	}
	copy(db.data[pos:pos+n], source[:n])
	db.dirty = true
	return nil
}
