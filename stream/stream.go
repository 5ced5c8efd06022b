// Package stream provides fixed-endian integer read/write helpers at
// explicit byte offsets within an in-memory block buffer. Every on-disk
// block is first decoded into (or encoded from) a BLOCK_SIZE-byte buffer;
// these helpers are how block codecs walk that buffer.
package stream

import "encoding/binary"

// Order is the single, fixed byte order used for every integer on disk.
var Order = binary.LittleEndian

// Get8 reads one byte at off.
func Get8(buf []byte, off int) uint8 {
	return buf[off]
}

// Put8 writes one byte at off.
func Put8(buf []byte, off int, v uint8) {
	buf[off] = v
}

// Get16 reads a u16 at off.
func Get16(buf []byte, off int) uint16 {
	return Order.Uint16(buf[off : off+2])
}

// Put16 writes a u16 at off.
func Put16(buf []byte, off int, v uint16) {
	Order.PutUint16(buf[off:off+2], v)
}

// Get32 reads a u32 at off.
func Get32(buf []byte, off int) uint32 {
	return Order.Uint32(buf[off : off+4])
}

// Put32 writes a u32 at off.
func Put32(buf []byte, off int, v uint32) {
	Order.PutUint32(buf[off:off+4], v)
}

// Get64 reads a u64 at off.
func Get64(buf []byte, off int) uint64 {
	return Order.Uint64(buf[off : off+8])
}

// Put64 writes a u64 at off.
func Put64(buf []byte, off int, v uint64) {
	Order.PutUint64(buf[off:off+8], v)
}

// GetString reads an n-byte fixed-width, NUL-terminated field at off,
// trimming at the first NUL (or the full width if none is present).
func GetString(buf []byte, off, n int) string {
	field := buf[off : off+n]
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// PutString writes s into an n-byte fixed-width field at off, truncating if
// too long and zero-padding the remainder (including the terminator byte).
func PutString(buf []byte, off, n int, s string) {
	field := buf[off : off+n]
	for i := range field {
		field[i] = 0
	}
	copy(field, s)
	if len(s) >= n {
		field[n-1] = 0
	}
}
