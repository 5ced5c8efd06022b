// Package device abstracts the seekable block device SDI4FS mounts over.
// In a hosted build this is a regular file; the interface exists so tests
// can substitute an in-memory device without touching the filesystem.
package device

// Device is a fixed-size, randomly addressable byte store (§1's "seekable
// block device").
type Device interface {
	// ReadAt reads len(p) bytes starting at off, like io.ReaderAt.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt writes len(p) bytes starting at off, like io.WriterAt.
	WriteAt(p []byte, off int64) (int, error)
	// Sync flushes any buffered writes to stable storage.
	Sync() error
	// Size returns the fixed size of the device in bytes.
	Size() int64
	// Close releases the underlying resource.
	Close() error
}
