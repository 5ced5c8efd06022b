package device

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileDevice is a Device backed by a regular, already-sized host file.
type FileDevice struct {
	file     *os.File
	size     int64
	readOnly bool
}

// OpenFile opens filename as a Device. The file must already exist and be
// sized to the image's size_b; SDI4FS does not grow or create images
// (format/make-empty-image is explicitly out of scope).
func OpenFile(filename string, readOnly bool) (*FileDevice, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(filename, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("device: opening %s: %w", filename, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("device: stat %s: %w", filename, err)
	}
	return &FileDevice{file: f, size: info.Size(), readOnly: readOnly}, nil
}

func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.file.ReadAt(p, off)
}

func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	if d.readOnly {
		return 0, fmt.Errorf("device: write to read-only device")
	}
	return d.file.WriteAt(p, off)
}

// Sync flushes via fsync(2) directly (golang.org/x/sys/unix) rather than
// relying on (*os.File).Sync alone, so the exact syscall boundary §4.12's
// and §4.10's "flush the device" steps describe is observable in tests.
func (d *FileDevice) Sync() error {
	if d.readOnly {
		return nil
	}
	if err := unix.Fsync(int(d.file.Fd())); err != nil {
		return fmt.Errorf("device: fsync: %w", err)
	}
	return nil
}

func (d *FileDevice) Size() int64 { return d.size }

func (d *FileDevice) Close() error { return d.file.Close() }
