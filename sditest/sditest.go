// Package sditest builds throwaway block-device fixtures for tests,
// following the corpus's fixture-helper convention (minixfs's
// "OpenMinixImage"/"getExtraFilename" pair): a fresh, OS-backed temp file,
// registered for cleanup, handed back already formatted.
package sditest

import (
	"os"
	"testing"

	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/config"
	"github.com/tfg13/sdi4fs/device"
	"github.com/tfg13/sdi4fs/fs"
)

// DefaultSizeB is a small but realistic image size used by most tests:
// large enough for a handful of directories and files, small enough that
// a full-device scan during recovery tests stays fast.
const DefaultSizeB = 1 * 1024 * 1024

// NewBlankDevice creates a zeroed, sizeB-byte temp file and opens it as a
// device.Device, removing it on test cleanup.
func NewBlankDevice(t *testing.T, sizeB int64) device.Device {
	t.Helper()
	f, err := os.CreateTemp("", "sdi4fs-*.img")
	if err != nil {
		t.Fatalf("sditest: creating temp image: %s", err)
	}
	name := f.Name()
	t.Cleanup(func() { os.Remove(name) })
	if err := f.Truncate(sizeB); err != nil {
		t.Fatalf("sditest: sizing temp image: %s", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("sditest: closing temp image: %s", err)
	}
	dev, err := device.OpenFile(name, false)
	if err != nil {
		t.Fatalf("sditest: opening temp image: %s", err)
	}
	t.Cleanup(func() { dev.Close() })
	return dev
}

// NewFormattedDevice returns a blank device already initialized with
// fs.Format: header, bmap, and an empty root directory.
func NewFormattedDevice(t *testing.T, sizeB int64) device.Device {
	t.Helper()
	dev := NewBlankDevice(t, sizeB)
	if err := fs.Format(dev, uint64(sizeB), clock.NewPseudo(1)); err != nil {
		t.Fatalf("sditest: formatting image: %s", err)
	}
	return dev
}

// MountFresh formats and mounts a new image in one call, the common case
// for tests that only need a filesystem to operate on.
func MountFresh(t *testing.T, sizeB int64) *fs.FS {
	t.Helper()
	dev := NewFormattedDevice(t, sizeB)
	f, err := fs.Mount(dev, config.Config{ForcePseudoClock: true}, nil)
	if err != nil {
		t.Fatalf("sditest: mounting formatted image: %s", err)
	}
	t.Cleanup(func() {
		_ = f.Unmount()
	})
	return f
}

// Populated mounts a fresh image and writes a small, fixed directory/file
// tree into it, for round-trip and recovery tests that need more than an
// empty root. It returns the mounted filesystem without unmounting, so
// callers can inspect state or force a dirty reopen first.
func Populated(t *testing.T, sizeB int64) *fs.FS {
	t.Helper()
	f := MountFresh(t, sizeB)
	mustMkdir(t, f, "/a")
	mustMkdir(t, f, "/a/b")
	mustTouch(t, f, "/a/hello.txt")
	h, err := f.Open("/a/hello.txt")
	if err != nil {
		t.Fatalf("sditest: opening fixture file: %s", err)
	}
	if err := f.Write(h, []byte("hello, sdi4fs"), 0); err != nil {
		t.Fatalf("sditest: writing fixture file: %s", err)
	}
	if err := f.Close(h); err != nil {
		t.Fatalf("sditest: closing fixture file: %s", err)
	}
	return f
}

func mustMkdir(t *testing.T, f *fs.FS, path string) {
	t.Helper()
	if err := f.Mkdir(path); err != nil {
		t.Fatalf("sditest: mkdir %q: %s", path, err)
	}
}

func mustTouch(t *testing.T, f *fs.FS, path string) {
	t.Helper()
	if err := f.Touch(path); err != nil {
		t.Fatalf("sditest: touch %q: %s", path, err)
	}
}
