package fs_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/clock"
	"github.com/tfg13/sdi4fs/config"
	"github.com/tfg13/sdi4fs/fs"
	"github.com/tfg13/sdi4fs/sdi4fserr"
	"github.com/tfg13/sdi4fs/sditest"
)

// lsHeader is the fixed header line fs.Ls prepends whenever a directory is
// non-empty; every directory always holds at least "." and "..", so it is
// always non-empty.
const lsHeader = "t #links size disksize t_created t_mod name"

func lastChar(s string) byte {
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func hasEntryNamed(lines []string, last byte) bool {
	for _, l := range lines {
		if lastChar(l) == last {
			return true
		}
	}
	return false
}

// TestFreshRootIsSelfReferencing covers B5: a fresh image has root at id 1
// with both "." and ".." listed, and no user entries beyond that.
func TestFreshRootIsSelfReferencing(t *testing.T) {
	f := sditest.MountFresh(t, sditest.DefaultSizeB)
	lines, err := f.Ls("/")
	if err != nil {
		t.Fatalf("ls /: %s", err)
	}
	if len(lines) != 3 { // header + "." + ".."
		t.Fatalf("ls / = %v, want header plus . and ..", lines)
	}
	if lines[0] != lsHeader {
		t.Fatalf("ls / header = %q", lines[0])
	}
	// "." and ".." must describe the same INode: identical lines up to the name.
	if strings.TrimSuffix(lines[1], ".") != strings.TrimSuffix(lines[2], "..") {
		t.Fatalf("ls / . and .. differ: %q vs %q", lines[1], lines[2])
	}
}

// TestMkdirTouchWriteReadCloseRemount covers S1: basic persistence across a
// clean unmount/remount cycle.
func TestMkdirTouchWriteReadCloseRemount(t *testing.T) {
	dev := sditest.NewFormattedDevice(t, sditest.DefaultSizeB)
	f, err := fs.Mount(dev, config.Config{ForcePseudoClock: true}, nil)
	if err != nil {
		t.Fatalf("mount: %s", err)
	}
	if err := f.Mkdir("/a"); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := f.Touch("/a/f"); err != nil {
		t.Fatalf("touch: %s", err)
	}
	h, err := f.Open("/a/f")
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	if err := f.Write(h, []byte("hello"), 0); err != nil {
		t.Fatalf("write: %s", err)
	}
	if err := f.Close(h); err != nil {
		t.Fatalf("close: %s", err)
	}
	if err := f.Unmount(); err != nil {
		t.Fatalf("unmount: %s", err)
	}

	f2, err := fs.Mount(dev, config.Config{ForcePseudoClock: true}, nil)
	if err != nil {
		t.Fatalf("remount: %s", err)
	}
	defer f2.Unmount()

	h2, err := f2.Open("/a/f")
	if err != nil {
		t.Fatalf("reopen: %s", err)
	}
	got, err := f2.Read(h2, 0, 5)
	if err != nil {
		t.Fatalf("read after remount: %s", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("read after remount = %q, want %q", got, "hello")
	}
	lines, err := f2.Ls("/a")
	if err != nil {
		t.Fatalf("ls /a: %s", err)
	}
	if len(lines) != 4 { // header + "." + ".." + "f"
		t.Fatalf("ls /a = %v, want header plus 3 entries", lines)
	}
	if !hasEntryNamed(lines, 'f') {
		t.Fatalf("ls /a missing f: %v", lines)
	}
	f2.Close(h2)
}

// TestWriteExactlyInodeCapacityStaysInline covers B1.
func TestWriteExactlyInodeCapacityStaysInline(t *testing.T) {
	f := sditest.MountFresh(t, sditest.DefaultSizeB)
	if err := f.Touch("/f"); err != nil {
		t.Fatalf("touch: %s", err)
	}
	h, err := f.Open("/f")
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	payload := bytes.Repeat([]byte("z"), block.MaxBytesPerINode)
	if err := f.Write(h, payload, 0); err != nil {
		t.Fatalf("write exactly inline capacity: %s", err)
	}
	size, err := f.FileSize("/f")
	if err != nil {
		t.Fatalf("filesize: %s", err)
	}
	if size != block.MaxBytesPerINode {
		t.Fatalf("size = %d, want %d", size, block.MaxBytesPerINode)
	}

	if err := f.Write(h, []byte("1"), block.MaxBytesPerINode); err != nil {
		t.Fatalf("write past inline capacity: %s", err)
	}
	size, err = f.FileSize("/f")
	if err != nil {
		t.Fatalf("filesize after growth: %s", err)
	}
	if size != block.MaxBytesPerINode+1 {
		t.Fatalf("size after growth = %d, want %d", size, block.MaxBytesPerINode+1)
	}
	f.Close(h)
}

// TestRenameDescendantRejected covers B3.
func TestRenameDescendantRejected(t *testing.T) {
	f := sditest.MountFresh(t, sditest.DefaultSizeB)
	if err := f.Mkdir("/a"); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := f.Rename("/a", "/a/b"); !errors.Is(err, sdi4fserr.ErrInvalidArgument) {
		t.Fatalf("rename onto descendant = %v, want ErrInvalidArgument", err)
	}
}

// TestRmdirNonEmptyRejected covers B4.
func TestRmdirNonEmptyRejected(t *testing.T) {
	f := sditest.MountFresh(t, sditest.DefaultSizeB)
	if err := f.Mkdir("/a"); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := f.Touch("/a/f"); err != nil {
		t.Fatalf("touch: %s", err)
	}
	if err := f.Rmdir("/a"); !errors.Is(err, sdi4fserr.ErrCapacityExceeded) {
		t.Fatalf("rmdir non-empty = %v, want ErrCapacityExceeded", err)
	}
}

// TestLinkRmKeepsSharedFileAlive covers S3.
func TestLinkRmKeepsSharedFileAlive(t *testing.T) {
	f := sditest.MountFresh(t, sditest.DefaultSizeB)
	if err := f.Touch("/f"); err != nil {
		t.Fatalf("touch: %s", err)
	}
	if err := f.Link("/g", "f"); err != nil {
		t.Fatalf("link: %s", err)
	}
	if err := f.Rm("/f"); err != nil {
		t.Fatalf("rm /f: %s", err)
	}

	lines, err := f.Ls("/")
	if err != nil {
		t.Fatalf("ls /: %s", err)
	}
	if hasEntryNamed(lines, 'f') {
		t.Fatalf("ls / still lists f after rm: %v", lines)
	}
	if !hasEntryNamed(lines, 'g') {
		t.Fatalf("ls / after rm /f missing g: %v", lines)
	}

	if _, err := f.Open("/g"); err != nil {
		t.Fatalf("open /g after rm /f: %s", err)
	}

	if err := f.Rm("/g"); err != nil {
		t.Fatalf("rm /g: %s", err)
	}
	lines, err = f.Ls("/")
	if err != nil {
		t.Fatalf("ls / after rm /g: %s", err)
	}
	if len(lines) != 3 { // header + "." + ".." only, both user entries gone
		t.Fatalf("ls / after removing last link = %v", lines)
	}
}

// TestTruncateThenReadMatchesPrefix covers R2.
func TestTruncateThenReadMatchesPrefix(t *testing.T) {
	f := sditest.MountFresh(t, sditest.DefaultSizeB)
	if err := f.Touch("/f"); err != nil {
		t.Fatalf("touch: %s", err)
	}
	h, err := f.Open("/f")
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	payload := bytes.Repeat([]byte("abcdefgh"), block.MaxBytesPerDataBlock) // forces non-inline
	if err := f.Write(h, payload, 0); err != nil {
		t.Fatalf("write: %s", err)
	}
	k := uint32(len(payload) / 2)
	if err := f.Truncate(h, k); err != nil {
		t.Fatalf("truncate: %s", err)
	}
	got, err := f.Read(h, 0, k)
	if err != nil {
		t.Fatalf("read after truncate: %s", err)
	}
	if !bytes.Equal(got, payload[:k]) {
		t.Fatalf("read after truncate mismatch")
	}
	f.Close(h)
}

// TestRenameAcrossDirectoriesFixesDotDot covers S6.
func TestRenameAcrossDirectoriesFixesDotDot(t *testing.T) {
	f := sditest.MountFresh(t, sditest.DefaultSizeB)
	if err := f.Mkdir("/a"); err != nil {
		t.Fatalf("mkdir /a: %s", err)
	}
	if err := f.Mkdir("/b"); err != nil {
		t.Fatalf("mkdir /b: %s", err)
	}
	if err := f.Mkdir("/a/x"); err != nil {
		t.Fatalf("mkdir /a/x: %s", err)
	}
	if err := f.Rename("/a/x", "/b/x"); err != nil {
		t.Fatalf("rename: %s", err)
	}

	linesA, err := f.Ls("/a")
	if err != nil {
		t.Fatalf("ls /a: %s", err)
	}
	if hasEntryNamed(linesA, 'x') {
		t.Fatalf("/a still lists x after move: %v", linesA)
	}
	linesB, err := f.Ls("/b/x")
	if err != nil {
		t.Fatalf("ls /b/x: %s", err)
	}
	if len(linesB) != 3 {
		t.Fatalf("expected /b/x to list only . and .. after move, got %v", linesB)
	}

	// /b/x's ".." must describe /b's INode: identical lines up to the name.
	rootLines, err := f.Ls("/")
	if err != nil {
		t.Fatalf("ls /: %s", err)
	}
	var bLine, dotDotLine string
	for _, l := range rootLines {
		if strings.HasSuffix(l, " b") {
			bLine = strings.TrimSuffix(l, "b")
		}
	}
	for _, l := range linesB {
		if strings.HasSuffix(l, " ..") {
			dotDotLine = strings.TrimSuffix(l, "..")
		}
	}
	if bLine == "" || dotDotLine != bLine {
		t.Fatalf("/b/x/.. = %q, want the INode listed for /b (%q)", dotDotLine, bLine)
	}
}

// TestUncleanUnmountTriggersRecovery covers S4: closing the device without
// Unmount leaves bmap_valid at 0, and the next Mount must reconstruct it.
func TestUncleanUnmountTriggersRecovery(t *testing.T) {
	dev := sditest.NewFormattedDevice(t, sditest.DefaultSizeB)
	f, err := fs.Mount(dev, config.Config{ForcePseudoClock: true}, nil)
	if err != nil {
		t.Fatalf("mount: %s", err)
	}
	if err := f.Mkdir("/a"); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := f.Mkdir("/a/b"); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := f.Touch("/a/c"); err != nil {
		t.Fatalf("touch: %s", err)
	}
	// No Unmount: bmap_valid stays at 0 on disk, simulating a crash.

	f2, err := fs.Mount(dev, config.Config{ForcePseudoClock: true}, nil)
	if err != nil {
		t.Fatalf("mount after unclean shutdown: %s", err)
	}
	defer f2.Unmount()

	lines, err := f2.Ls("/a")
	if err != nil {
		t.Fatalf("ls /a after recovery: %s", err)
	}
	if len(lines) != 5 { // header + "." + ".." + "b" + "c"
		t.Fatalf("recovery lost entries, ls /a = %v", lines)
	}
	if !hasEntryNamed(lines, 'b') || !hasEntryNamed(lines, 'c') {
		t.Fatalf("recovery lost entries, ls /a = %v", lines)
	}
}

func TestFormatRejectsUndersizedImage(t *testing.T) {
	dev := sditest.NewBlankDevice(t, fs.MinSizeB/2)
	if err := fs.Format(dev, fs.MinSizeB/2, clock.NewPseudo(1)); err == nil {
		t.Fatalf("expected Format to reject an undersized image")
	}
}

// TestGCReclaimsSupersededSlotsAfterWrap covers P5 ("gc returns 0 iff
// usedBlocks == logSize") once the log has actually wrapped at least once.
// fs.MinSizeB gives a log of only 14 slots, so repeatedly flushing the same
// file's inode quickly walks writePtr all the way around it several times
// while only ever keeping two blocks live (root and this file's inode) -
// every other slot gc visits is a superseded copy it must reclaim in place
// rather than step past.
func TestGCReclaimsSupersededSlotsAfterWrap(t *testing.T) {
	dev := sditest.NewFormattedDevice(t, fs.MinSizeB)
	f, err := fs.Mount(dev, config.Config{ForcePseudoClock: true}, nil)
	if err != nil {
		t.Fatalf("mount: %s", err)
	}
	defer f.Unmount()

	if err := f.Touch("/f"); err != nil {
		t.Fatalf("touch: %s", err)
	}
	h, err := f.Open("/f")
	if err != nil {
		t.Fatalf("open: %s", err)
	}

	for i := 0; i < 40; i++ {
		if err := f.Write(h, []byte{byte(i)}, 0); err != nil {
			t.Fatalf("write %d: %s", i, err)
		}
		if err := f.Flush(h); err != nil {
			t.Fatalf("flush %d: %s", i, err)
		}
	}

	if err := f.Close(h); err != nil {
		t.Fatalf("close: %s", err)
	}
	size, err := f.FileSize("/f")
	if err != nil {
		t.Fatalf("filesize: %s", err)
	}
	if size != 1 {
		t.Fatalf("filesize = %d, want 1", size)
	}
}
