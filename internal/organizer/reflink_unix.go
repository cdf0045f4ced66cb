// file: internal/organizer/reflink_unix.go
// version: 1.1.0
// guid: 6f7a8b9c-0d1e-2f3a-4b5c-6d7e8f9a0b1c

//go:build linux

package organizer

import (
	"fmt"
	"os"
	"syscall"
)

// ficlone is the Linux FICLONE ioctl request.
const ficlone = 0x40049409

// reflinkFile clones src into dst with FICLONE. Filesystems without
// copy-on-write support return an error so callers can fall back.
func reflinkFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, dstFile.Fd(), ficlone, srcFile.Fd())
	if errno != 0 {
		_ = os.Remove(dst)
		return fmt.Errorf("reflink not supported on this filesystem (errno: %v)", errno)
	}
	return nil
}
