//go:build linux
// +build linux

package journal

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an advisory exclusive lock so peers sharing the directory do not
// interleave an append with an in-place delete or an archive rename.
func lockFile(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
