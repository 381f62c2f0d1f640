//go:build !linux
// +build !linux

package journal

import "os"

// Cross-process locking is linux-only; elsewhere only the in-process file locks apply.
func lockFile(f *os.File) error {
	return nil
}

func unlockFile(f *os.File) error {
	return nil
}
