package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/downfa11-org/go-journal/pkg/metrics"
)

// archiveFile moves a fully deleted journal file into the archive directory. The move is
// skipped when the file grew after it was scanned: somebody appended in between.
func (s *Store) archiveFile(path string, scannedSize int64, now time.Time) (bool, error) {
	unlock := s.lockPath(path)
	defer unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if s.cfg.LockFiles() {
		if err := lockFile(f); err != nil {
			return false, fmt.Errorf("lock: %w", err)
		}
		defer func() {
			if uerr := unlockFile(f); uerr != nil {
				s.log.Warn("unlock %s: %v", path, uerr)
			}
		}()
	}

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() != scannedSize {
		s.log.Debug("%s changed since scan (%d -> %d bytes), archive deferred",
			filepath.Base(path), scannedSize, info.Size())
		return false, nil
	}

	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return false, err
	}
	dst := filepath.Join(s.archiveDir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		return false, err
	}
	s.forgetPath(path)

	// archive age counts from the move, not from the last heartbeat
	if err := s.clock.Touch(dst, now); err != nil {
		s.log.Warn("touch archived %s: %v", filepath.Base(dst), err)
	}
	if n := s.index.RemoveFile(path); n > 0 {
		s.log.Warn("dropped %d stale index entries for archived %s", n, filepath.Base(path))
	}

	metrics.FilesArchived.WithLabelValues(s.groupID).Inc()
	s.log.Info("archived %s", filepath.Base(path))
	return true, nil
}

// purgeArchive permanently deletes archived files older than archiveAfter. A negative
// archiveAfter keeps archives forever.
func (s *Store) purgeArchive(now time.Time) (int, error) {
	archiveAfter := s.cfg.ArchiveAfter()
	if archiveAfter < 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, s.wrapErr("purge", s.archiveDir, "", err)
	}

	cutoff := now.Add(-archiveAfter)
	purged := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !isJournalFile(entry.Name()) {
			continue
		}
		path := filepath.Join(s.archiveDir, entry.Name())

		mod, err := s.clock.ModTime(path)
		if err != nil {
			continue
		}
		if mod.After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, s.wrapErr("purge", path, "", err))
			continue
		}
		purged++
		metrics.FilesPurged.WithLabelValues(s.groupID).Inc()
		s.log.Info("purged archived %s", entry.Name())
	}
	return purged, errors.Join(errs...)
}
