package journal

import (
	"os"
	"time"
)

// LivenessClock supplies "now" and file modification times. File mtime is the
// heartbeat peers use to decide whether an owner has stalled, so tests swap in a
// synthetic clock instead of racing real timestamps.
//
// Liveness is only as good as mtime granularity and clock skew between hosts that
// share the directory; takeover decisions are best-effort, not linearizable.
type LivenessClock interface {
	Now() time.Time
	ModTime(path string) (time.Time, error)
	Touch(path string, t time.Time) error
}

// FileClock uses wall time and the filesystem's own mtimes.
type FileClock struct{}

func (FileClock) Now() time.Time {
	return time.Now()
}

func (FileClock) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (FileClock) Touch(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}
