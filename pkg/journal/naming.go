package journal

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// File naming: journal_<encoded uniqueId>_<time bucket label>.journal
// The encoded uniqueId never contains '_', so the first '_' after the prefix splits
// owner from label even when the label format itself contains underscores.
const (
	FilePrefix    = "journal_"
	FileExtension = ".journal"
	ArchiveDir    = "archive"
)

func encodeUniqueID(id string) string {
	return strings.ReplaceAll(url.QueryEscape(id), "_", "%5F")
}

func decodeUniqueID(enc string) (string, error) {
	return url.QueryUnescape(enc)
}

// FileName returns the journal file name for an owner and bucket label.
func FileName(uniqueID, label string) string {
	return FilePrefix + encodeUniqueID(uniqueID) + "_" + label + FileExtension
}

// ParseFileName extracts owner and label; ok is false for anything that is not a journal file.
func ParseFileName(name string) (uniqueID, label string, ok bool) {
	if !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileExtension) {
		return "", "", false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileExtension)

	idx := strings.IndexByte(rest, '_')
	if idx <= 0 {
		return "", "", false
	}
	owner, err := decodeUniqueID(rest[:idx])
	if err != nil {
		return "", "", false
	}
	return owner, rest[idx+1:], true
}

// BucketLabel formats the time bucket a record created at t belongs to.
func BucketLabel(t time.Time, layout string, loc *time.Location) string {
	return t.In(loc).Format(layout)
}

func isJournalFile(path string) bool {
	_, _, ok := ParseFileName(filepath.Base(path))
	return ok
}
