package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/downfa11-org/go-journal/pkg/metrics"
	"github.com/downfa11-org/go-journal/pkg/types"
	"github.com/downfa11-org/go-journal/util"
	"golang.org/x/exp/mmap"
	"gopkg.in/tomb.v2"
)

// FileInfo describes one journal file in the group directory.
type FileInfo struct {
	Path    string
	Owner   string
	Label   string
	ModTime time.Time
	Size    int64

	bucket   time.Time
	bucketOK bool
}

// SweepResult summarizes one sweep cycle.
type SweepResult struct {
	Owners      int
	Candidate   string
	Takeover    bool
	FilesSwept  int
	Republished int
	Archived    int
	Purged      int
}

// fileScan is what a single pass over one journal file found.
type fileScan struct {
	size        int64
	live        int
	republished int
	malformed   int
	clean       bool
}

func (s *Store) sweepLoop(t *tomb.Tomb, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				s.log.Error("sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one maintenance cycle:
//
//  1. list journal files and bucket them by owner, noting each owner's newest mtime
//  2. touch every local file (the liveness heartbeat)
//  3. pick the owner after ourselves in sorted order as the candidate
//  4. if the candidate has not heartbeated within republishAfter, sweep its oldest file
//  5. if we own more than one file, sweep our own oldest file as well
//  6. purge archived files older than archiveAfter
//
// Only one candidate is checked per cycle, so noticing that an arbitrary peer died can
// take as many cycles as there are owners.
func (s *Store) Sweep() (SweepResult, error) {
	var res SweepResult
	if !s.IsOpen() {
		return res, s.wrapErr("sweep", "", "", ErrStoreNotOpen)
	}

	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	started := time.Now()
	now := s.clock.Now()
	threshold := now.Add(-s.cfg.RepublishAfter())
	self := s.UniqueID()

	buckets, lastMod, err := s.listBuckets()
	if err != nil {
		err = s.wrapErr("sweep", s.groupDir, "", err)
		metrics.ObserveSweep(s.groupID, time.Since(started), err)
		return res, err
	}

	for _, f := range buckets[self] {
		if err := s.clock.Touch(f.Path, now); err != nil {
			s.log.Warn("heartbeat touch %s: %v", filepath.Base(f.Path), err)
		}
	}

	owners := make([]string, 0, len(buckets)+1)
	for owner := range buckets {
		owners = append(owners, owner)
	}
	if _, ok := buckets[self]; !ok {
		owners = append(owners, self)
	}
	sort.Strings(owners)
	res.Owners = len(owners)

	localIdx := sort.SearchStrings(owners, self)
	candidate := owners[(localIdx+1)%len(owners)]
	res.Candidate = candidate

	var errs []error
	sweptOwn := ""

	if files := buckets[candidate]; len(files) > 0 && !lastMod[candidate].After(threshold) {
		oldest := files[0]
		if candidate != self {
			res.Takeover = true
			metrics.Takeovers.WithLabelValues(s.groupID).Inc()
			s.log.Info("owner %s stalled since %s, sweeping %s",
				candidate, lastMod[candidate].Format(time.RFC3339), filepath.Base(oldest.Path))
		} else {
			sweptOwn = oldest.Path
		}
		if err := s.sweepFile(oldest, now, threshold, &res); err != nil {
			errs = append(errs, err)
		}
	}

	if own := buckets[self]; len(own) > 1 && own[0].Path != sweptOwn {
		if err := s.sweepFile(own[0], now, threshold, &res); err != nil {
			errs = append(errs, err)
		}
	}

	purged, err := s.purgeArchive(now)
	res.Purged = purged
	if err != nil {
		errs = append(errs, err)
	}

	s.publishGauges()
	err = errors.Join(errs...)
	metrics.ObserveSweep(s.groupID, time.Since(started), err)
	s.log.Debug("sweep done: owners=%d candidate=%s takeover=%v swept=%d republished=%d archived=%d purged=%d",
		res.Owners, res.Candidate, res.Takeover, res.FilesSwept, res.Republished, res.Archived, res.Purged)
	return res, err
}

// Files lists the group's journal files, oldest bucket first within each owner.
func (s *Store) Files() ([]FileInfo, error) {
	buckets, _, err := s.listBuckets()
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	for _, files := range buckets {
		out = append(out, files...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return lessBucket(out[i], out[j])
	})
	return out, nil
}

func (s *Store) listBuckets() (map[string][]FileInfo, map[string]time.Time, error) {
	entries, err := os.ReadDir(s.groupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]FileInfo{}, map[string]time.Time{}, nil
		}
		return nil, nil, err
	}

	buckets := make(map[string][]FileInfo)
	lastMod := make(map[string]time.Time)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		owner, label, ok := ParseFileName(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(s.groupDir, entry.Name())

		mod, err := s.clock.ModTime(path)
		if err != nil {
			// raced with an archive move by a peer
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}

		fi := FileInfo{Path: path, Owner: owner, Label: label, ModTime: mod, Size: size}
		if t, err := time.ParseInLocation(s.cfg.FileTimeFormat, label, s.loc); err == nil {
			fi.bucket, fi.bucketOK = t, true
		}
		buckets[owner] = append(buckets[owner], fi)
		if mod.After(lastMod[owner]) {
			lastMod[owner] = mod
		}
	}

	for owner := range buckets {
		files := buckets[owner]
		sort.Slice(files, func(i, j int) bool { return lessBucket(files[i], files[j]) })
	}
	return buckets, lastMod, nil
}

func lessBucket(a, b FileInfo) bool {
	if a.bucketOK && b.bucketOK && !a.bucket.Equal(b.bucket) {
		return a.bucket.Before(b.bucket)
	}
	return a.Label < b.Label
}

// sweepFile republishes expired live records of f and archives f when nothing in it is
// live any more and it is not our current append target.
func (s *Store) sweepFile(f FileInfo, now, threshold time.Time, res *SweepResult) error {
	scan, err := s.scanFile(f.Path, threshold)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return s.wrapErr("sweep", f.Path, "", err)
	}
	res.FilesSwept++
	res.Republished += scan.republished

	s.log.Debug("swept %s: live=%d republished=%d malformed=%d",
		filepath.Base(f.Path), scan.live, scan.republished, scan.malformed)

	if scan.live > 0 || !scan.clean || f.Path == s.CurrentFile(now) {
		return nil
	}

	archived, err := s.archiveFile(f.Path, scan.size, now)
	if err != nil {
		// retried next cycle
		s.log.Warn("archive %s: %v", filepath.Base(f.Path), err)
		return nil
	}
	if archived {
		res.Archived++
	}
	return nil
}

// scanFile walks every record of path. Records whose framing or metadata cannot be
// decoded are skipped; a record that is not marked deleted counts as live even when its
// timestamp or payload fails to decode, so the file is kept for a later attempt.
// A torn or unreadable tail stops the scan and leaves the file unclean.
func (s *Store) scanFile(path string, threshold time.Time) (fileScan, error) {
	scan := fileScan{clean: true}

	r, err := mmap.Open(path)
	if err != nil {
		return scan, err
	}
	defer r.Close()

	size := int64(r.Len())
	scan.size = size
	hdrBuf := make([]byte, HeaderSize)

	for pos := int64(0); pos < size; {
		if size-pos < HeaderSize {
			s.log.Warn("%s: %d trailing bytes at %d, ignoring torn tail", filepath.Base(path), size-pos, pos)
			scan.clean = false
			break
		}
		if _, err := r.ReadAt(hdrBuf, pos); err != nil {
			return scan, fmt.Errorf("read header at %d: %w", pos, err)
		}
		hdr, err := DecodeHeader(hdrBuf)
		if err != nil || int64(hdr.SegmentOffset) > size-pos {
			s.log.Warn("%s: unreadable record at %d, stopping scan: %v", filepath.Base(path), pos, err)
			scan.clean = false
			break
		}

		rec := make([]byte, hdr.SegmentOffset)
		if _, err := r.ReadAt(rec, pos); err != nil {
			return scan, fmt.Errorf("read record at %d: %w", pos, err)
		}
		recPos := pos
		pos += int64(hdr.SegmentOffset)

		_, meta, payload, err := DecodeRecord(rec)
		if err != nil {
			scan.malformed++
			metrics.RecordsMalformed.WithLabelValues(s.groupID).Inc()
			s.log.Warn("%s: skipping malformed record at %d: %v", filepath.Base(path), recPos, err)
			continue
		}
		if meta.Deleted {
			continue
		}
		scan.live++

		ts, err := time.ParseInLocation(s.cfg.EntryTimeFormat, meta.Timestamp, s.loc)
		if err != nil {
			scan.malformed++
			metrics.RecordsMalformed.WithLabelValues(s.groupID).Inc()
			s.log.Warn("%s: record %s has unparseable timestamp %q: %v",
				filepath.Base(path), meta.MessageID, meta.Timestamp, err)
			continue
		}
		if ts.After(threshold) {
			continue
		}

		msg, err := util.DecodePayload(payload)
		if err != nil {
			scan.malformed++
			metrics.RecordsMalformed.WithLabelValues(s.groupID).Inc()
			s.log.Warn("%s: record %s has undecodable payload: %v", filepath.Base(path), meta.MessageID, err)
			continue
		}

		// The location now belongs to this store, whoever wrote the file.
		s.index.Put(meta.MessageID, types.MessageLocation{File: path, Position: recPos})
		if s.enqueue(&types.JournalEntry{
			MessageID: meta.MessageID,
			Timestamp: ts,
			Deleted:   false,
			Message:   msg,
		}) {
			scan.republished++
			metrics.RecordsRepublished.WithLabelValues(s.groupID).Inc()
		}
	}
	return scan, nil
}
