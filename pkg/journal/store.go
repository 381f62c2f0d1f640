package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/pkg/metrics"
	"github.com/downfa11-org/go-journal/pkg/types"
	"github.com/downfa11-org/go-journal/util"
	"gopkg.in/tomb.v2"
)

const appendAttempts = 3

// Store is an append-only journal of pending messages for one owner (uniqueId) inside
// a group directory shared with cooperating peers.
//
// Appends are not fsynced unless SyncWrites is set: a crash between write and the OS
// flushing its buffers can lose the record.
type Store struct {
	cfg   *config.Config
	clock LivenessClock

	groupID     string
	groupDir    string
	archiveDir  string
	loc         *time.Location
	compression byte

	mu       sync.Mutex // lifecycle: uniqueID, open, sweeper
	uniqueID string
	open     bool
	sweeper  *tomb.Tomb
	log      *util.Logger

	index *Index

	deliverable chan *types.JournalEntry
	queuedMu    sync.Mutex
	queued      map[string]struct{}

	locksMu   sync.Mutex
	fileLocks map[string]*sync.Mutex

	sweepMu sync.Mutex
}

// Stats is a point-in-time view of a store.
type Stats struct {
	GroupID     string
	UniqueID    string
	Open        bool
	CurrentFile string
	Indexed     int
	Deliverable int
	LockedFiles int
}

// NewStore validates cfg and prepares a store. Nothing touches the disk until Open.
// A nil clock uses wall time and real file mtimes.
func NewStore(cfg *config.Config, clock LivenessClock) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}
	compression, err := util.CompressionID(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = FileClock{}
	}

	groupDir := filepath.Join(cfg.Location, cfg.GroupID)
	s := &Store{
		cfg:         cfg,
		clock:       clock,
		groupID:     cfg.GroupID,
		groupDir:    groupDir,
		archiveDir:  filepath.Join(groupDir, ArchiveDir),
		loc:         loc,
		compression: compression,
		uniqueID:    cfg.UniqueID,
		index:       NewIndex(),
		deliverable: make(chan *types.JournalEntry, cfg.DeliverableBuffer),
		queued:      make(map[string]struct{}),
		fileLocks:   make(map[string]*sync.Mutex),
	}
	s.log = util.NewLogger("journal[%s/%s]", s.groupID, s.uniqueID)
	return s, nil
}

// Open creates the group and archive directories, settles the uniqueId and starts the
// sweep worker when a sweep period is configured.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}
	if s.uniqueID == "" {
		s.uniqueID = util.ProcessIdentity()
		s.log = util.NewLogger("journal[%s/%s]", s.groupID, s.uniqueID)
	}

	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return &StoreError{Op: "open", Group: s.groupID, Unique: s.uniqueID, File: s.groupDir, Err: err}
	}

	s.open = true
	if period := s.cfg.SweepPeriod(); period > 0 {
		t := &tomb.Tomb{}
		t.Go(func() error {
			s.sweepLoop(t, period)
			return nil
		})
		s.sweeper = t
	}

	s.log.Info("opened at %s (sweep=%s republishAfter=%s archiveAfter=%s)",
		s.groupDir, s.cfg.SweepPeriod(), s.cfg.RepublishAfter(), s.cfg.ArchiveAfter())
	return nil
}

// Close stops the sweep worker and waits up to the configured close timeout for its
// current cycle to finish. A timeout is logged, not returned.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = false
	t := s.sweeper
	s.sweeper = nil
	s.mu.Unlock()

	if t != nil {
		t.Kill(nil)
		timer := time.NewTimer(s.cfg.CloseTimeout())
		defer timer.Stop()
		select {
		case <-t.Dead():
		case <-timer.C:
			s.log.Error("sweep worker did not stop within %s", s.cfg.CloseTimeout())
		}
	}

	s.log.Info("closed")
	return nil
}

// Reset removes the whole group directory tree along with in-memory state. Callers
// must make sure no other process has the group open.
func (s *Store) Reset() error {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	if err := os.RemoveAll(s.groupDir); err != nil {
		return s.wrapErr("reset", s.groupDir, "", err)
	}
	s.index.Reset()
	s.drainDeliverable()

	if s.IsOpen() {
		if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
			return s.wrapErr("reset", s.archiveDir, "", err)
		}
	}
	s.log.Warn("reset removed %s", s.groupDir)
	s.publishGauges()
	return nil
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Store) UniqueID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniqueID
}

func (s *Store) GroupID() string {
	return s.groupID
}

func (s *Store) GroupDir() string {
	return s.groupDir
}

func (s *Store) ArchiveDir() string {
	return s.archiveDir
}

// CurrentFile is the path new records go to at time t.
func (s *Store) CurrentFile(t time.Time) string {
	label := BucketLabel(t, s.cfg.FileTimeFormat, s.loc)
	return filepath.Join(s.groupDir, FileName(s.UniqueID(), label))
}

// Create appends a record for messageID to the owner's current file and indexes it.
// The entry does not show up in Read until a sweep finds it expired and undeleted.
func (s *Store) Create(messageID string, msg *types.Message) error {
	if messageID == "" {
		return ErrEmptyMessageID
	}
	if !s.IsOpen() {
		return s.wrapErr("create", "", messageID, ErrStoreNotOpen)
	}

	now := s.clock.Now()
	payload, err := util.EncodePayload(msg, s.compression)
	if err != nil {
		return s.wrapErr("create", "", messageID, err)
	}
	rec, err := EncodeRecord(EntryMetadata{
		Timestamp: now.In(s.loc).Format(s.cfg.EntryTimeFormat),
		MessageID: messageID,
	}, payload)
	if err != nil {
		return s.wrapErr("create", "", messageID, err)
	}

	path := s.CurrentFile(now)
	pos, err := s.appendRecord(path, rec)
	if err != nil {
		return s.wrapErr("create", path, messageID, err)
	}
	if err := s.clock.Touch(path, now); err != nil {
		s.log.Debug("touch %s after append: %v", path, err)
	}

	s.index.Put(messageID, types.MessageLocation{File: path, Position: pos})
	metrics.RecordsCreated.WithLabelValues(s.groupID).Inc()
	metrics.IndexedLocations.WithLabelValues(s.groupID).Set(float64(s.index.Len()))
	s.log.Debug("created %s at %s:%d", messageID, filepath.Base(path), pos)
	return nil
}

// appendRecord writes rec at the end of path and returns the record's start offset,
// derived from the file size after the write.
func (s *Store) appendRecord(path string, rec []byte) (int64, error) {
	unlock := s.lockPath(path)
	defer unlock()

	for attempt := 0; attempt < appendAttempts; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}

		pos, retry, err := s.appendLocked(f, path, rec)
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if retry {
			continue
		}
		return pos, err
	}
	return 0, fmt.Errorf("file kept moving while appending to %s", path)
}

func (s *Store) appendLocked(f *os.File, path string, rec []byte) (pos int64, retry bool, err error) {
	if s.cfg.LockFiles() {
		if err := lockFile(f); err != nil {
			return 0, false, fmt.Errorf("lock: %w", err)
		}
		defer func() {
			if uerr := unlockFile(f); uerr != nil {
				s.log.Warn("unlock %s: %v", path, uerr)
			}
		}()
	}

	before, err := f.Stat()
	if err != nil {
		return 0, false, err
	}
	// A peer may have archived the file between our open and our lock.
	if cur, err := os.Stat(path); err != nil || !os.SameFile(before, cur) {
		return 0, true, nil
	}

	if _, err := f.Write(rec); err != nil {
		if terr := f.Truncate(before.Size()); terr != nil {
			s.log.Error("truncate torn append in %s: %v", path, terr)
		}
		return 0, false, err
	}
	if s.cfg.SyncWrites {
		if err := f.Sync(); err != nil {
			return 0, false, fmt.Errorf("sync: %w", err)
		}
	}

	after, err := f.Stat()
	if err != nil {
		return 0, false, err
	}
	return after.Size() - int64(len(rec)), false, nil
}

// Delete marks messageID deleted in place. It returns false for unknown or already
// deleted ids; duplicate acknowledgements are expected under at-least-once delivery.
// An id mismatch at the indexed position means the index is corrupt and is an error.
func (s *Store) Delete(messageID string) (bool, error) {
	if !s.IsOpen() {
		return false, s.wrapErr("delete", "", messageID, ErrStoreNotOpen)
	}

	loc, ok := s.index.Get(messageID)
	if !ok {
		return false, nil
	}

	deleted, err := s.markDeleted(loc, messageID)
	if err != nil {
		if errors.Is(err, ErrIndexCorrupted) {
			s.index.Remove(messageID, loc)
			s.log.Error("index corrupted for %s at %s:%d", messageID, loc.File, loc.Position)
		}
		return false, s.wrapErr("delete", loc.File, messageID, err)
	}

	s.index.Remove(messageID, loc)
	metrics.IndexedLocations.WithLabelValues(s.groupID).Set(float64(s.index.Len()))
	if deleted {
		metrics.RecordsDeleted.WithLabelValues(s.groupID).Inc()
		s.log.Debug("deleted %s at %s:%d", messageID, filepath.Base(loc.File), loc.Position)
	}
	return deleted, nil
}

func (s *Store) markDeleted(loc types.MessageLocation, messageID string) (bool, error) {
	unlock := s.lockPath(loc.File)
	defer unlock()

	f, err := os.OpenFile(loc.File, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			// archived or purged underneath us: nothing left to delete
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
				s.log.Warn("unlock %s: %v", loc.File, uerr)
			}
		}()
	}

	hdrBuf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(hdrBuf, loc.Position); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, fmt.Errorf("%w: no record at offset %d", ErrIndexCorrupted, loc.Position)
		}
		return false, err
	}
	hdr, err := DecodeHeader(hdrBuf)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrIndexCorrupted, err)
	}

	metaBuf := make([]byte, int(hdr.MessageOffset)-HeaderSize)
	if _, err := f.ReadAt(metaBuf, loc.Position+HeaderSize); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, fmt.Errorf("%w: truncated metadata at offset %d", ErrIndexCorrupted, loc.Position)
		}
		return false, err
	}
	meta, err := DecodeMetadata(metaBuf)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrIndexCorrupted, err)
	}
	if meta.MessageID != messageID {
		return false, fmt.Errorf("%w: expected %q, found %q", ErrIndexCorrupted, messageID, meta.MessageID)
	}
	if meta.Deleted {
		return false, nil
	}

	meta.Deleted = true
	updated, err := EncodeMetadata(meta)
	if err != nil {
		return false, err
	}
	if len(updated) != len(metaBuf) {
		return false, fmt.Errorf("%w: metadata length changed", ErrIndexCorrupted)
	}
	if _, err := f.WriteAt(updated, loc.Position+HeaderSize); err != nil {
		return false, err
	}
	if s.cfg.SyncWrites {
		if err := f.Sync(); err != nil {
			return false, fmt.Errorf("sync: %w", err)
		}
	}
	return true, nil
}

// Read pops the next republished entry without blocking.
func (s *Store) Read() (*types.JournalEntry, bool) {
	select {
	case entry := <-s.deliverable:
		s.queuedMu.Lock()
		delete(s.queued, entry.MessageID)
		s.queuedMu.Unlock()
		metrics.DeliverableQueueSize.WithLabelValues(s.groupID).Set(float64(len(s.deliverable)))
		return entry, true
	default:
		return nil, false
	}
}

// enqueue hands entry to Read. An id already waiting in the queue is not queued twice;
// a full queue drops the entry, which stays undeleted on disk for the next sweep.
func (s *Store) enqueue(entry *types.JournalEntry) bool {
	s.queuedMu.Lock()
	defer s.queuedMu.Unlock()

	if _, dup := s.queued[entry.MessageID]; dup {
		return false
	}
	select {
	case s.deliverable <- entry:
		s.queued[entry.MessageID] = struct{}{}
		return true
	default:
		return false
	}
}

func (s *Store) drainDeliverable() {
	s.queuedMu.Lock()
	defer s.queuedMu.Unlock()
	for {
		select {
		case <-s.deliverable:
		default:
			s.queued = make(map[string]struct{})
			return
		}
	}
}

// lockPath serializes appends, in-place deletes and archive moves on one file within
// this process.
func (s *Store) lockPath(path string) func() {
	s.locksMu.Lock()
	m, ok := s.fileLocks[path]
	if !ok {
		m = &sync.Mutex{}
		s.fileLocks[path] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

// forgetPath drops the in-process lock of a file that no longer lives in the group
// directory. The caller holds that lock.
func (s *Store) forgetPath(path string) {
	s.locksMu.Lock()
	delete(s.fileLocks, path)
	s.locksMu.Unlock()
}

func (s *Store) Stats() Stats {
	return Stats{
		GroupID:     s.groupID,
		UniqueID:    s.UniqueID(),
		Open:        s.IsOpen(),
		CurrentFile: s.CurrentFile(s.clock.Now()),
		Indexed:     s.index.Len(),
		Deliverable: len(s.deliverable),
		LockedFiles: s.lockedFiles(),
	}
}

func (s *Store) lockedFiles() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.fileLocks)
}

func (s *Store) publishGauges() {
	metrics.IndexedLocations.WithLabelValues(s.groupID).Set(float64(s.index.Len()))
	metrics.DeliverableQueueSize.WithLabelValues(s.groupID).Set(float64(len(s.deliverable)))
}
