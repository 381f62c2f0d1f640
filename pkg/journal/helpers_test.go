package journal_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/pkg/journal"
	"github.com/downfa11-org/go-journal/pkg/types"
)

var baseTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// fakeClock is a LivenessClock whose notion of "now" and of file mtimes is driven by the
// test. Files it never touched fall back to their real mtime.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	mtimes map[string]time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, mtimes: make(map[string]time.Time)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.mtimes[path]; ok {
		return t, nil
	}
	return info.ModTime(), nil
}

func (c *fakeClock) Touch(path string, t time.Time) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	c.mu.Lock()
	c.mtimes[path] = t
	c.mu.Unlock()
	return nil
}

func testConfig(dir, uniqueID string) *config.Config {
	return &config.Config{
		Location:         dir,
		GroupID:          "orders",
		UniqueID:         uniqueID,
		RepublishAfterMS: 60000,
		ArchiveAfterMS:   -1,
	}
}

func openStore(t *testing.T, cfg *config.Config, clock journal.LivenessClock) *journal.Store {
	t.Helper()
	st, err := journal.NewStore(cfg, clock)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := st.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func textMessage(body string) *types.Message {
	return &types.Message{Body: []byte(body)}
}

func drain(st *journal.Store) []*types.JournalEntry {
	var out []*types.JournalEntry
	for {
		e, ok := st.Read()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

func ids(entries []*types.JournalEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.MessageID)
	}
	return out
}
