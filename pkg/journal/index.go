package journal

import (
	"sync"

	"github.com/downfa11-org/go-journal/pkg/types"
)

// Index maps message ids to record locations. It lives in memory only and is rebuilt
// by sweeps as files are scanned.
type Index struct {
	mu        sync.RWMutex
	locations map[string]types.MessageLocation
}

func NewIndex() *Index {
	return &Index{locations: make(map[string]types.MessageLocation)}
}

func (ix *Index) Put(messageID string, loc types.MessageLocation) {
	ix.mu.Lock()
	ix.locations[messageID] = loc
	ix.mu.Unlock()
}

func (ix *Index) Get(messageID string) (types.MessageLocation, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	loc, ok := ix.locations[messageID]
	return loc, ok
}

// Remove drops messageID only if it still points at loc, so a concurrent re-index by a
// sweep is not undone by a stale delete.
func (ix *Index) Remove(messageID string, loc types.MessageLocation) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if cur, ok := ix.locations[messageID]; ok && cur == loc {
		delete(ix.locations, messageID)
		return true
	}
	return false
}

// RemoveFile drops every location inside file and returns how many were removed.
func (ix *Index) RemoveFile(file string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	n := 0
	for id, loc := range ix.locations {
		if loc.File == file {
			delete(ix.locations, id)
			n++
		}
	}
	return n
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.locations)
}

func (ix *Index) Reset() {
	ix.mu.Lock()
	ix.locations = make(map[string]types.MessageLocation)
	ix.mu.Unlock()
}
