package journal

import (
	"fmt"
	"sync"

	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/util"
)

// Manager owns the open stores of one process, keyed by group. It replaces any
// process-wide registry: two managers never see each other's stores.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store
	cfg    *config.Config
	clock  LivenessClock
}

func NewManager(cfg *config.Config, clock LivenessClock) *Manager {
	return &Manager{
		stores: make(map[string]*Store),
		cfg:    cfg,
		clock:  clock,
	}
}

// GetStore returns the open store for groupID, creating and opening it if missing.
// Every store shares the manager's config except for the group id.
func (m *Manager) GetStore(groupID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.stores[groupID]; ok {
		return st, nil
	}

	cfg := *m.cfg
	cfg.GroupID = groupID
	st, err := NewStore(&cfg, m.clock)
	if err != nil {
		return nil, fmt.Errorf("store for group %s: %w", groupID, err)
	}
	if err := st.Open(); err != nil {
		return nil, err
	}

	m.stores[groupID] = st
	return st, nil
}

func (m *Manager) Groups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.stores))
	for g := range m.stores {
		out = append(out, g)
	}
	return out
}

// CloseAll closes and forgets every store.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, st := range m.stores {
		util.Debug("Closing journal store for %s", name)
		if err := st.Close(); err != nil {
			util.Error("close store %s: %v", name, err)
		}
		delete(m.stores, name)
	}
}
