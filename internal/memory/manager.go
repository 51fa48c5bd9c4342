package memory

import "sync"

// Snapshot is a point-in-time copy of both memory tiers.
type Snapshot struct {
	Short map[string]string `json:"short"`
	Long  map[string]string `json:"long"`
}

// Manager is a session-scoped key/value store with short-term and long-term
// tiers. Last write wins per key; there is no TTL, no eviction and no
// persistence across process restarts. It is created at session start,
// injected into whatever needs it, and torn down with the session.
type Manager struct {
	mu        sync.RWMutex
	shortTerm map[string]string
	longTerm  map[string]string
}

// NewManager creates an empty memory manager.
func NewManager() *Manager {
	return &Manager{
		shortTerm: make(map[string]string),
		longTerm:  make(map[string]string),
	}
}

// StoreShort writes a key into short-term memory.
func (m *Manager) StoreShort(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shortTerm[key] = value
}

// StoreLong writes a key into long-term memory.
func (m *Manager) StoreLong(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.longTerm[key] = value
}

// Context returns a copy of both tiers. Mutating the snapshot does not affect
// the store.
func (m *Manager) Context() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Short: make(map[string]string, len(m.shortTerm)),
		Long:  make(map[string]string, len(m.longTerm)),
	}
	for k, v := range m.shortTerm {
		snap.Short[k] = v
	}
	for k, v := range m.longTerm {
		snap.Long[k] = v
	}
	return snap
}
