package store

import "sync"

// Memory is the default in-process Store.
type Memory struct {
	mu      sync.Mutex
	results []PageResult
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{results: []PageResult{}}
}

// Append adds the result to the end of the log.
func (m *Memory) Append(result PageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results = append(m.results, result)

	return nil
}

// Snapshot returns a copy of all results in insertion order.
func (m *Memory) Snapshot() ([]PageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]PageResult, len(m.results))
	copy(snapshot, m.results)

	return snapshot, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
