package databag

import "sync"

// Memory is an in-memory Bag, used for per-attempt data.
type Memory struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewMemory creates an empty in-memory bag.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]interface{})}
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Set stores value under key.
func (m *Memory) Set(key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete removes key.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns all keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.data)
}
