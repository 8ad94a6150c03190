package status

import (
	"sort"
	"sync"
)

// MetricMap is a thread-safe registry for metrics of type T
// Registration takes the mutex; callers cache the returned pointer and update it lock-free
type MetricMap[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
}

// NewMetricMap creates an initialized MetricMap
func NewMetricMap[T any]() *MetricMap[T] {
	return &MetricMap[T]{
		items: make(map[string]*T),
	}
}

// Get returns the metric pointer for key, creating it on first use
func (m *MetricMap[T]) Get(key string) *T {
	m.mu.RLock()
	ptr, ok := m.items[key]
	m.mu.RUnlock()
	if ok {
		return ptr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another writer may have won the race
	if ptr, ok := m.items[key]; ok {
		return ptr
	}
	ptr = new(T)
	m.items[key] = ptr
	return ptr
}

// Lookup returns the metric pointer for key without creating it
func (m *MetricMap[T]) Lookup(key string) (*T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ptr, ok := m.items[key]
	return ptr, ok
}

// Keys returns all registered keys, sorted
func (m *MetricMap[T]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Range visits every metric in key order
// The map lock is not held while fn runs so fn may register new keys
func (m *MetricMap[T]) Range(fn func(key string, ptr *T)) {
	for _, k := range m.Keys() {
		ptr, ok := m.Lookup(k)
		if ok {
			fn(k, ptr)
		}
	}
}

// Count returns the number of registered metrics
func (m *MetricMap[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
