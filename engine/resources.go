package engine

import (
	"reflect"
	"sort"
	"sync"
)

// ResourceStore is a thread-safe container for world-global singletons
// Resources are keyed by their dynamic type and live outside any archetype
type ResourceStore struct {
	mu        sync.RWMutex
	resources map[reflect.Type]any
}

// NewResourceStore creates a new empty resource store
func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		resources: make(map[reflect.Type]any),
	}
}

// AddResource registers or replaces a resource
// Pointer types are recommended so callers can mutate in place
func AddResource[T any](rs *ResourceStore, resource T) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.resources[reflect.TypeOf(resource)] = resource
}

// GetResource retrieves a resource of type T
// Returns the zero value of T and false if not found
func GetResource[T any](rs *ResourceStore) (T, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	var target T
	val, ok := rs.resources[reflect.TypeFor[T]()]
	if !ok {
		return target, false
	}
	return val.(T), true
}

// MustGetResource retrieves a resource or panics if missing
func MustGetResource[T any](rs *ResourceStore) T {
	res, ok := GetResource[T](rs)
	if !ok {
		panic("required resource not found: " + reflect.TypeFor[T]().String())
	}
	return res
}

// RemoveResource deletes the resource of type T
func RemoveResource[T any](rs *ResourceStore) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	t := reflect.TypeFor[T]()
	_, ok := rs.resources[t]
	delete(rs.resources, t)
	return ok
}

// ByName returns the resource whose type string equals name
func (rs *ResourceStore) ByName(name string) (any, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	for t, v := range rs.resources {
		if t.String() == name {
			return v, true
		}
	}
	return nil, false
}

// Names returns the type names of all resources, sorted
func (rs *ResourceStore) Names() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	names := make([]string, 0, len(rs.resources))
	for t := range rs.resources {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return names
}

// Len returns the number of resources
func (rs *ResourceStore) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.resources)
}
