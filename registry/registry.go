package registry

import (
	"reflect"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/core"
)

var (
	// ErrStorageMismatch is returned when a type is re-registered with a different storage kind
	ErrStorageMismatch = errors.New("registry: component already registered with different storage")
	// ErrInvalidType is returned for nil or non-addressable-friendly types
	ErrInvalidType = errors.New("registry: invalid component type")
)

// ComponentInfo describes one registered component type
type ComponentInfo struct {
	ID      core.ComponentID
	Name    string
	Type    reflect.Type
	Size    uintptr
	Storage core.StorageKind
}

// Components assigns stable ids to component types and records their layout
// Safe for concurrent use; ids are never reused
type Components struct {
	mu     sync.RWMutex
	infos  []ComponentInfo
	byType map[reflect.Type]core.ComponentID
	byName map[string]core.ComponentID
}

// New creates an empty registry
func New() *Components {
	return &Components{
		infos:  make([]ComponentInfo, 0, 32),
		byType: make(map[reflect.Type]core.ComponentID),
		byName: make(map[string]core.ComponentID),
	}
}

// Register adds a component type, returning its id
// Registering the same type again with the same storage returns the existing id
func (c *Components) Register(t reflect.Type, storage core.StorageKind) (core.ComponentID, error) {
	if t == nil {
		return 0, ErrInvalidType
	}
	if t.Kind() == reflect.Interface {
		return 0, errors.Wrapf(ErrInvalidType, "%s is an interface", t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byType[t]; ok {
		if c.infos[id].Storage != storage {
			return 0, errors.Wrapf(ErrStorageMismatch, "%s registered as %s, requested %s",
				t, c.infos[id].Storage, storage)
		}
		return id, nil
	}

	id := core.ComponentID(len(c.infos))
	info := ComponentInfo{
		ID:      id,
		Name:    t.String(),
		Type:    t,
		Size:    t.Size(),
		Storage: storage,
	}
	c.infos = append(c.infos, info)
	c.byType[t] = id
	c.byName[info.Name] = id
	return id, nil
}

// Register is the typed form of Components.Register
func Register[T any](c *Components, storage core.StorageKind) (core.ComponentID, error) {
	return c.Register(reflect.TypeFor[T](), storage)
}

// MustRegister panics on registration failure, for static setup code
func MustRegister[T any](c *Components, storage core.StorageKind) core.ComponentID {
	id, err := Register[T](c, storage)
	if err != nil {
		panic(err)
	}
	return id
}

// Info returns the description of a registered id
func (c *Components) Info(id core.ComponentID) (ComponentInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.infos) {
		return ComponentInfo{}, false
	}
	return c.infos[id], true
}

// IDOf returns the id assigned to a type
func (c *Components) IDOf(t reflect.Type) (core.ComponentID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byType[t]
	return id, ok
}

// IDFor is the typed form of IDOf
func IDFor[T any](c *Components) (core.ComponentID, bool) {
	return c.IDOf(reflect.TypeFor[T]())
}

// Lookup resolves a component by its type name
func (c *Components) Lookup(name string) (core.ComponentID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	return id, ok
}

// All returns every registered component in id order
func (c *Components) All() []ComponentInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]ComponentInfo, len(c.infos))
	copy(result, c.infos)
	return result
}

// Names returns all registered names sorted alphabetically
func (c *Components) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered components
func (c *Components) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.infos)
}
