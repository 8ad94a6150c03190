package engine

import (
	"reflect"

	"github.com/lixenwraith/dynecs/core"
)

// SparseSet stores one sparse component for any entity regardless of archetype
// Dense arrays keep values, ticks and owners packed for iteration; sparse map resolves entity to dense index
type SparseSet struct {
	id       core.ComponentID
	typ      reflect.Type
	dense    reflect.Value // []T
	ticks    []core.ComponentTicks
	entities []core.Entity
	sparse   map[core.Entity]int
}

func newSparseSet(id core.ComponentID, t reflect.Type, capacity int) *SparseSet {
	return &SparseSet{
		id:       id,
		typ:      t,
		dense:    reflect.MakeSlice(reflect.SliceOf(t), 0, capacity),
		ticks:    make([]core.ComponentTicks, 0, capacity),
		entities: make([]core.Entity, 0, capacity),
		sparse:   make(map[core.Entity]int, capacity),
	}
}

// ComponentID returns the component this set stores
func (s *SparseSet) ComponentID() core.ComponentID {
	return s.id
}

// Len returns the number of entities with this component
func (s *SparseSet) Len() int {
	return len(s.entities)
}

// Contains checks if entity has this component
func (s *SparseSet) Contains(e core.Entity) bool {
	_, ok := s.sparse[e]
	return ok
}

// Get returns the addressable value for e
func (s *SparseSet) Get(e core.Entity) (reflect.Value, bool) {
	idx, ok := s.sparse[e]
	if !ok {
		return reflect.Value{}, false
	}
	return s.dense.Index(idx), true
}

// GetWithTicks returns the addressable value and a pointer to its ticks
func (s *SparseSet) GetWithTicks(e core.Entity) (reflect.Value, *core.ComponentTicks, bool) {
	idx, ok := s.sparse[e]
	if !ok {
		return reflect.Value{}, nil, false
	}
	return s.dense.Index(idx), &s.ticks[idx], true
}

// Ticks returns the change ticks for e
func (s *SparseSet) Ticks(e core.Entity) (core.ComponentTicks, bool) {
	idx, ok := s.sparse[e]
	if !ok {
		return core.ComponentTicks{}, false
	}
	return s.ticks[idx], true
}

// Entities returns all entities that have this component, in dense order
func (s *SparseSet) Entities() []core.Entity {
	result := make([]core.Entity, len(s.entities))
	copy(result, s.entities)
	return result
}

// insert adds or overwrites the value for e
// A fresh insert stamps added and changed; an overwrite only bumps changed
func (s *SparseSet) insert(e core.Entity, v reflect.Value, tick core.Tick) {
	if idx, exists := s.sparse[e]; exists {
		s.dense.Index(idx).Set(v)
		s.ticks[idx].SetChanged(tick)
		return
	}
	s.sparse[e] = len(s.entities)
	s.entities = append(s.entities, e)
	s.dense = reflect.Append(s.dense, v)
	s.ticks = append(s.ticks, core.NewComponentTicks(tick))
}

// remove deletes e, swapping the last dense entry into its slot
func (s *SparseSet) remove(e core.Entity) bool {
	idx, exists := s.sparse[e]
	if !exists {
		return false
	}
	delete(s.sparse, e)

	last := len(s.entities) - 1
	if idx != last {
		moved := s.entities[last]
		s.entities[idx] = moved
		s.dense.Index(idx).Set(s.dense.Index(last))
		s.ticks[idx] = s.ticks[last]
		s.sparse[moved] = idx
	}
	s.dense.Index(last).SetZero()
	s.dense = s.dense.Slice(0, last)
	s.ticks = s.ticks[:last]
	s.entities = s.entities[:last]
	return true
}

func (s *SparseSet) clampTicks(current core.Tick) {
	for i := range s.ticks {
		s.ticks[i].Clamp(current)
	}
}
