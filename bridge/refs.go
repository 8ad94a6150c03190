package bridge

import (
	"reflect"
	"slices"

	"github.com/lixenwraith/dynecs/core"
)

type refKind uint8

const (
	refComponent refKind = iota
	refResource
	// refValue owns a detached value, e.g. a method result
	refValue
)

// valueRef addresses a value by location, never by storage pointer
// It is resolved against the world on every access so moves and despawns are observed
type valueRef struct {
	kind      refKind
	entity    core.Entity
	component core.ComponentID
	resource  string
	owned     reflect.Value // pointer, refValue only
	path      []string
}

func (r valueRef) child(key string) valueRef {
	c := r
	c.path = append(slices.Clone(r.path), key)
	return c
}

type refSlot struct {
	generation uint32
	used       bool
	ref        valueRef
}

// refTable is a generational slot map; a freed key never resolves again
type refTable struct {
	slots []refSlot
	free  []uint32
}

func (t *refTable) insert(r valueRef) ValueRef {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, refSlot{generation: 1})
	}
	s := &t.slots[idx]
	s.used = true
	s.ref = r
	return ValueRef{Key: uint64(s.generation)<<32 | uint64(idx)}
}

func (t *refTable) get(k ValueRef) (valueRef, bool) {
	idx, gen := uint32(k.Key), uint32(k.Key>>32)
	if int(idx) >= len(t.slots) {
		return valueRef{}, false
	}
	s := t.slots[idx]
	if !s.used || s.generation != gen {
		return valueRef{}, false
	}
	return s.ref, true
}

func (t *refTable) remove(k ValueRef) bool {
	if _, ok := t.get(k); !ok {
		return false
	}
	idx := uint32(k.Key)
	s := &t.slots[idx]
	s.used = false
	s.generation++
	s.ref = valueRef{}
	t.free = append(t.free, idx)
	return true
}

// reset frees every slot; generations move on so keys handed out earlier stay stale
func (t *refTable) reset() int {
	freed := t.len()
	t.free = t.free[:0]
	for i := range t.slots {
		s := &t.slots[i]
		if s.used {
			s.used = false
			s.generation++
			s.ref = valueRef{}
		}
		t.free = append(t.free, uint32(i))
	}
	return freed
}

func (t *refTable) len() int {
	return len(t.slots) - len(t.free)
}
