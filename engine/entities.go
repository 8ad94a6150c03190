package engine

import "github.com/lixenwraith/dynecs/core"

type entityMeta struct {
	generation uint32
	alive      bool
	location   EntityLocation
}

// entityAllocator hands out entity slots, recycling freed indices with a bumped generation
type entityAllocator struct {
	meta []entityMeta
	free []uint32
	live int
}

func newEntityAllocator(capacity int) entityAllocator {
	return entityAllocator{
		meta: make([]entityMeta, 0, capacity),
		free: make([]uint32, 0, capacity/4),
	}
}

func (ea *entityAllocator) alloc() core.Entity {
	ea.live++
	if n := len(ea.free); n > 0 {
		idx := ea.free[n-1]
		ea.free = ea.free[:n-1]
		ea.meta[idx].alive = true
		return core.NewEntity(idx, ea.meta[idx].generation)
	}
	idx := uint32(len(ea.meta))
	ea.meta = append(ea.meta, entityMeta{alive: true})
	return core.NewEntity(idx, 0)
}

func (ea *entityAllocator) release(e core.Entity) {
	m := &ea.meta[e.Index()]
	m.alive = false
	m.generation++
	m.location = EntityLocation{}
	ea.free = append(ea.free, e.Index())
	ea.live--
}

// location returns where e lives; false for stale or unknown handles
func (ea *entityAllocator) location(e core.Entity) (EntityLocation, bool) {
	idx := e.Index()
	if int(idx) >= len(ea.meta) {
		return EntityLocation{}, false
	}
	m := ea.meta[idx]
	if !m.alive || m.generation != e.Generation() {
		return EntityLocation{}, false
	}
	return m.location, true
}

func (ea *entityAllocator) setLocation(e core.Entity, loc EntityLocation) {
	ea.meta[e.Index()].location = loc
}
