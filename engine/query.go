package engine

import "github.com/lixenwraith/dynecs/core"

// QueryBuilder answers static presence queries by scanning archetype membership
// It neither fetches values nor tracks changes; the query package covers those
type QueryBuilder struct {
	world    *World
	with     []core.ComponentID
	without  []core.ComponentID
	executed bool
	results  []core.Entity
}

// Query creates a new QueryBuilder
//
// Example:
//
//	entities := world.Query().
//	    With(posID).
//	    Without(deadID).
//	    Execute()
func (w *World) Query() *QueryBuilder {
	return &QueryBuilder{
		world:   w,
		with:    make([]core.ComponentID, 0, 4),
		without: make([]core.ComponentID, 0, 2),
	}
}

// With requires id to be present
// Panics if called after Execute()
func (qb *QueryBuilder) With(id core.ComponentID) *QueryBuilder {
	qb.mustBeOpen()
	qb.with = append(qb.with, id)
	return qb
}

// Without requires id to be absent
// Panics if called after Execute()
func (qb *QueryBuilder) Without(id core.ComponentID) *QueryBuilder {
	qb.mustBeOpen()
	qb.without = append(qb.without, id)
	return qb
}

func (qb *QueryBuilder) mustBeOpen() {
	if qb.executed {
		panic("query already executed - cannot modify after Execute()")
	}
}

// Execute returns matching entities in archetype creation order
// Calling Execute() multiple times returns the cached result
func (qb *QueryBuilder) Execute() []core.Entity {
	if qb.executed {
		return qb.results
	}
	qb.executed = true

	qb.world.mu.RLock()
	defer qb.world.mu.RUnlock()

	qb.results = make([]core.Entity, 0)
	for _, a := range qb.world.archetypes.archetypes {
		if a.Len() == 0 || !qb.matches(a) {
			continue
		}
		qb.results = append(qb.results, a.entities...)
	}
	return qb.results
}

func (qb *QueryBuilder) matches(a *Archetype) bool {
	for _, id := range qb.with {
		if !a.Contains(id) {
			return false
		}
	}
	for _, id := range qb.without {
		if a.Contains(id) {
			return false
		}
	}
	return true
}
