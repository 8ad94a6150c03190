package engine

import (
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/lixenwraith/dynecs/core"
)

// ArchetypeID indexes Archetypes; archetype 0 is the empty composition
type ArchetypeID uint32

// ArchetypeGeneration is the number of archetypes that existed at some point
// Archetypes are append-only so ids in [old, new) are exactly the ones created in between
type ArchetypeGeneration uint32

// EntityLocation places a live entity inside an archetype
type EntityLocation struct {
	Archetype ArchetypeID
	Index     int
}

// Archetype groups every entity with one exact component set
// Membership never changes after creation
type Archetype struct {
	id               ArchetypeID
	tableID          TableID
	components       *bitset.BitSet
	componentIDs     []core.ComponentID
	tableComponents  []core.ComponentID
	sparseComponents []core.ComponentID

	entities        []core.Entity
	entityTableRows []int
}

// ID returns the archetype index
func (a *Archetype) ID() ArchetypeID {
	return a.id
}

// TableID returns the table holding this archetype's table-backed components
func (a *Archetype) TableID() TableID {
	return a.tableID
}

// Contains reports whether id is part of the composition
func (a *Archetype) Contains(id core.ComponentID) bool {
	return a.components.Test(uint(id))
}

// ComponentBits returns the composition as a bitset indexed by component id
// The set is shared and must not be modified
func (a *Archetype) ComponentBits() *bitset.BitSet {
	return a.components
}

// Components returns the sorted component set
func (a *Archetype) Components() []core.ComponentID {
	return a.componentIDs
}

// TableComponents returns the table-backed part of the composition
func (a *Archetype) TableComponents() []core.ComponentID {
	return a.tableComponents
}

// SparseComponents returns the sparse-backed part of the composition
func (a *Archetype) SparseComponents() []core.ComponentID {
	return a.sparseComponents
}

// Len returns the number of entities in the archetype
func (a *Archetype) Len() int {
	return len(a.entities)
}

// Entities returns the archetype's entity list
// The slice aliases archetype storage and must not be modified
func (a *Archetype) Entities() []core.Entity {
	return a.entities
}

// EntityTableRows maps archetype index to table row, parallel to Entities
func (a *Archetype) EntityTableRows() []int {
	return a.entityTableRows
}

func (a *Archetype) push(e core.Entity, tableRow int) int {
	a.entities = append(a.entities, e)
	a.entityTableRows = append(a.entityTableRows, tableRow)
	return len(a.entities) - 1
}

// swapRemove deletes index, returning the entity moved into it
func (a *Archetype) swapRemove(index int) (core.Entity, bool) {
	last := len(a.entities) - 1
	moved := a.entities[last]
	a.entities[index] = moved
	a.entityTableRows[index] = a.entityTableRows[last]
	a.entities = a.entities[:last]
	a.entityTableRows = a.entityTableRows[:last]
	return moved, index != last
}

// Archetypes owns every archetype of a world in creation order
type Archetypes struct {
	archetypes []*Archetype
	byKey      map[string]ArchetypeID
}

func newArchetypes() *Archetypes {
	as := &Archetypes{
		byKey: make(map[string]ArchetypeID),
	}
	as.archetypes = append(as.archetypes, &Archetype{
		components: bitset.New(0),
	})
	as.byKey[""] = 0
	return as
}

// Generation returns the current creation sequence number
func (as *Archetypes) Generation() ArchetypeGeneration {
	return ArchetypeGeneration(len(as.archetypes))
}

// Len returns the number of archetypes
func (as *Archetypes) Len() int {
	return len(as.archetypes)
}

// Get returns the archetype for id
// Panics on an id this world never created
func (as *Archetypes) Get(id ArchetypeID) *Archetype {
	if int(id) >= len(as.archetypes) {
		panic(fmt.Sprintf("archetype %d does not exist (have %d)", id, len(as.archetypes)))
	}
	return as.archetypes[id]
}

// Since returns the archetypes created at or after generation gen
func (as *Archetypes) Since(gen ArchetypeGeneration) []*Archetype {
	if int(gen) >= len(as.archetypes) {
		return nil
	}
	return as.archetypes[gen:]
}

// lookup finds the archetype for a sorted component set
func (as *Archetypes) lookup(ids []core.ComponentID) (*Archetype, bool) {
	id, ok := as.byKey[componentKey(ids)]
	if !ok {
		return nil, false
	}
	return as.archetypes[id], true
}

func (as *Archetypes) create(ids, tableIDs, sparseIDs []core.ComponentID, table TableID) *Archetype {
	bits := bitset.New(0)
	for _, id := range ids {
		bits.Set(uint(id))
	}
	a := &Archetype{
		id:               ArchetypeID(len(as.archetypes)),
		tableID:          table,
		components:       bits,
		componentIDs:     slices.Clone(ids),
		tableComponents:  tableIDs,
		sparseComponents: sparseIDs,
	}
	as.archetypes = append(as.archetypes, a)
	as.byKey[componentKey(ids)] = a.id
	return a
}
