package query

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/lixenwraith/dynecs/core"
)

// Access records which components a query reads and which it writes
type Access struct {
	reads  *bitset.BitSet
	writes *bitset.BitSet
}

func newAccess() Access {
	return Access{
		reads:  bitset.New(0),
		writes: bitset.New(0),
	}
}

// AddRead marks id as read
func (a *Access) AddRead(id core.ComponentID) {
	a.reads.Set(uint(id))
}

// AddWrite marks id as written
func (a *Access) AddWrite(id core.ComponentID) {
	a.writes.Set(uint(id))
}

// HasRead reports whether id is read
func (a *Access) HasRead(id core.ComponentID) bool {
	return a.reads.Test(uint(id))
}

// HasWrite reports whether id is written
func (a *Access) HasWrite(id core.ComponentID) bool {
	return a.writes.Test(uint(id))
}

// HasAnyWrite reports whether any component is written
func (a *Access) HasAnyWrite() bool {
	return a.writes.Any()
}

// IsCompatible reports whether a and other can be held at the same time
// Shared reads are fine; a write overlapping any access of the other side is not
func (a *Access) IsCompatible(other *Access) bool {
	if a.writes.IntersectionCardinality(other.reads) > 0 || a.writes.IntersectionCardinality(other.writes) > 0 {
		return false
	}
	return other.writes.IntersectionCardinality(a.reads) == 0
}

// Extend merges other into a
func (a *Access) Extend(other *Access) {
	a.reads.InPlaceUnion(other.reads)
	a.writes.InPlaceUnion(other.writes)
}

// Reads returns read component ids in ascending order
func (a *Access) Reads() []core.ComponentID {
	return bitsToIDs(a.reads)
}

// Writes returns written component ids in ascending order
func (a *Access) Writes() []core.ComponentID {
	return bitsToIDs(a.writes)
}

// FilteredAccess adds archetype membership requirements to an Access
// Every read or written component is implicitly required
type FilteredAccess struct {
	access  Access
	with    *bitset.BitSet
	without *bitset.BitSet
}

func newFilteredAccess() FilteredAccess {
	return FilteredAccess{
		access:  newAccess(),
		with:    bitset.New(0),
		without: bitset.New(0),
	}
}

// Access returns the read/write part
func (f *FilteredAccess) Access() *Access {
	return &f.access
}

// AddRead marks id as read and required
func (f *FilteredAccess) AddRead(id core.ComponentID) {
	f.access.AddRead(id)
	f.with.Set(uint(id))
}

// AddWrite marks id as written and required
func (f *FilteredAccess) AddWrite(id core.ComponentID) {
	f.access.AddWrite(id)
	f.with.Set(uint(id))
}

// AddWith requires id without accessing it
func (f *FilteredAccess) AddWith(id core.ComponentID) {
	f.with.Set(uint(id))
}

// AddWithout forbids id
func (f *FilteredAccess) AddWithout(id core.ComponentID) {
	f.without.Set(uint(id))
}

// Extend merges other into f
func (f *FilteredAccess) Extend(other *FilteredAccess) {
	f.access.Extend(&other.access)
	f.with.InPlaceUnion(other.with)
	f.without.InPlaceUnion(other.without)
}

// Matches reports whether a composition satisfies every membership requirement
func (f *FilteredAccess) Matches(components *bitset.BitSet) bool {
	return components.IsSuperSet(f.with) && components.IntersectionCardinality(f.without) == 0
}

// Required returns the ids a matching composition must contain
func (f *FilteredAccess) Required() []core.ComponentID {
	return bitsToIDs(f.with)
}

// Excluded returns the ids a matching composition must not contain
func (f *FilteredAccess) Excluded() []core.ComponentID {
	return bitsToIDs(f.without)
}

func bitsToIDs(b *bitset.BitSet) []core.ComponentID {
	ids := make([]core.ComponentID, 0, b.Count())
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		ids = append(ids, core.ComponentID(i))
	}
	return ids
}
