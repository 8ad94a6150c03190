package query

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"

	"github.com/lixenwraith/dynecs/core"
)

func TestAccessCompatibility(t *testing.T) {
	readA := newAccess()
	readA.AddRead(1)
	readA2 := newAccess()
	readA2.AddRead(1)
	writeA := newAccess()
	writeA.AddWrite(1)
	writeB := newAccess()
	writeB.AddWrite(2)

	assert.True(t, readA.IsCompatible(&readA2))
	assert.False(t, readA.IsCompatible(&writeA))
	assert.False(t, writeA.IsCompatible(&readA))
	assert.False(t, writeA.IsCompatible(&writeA))
	assert.True(t, writeA.IsCompatible(&writeB))

	readA.Extend(&writeB)
	assert.Equal(t, []core.ComponentID{1}, readA.Reads())
	assert.Equal(t, []core.ComponentID{2}, readA.Writes())
	assert.True(t, readA.HasAnyWrite())
}

func TestFilteredAccessMatches(t *testing.T) {
	f := newFilteredAccess()
	f.AddRead(0)
	f.AddWrite(3)
	f.AddWithout(5)

	comp := func(ids ...uint) *bitset.BitSet {
		b := bitset.New(0)
		for _, id := range ids {
			b.Set(id)
		}
		return b
	}

	assert.True(t, f.Matches(comp(0, 3)))
	assert.True(t, f.Matches(comp(0, 1, 3, 4)))
	assert.False(t, f.Matches(comp(0)))
	assert.False(t, f.Matches(comp(0, 3, 5)))
	assert.Equal(t, []core.ComponentID{0, 3}, f.Required())
	assert.Equal(t, []core.ComponentID{5}, f.Excluded())
}

func TestParseNames(t *testing.T) {
	m, ok := ParseFetchMode("mut")
	assert.True(t, ok)
	assert.Equal(t, Write, m)
	_, ok = ParseFetchMode("borrow")
	assert.False(t, ok)

	k, ok := ParseFilterKind("Changed")
	assert.True(t, ok)
	assert.Equal(t, Changed, k)
	k, ok = ParseFilterKind("absent")
	assert.True(t, ok)
	assert.Equal(t, Without, k)

	d := Descriptor{Fetch: []FetchRequest{WriteOf(1)}, Filter: []FilterRequest{Filter(Added, 2)}}
	assert.Equal(t, "Query{fetch: [write(1)], filter: [added(2)]}", d.String())
	assert.True(t, d.HasWrite())
}
