package engine

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/parameter"
	"github.com/lixenwraith/dynecs/registry"
	"github.com/lixenwraith/dynecs/status"
)

type position struct{ X, Y int }
type velocity struct{ DX, DY int }
type tag struct{ Name string }

func newTestWorld(t *testing.T) (*World, core.ComponentID, core.ComponentID, core.ComponentID) {
	t.Helper()
	w := NewWorld()
	posID := registry.MustRegister[position](w.Components(), core.StorageTable)
	velID := registry.MustRegister[velocity](w.Components(), core.StorageTable)
	tagID := registry.MustRegister[tag](w.Components(), core.StorageSparse)
	return w, posID, velID, tagID
}

func TestNewWorldHasEmptyArchetypeAndTable(t *testing.T) {
	w := NewWorld()
	w.RLock()
	defer w.RUnlock()

	assert.Equal(t, 1, w.Archetypes().Len())
	assert.Equal(t, 1, w.Tables().Len())
	assert.Equal(t, ArchetypeGeneration(1), w.Archetypes().Generation())
	assert.Equal(t, core.Tick(parameter.InitialChangeTick), w.ChangeTick())
}

func TestWorldIDsAreUnique(t *testing.T) {
	a, b := NewWorld(), NewWorld()
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSpawnAndGet(t *testing.T) {
	w, posID, velID, _ := newTestWorld(t)

	e := w.Spawn(position{1, 2}, velocity{3, 4})
	assert.True(t, w.Contains(e))
	assert.True(t, w.Has(e, posID))
	assert.True(t, w.Has(e, velID))
	assert.Equal(t, 1, w.Len())

	pos, ok := GetComponent[position](w, e)
	require.True(t, ok)
	assert.Equal(t, position{1, 2}, pos)

	// Spawn goes straight to the final archetype
	w.RLock()
	assert.Equal(t, 2, w.Archetypes().Len())
	assert.Equal(t, 2, w.Tables().Len())
	w.RUnlock()
}

func TestSpawnAutoRegistersTableStorage(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(position{5, 5})

	id, ok := registry.IDFor[position](w.Components())
	require.True(t, ok)
	info, _ := w.Components().Info(id)
	assert.Equal(t, core.StorageTable, info.Storage)
	assert.True(t, w.Has(e, id))
}

func TestSpawnPanicsOnNil(t *testing.T) {
	w := NewWorld()
	assert.Panics(t, func() { w.Spawn(nil) })
}

func TestInsertSparseKeepsTable(t *testing.T) {
	w, posID, _, tagID := newTestWorld(t)
	e := w.Spawn(position{1, 1})
	before, _ := w.Location(e)

	require.NoError(t, w.Insert(e, tag{"hero"}))
	after, _ := w.Location(e)

	assert.NotEqual(t, before.Archetype, after.Archetype)
	w.RLock()
	assert.Equal(t, w.Archetypes().Get(before.Archetype).TableID(), w.Archetypes().Get(after.Archetype).TableID())
	set, ok := w.SparseSet(tagID)
	require.True(t, ok)
	assert.True(t, set.Contains(e))
	w.RUnlock()

	v, ok := w.Get(e, tagID)
	require.True(t, ok)
	assert.Equal(t, tag{"hero"}, v)
	assert.True(t, w.Has(e, posID))
}

func TestInsertOverwriteBumpsChanged(t *testing.T) {
	w, posID, _, _ := newTestWorld(t)
	e := w.Spawn(position{1, 1})
	w.IncrementChangeTick()

	require.NoError(t, w.Insert(e, position{2, 2}))
	ticks, ok := w.Ticks(e, posID)
	require.True(t, ok)
	assert.Equal(t, core.Tick(1), ticks.Added)
	assert.Equal(t, core.Tick(2), ticks.Changed)

	pos, _ := GetComponent[position](w, e)
	assert.Equal(t, position{2, 2}, pos)
}

func TestInsertByIDChecksType(t *testing.T) {
	w, posID, _, _ := newTestWorld(t)
	e := w.Spawn()

	err := w.InsertByID(e, posID, velocity{1, 1})
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	err = w.InsertByID(e, 99, position{})
	assert.True(t, errors.Is(err, ErrUnknownComponent))

	require.NoError(t, w.InsertByID(e, posID, position{4, 4}))
	assert.True(t, w.Has(e, posID))
}

func TestMovePreservesOtherRows(t *testing.T) {
	w, posID, velID, _ := newTestWorld(t)
	e1 := w.Spawn(position{1, 0})
	e2 := w.Spawn(position{2, 0})
	e3 := w.Spawn(position{3, 0})

	// e1 leaves the table; e3 is swapped into its row
	require.NoError(t, w.Insert(e1, velocity{9, 9}))

	for e, want := range map[core.Entity]position{e1: {1, 0}, e2: {2, 0}, e3: {3, 0}} {
		got, ok := GetComponent[position](w, e)
		require.True(t, ok)
		assert.Equal(t, want, got, "entity %s", e)
	}
	vel, _ := GetComponent[velocity](w, e1)
	assert.Equal(t, velocity{9, 9}, vel)

	require.NoError(t, w.Remove(e1, velID))
	assert.False(t, w.Has(e1, velID))
	assert.True(t, w.Has(e1, posID))
	got, _ := GetComponent[position](w, e1)
	assert.Equal(t, position{1, 0}, got)
}

func TestMoveCarriesTicks(t *testing.T) {
	w, posID, _, _ := newTestWorld(t)
	e := w.Spawn(position{})
	w.IncrementChangeTick()
	w.IncrementChangeTick()

	require.NoError(t, w.Insert(e, velocity{}))
	ticks, _ := w.Ticks(e, posID)
	assert.Equal(t, core.NewComponentTicks(1), ticks)

	velTicks, _ := w.Ticks(e, registry.MustRegister[velocity](w.Components(), core.StorageTable))
	assert.Equal(t, core.NewComponentTicks(3), velTicks)
}

func TestRemoveSparse(t *testing.T) {
	w, _, _, tagID := newTestWorld(t)
	e := w.Spawn(position{}, tag{"x"})
	require.NoError(t, w.Remove(e, tagID))

	assert.False(t, w.Has(e, tagID))
	w.RLock()
	set, _ := w.SparseSet(tagID)
	assert.Equal(t, 0, set.Len())
	w.RUnlock()
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	w, _, velID, _ := newTestWorld(t)
	e := w.Spawn(position{})
	before, _ := w.Location(e)
	require.NoError(t, w.Remove(e, velID))
	after, _ := w.Location(e)
	assert.Equal(t, before, after)
}

func TestDespawnInvalidatesHandle(t *testing.T) {
	w, posID, _, tagID := newTestWorld(t)
	e1 := w.Spawn(position{1, 1}, tag{"a"})
	e2 := w.Spawn(position{2, 2}, tag{"b"})

	require.NoError(t, w.Despawn(e1))
	assert.False(t, w.Contains(e1))
	assert.False(t, w.Has(e1, posID))
	assert.True(t, errors.Is(w.Despawn(e1), ErrNoSuchEntity))
	assert.True(t, errors.Is(w.Insert(e1, velocity{}), ErrNoSuchEntity))

	got, _ := GetComponent[position](w, e2)
	assert.Equal(t, position{2, 2}, got)
	v, _ := w.Get(e2, tagID)
	assert.Equal(t, tag{"b"}, v)

	// Index recycled under a new generation
	e3 := w.Spawn()
	assert.Equal(t, e1.Index(), e3.Index())
	assert.NotEqual(t, e1.Generation(), e3.Generation())
	assert.False(t, w.Contains(e1))
	assert.True(t, w.Contains(e3))
}

func TestMutateMarksChanged(t *testing.T) {
	w, posID, velID, _ := newTestWorld(t)
	e := w.Spawn(position{1, 1})
	w.IncrementChangeTick()

	err := w.Mutate(e, posID, func(ptr any) error {
		ptr.(*position).X = 10
		return nil
	})
	require.NoError(t, err)

	pos, _ := GetComponent[position](w, e)
	assert.Equal(t, 10, pos.X)
	ticks, _ := w.Ticks(e, posID)
	assert.Equal(t, core.Tick(2), ticks.Changed)
	assert.Equal(t, core.Tick(1), ticks.Added)

	err = w.Mutate(e, velID, func(any) error { return nil })
	assert.True(t, errors.Is(err, ErrUnknownComponent))
}

func TestClearTrackers(t *testing.T) {
	w := NewWorld()
	assert.Equal(t, core.Tick(0), w.LastChangeTick())

	w.ClearTrackers()
	assert.Equal(t, core.Tick(1), w.LastChangeTick())
	assert.Equal(t, core.Tick(2), w.ChangeTick())
}

func TestCheckChangeTicksClampsOldTicks(t *testing.T) {
	w, posID, _, tagID := newTestWorld(t)
	e := w.Spawn(position{}, tag{"old"})

	assert.False(t, w.CheckChangeTicks())

	current := core.Tick(1 + parameter.MaxChangeAge + 10)
	w.SetChangeTick(current)
	require.True(t, w.CheckChangeTicks())

	for _, id := range []core.ComponentID{posID, tagID} {
		ticks, _ := w.Ticks(e, id)
		assert.Equal(t, current-parameter.MaxChangeAge, ticks.Added)
		assert.Equal(t, current-parameter.MaxChangeAge, ticks.Changed)
	}
	// Threshold restarts from the last check
	assert.False(t, w.CheckChangeTicks())
}

func TestStatusCounts(t *testing.T) {
	reg := status.NewRegistry()
	w := NewWorld(WithStatus(reg))
	e := w.Spawn(position{})
	w.Spawn(position{}, velocity{})

	assert.Equal(t, int64(3), reg.Ints.Get(status.WorldArchetypes).Load())
	assert.Equal(t, int64(3), reg.Ints.Get(status.WorldTables).Load())
	assert.Equal(t, int64(2), reg.Ints.Get(status.WorldEntities).Load())

	require.NoError(t, w.Despawn(e))
	assert.Equal(t, int64(1), reg.Ints.Get(status.WorldEntities).Load())
}

func TestSharedRegistry(t *testing.T) {
	comps := registry.New()
	id := registry.MustRegister[tag](comps, core.StorageSparse)
	a := NewWorld(WithRegistry(comps))
	b := NewWorld(WithRegistry(comps))

	ea := a.Spawn(tag{"a"})
	eb := b.Spawn(tag{"b"})
	assert.True(t, a.Has(ea, id))
	assert.True(t, b.Has(eb, id))
	assert.Same(t, a.Components(), b.Components())
}

func TestWorldString(t *testing.T) {
	w := NewWorld()
	w.Spawn(position{})
	assert.Contains(t, w.String(), "entities: 1")
}

func TestLocationLockedUnderGrant(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(position{1, 2})
	want, ok := w.Location(e)
	require.True(t, ok)

	w.RLock()
	got, ok := w.LocationLocked(e)
	w.RUnlock()
	require.True(t, ok)
	assert.Equal(t, want, got)
}
