package engine

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/parameter"
	"github.com/lixenwraith/dynecs/registry"
	"github.com/lixenwraith/dynecs/status"
)

// WorldID distinguishes world instances within a process
type WorldID uint64

var nextWorldID atomic.Uint64

// World stores entities grouped by exact component set
// Table-backed components live in per-table columns, sparse ones in per-component sparse sets
type World struct {
	id WorldID
	mu sync.RWMutex

	components *registry.Components
	entities   entityAllocator
	archetypes *Archetypes
	tables     *Tables
	sparseSets map[core.ComponentID]*SparseSet

	changeTick     atomic.Uint32
	lastChangeTick atomic.Uint32
	lastCheckTick  core.Tick

	// Global singletons outside the archetype model
	Resources *ResourceStore

	logger         *core.Logger
	status         *status.Registry
	columnCapacity int
}

// NewWorld creates an empty world with the empty archetype and empty table pre-created
func NewWorld(opts ...Option) *World {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.components == nil {
		o.components = registry.New()
	}

	w := &World{
		id:             WorldID(nextWorldID.Add(1)),
		components:     o.components,
		entities:       newEntityAllocator(o.entityCapacity),
		archetypes:     newArchetypes(),
		tables:         newTables(),
		sparseSets:     make(map[core.ComponentID]*SparseSet),
		Resources:      NewResourceStore(),
		status:         o.status,
		columnCapacity: o.columnCapacity,
	}
	w.logger = o.logger.WithWorld(uint64(w.id))
	w.changeTick.Store(parameter.InitialChangeTick)
	w.lastCheckTick = parameter.InitialChangeTick
	return w
}

// ID returns the process-unique world id
func (w *World) ID() WorldID {
	return w.id
}

// Components returns the world's component registry
func (w *World) Components() *registry.Components {
	return w.components
}

// Logger returns the world logger
func (w *World) Logger() *core.Logger {
	return w.logger
}

// Status returns the attached counter registry, nil if none
func (w *World) Status() *status.Registry {
	return w.status
}

// --- Access grants ---
// Query iteration holds one grant for its whole lifetime; structural methods below acquire their own

// Lock acquires exclusive access
func (w *World) Lock() {
	w.mu.Lock()
}

// Unlock releases exclusive access
func (w *World) Unlock() {
	w.mu.Unlock()
}

// RLock acquires shared access
func (w *World) RLock() {
	w.mu.RLock()
}

// RUnlock releases shared access
func (w *World) RUnlock() {
	w.mu.RUnlock()
}

// Archetypes returns the archetype list; caller must hold a grant
func (w *World) Archetypes() *Archetypes {
	return w.archetypes
}

// Tables returns the table list; caller must hold a grant
func (w *World) Tables() *Tables {
	return w.tables
}

// SparseSet returns the sparse set of a sparse component; caller must hold a grant
func (w *World) SparseSet(id core.ComponentID) (*SparseSet, bool) {
	s, ok := w.sparseSets[id]
	return s, ok
}

// --- Change ticks ---

// ChangeTick returns the tick stamped on writes made now
func (w *World) ChangeTick() core.Tick {
	return w.changeTick.Load()
}

// IncrementChangeTick advances the write tick and returns the new value
func (w *World) IncrementChangeTick() core.Tick {
	return w.changeTick.Add(1)
}

// SetChangeTick overwrites the write tick, used when replaying or simulating long runs
func (w *World) SetChangeTick(t core.Tick) {
	w.changeTick.Store(t)
}

// LastChangeTick returns the tick recorded by the last ClearTrackers
func (w *World) LastChangeTick() core.Tick {
	return w.lastChangeTick.Load()
}

// ClearTrackers closes the current change window: last := current, current++
func (w *World) ClearTrackers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastChangeTick.Store(w.changeTick.Add(1) - 1)
}

// CheckChangeTicks clamps stored ticks once the counter has advanced CheckTickThreshold since the last check
// Keeps wraparound comparisons valid for components untouched for very long periods
func (w *World) CheckChangeTicks() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.ChangeTick()
	if current-w.lastCheckTick < parameter.CheckTickThreshold {
		return false
	}
	w.tables.clampTicks(current)
	for _, s := range w.sparseSets {
		s.clampTicks(current)
	}
	w.lastCheckTick = current
	w.logger.Debug("change ticks clamped", "tick", current)
	return true
}

// --- Entities ---

// Spawn creates an entity with the given component values
// Panics on nil values or types conflicting with the registry; use Insert for fallible input
func (w *World) Spawn(values ...any) core.Entity {
	ids, vals, err := w.resolveValues(values)
	if err != nil {
		panic(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	e := w.spawnEmptyLocked()
	if len(ids) > 0 {
		if err := w.insertLocked(e, ids, vals); err != nil {
			panic(err)
		}
	}
	return e
}

func (w *World) spawnEmptyLocked() core.Entity {
	e := w.entities.alloc()
	empty := w.archetypes.Get(0)
	row := w.tables.Get(empty.tableID).allocate(e)
	idx := empty.push(e, row)
	w.entities.setLocation(e, EntityLocation{Archetype: empty.id, Index: idx})
	w.recordCounts()
	return e
}

// Insert adds or overwrites components on e
// Unregistered value types are registered with table storage
func (w *World) Insert(e core.Entity, values ...any) error {
	ids, vals, err := w.resolveValues(values)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.insertLocked(e, ids, vals)
}

// InsertByID adds or overwrites one component whose type is already registered under id
func (w *World) InsertByID(e core.Entity, id core.ComponentID, value any) error {
	info, ok := w.components.Info(id)
	if !ok {
		return errors.Wrapf(ErrUnknownComponent, "component %d", id)
	}
	if value == nil {
		return ErrNilComponent
	}
	v := reflect.ValueOf(value)
	if v.Type() != info.Type {
		return errors.Wrapf(ErrTypeMismatch, "%s expects %s, got %s", info.Name, info.Type, v.Type())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.insertLocked(e, []core.ComponentID{id}, []reflect.Value{v})
}

// Remove drops the listed components from e; absent components are ignored
func (w *World) Remove(e core.Entity, ids ...core.ComponentID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	loc, ok := w.entities.location(e)
	if !ok {
		return errors.Wrapf(ErrNoSuchEntity, "remove from %s", e)
	}
	src := w.archetypes.Get(loc.Archetype)

	remaining := make([]core.ComponentID, 0, len(src.componentIDs))
	for _, id := range src.componentIDs {
		if !slices.Contains(ids, id) {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == len(src.componentIDs) {
		return nil
	}

	target := w.archetypeFor(remaining)
	w.moveEntity(e, loc, target, nil)
	for _, id := range src.sparseComponents {
		if !target.Contains(id) {
			w.sparseSets[id].remove(e)
		}
	}
	return nil
}

// Despawn deletes e and all its components; the handle becomes stale
func (w *World) Despawn(e core.Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	loc, ok := w.entities.location(e)
	if !ok {
		return errors.Wrapf(ErrNoSuchEntity, "despawn %s", e)
	}
	arch := w.archetypes.Get(loc.Archetype)
	row := arch.entityTableRows[loc.Index]

	if moved, swapped := w.tables.Get(arch.tableID).swapRemove(row); swapped {
		w.fixTableRow(moved, row)
	}
	if moved, swapped := arch.swapRemove(loc.Index); swapped {
		w.entities.setLocation(moved, EntityLocation{Archetype: arch.id, Index: loc.Index})
	}
	for _, id := range arch.sparseComponents {
		w.sparseSets[id].remove(e)
	}
	w.entities.release(e)
	w.recordCounts()
	return nil
}

// Contains reports whether e is alive
func (w *World) Contains(e core.Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.entities.location(e)
	return ok
}

// Location returns the archetype placement of e
func (w *World) Location(e core.Entity) (EntityLocation, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities.location(e)
}

// LocationLocked is Location for callers already holding a grant
func (w *World) LocationLocked(e core.Entity) (EntityLocation, bool) {
	return w.entities.location(e)
}

// Has reports whether e currently has component id
func (w *World) Has(e core.Entity, id core.ComponentID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	loc, ok := w.entities.location(e)
	if !ok {
		return false
	}
	return w.archetypes.Get(loc.Archetype).Contains(id)
}

// Get returns a copy of component id on e
func (w *World) Get(e core.Entity, id core.ComponentID) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, _, ok := w.valueLocked(e, id)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

// Ticks returns the change ticks of component id on e
func (w *World) Ticks(e core.Entity, id core.ComponentID) (core.ComponentTicks, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ticks, ok := w.valueLocked(e, id)
	if !ok {
		return core.ComponentTicks{}, false
	}
	return *ticks, true
}

// Mutate runs fn against the stored value of component id on e and marks it changed
// fn receives a pointer to the value; the world is exclusively locked for its duration
func (w *World) Mutate(e core.Entity, id core.ComponentID, fn func(ptr any) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ticks, ok := w.valueLocked(e, id)
	if !ok {
		if _, alive := w.entities.location(e); !alive {
			return errors.Wrapf(ErrNoSuchEntity, "mutate %s", e)
		}
		return errors.Wrapf(ErrUnknownComponent, "%s has no component %d", e, id)
	}
	ticks.SetChanged(w.ChangeTick())
	return fn(v.Addr().Interface())
}

// valueLocked resolves the addressable storage of component id on e
func (w *World) valueLocked(e core.Entity, id core.ComponentID) (reflect.Value, *core.ComponentTicks, bool) {
	loc, ok := w.entities.location(e)
	if !ok {
		return reflect.Value{}, nil, false
	}
	arch := w.archetypes.Get(loc.Archetype)
	if !arch.Contains(id) {
		return reflect.Value{}, nil, false
	}
	if set, sparse := w.sparseSets[id]; sparse {
		return set.GetWithTicks(e)
	}
	col, ok := w.tables.Get(arch.tableID).Column(id)
	if !ok {
		panic(fmt.Sprintf("archetype %d lists component %d but table %d has no column", arch.id, id, arch.tableID))
	}
	row := arch.entityTableRows[loc.Index]
	return col.At(row), col.TicksAt(row), true
}

// GetComponent is the typed form of World.Get
func GetComponent[T any](w *World, e core.Entity) (T, bool) {
	var zero T
	id, ok := registry.IDFor[T](w.components)
	if !ok {
		return zero, false
	}
	v, ok := w.Get(e, id)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Entities returns all live entities in archetype order
func (w *World) Entities() []core.Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	result := make([]core.Entity, 0, w.entities.live)
	for _, a := range w.archetypes.archetypes {
		result = append(result, a.entities...)
	}
	return result
}

// Len returns the number of live entities
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities.live
}

// String summarises world shape for debugging and the bridge
func (w *World) String() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return fmt.Sprintf("World{id: %d, entities: %d, components: %d, archetypes: %d, tables: %d, tick: %d}",
		w.id, w.entities.live, w.components.Len(), w.archetypes.Len(), w.tables.Len(), w.ChangeTick())
}

// --- Structural internals (caller holds w.mu) ---

func (w *World) resolveValues(values []any) ([]core.ComponentID, []reflect.Value, error) {
	ids := make([]core.ComponentID, 0, len(values))
	vals := make([]reflect.Value, 0, len(values))
	for _, value := range values {
		if value == nil {
			return nil, nil, ErrNilComponent
		}
		t := reflect.TypeOf(value)
		id, ok := w.components.IDOf(t)
		if !ok {
			var err error
			if id, err = w.components.Register(t, core.StorageTable); err != nil {
				return nil, nil, errors.Wrap(err, "auto-register component")
			}
		}
		ids = append(ids, id)
		vals = append(vals, reflect.ValueOf(value))
	}
	return ids, vals, nil
}

func (w *World) insertLocked(e core.Entity, ids []core.ComponentID, vals []reflect.Value) error {
	loc, ok := w.entities.location(e)
	if !ok {
		return errors.Wrapf(ErrNoSuchEntity, "insert into %s", e)
	}
	src := w.archetypes.Get(loc.Archetype)
	tick := w.ChangeTick()

	// Later duplicates win
	pending := make(map[core.ComponentID]reflect.Value, len(ids))
	for i, id := range ids {
		pending[id] = vals[i]
	}

	target := src
	union := slices.Clone(src.componentIDs)
	for id := range pending {
		if !src.Contains(id) {
			union = append(union, id)
		}
	}
	if len(union) != len(src.componentIDs) {
		slices.Sort(union)
		target = w.archetypeFor(union)
		loc = w.moveEntity(e, loc, target, pending)
	}

	table := w.tables.Get(target.tableID)
	row := target.entityTableRows[loc.Index]
	for id, v := range pending {
		if set, sparse := w.sparseSets[id]; sparse {
			set.insert(e, v, tick)
			continue
		}
		// Newly added table components were pushed during the move
		if src.Contains(id) {
			table.columns[id].set(row, v, tick)
		}
	}
	return nil
}

// moveEntity relocates e from its archetype into target, migrating its table row if the table differs
// Table components target has and the source lacks are taken from pending with fresh ticks
func (w *World) moveEntity(e core.Entity, loc EntityLocation, target *Archetype, pending map[core.ComponentID]reflect.Value) EntityLocation {
	src := w.archetypes.Get(loc.Archetype)
	srcRow := src.entityTableRows[loc.Index]
	newRow := srcRow

	if src.tableID != target.tableID {
		srcTable := w.tables.Get(src.tableID)
		dstTable := w.tables.Get(target.tableID)
		tick := w.ChangeTick()

		var moved core.Entity
		var swapped bool
		newRow, moved, swapped = srcTable.moveRow(srcRow, dstTable)
		for _, id := range dstTable.componentIDs {
			if srcTable.HasColumn(id) {
				continue
			}
			v, ok := pending[id]
			if !ok {
				panic(fmt.Sprintf("moving %s into table %d: no value for new component %d", e, dstTable.id, id))
			}
			dstTable.columns[id].push(v, core.NewComponentTicks(tick))
		}
		if swapped {
			w.fixTableRow(moved, srcRow)
		}
	}

	if moved, swapped := src.swapRemove(loc.Index); swapped {
		w.entities.setLocation(moved, EntityLocation{Archetype: src.id, Index: loc.Index})
	}
	idx := target.push(e, newRow)
	newLoc := EntityLocation{Archetype: target.id, Index: idx}
	w.entities.setLocation(e, newLoc)
	return newLoc
}

// fixTableRow records that moved now occupies row of its table
func (w *World) fixTableRow(moved core.Entity, row int) {
	loc, ok := w.entities.location(moved)
	if !ok {
		panic(fmt.Sprintf("table row owner %s is not alive", moved))
	}
	w.archetypes.Get(loc.Archetype).entityTableRows[loc.Index] = row
}

// archetypeFor returns the archetype for a sorted component set, creating it and its table on first use
func (w *World) archetypeFor(ids []core.ComponentID) *Archetype {
	if a, ok := w.archetypes.lookup(ids); ok {
		return a
	}

	var tableIDs, sparseIDs []core.ComponentID
	var tableTypes []reflect.Type
	for _, id := range ids {
		info, ok := w.components.Info(id)
		if !ok {
			panic(fmt.Sprintf("component %d missing from registry", id))
		}
		switch info.Storage {
		case core.StorageSparse:
			sparseIDs = append(sparseIDs, id)
			if _, exists := w.sparseSets[id]; !exists {
				w.sparseSets[id] = newSparseSet(id, info.Type, w.columnCapacity)
			}
		default:
			tableIDs = append(tableIDs, id)
			tableTypes = append(tableTypes, info.Type)
		}
	}

	table, created := w.tables.getOrCreate(tableIDs, tableTypes, w.columnCapacity)
	if created {
		w.logger.Debug("table created", "table", table.id, "columns", len(tableIDs))
	}
	a := w.archetypes.create(ids, tableIDs, sparseIDs, table.id)
	w.logger.Debug("archetype created", "archetype", a.id, "table", table.id, "components", len(ids))
	w.recordCounts()
	return a
}

func (w *World) recordCounts() {
	if w.status == nil {
		return
	}
	w.status.Ints.Get(status.WorldArchetypes).Store(int64(w.archetypes.Len()))
	w.status.Ints.Get(status.WorldTables).Store(int64(w.tables.Len()))
	w.status.Ints.Get(status.WorldEntities).Store(int64(w.entities.live))
}
