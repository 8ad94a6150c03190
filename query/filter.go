package query

import (
	"fmt"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
)

// window is the (lastRun, current] tick range of one iteration
type window struct {
	lastRun core.Tick
	current core.Tick
}

// filterState evaluates one filter per row
// With and Without are settled by archetype matching and always pass here
type filterState struct {
	id      core.ComponentID
	kind    FilterKind
	storage core.StorageKind

	ticks  []core.ComponentTicks
	sparse *engine.SparseSet
}

func newFilterState(req FilterRequest, storage core.StorageKind) filterState {
	return filterState{
		id:      req.Component,
		kind:    req.Kind,
		storage: storage,
	}
}

func (f *filterState) setTable(t *engine.Table) {
	if !f.kind.tickFilter() || f.storage != core.StorageTable {
		return
	}
	col, ok := t.Column(f.id)
	if !ok {
		panic(fmt.Sprintf("table %d matched but has no column for component %d", t.ID(), f.id))
	}
	f.ticks = col.Ticks()
}

func (f *filterState) setArchetype(w *engine.World, t *engine.Table) {
	if !f.kind.tickFilter() {
		return
	}
	if f.storage == core.StorageSparse {
		if f.sparse == nil {
			set, ok := w.SparseSet(f.id)
			if !ok {
				panic(fmt.Sprintf("sparse component %d matched but has no sparse set", f.id))
			}
			f.sparse = set
		}
		return
	}
	f.setTable(t)
}

func (f *filterState) matches(e core.Entity, row int, w window) bool {
	if !f.kind.tickFilter() {
		return true
	}

	var ticks core.ComponentTicks
	if f.storage == core.StorageSparse {
		var ok bool
		if ticks, ok = f.sparse.Ticks(e); !ok {
			panic(fmt.Sprintf("entity %s matched but is missing sparse component %d", e, f.id))
		}
	} else {
		ticks = f.ticks[row]
	}

	if f.kind == Added {
		return ticks.IsAdded(w.lastRun, w.current)
	}
	return ticks.IsChanged(w.lastRun, w.current)
}
