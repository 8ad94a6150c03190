package query

import (
	"fmt"
	"reflect"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
)

// fetchState resolves one fetch request against the current archetype or table
// Table-backed state caches the column on entry; sparse state keeps the component's set for the whole pass
type fetchState struct {
	id      core.ComponentID
	mode    FetchMode
	storage core.StorageKind

	column *engine.Column
	sparse *engine.SparseSet
}

func newFetchState(req FetchRequest, storage core.StorageKind) fetchState {
	return fetchState{
		id:      req.Component,
		mode:    req.Mode,
		storage: storage,
	}
}

// setTable caches the column for a table about to be walked
func (f *fetchState) setTable(t *engine.Table) {
	if f.storage != core.StorageTable {
		return
	}
	col, ok := t.Column(f.id)
	if !ok {
		panic(fmt.Sprintf("table %d matched but has no column for component %d", t.ID(), f.id))
	}
	f.column = col
}

// setArchetype prepares for an archetype walk
func (f *fetchState) setArchetype(w *engine.World, t *engine.Table) {
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

// fetch produces the handle for e at row, stamping the changed tick first for write access
func (f *fetchState) fetch(e core.Entity, row int, w window) FetchResult {
	var value reflect.Value
	var ticks *core.ComponentTicks
	switch f.storage {
	case core.StorageSparse:
		var ok bool
		value, ticks, ok = f.sparse.GetWithTicks(e)
		if !ok {
			panic(fmt.Sprintf("entity %s matched but is missing sparse component %d", e, f.id))
		}
	default:
		value, ticks = f.column.At(row), f.column.TicksAt(row)
	}

	if f.mode == Write {
		ticks.SetChanged(w.current)
	}
	return FetchResult{
		component: f.id,
		mode:      f.mode,
		value:     value,
		ticks:     *ticks,
		window:    w,
	}
}
