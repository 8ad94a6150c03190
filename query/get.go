package query

import (
	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
)

// Get fetches e alone, using the world's change window
// Returns false if e is dead, outside the match set, or rejected by a filter; only e's write fetches are stamped
func (q *DynamicQuery) Get(w *engine.World, e core.Entity) (Item, bool) {
	return q.GetManual(w, e, w.LastChangeTick(), w.ChangeTick())
}

// GetManual is Get with a caller-supplied tick window
func (q *DynamicQuery) GetManual(w *engine.World, e core.Entity, lastRun, current core.Tick) (Item, bool) {
	q.validateWorld(w)
	if q.access.access.HasAnyWrite() {
		w.Lock()
		defer w.Unlock()
	} else {
		w.RLock()
		defer w.RUnlock()
	}
	q.updateLocked(w)

	loc, ok := w.LocationLocked(e)
	if !ok || !q.MatchesArchetype(loc.Archetype) {
		return Item{}, false
	}
	a := w.Archetypes().Get(loc.Archetype)
	t := w.Tables().Get(a.TableID())
	row := a.EntityTableRows()[loc.Index]
	win := window{lastRun: lastRun, current: current}

	for i, req := range q.desc.Filter {
		f := newFilterState(req, q.filterInfo[i].Storage)
		f.setArchetype(w, t)
		if !f.matches(e, row, win) {
			return Item{}, false
		}
	}
	results := make([]FetchResult, len(q.desc.Fetch))
	for i, req := range q.desc.Fetch {
		f := newFetchState(req, q.fetchInfo[i].Storage)
		f.setArchetype(w, t)
		results[i] = f.fetch(e, row, win).detach()
	}
	return Item{Entity: e, Results: results}, true
}
