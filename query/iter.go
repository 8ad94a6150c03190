package query

import (
	"iter"
	"time"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
)

type iterState uint8

const (
	betweenCompositions iterState = iota
	withinComposition
	iterDone
)

// Item is one yielded entity with its fetches in request order
type Item struct {
	Entity  core.Entity
	Results []FetchResult
}

// Iter walks matched archetypes (or their tables on the dense path) yielding entities that pass every filter
// It holds a world grant from creation until exhaustion or Close; the world must not be mutated meanwhile
type Iter struct {
	query     *DynamicQuery
	world     *engine.World
	exclusive bool
	dense     bool
	window    window

	state      iterState
	archetypes []engine.ArchetypeID
	tables     []engine.TableID
	cursor     int

	// Current composition
	entities []core.Entity
	rows     []int
	index    int

	fetches []fetchState
	filters []filterState

	entity  core.Entity
	results []FetchResult

	started  time.Time
	items    int
	filtered int
}

// Iter starts a pass using the world's (last, current) change ticks as the window
// Takes the exclusive grant if any fetch writes, the shared grant otherwise
func (q *DynamicQuery) Iter(w *engine.World) *Iter {
	return q.IterManual(w, w.LastChangeTick(), w.ChangeTick())
}

// IterManual starts a pass with a caller-supplied tick window
// Writes are stamped with current
func (q *DynamicQuery) IterManual(w *engine.World, lastRun, current core.Tick) *Iter {
	q.validateWorld(w)

	it := &Iter{
		query:     q,
		world:     w,
		exclusive: q.access.access.HasAnyWrite(),
		dense:     q.dense,
		window:    window{lastRun: lastRun, current: current},
		fetches:   make([]fetchState, len(q.desc.Fetch)),
		filters:   make([]filterState, len(q.desc.Filter)),
		started:   time.Now(),
	}
	if it.exclusive {
		w.Lock()
	} else {
		w.RLock()
	}

	q.updateLocked(w)
	it.archetypes, it.tables = q.snapshot()

	for i, f := range q.desc.Fetch {
		it.fetches[i] = newFetchState(f, q.fetchInfo[i].Storage)
	}
	for i, f := range q.desc.Filter {
		it.filters[i] = newFilterState(f, q.filterInfo[i].Storage)
	}
	return it
}

// Next advances to the next matching entity
// Returns false and releases the grant once every matched composition is exhausted
func (it *Iter) Next() bool {
	for {
		switch it.state {
		case iterDone:
			return false

		case betweenCompositions:
			if !it.enterNext() {
				it.finish()
				return false
			}
			it.state = withinComposition

		case withinComposition:
			if it.index >= len(it.entities) {
				it.state = betweenCompositions
				continue
			}
			i := it.index
			it.index++

			e, row := it.entities[i], i
			if !it.dense {
				row = it.rows[i]
			}
			if !it.filtersPass(e, row) {
				it.filtered++
				continue
			}

			it.entity = e
			it.results = make([]FetchResult, len(it.fetches))
			for f := range it.fetches {
				it.results[f] = it.fetches[f].fetch(e, row, it.window)
			}
			it.items++
			return true
		}
	}
}

// enterNext moves the cursor into the next non-empty composition and resolves per-field state
func (it *Iter) enterNext() bool {
	if it.dense {
		tables := it.world.Tables()
		for it.cursor < len(it.tables) {
			t := tables.Get(it.tables[it.cursor])
			it.cursor++
			if t.Len() == 0 {
				continue
			}
			for i := range it.fetches {
				it.fetches[i].setTable(t)
			}
			for i := range it.filters {
				it.filters[i].setTable(t)
			}
			it.entities, it.rows, it.index = t.Entities(), nil, 0
			return true
		}
		return false
	}

	archetypes, tables := it.world.Archetypes(), it.world.Tables()
	for it.cursor < len(it.archetypes) {
		a := archetypes.Get(it.archetypes[it.cursor])
		it.cursor++
		if a.Len() == 0 {
			continue
		}
		t := tables.Get(a.TableID())
		for i := range it.fetches {
			it.fetches[i].setArchetype(it.world, t)
		}
		for i := range it.filters {
			it.filters[i].setArchetype(it.world, t)
		}
		it.entities, it.rows, it.index = a.Entities(), a.EntityTableRows(), 0
		return true
	}
	return false
}

func (it *Iter) filtersPass(e core.Entity, row int) bool {
	for i := range it.filters {
		if !it.filters[i].matches(e, row, it.window) {
			return false
		}
	}
	return true
}

// Entity returns the current entity
func (it *Iter) Entity() core.Entity {
	return it.entity
}

// Results returns the current entity's fetches in request order
// The slice is fresh per entity and may be retained
func (it *Iter) Results() []FetchResult {
	return it.results
}

// Item returns the current entity and its fetches
func (it *Iter) Item() Item {
	return Item{Entity: it.entity, Results: it.results}
}

// Dense reports whether this pass walks tables
func (it *Iter) Dense() bool {
	return it.dense
}

// Close releases the grant; safe to call more than once
func (it *Iter) Close() {
	it.finish()
}

func (it *Iter) finish() {
	if it.state == iterDone {
		return
	}
	it.state = iterDone
	it.entities, it.rows = nil, nil
	if it.exclusive {
		it.world.Unlock()
	} else {
		it.world.RUnlock()
	}
	it.query.stats.finished(it.dense, it.items, it.filtered, time.Since(it.started))
}

// Each returns a single-use sequence over one pass; the grant is released when the loop ends
func (q *DynamicQuery) Each(w *engine.World) iter.Seq2[core.Entity, []FetchResult] {
	return func(yield func(core.Entity, []FetchResult) bool) {
		it := q.Iter(w)
		defer it.Close()
		for it.Next() {
			if !yield(it.Entity(), it.Results()) {
				return
			}
		}
	}
}

// Collect runs one pass and returns every item
// Read fetches are copied out before the grant is released; write fetches keep pointing into storage
func (q *DynamicQuery) Collect(w *engine.World) []Item {
	it := q.Iter(w)
	defer it.Close()
	var items []Item
	for it.Next() {
		item := it.Item()
		for i := range item.Results {
			item.Results[i] = item.Results[i].detach()
		}
		items = append(items, item)
	}
	return items
}
