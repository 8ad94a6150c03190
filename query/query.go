package query

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
	"github.com/lixenwraith/dynecs/parameter"
	"github.com/lixenwraith/dynecs/registry"
)

var querySeq atomic.Uint64

// DynamicQuery is a query whose fetches and filters are chosen at run time
// It is bound to the world it was built against and keeps an incrementally extended match set
type DynamicQuery struct {
	name    string
	worldID engine.WorldID
	desc    Descriptor

	fetchInfo  []registry.ComponentInfo
	filterInfo []registry.ComponentInfo
	access     FilteredAccess
	dense      bool

	// Match set, guarded by mu; slices are append-only so iterators may keep a prefix
	mu                sync.Mutex
	generation        engine.ArchetypeGeneration
	matchedArchetypes *roaring.Bitmap
	matchedTables     *roaring.Bitmap
	archetypeIDs      []engine.ArchetypeID
	tableIDs          []engine.TableID

	logger *core.Logger
	stats  *queryStats
}

// New validates the requests against w's registry and scans every existing archetype
// Requests that alias one component fail with a *ConflictError naming the first offending request
func New(w *engine.World, fetches []FetchRequest, filters []FilterRequest, opts ...Option) (*DynamicQuery, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = fmt.Sprintf("dynamic-%d", querySeq.Add(1))
	}
	if o.logger == nil {
		o.logger = w.Logger()
	}

	q := &DynamicQuery{
		name:              o.name,
		worldID:           w.ID(),
		desc:              Descriptor{Fetch: fetches, Filter: filters},
		fetchInfo:         make([]registry.ComponentInfo, len(fetches)),
		filterInfo:        make([]registry.ComponentInfo, len(filters)),
		matchedArchetypes: roaring.New(),
		matchedTables:     roaring.New(),
		archetypeIDs:      make([]engine.ArchetypeID, 0, parameter.DefaultQueryCapacity),
		tableIDs:          make([]engine.TableID, 0, parameter.DefaultQueryCapacity),
		logger:            o.logger.WithQuery(o.name),
	}

	comps := w.Components()
	dense := !o.archetypeWalk
	for i, f := range fetches {
		info, ok := comps.Info(f.Component)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownComponent, "fetch %d: component %d", i, f.Component)
		}
		q.fetchInfo[i] = info
		dense = dense && info.Storage == core.StorageTable
	}
	for i, f := range filters {
		info, ok := comps.Info(f.Component)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownComponent, "filter %d: component %d", i, f.Component)
		}
		q.filterInfo[i] = info
		dense = dense && info.Storage == core.StorageTable
	}
	q.dense = dense

	access, err := q.buildAccess()
	if err != nil {
		q.logger.Debug("query rejected", "descriptor", q.desc.String(), "error", err)
		return nil, err
	}
	q.access = access
	q.stats = newQueryStats(w.Status(), q.name)

	w.RLock()
	q.updateLocked(w)
	w.RUnlock()

	q.logger.Debug("query built", "descriptor", q.desc.String(), "dense", q.dense, "matched", len(q.archetypeIDs))
	return q, nil
}

// buildAccess merges fetch access then filter access, failing on the first aliasing pair in request order
func (q *DynamicQuery) buildAccess() (FilteredAccess, error) {
	fetchAccess := newFilteredAccess()
	for i, f := range q.desc.Fetch {
		id := f.Component
		switch f.Mode {
		case Read:
			if fetchAccess.access.HasWrite(id) {
				return FilteredAccess{}, q.conflict(i, Read.String(), Write.String())
			}
			fetchAccess.AddRead(id)
		case Write:
			if fetchAccess.access.HasWrite(id) {
				return FilteredAccess{}, q.conflict(i, Write.String(), Write.String())
			}
			if fetchAccess.access.HasRead(id) {
				return FilteredAccess{}, q.conflict(i, Write.String(), Read.String())
			}
			fetchAccess.AddWrite(id)
		default:
			panic(fmt.Sprintf("unknown fetch mode %d", f.Mode))
		}
	}

	// Filters only read tick metadata so they never conflict among themselves
	filterAccess := newFilteredAccess()
	for _, f := range q.desc.Filter {
		switch f.Kind {
		case With:
			filterAccess.AddWith(f.Component)
		case Without:
			filterAccess.AddWithout(f.Component)
		case Changed, Added:
			filterAccess.AddRead(f.Component)
		default:
			panic(fmt.Sprintf("unknown filter kind %d", f.Kind))
		}
	}

	for i, f := range q.desc.Filter {
		if f.Kind.tickFilter() && fetchAccess.access.HasWrite(f.Component) {
			return FilteredAccess{}, q.filterConflict(i)
		}
	}
	fetchAccess.Extend(&filterAccess)
	return fetchAccess, nil
}

func (q *DynamicQuery) conflict(fetch int, request, previous string) error {
	info := q.fetchInfo[fetch]
	return &ConflictError{Component: info.ID, Name: info.Name, Request: request, Previous: previous}
}

func (q *DynamicQuery) filterConflict(filter int) error {
	info := q.filterInfo[filter]
	return &ConflictError{
		Component: info.ID,
		Name:      info.Name,
		Request:   q.desc.Filter[filter].Kind.String() + " filter",
		Previous:  Write.String(),
	}
}

// Name returns the query label
func (q *DynamicQuery) Name() string {
	return q.name
}

// Descriptor returns the requests the query was built from
func (q *DynamicQuery) Descriptor() Descriptor {
	return q.desc
}

// Access returns the merged access and membership requirements
func (q *DynamicQuery) Access() *FilteredAccess {
	return &q.access
}

// IsDense reports whether iteration walks tables row by row
func (q *DynamicQuery) IsDense() bool {
	return q.dense
}

// Generation returns the archetype watermark reached by the last update
func (q *DynamicQuery) Generation() engine.ArchetypeGeneration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.generation
}

// MatchedArchetypes returns matched archetype ids in creation order
func (q *DynamicQuery) MatchedArchetypes() []engine.ArchetypeID {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]engine.ArchetypeID, len(q.archetypeIDs))
	copy(out, q.archetypeIDs)
	return out
}

// MatchedTables returns tables of matched archetypes in first-match order
func (q *DynamicQuery) MatchedTables() []engine.TableID {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]engine.TableID, len(q.tableIDs))
	copy(out, q.tableIDs)
	return out
}

// MatchesArchetype reports whether id is in the match set
func (q *DynamicQuery) MatchesArchetype(id engine.ArchetypeID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.matchedArchetypes.Contains(uint32(id))
}

// UpdateArchetypes scans archetypes created since the last update
// Redundant calls are no-ops; panics if w is not the world the query was built against
func (q *DynamicQuery) UpdateArchetypes(w *engine.World) {
	q.validateWorld(w)
	w.RLock()
	defer w.RUnlock()
	q.updateLocked(w)
}

// updateLocked requires a grant on w
func (q *DynamicQuery) updateLocked(w *engine.World) {
	archetypes := w.Archetypes()

	q.mu.Lock()
	defer q.mu.Unlock()

	gen := archetypes.Generation()
	if gen == q.generation {
		return
	}
	scanned := 0
	for _, a := range archetypes.Since(q.generation) {
		scanned++
		q.addArchetypeLocked(a)
	}
	q.generation = gen
	q.stats.matched(scanned, len(q.archetypeIDs), len(q.tableIDs))
}

func (q *DynamicQuery) addArchetypeLocked(a *engine.Archetype) {
	if !q.access.Matches(a.ComponentBits()) {
		return
	}
	if !q.matchedArchetypes.CheckedAdd(uint32(a.ID())) {
		return
	}
	q.archetypeIDs = append(q.archetypeIDs, a.ID())
	if q.matchedTables.CheckedAdd(uint32(a.TableID())) {
		q.tableIDs = append(q.tableIDs, a.TableID())
	}
	q.logger.Debug("archetype matched", "archetype", a.ID(), "table", a.TableID(), "entities", a.Len())
}

// snapshot returns the current match lists; elements are never rewritten so the prefix stays valid
func (q *DynamicQuery) snapshot() ([]engine.ArchetypeID, []engine.TableID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.archetypeIDs[:len(q.archetypeIDs):len(q.archetypeIDs)], q.tableIDs[:len(q.tableIDs):len(q.tableIDs)]
}

func (q *DynamicQuery) validateWorld(w *engine.World) {
	if w.ID() != q.worldID {
		panic(fmt.Sprintf("query %q was built for world %d, used with world %d", q.name, q.worldID, w.ID()))
	}
}
