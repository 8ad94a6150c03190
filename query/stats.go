package query

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/dynecs/status"
)

// queryStats caches metric pointers for one query; a nil receiver records nothing
type queryStats struct {
	matchedArchetypes *atomic.Int64
	matchedTables     *atomic.Int64
	scanned           *atomic.Int64
	iterations        *atomic.Int64
	denseIterations   *atomic.Int64
	items             *atomic.Int64
	filtered          *atomic.Int64
	lastIter          *status.AtomicFloat
	maxIter           *status.AtomicFloat
}

func newQueryStats(reg *status.Registry, name string) *queryStats {
	if reg == nil {
		return nil
	}
	key := func(metric string) string { return status.QueryKey(name, metric) }
	return &queryStats{
		matchedArchetypes: reg.Ints.Get(key(status.QueryMatchedArchetypes)),
		matchedTables:     reg.Ints.Get(key(status.QueryMatchedTables)),
		scanned:           reg.Ints.Get(key(status.QueryArchetypesScanned)),
		iterations:        reg.Ints.Get(key(status.QueryIterations)),
		denseIterations:   reg.Ints.Get(key(status.QueryDenseIterations)),
		items:             reg.Ints.Get(key(status.QueryItems)),
		filtered:          reg.Ints.Get(key(status.QueryFilteredRows)),
		lastIter:          reg.Floats.Get(key(status.QueryLastIterSeconds)),
		maxIter:           reg.Floats.Get(key(status.QueryMaxIterSeconds)),
	}
}

func (s *queryStats) matched(scanned, archetypes, tables int) {
	if s == nil {
		return
	}
	s.scanned.Add(int64(scanned))
	s.matchedArchetypes.Store(int64(archetypes))
	s.matchedTables.Store(int64(tables))
}

func (s *queryStats) finished(dense bool, items, filtered int, elapsed time.Duration) {
	if s == nil {
		return
	}
	s.iterations.Add(1)
	if dense {
		s.denseIterations.Add(1)
	}
	s.items.Add(int64(items))
	s.filtered.Add(int64(filtered))
	s.lastIter.Set(elapsed.Seconds())
	s.maxIter.Max(elapsed.Seconds())
}
