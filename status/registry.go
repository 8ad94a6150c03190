package status

import (
	"strings"
	"sync/atomic"
)

// World-level gauges maintained by the engine on every structural change
const (
	WorldArchetypes = "world.archetypes"
	WorldTables     = "world.tables"
	WorldEntities   = "world.entities"
)

// Per-query counters, keyed by QueryKey
const (
	QueryMatchedArchetypes = "matched_archetypes"
	QueryMatchedTables     = "matched_tables"
	QueryArchetypesScanned = "archetypes_scanned"
	QueryIterations        = "iterations"
	QueryItems             = "items"
	QueryFilteredRows      = "filtered_rows"
	QueryDenseIterations   = "dense_iterations"
	QueryLastIterSeconds   = "last_iter_seconds"
	QueryMaxIterSeconds    = "max_iter_seconds"
)

// Registry is the central metrics facade
// Producers cache pointers once and write atomics directly on hot paths
type Registry struct {
	Ints   *MetricMap[atomic.Int64]
	Floats *MetricMap[AtomicFloat]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Ints:   NewMetricMap[atomic.Int64](),
		Floats: NewMetricMap[AtomicFloat](),
	}
}

// QueryKey builds the key for a per-query metric
func QueryKey(query, metric string) string {
	return "query." + query + "." + metric
}

// SplitQueryKey reverses QueryKey
// Query names may contain dots, the metric is always the last segment
func SplitQueryKey(key string) (query, metric string, ok bool) {
	rest, found := strings.CutPrefix(key, "query.")
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Ints.Count() + r.Floats.Count()
}

// Snapshot copies every metric into a flat map, floats and ints alike
func (r *Registry) Snapshot() map[string]float64 {
	out := make(map[string]float64, r.TotalCount())
	r.Ints.Range(func(key string, v *atomic.Int64) {
		out[key] = float64(v.Load())
	})
	r.Floats.Range(func(key string, v *AtomicFloat) {
		out[key] = v.Get()
	})
	return out
}
