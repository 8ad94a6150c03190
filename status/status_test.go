package status

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricMapGetIsStable(t *testing.T) {
	r := NewRegistry()
	a := r.Ints.Get(WorldEntities)
	b := r.Ints.Get(WorldEntities)
	assert.Same(t, a, b)

	a.Store(7)
	assert.Equal(t, int64(7), b.Load())
	assert.Equal(t, 1, r.TotalCount())
}

func TestMetricMapConcurrentGet(t *testing.T) {
	m := NewMetricMap[AtomicFloat]()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Get("shared").Add(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, m.Count())
	assert.InDelta(t, 16.0, m.Get("shared").Get(), 1e-9)
}

func TestRangeSorted(t *testing.T) {
	m := NewMetricMap[AtomicFloat]()
	m.Get("b")
	m.Get("a")
	m.Get("c")

	var keys []string
	m.Range(func(key string, _ *AtomicFloat) {
		keys = append(keys, key)
	})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestQueryKeyRoundTrip(t *testing.T) {
	key := QueryKey("movement.v2", QueryItems)
	assert.Equal(t, "query.movement.v2.items", key)

	q, m, ok := SplitQueryKey(key)
	require.True(t, ok)
	assert.Equal(t, "movement.v2", q)
	assert.Equal(t, QueryItems, m)

	_, _, ok = SplitQueryKey(WorldTables)
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Ints.Get(WorldTables).Store(3)
	r.Floats.Get(QueryKey("q", QueryLastIterSeconds)).Set(0.5)

	snap := r.Snapshot()
	assert.Equal(t, 3.0, snap[WorldTables])
	assert.Equal(t, 0.5, snap["query.q.last_iter_seconds"])
}

func TestCollectorExports(t *testing.T) {
	r := NewRegistry()
	r.Ints.Get(WorldArchetypes).Store(4)
	r.Ints.Get(QueryKey("movement", QueryItems)).Store(10)

	c := NewCollector(r)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP dynecs_query_value Per-query counters and gauges
# TYPE dynecs_query_value gauge
dynecs_query_value{metric="items",query="movement"} 10
# HELP dynecs_world_objects Number of live world objects by kind
# TYPE dynecs_world_objects gauge
dynecs_world_objects{kind="archetypes"} 4
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"dynecs_world_objects", "dynecs_query_value"))
}

func TestAtomicFloatMax(t *testing.T) {
	var f AtomicFloat
	assert.Equal(t, 2.5, f.Max(2.5))
	assert.Equal(t, 2.5, f.Max(1.0))
	assert.Equal(t, 4.0, f.Max(4.0))
	assert.Equal(t, 4.0, f.Get())
	assert.Equal(t, 5.0, f.Add(1))
}

func TestCollectorNilRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(nil)))
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
