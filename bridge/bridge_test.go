package bridge

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/dynecs/component"
	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
	"github.com/lixenwraith/dynecs/query"
	"github.com/lixenwraith/dynecs/registry"
)

type settings struct {
	Speed int
	Name  string
}

type pair struct{ A, B int }

func (p pair) Swap() pair {
	return pair{A: p.B, B: p.A}
}

func (p pair) Sum(other pair) int {
	return p.A + p.B + other.A + other.B
}

func (p pair) Check(limit int) (bool, error) {
	if p.A > limit {
		return false, errors.New("over limit")
	}
	return true, nil
}

func newTestBridge(t *testing.T) (*Bridge, *engine.World) {
	t.Helper()
	w := engine.NewWorld()
	require.NoError(t, component.Register(w.Components()))
	return New(w), w
}

func call(t *testing.T, b *Bridge, op string, args ...any) []byte {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	out, err := b.Call(op, raw)
	require.NoError(t, err, op)
	return out
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func byName(name string) map[string]any {
	return map[string]any{"typeName": name}
}

func TestUnknownOp(t *testing.T) {
	b, _ := newTestBridge(t)
	_, err := b.Call("world_explode", nil)
	assert.True(t, errors.Is(err, ErrUnknownOp))
}

func TestBadArgs(t *testing.T) {
	b, _ := newTestBridge(t)
	_, err := b.Call("world_query", []byte(`{"not":"an array"}`))
	assert.True(t, errors.Is(err, ErrBadArgs))

	_, err = b.Call("world_query", []byte(`[]`))
	assert.True(t, errors.Is(err, ErrBadArgs))

	_, err = b.Call("world_query", []byte(`[{"components":[{"index":0,"typeName":"x"}]}]`))
	assert.True(t, errors.Is(err, ErrBadArgs))
}

func TestWorldInfoOps(t *testing.T) {
	b, w := newTestBridge(t)
	w.Spawn(component.PositionComponent{X: 1})

	s := decode[string](t, call(t, b, "world_to_string"))
	assert.Contains(t, s, "entities: 1")

	infos := decode[[]ComponentInfo](t, call(t, b, "world_components"))
	require.Len(t, infos, len(component.Storage))
	assert.Equal(t, "component.PositionComponent", infos[0].Name)
	assert.Equal(t, "table", infos[0].Storage)

	entities := decode[[]Entity](t, call(t, b, "world_entities"))
	require.Len(t, entities, 1)
	assert.Equal(t, uint32(0), entities[0].ID)
}

func TestSpawnInsertQueryAndEdit(t *testing.T) {
	b, w := newTestBridge(t)

	ent := decode[Entity](t, call(t, b, "entity_spawn"))
	call(t, b, "component_insert", ent, byName("component.PositionComponent"), map[string]int{"x": 3, "y": 4})
	posID, _ := registry.IDFor[component.PositionComponent](w.Components())
	call(t, b, "component_insert", ent, map[string]uint32{"index": uint32(posID) + 1}, map[string]int{"velX": 1})

	items := decode[[]QueryItem](t, call(t, b, "world_query", QueryDescriptor{
		Components: []ComponentRef{{TypeName: ptr("component.PositionComponent")}},
	}))
	require.Len(t, items, 1)
	assert.Equal(t, ent.Bits, items[0].Entity.Bits)
	require.Len(t, items[0].Components, 1)
	ref := items[0].Components[0]

	x := decode[int](t, call(t, b, "value_ref_get", ref, "X"))
	assert.Equal(t, 3, x)
	assert.Equal(t, []string{"X", "Y"}, decode[[]string](t, call(t, b, "value_ref_keys", ref)))
	assert.Equal(t, "{X:3 Y:4}", decode[string](t, call(t, b, "value_ref_to_string", ref)))

	w.ClearTrackers()
	call(t, b, "value_ref_set", ref, "Y", 40)
	pos, _ := engine.GetComponent[component.PositionComponent](w, ent.Core())
	assert.Equal(t, component.PositionComponent{X: 3, Y: 40}, pos)
	ticks, _ := w.Ticks(ent.Core(), posID)
	assert.True(t, ticks.IsChanged(w.LastChangeTick(), w.ChangeTick()))

	_, err := b.Call("value_ref_get", mustJSON(t, ref, "Z"))
	assert.True(t, errors.Is(err, ErrNoSuchField))

	assert.True(t, decode[bool](t, call(t, b, "value_ref_free", ref)))
	assert.False(t, decode[bool](t, call(t, b, "value_ref_free", ref)))
	_, err = b.Call("value_ref_get", mustJSON(t, ref, "X"))
	assert.True(t, errors.Is(err, ErrStaleRef))
}

func TestNestedRefs(t *testing.T) {
	type inner struct{ Values []int }
	type outer struct{ In inner }
	b, w := newTestBridge(t)
	e := w.Spawn(outer{In: inner{Values: []int{1, 2, 3}}})

	items := decode[[]QueryItem](t, call(t, b, "world_query", QueryDescriptor{
		Components: []ComponentRef{{TypeName: ptr("bridge.outer")}},
	}))
	require.Len(t, items, 1)

	in := decode[ValueRef](t, call(t, b, "value_ref_get", items[0].Components[0], "In"))
	values := decode[ValueRef](t, call(t, b, "value_ref_get", in, "Values"))
	assert.Equal(t, []string{"0", "1", "2"}, decode[[]string](t, call(t, b, "value_ref_keys", values)))
	assert.Equal(t, 2, decode[int](t, call(t, b, "value_ref_get", values, 1)))

	call(t, b, "value_ref_set", values, "2", 30)
	got, _ := engine.GetComponent[outer](w, e)
	assert.Equal(t, []int{1, 2, 30}, got.In.Values)
}

func TestRefObservesDespawn(t *testing.T) {
	b, w := newTestBridge(t)
	e := w.Spawn(component.HeatComponent{Current: 5})

	items := decode[[]QueryItem](t, call(t, b, "world_query", QueryDescriptor{
		Components: []ComponentRef{{TypeName: ptr("component.HeatComponent")}},
	}))
	ref := items[0].Components[0]

	call(t, b, "entity_despawn", entityJSON(e))
	_, err := b.Call("value_ref_get", mustJSON(t, ref, "Current"))
	assert.True(t, errors.Is(err, ErrStaleRef))
	_, err = b.Call("value_ref_set", mustJSON(t, ref, "Current", 1))
	assert.True(t, errors.Is(err, ErrStaleRef))
}

func TestDescriptorFetchAndFilter(t *testing.T) {
	b, w := newTestBridge(t)
	moving := w.Spawn(component.PositionComponent{}, component.KineticComponent{VelX: 1})
	w.Spawn(component.PositionComponent{})
	shielded := w.Spawn(component.PositionComponent{}, component.KineticComponent{}, component.ShieldComponent{Active: true})

	desc := QueryDescriptor{
		Fetch: []FetchJSON{
			{Component: ComponentRef{TypeName: ptr("component.PositionComponent")}, Mode: "write"},
			{Component: ComponentRef{TypeName: ptr("component.KineticComponent")}, Mode: "read"},
		},
		Filter: []FilterJSON{{Component: ComponentRef{TypeName: ptr("component.ShieldComponent")}, Kind: "without"}},
	}
	items := decode[[]QueryItem](t, call(t, b, "world_query", desc))
	require.Len(t, items, 1)
	assert.Equal(t, moving.Bits(), items[0].Entity.Bits)
	assert.Len(t, items[0].Components, 2)

	got := call(t, b, "world_query_get", entityJSON(moving), desc)
	assert.Len(t, decode[[]ValueRef](t, got), 2)
	assert.Equal(t, "null", string(call(t, b, "world_query_get", entityJSON(shielded), desc)))

	// Same descriptor reuses the cached query
	call(t, b, "world_query", desc)
	assert.Len(t, b.queries, 1)
}

func TestDescriptorConflict(t *testing.T) {
	b, _ := newTestBridge(t)
	desc := QueryDescriptor{
		Components: []ComponentRef{{TypeName: ptr("component.HeatComponent")}},
		Fetch:      []FetchJSON{{Component: ComponentRef{TypeName: ptr("component.HeatComponent")}, Mode: "write"}},
	}
	_, err := b.Call("world_query", mustJSON(t, desc))
	assert.True(t, errors.Is(err, query.ErrAccessConflict))
	var ce *query.ConflictError
	assert.True(t, errors.As(err, &ce))

	_, err = b.Call("world_query", mustJSON(t, QueryDescriptor{
		Components: []ComponentRef{{TypeName: ptr("component.Missing")}},
	}))
	assert.True(t, errors.Is(err, ErrUnknownComponent))
}

func TestResourceOps(t *testing.T) {
	b, w := newTestBridge(t)
	engine.AddResource(w.Resources, &settings{Speed: 2, Name: "fast"})

	names := decode[[]string](t, call(t, b, "world_resources"))
	assert.Equal(t, []string{"*bridge.settings"}, names)
	assert.Equal(t, "null", string(call(t, b, "world_get_resource", "*bridge.missing")))

	ref := decode[ValueRef](t, call(t, b, "world_get_resource", "*bridge.settings"))
	assert.Equal(t, "fast", decode[string](t, call(t, b, "value_ref_get", ref, "Name")))
	call(t, b, "value_ref_set", ref, "Speed", 9)
	assert.Equal(t, 9, engine.MustGetResource[*settings](w.Resources).Speed)
}

func TestValueRefEq(t *testing.T) {
	b, w := newTestBridge(t)
	w.Spawn(component.TimerComponent{Remaining: 5})
	w.Spawn(component.TimerComponent{Remaining: 5})
	w.Spawn(component.TimerComponent{Remaining: 6})

	items := decode[[]QueryItem](t, call(t, b, "world_query", QueryDescriptor{
		Components: []ComponentRef{{TypeName: ptr("component.TimerComponent")}},
	}))
	require.Len(t, items, 3)
	a, c, d := items[0].Components[0], items[1].Components[0], items[2].Components[0]
	assert.True(t, decode[bool](t, call(t, b, "value_ref_eq", a, c)))
	assert.False(t, decode[bool](t, call(t, b, "value_ref_eq", a, d)))
	assert.Equal(t, 3, b.LiveRefs())
}

func TestRefTableGenerations(t *testing.T) {
	var rt refTable
	k1 := rt.insert(valueRef{component: 1})
	require.True(t, rt.remove(k1))
	k2 := rt.insert(valueRef{component: 2})

	assert.Equal(t, uint32(k1.Key), uint32(k2.Key))
	_, ok := rt.get(k1)
	assert.False(t, ok)
	r, ok := rt.get(k2)
	require.True(t, ok)
	assert.Equal(t, core.ComponentID(2), r.component)
}

func TestEntityWireForms(t *testing.T) {
	e := core.NewEntity(7, 3)
	assert.Equal(t, e, entityJSON(e).Core())
	assert.Equal(t, e, Entity{ID: 7, Generation: 3}.Core())
	assert.Equal(t, e, Entity{Bits: e.Bits()}.Core())
}

func ptr[T any](v T) *T {
	return &v
}

func mustJSON(t *testing.T, args ...any) []byte {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return raw
}

func TestQueryGetStampsOnlyTarget(t *testing.T) {
	b, w := newTestBridge(t)
	var ents []core.Entity
	for i := 0; i < 5; i++ {
		ents = append(ents, w.Spawn(component.PositionComponent{X: i}))
	}
	w.ClearTrackers()
	w.ClearTrackers()

	desc := QueryDescriptor{Fetch: []FetchJSON{
		{Component: ComponentRef{TypeName: ptr("component.PositionComponent")}, Mode: "write"},
	}}
	refs := decode[[]ValueRef](t, call(t, b, "world_query_get", entityJSON(ents[4]), desc))
	require.Len(t, refs, 1)
	assert.Equal(t, 4, decode[int](t, call(t, b, "value_ref_get", refs[0], "X")))

	posID, _ := registry.IDFor[component.PositionComponent](w.Components())
	for i, e := range ents {
		ticks, _ := w.Ticks(e, posID)
		assert.Equal(t, i == 4, ticks.IsChanged(w.LastChangeTick(), w.ChangeTick()), "entity %d", i)
	}
}

func TestEndFrameStalesRefs(t *testing.T) {
	b, w := newTestBridge(t)
	for i := 0; i < 100; i++ {
		w.Spawn(component.PositionComponent{X: i})
	}
	desc := QueryDescriptor{Components: []ComponentRef{{TypeName: ptr("component.PositionComponent")}}}

	var first []QueryItem
	for i := 0; i < 50; i++ {
		items := decode[[]QueryItem](t, call(t, b, "world_query", desc))
		if first == nil {
			first = items
		}
	}
	assert.Equal(t, 5000, b.LiveRefs())

	b.EndFrame()
	assert.Zero(t, b.LiveRefs())
	_, err := b.Call("value_ref_get", mustJSON(t, first[0].Components[0], "X"))
	assert.True(t, errors.Is(err, ErrStaleRef))

	items := decode[[]QueryItem](t, call(t, b, "world_query", desc))
	require.Len(t, items, 100)
	assert.Equal(t, 100, b.LiveRefs())
	assert.NotEqual(t, first[0].Components[0], items[0].Components[0])
	_, err = b.Call("value_ref_get", mustJSON(t, items[0].Components[0], "X"))
	assert.NoError(t, err)

	assert.Equal(t, 100, decode[int](t, call(t, b, "frame_end")))
	assert.Zero(t, b.LiveRefs())
}

func TestValueRefCall(t *testing.T) {
	b, w := newTestBridge(t)
	hot := w.Spawn(component.HeatComponent{Current: 3, Max: 10}, component.ShieldComponent{Active: true, RadiusX: 2, RadiusY: 1})
	w.Spawn(pair{A: 1, B: 2})
	w.ClearTrackers()

	heat := decode[[]QueryItem](t, call(t, b, "world_query", QueryDescriptor{Components: []ComponentRef{
		{TypeName: ptr("component.HeatComponent")},
		{TypeName: ptr("component.ShieldComponent")},
	}}))
	require.Len(t, heat, 1)
	heatRef, shieldRef := heat[0].Components[0], heat[0].Components[1]

	// value receiver
	assert.True(t, decode[bool](t, call(t, b, "value_ref_call", shieldRef, "Covers", 1, 0)))
	assert.False(t, decode[bool](t, call(t, b, "value_ref_call", shieldRef, "Covers", 2, 1)))

	// pointer receiver runs on storage and marks the component changed
	assert.Equal(t, int64(10), decode[int64](t, call(t, b, "value_ref_call", heatRef, "Add", 20)))
	got, _ := engine.GetComponent[component.HeatComponent](w, hot)
	assert.Equal(t, int64(10), got.Current)
	heatID, _ := registry.IDFor[component.HeatComponent](w.Components())
	ticks, _ := w.Ticks(hot, heatID)
	assert.True(t, ticks.IsChanged(w.LastChangeTick(), w.ChangeTick()))

	pairs := decode[[]QueryItem](t, call(t, b, "world_query", QueryDescriptor{
		Components: []ComponentRef{{TypeName: ptr("bridge.pair")}},
	}))
	require.Len(t, pairs, 1)
	p := pairs[0].Components[0]

	// struct results come back as refs, refs are accepted as arguments
	swapped := decode[ValueRef](t, call(t, b, "value_ref_call", p, "Swap"))
	assert.Equal(t, 2, decode[int](t, call(t, b, "value_ref_get", swapped, "A")))
	assert.Equal(t, 6, decode[int](t, call(t, b, "value_ref_call", p, "Sum", swapped)))
	assert.Equal(t, 4, decode[int](t, call(t, b, "value_ref_call", p, "Sum", map[string]int{"A": 1})))

	assert.True(t, decode[bool](t, call(t, b, "value_ref_call", p, "Check", 5)))
	_, err := b.Call("value_ref_call", mustJSON(t, p, "Check", 0))
	assert.ErrorContains(t, err, "over limit")

	_, err = b.Call("value_ref_call", mustJSON(t, p, "Missing"))
	assert.True(t, errors.Is(err, ErrNoSuchMethod))
	_, err = b.Call("value_ref_call", mustJSON(t, p, "Sum"))
	assert.True(t, errors.Is(err, ErrBadArgs))
	_, err = b.Call("value_ref_call", mustJSON(t, shieldRef, "Covers", "left", 0))
	assert.True(t, errors.Is(err, ErrBadArgs))
}
