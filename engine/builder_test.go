package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/registry"
)

func TestEntityBuilder(t *testing.T) {
	w := NewWorld()
	e := w.NewEntity().
		With(position{1, 2}).
		WithIf(false, velocity{}).
		WithIf(true, tag{"t"}).
		Build()

	pos, ok := GetComponent[position](w, e)
	require.True(t, ok)
	assert.Equal(t, position{1, 2}, pos)
	_, ok = GetComponent[velocity](w, e)
	assert.False(t, ok)
	_, ok = GetComponent[tag](w, e)
	assert.True(t, ok)
}

func TestEntityBuilderMisuse(t *testing.T) {
	w := NewWorld()
	b := w.NewEntity().With(position{})
	b.Build()
	assert.Panics(t, func() { b.Build() })
	assert.Panics(t, func() { b.With(velocity{}) })
}

func TestQueryBuilderPresence(t *testing.T) {
	w := NewWorld()
	posID := registry.MustRegister[position](w.Components(), core.StorageTable)
	velID := registry.MustRegister[velocity](w.Components(), core.StorageTable)
	tagID := registry.MustRegister[tag](w.Components(), core.StorageSparse)

	moving := w.Spawn(position{}, velocity{})
	still := w.Spawn(position{})
	tagged := w.Spawn(position{}, velocity{}, tag{})

	got := w.Query().With(posID).With(velID).Without(tagID).Execute()
	assert.ElementsMatch(t, []core.Entity{moving}, got)

	got = w.Query().With(posID).Execute()
	assert.ElementsMatch(t, []core.Entity{moving, still, tagged}, got)

	q := w.Query().With(tagID)
	assert.Equal(t, q.Execute(), q.Execute())
	assert.Panics(t, func() { q.Without(velID) })
}

func TestResources(t *testing.T) {
	type config struct{ Speed int }
	w := NewWorld()

	_, ok := GetResource[*config](w.Resources)
	assert.False(t, ok)

	AddResource(w.Resources, &config{Speed: 3})
	cfg := MustGetResource[*config](w.Resources)
	cfg.Speed = 5
	assert.Equal(t, 5, MustGetResource[*config](w.Resources).Speed)

	v, ok := w.Resources.ByName("*engine.config")
	require.True(t, ok)
	assert.Same(t, cfg, v)
	assert.Equal(t, []string{"*engine.config"}, w.Resources.Names())

	assert.True(t, RemoveResource[*config](w.Resources))
	assert.Equal(t, 0, w.Resources.Len())
	assert.Panics(t, func() { MustGetResource[*config](w.Resources) })
}
