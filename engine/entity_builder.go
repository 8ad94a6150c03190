package engine

import "github.com/lixenwraith/dynecs/core"

// EntityBuilder collects component values and spawns the entity in one structural change
//
// Example:
//
//	e := world.NewEntity().
//	    With(component.Position{X: 1}).
//	    With(component.Glyph{Rune: 'a'}).
//	    Build()
type EntityBuilder struct {
	world  *World
	values []any
	built  bool
}

// NewEntity starts a builder; nothing is allocated until Build
func (w *World) NewEntity() *EntityBuilder {
	return &EntityBuilder{
		world:  w,
		values: make([]any, 0, 4),
	}
}

// With adds a component value
// Panics if called after Build()
func (eb *EntityBuilder) With(component any) *EntityBuilder {
	if eb.built {
		panic("entity already built - cannot add components after Build()")
	}
	eb.values = append(eb.values, component)
	return eb
}

// WithIf adds a component only when cond holds
func (eb *EntityBuilder) WithIf(cond bool, component any) *EntityBuilder {
	if cond {
		return eb.With(component)
	}
	return eb
}

// Build spawns the entity directly into its final archetype
// Panics if called twice
func (eb *EntityBuilder) Build() core.Entity {
	if eb.built {
		panic("entity already built - Build() called twice")
	}
	eb.built = true
	return eb.world.Spawn(eb.values...)
}
