package engine

import (
	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/parameter"
	"github.com/lixenwraith/dynecs/registry"
	"github.com/lixenwraith/dynecs/status"
)

type options struct {
	logger         *core.Logger
	status         *status.Registry
	components     *registry.Components
	columnCapacity int
	entityCapacity int
}

func defaultOptions() options {
	return options{
		logger:         core.NoopLogger(),
		columnCapacity: parameter.DefaultColumnCapacity,
		entityCapacity: parameter.DefaultEntityCapacity,
	}
}

// Option configures a World
type Option func(*options)

// WithLogger sets the logger used for structural events
func WithLogger(l *core.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStatus attaches a counter registry shared with queries run against the world
func WithStatus(r *status.Registry) Option {
	return func(o *options) {
		o.status = r
	}
}

// WithRegistry shares an existing component registry instead of creating one
func WithRegistry(c *registry.Components) Option {
	return func(o *options) {
		o.components = c
	}
}

// WithInitialCapacity sizes new columns, sparse sets and the entity table
func WithInitialCapacity(columns, entities int) Option {
	return func(o *options) {
		if columns > 0 {
			o.columnCapacity = columns
		}
		if entities > 0 {
			o.entityCapacity = entities
		}
	}
}
