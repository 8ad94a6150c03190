package query

import "github.com/lixenwraith/dynecs/core"

type options struct {
	name          string
	logger        *core.Logger
	archetypeWalk bool
}

// Option configures a DynamicQuery
type Option func(*options)

// WithName labels the query in logs and status metrics
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger overrides the world logger for this query
func WithLogger(l *core.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithArchetypeWalk disables the table walk even when every component is table-backed
func WithArchetypeWalk() Option {
	return func(o *options) {
		o.archetypeWalk = true
	}
}
