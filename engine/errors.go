package engine

import "github.com/pkg/errors"

var (
	// ErrNoSuchEntity is returned for despawned or never-allocated entities, including stale generations
	ErrNoSuchEntity = errors.New("engine: entity does not exist")
	// ErrNilComponent is returned when a nil value is inserted as a component
	ErrNilComponent = errors.New("engine: nil component value")
	// ErrUnknownComponent is returned when an id is not present in the world's registry
	ErrUnknownComponent = errors.New("engine: unknown component id")
	// ErrTypeMismatch is returned when a value does not match the registered component type
	ErrTypeMismatch = errors.New("engine: component value type mismatch")
)
