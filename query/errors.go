package query

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/core"
)

var (
	// ErrAccessConflict is wrapped by every ConflictError
	ErrAccessConflict = errors.New("query: conflicting access")
	// ErrUnknownComponent is returned when a request names an id missing from the world's registry
	ErrUnknownComponent = errors.New("query: unknown component")
)

// ConflictError names the first pair of requests that would alias one component
type ConflictError struct {
	Component core.ComponentID
	Name      string
	// Request is the rejected request, Previous the earlier one it collides with
	Request  string
	Previous string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("query: %s of %s (id %d) conflicts with earlier %s",
		e.Request, e.Name, e.Component, e.Previous)
}

// Unwrap lets errors.Is match ErrAccessConflict
func (e *ConflictError) Unwrap() error {
	return ErrAccessConflict
}
