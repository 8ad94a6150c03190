package bridge

import "github.com/pkg/errors"

var (
	ErrUnknownOp        = errors.New("bridge: unknown op")
	ErrBadArgs          = errors.New("bridge: bad arguments")
	ErrUnknownComponent = errors.New("bridge: unknown component")
	ErrStaleRef         = errors.New("bridge: value ref no longer valid")
	ErrNoSuchField      = errors.New("bridge: no such field")
	ErrReadOnly         = errors.New("bridge: value is read-only")
	ErrNoSuchMethod     = errors.New("bridge: no such method")
)
