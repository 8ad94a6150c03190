package query

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/core"
)

// ErrReadOnly is returned when writing through a read fetch
var ErrReadOnly = errors.New("query: fetch is read-only")

// FetchResult is the handle to one fetched component of one entity
// Accessors read world storage lazily while the iterator holds its grant.
// Results returned by Collect or Get carry a detached copy for read fetches; their write fetches still
// point into storage with no grant held, so Set, Ptr and Mut on them are unsynchronised with other users of the world
type FetchResult struct {
	component core.ComponentID
	mode      FetchMode
	value     reflect.Value
	ticks     core.ComponentTicks
	window    window
}

// Component returns the fetched component id
func (r FetchResult) Component() core.ComponentID {
	return r.component
}

// Mode returns the access mode the component was fetched with
func (r FetchResult) Mode() FetchMode {
	return r.mode
}

// Value returns a copy of the component
func (r FetchResult) Value() any {
	return r.value.Interface()
}

// Reflect returns the stored value; it is addressable only for write fetches
func (r FetchResult) Reflect() reflect.Value {
	if r.mode == Write {
		return r.value
	}
	// Copy so read fetches cannot be mutated through reflection
	v := reflect.New(r.value.Type()).Elem()
	v.Set(r.value)
	return v
}

// Ptr returns a pointer into world storage
// Panics for read fetches
func (r FetchResult) Ptr() any {
	if r.mode != Write {
		panic(fmt.Sprintf("Ptr on read fetch of component %d", r.component))
	}
	return r.value.Addr().Interface()
}

// Set overwrites the stored component
// Only synchronised while the producing iterator holds its grant
func (r FetchResult) Set(v any) error {
	if r.mode != Write {
		return errors.Wrapf(ErrReadOnly, "component %d", r.component)
	}
	if v == nil {
		return errors.Errorf("query: nil value for component %d", r.component)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != r.value.Type() {
		return errors.Errorf("query: component %d holds %s, got %s", r.component, r.value.Type(), rv.Type())
	}
	r.value.Set(rv)
	return nil
}

// detach replaces a read fetch's storage reference with a private copy
func (r FetchResult) detach() FetchResult {
	if r.mode == Write {
		return r
	}
	v := reflect.New(r.value.Type()).Elem()
	v.Set(r.value)
	r.value = v
	return r
}

// Ticks returns the component's ticks as seen at fetch time, after any write stamp
func (r FetchResult) Ticks() core.ComponentTicks {
	return r.ticks
}

// IsAdded reports whether the component was added inside the iteration window
func (r FetchResult) IsAdded() bool {
	return r.ticks.IsAdded(r.window.lastRun, r.window.current)
}

// IsChanged reports whether the component changed inside the iteration window
// Always true for write fetches since producing the handle marks the component changed
func (r FetchResult) IsChanged() bool {
	return r.ticks.IsChanged(r.window.lastRun, r.window.current)
}

// Ref returns a copy of the fetched component as T
// Panics if the component is not a T
func Ref[T any](r FetchResult) T {
	v, ok := r.value.Interface().(T)
	if !ok {
		panic(fmt.Sprintf("component %d is %s, not %s", r.component, r.value.Type(), reflect.TypeFor[T]()))
	}
	return v
}

// Mut returns a pointer to the stored component as *T
// Panics for read fetches or if the component is not a T
func Mut[T any](r FetchResult) *T {
	p, ok := r.Ptr().(*T)
	if !ok {
		panic(fmt.Sprintf("component %d is %s, not %s", r.component, r.value.Type(), reflect.TypeFor[T]()))
	}
	return p
}
