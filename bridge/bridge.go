package bridge

import (
	"fmt"
	"reflect"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
	"github.com/lixenwraith/dynecs/query"
)

type opFunc func(args []json.RawMessage) (any, error)

// Bridge exposes a world to untyped callers as named ops taking and returning JSON
// Calls are serialised; the world itself may still be used directly from other goroutines
type Bridge struct {
	mu      sync.Mutex
	world   *engine.World
	refs    refTable
	queries map[string]*query.DynamicQuery
	logger  *core.Logger
	ops     map[string]opFunc
}

// New creates a bridge over w
func New(w *engine.World) *Bridge {
	b := &Bridge{
		world:   w,
		queries: make(map[string]*query.DynamicQuery),
		logger:  &core.Logger{Logger: w.Logger().With("component", "bridge")},
	}
	b.ops = map[string]opFunc{
		"world_to_string":     b.worldToString,
		"world_components":    b.worldComponents,
		"world_resources":     b.worldResources,
		"world_get_resource":  b.worldGetResource,
		"world_entities":      b.worldEntities,
		"world_query":         b.worldQuery,
		"world_query_get":     b.worldQueryGet,
		"entity_spawn":        b.entitySpawn,
		"entity_despawn":      b.entityDespawn,
		"component_insert":    b.componentInsert,
		"value_ref_get":       b.valueRefGet,
		"value_ref_set":       b.valueRefSet,
		"value_ref_keys":      b.valueRefKeys,
		"value_ref_to_string": b.valueRefToString,
		"value_ref_eq":        b.valueRefEq,
		"value_ref_call":      b.valueRefCall,
		"value_ref_free":      b.valueRefFree,
		"frame_end":           b.frameEnd,
	}
	return b
}

// Call runs op with a JSON array of positional arguments and returns the JSON result
func (b *Bridge) Call(op string, args []byte) ([]byte, error) {
	fn, ok := b.ops[op]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOp, "%q", op)
	}

	var positional []json.RawMessage
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &positional); err != nil {
			return nil, errors.Wrapf(ErrBadArgs, "%s: args must be a JSON array: %v", op, err)
		}
	}

	b.mu.Lock()
	result, err := fn(positional)
	b.mu.Unlock()
	if err != nil {
		b.logger.Debug("op failed", "op", op, "error", err)
		return nil, errors.WithMessage(err, op)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: encode result", op)
	}
	return out, nil
}

// Ops returns the supported op names
func (b *Bridge) Ops() []string {
	names := make([]string, 0, len(b.ops))
	for name := range b.ops {
		names = append(names, name)
	}
	return names
}

// EndFrame frees every value ref handed out so far
// Callers drive it once per frame; keys from earlier frames then fail with ErrStaleRef
func (b *Bridge) EndFrame() {
	b.mu.Lock()
	freed := b.refs.reset()
	b.mu.Unlock()
	if freed > 0 {
		b.logger.Debug("value refs freed", "count", freed)
	}
}

// LiveRefs returns the number of value refs not yet freed
func (b *Bridge) LiveRefs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs.len()
}

func arg[T any](args []json.RawMessage, i int) (T, error) {
	var v T
	if i >= len(args) {
		return v, errors.Wrapf(ErrBadArgs, "missing argument %d", i)
	}
	if err := json.Unmarshal(args[i], &v); err != nil {
		return v, errors.Wrapf(ErrBadArgs, "argument %d: %v", i, err)
	}
	return v, nil
}

// --- World ops ---

func (b *Bridge) worldToString(_ []json.RawMessage) (any, error) {
	return b.world.String(), nil
}

func (b *Bridge) worldComponents(_ []json.RawMessage) (any, error) {
	all := b.world.Components().All()
	out := make([]ComponentInfo, len(all))
	for i, info := range all {
		out[i] = ComponentInfo{
			ID:      ComponentID{Index: uint32(info.ID)},
			Name:    info.Name,
			Size:    info.Size,
			Storage: info.Storage.String(),
		}
	}
	return out, nil
}

func (b *Bridge) worldResources(_ []json.RawMessage) (any, error) {
	return b.world.Resources.Names(), nil
}

func (b *Bridge) worldGetResource(args []json.RawMessage) (any, error) {
	name, err := arg[string](args, 0)
	if err != nil {
		return nil, err
	}
	if _, ok := b.world.Resources.ByName(name); !ok {
		return nil, nil
	}
	return b.refs.insert(valueRef{kind: refResource, resource: name}), nil
}

func (b *Bridge) worldEntities(_ []json.RawMessage) (any, error) {
	entities := b.world.Entities()
	out := make([]Entity, len(entities))
	for i, e := range entities {
		out[i] = entityJSON(e)
	}
	return out, nil
}

// cachedQuery reuses one DynamicQuery per canonical descriptor so later calls only scan new archetypes
func (b *Bridge) cachedQuery(args []json.RawMessage, i int) (*query.DynamicQuery, error) {
	wire, err := arg[QueryDescriptor](args, i)
	if err != nil {
		return nil, err
	}
	desc, err := wire.build(b.world.Components())
	if err != nil {
		return nil, err
	}
	key := desc.String()
	if q, ok := b.queries[key]; ok {
		return q, nil
	}
	q, err := query.New(b.world, desc.Fetch, desc.Filter, query.WithName(fmt.Sprintf("bridge-%d", len(b.queries))))
	if err != nil {
		return nil, err
	}
	b.queries[key] = q
	b.logger.Debug("query cached", "descriptor", key, "name", q.Name())
	return q, nil
}

func (b *Bridge) itemJSON(e core.Entity, results []query.FetchResult) QueryItem {
	item := QueryItem{Entity: entityJSON(e), Components: make([]ValueRef, len(results))}
	for i, r := range results {
		item.Components[i] = b.refs.insert(valueRef{kind: refComponent, entity: e, component: r.Component()})
	}
	return item
}

func (b *Bridge) worldQuery(args []json.RawMessage) (any, error) {
	q, err := b.cachedQuery(args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]QueryItem, 0)
	for e, results := range q.Each(b.world) {
		out = append(out, b.itemJSON(e, results))
	}
	return out, nil
}

func (b *Bridge) worldQueryGet(args []json.RawMessage) (any, error) {
	wire, err := arg[Entity](args, 0)
	if err != nil {
		return nil, err
	}
	q, err := b.cachedQuery(args, 1)
	if err != nil {
		return nil, err
	}
	item, ok := q.Get(b.world, wire.Core())
	if !ok {
		return nil, nil
	}
	return b.itemJSON(item.Entity, item.Results).Components, nil
}

// --- Entity ops ---

func (b *Bridge) entitySpawn(_ []json.RawMessage) (any, error) {
	return entityJSON(b.world.Spawn()), nil
}

func (b *Bridge) entityDespawn(args []json.RawMessage) (any, error) {
	wire, err := arg[Entity](args, 0)
	if err != nil {
		return nil, err
	}
	return nil, b.world.Despawn(wire.Core())
}

func (b *Bridge) componentInsert(args []json.RawMessage) (any, error) {
	wire, err := arg[Entity](args, 0)
	if err != nil {
		return nil, err
	}
	ref, err := arg[ComponentRef](args, 1)
	if err != nil {
		return nil, err
	}
	info, err := ref.resolve(b.world.Components())
	if err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return nil, errors.Wrap(ErrBadArgs, "missing component value")
	}
	v := reflect.New(info.Type)
	if err := json.Unmarshal(args[2], v.Interface()); err != nil {
		return nil, errors.Wrapf(ErrBadArgs, "decode %s: %v", info.Name, err)
	}
	return nil, b.world.InsertByID(wire.Core(), info.ID, v.Elem().Interface())
}

// --- Value ref ops ---

func (b *Bridge) lookupRef(args []json.RawMessage, i int) (valueRef, error) {
	key, err := arg[ValueRef](args, i)
	if err != nil {
		return valueRef{}, err
	}
	ref, ok := b.refs.get(key)
	if !ok {
		return valueRef{}, errors.Wrapf(ErrStaleRef, "key %d", key.Key)
	}
	return ref, nil
}

// pathKey accepts a field name or an index
func pathKey(args []json.RawMessage, i int) (string, error) {
	if s, err := arg[string](args, i); err == nil {
		return s, nil
	}
	n, err := arg[int](args, i)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(n), nil
}

// read resolves ref to a copy of the addressed value
func (b *Bridge) read(ref valueRef) (reflect.Value, error) {
	var root any
	switch ref.kind {
	case refResource:
		res, ok := b.world.Resources.ByName(ref.resource)
		if !ok {
			return reflect.Value{}, errors.Wrapf(ErrStaleRef, "resource %s removed", ref.resource)
		}
		root = res
	case refValue:
		return walk(ref.owned, ref.path)
	default:
		v, ok := b.world.Get(ref.entity, ref.component)
		if !ok {
			return reflect.Value{}, errors.Wrapf(ErrStaleRef, "%s no longer has component %d", ref.entity, ref.component)
		}
		root = v
	}
	return walk(reflect.ValueOf(root), ref.path)
}

// write decodes raw into the addressed value in place
func (b *Bridge) write(ref valueRef, raw json.RawMessage) error {
	return b.modify(ref, func(dst reflect.Value) error {
		if !dst.CanSet() {
			return errors.Wrapf(ErrReadOnly, "%s", dst.Type())
		}
		v := reflect.New(dst.Type())
		if err := json.Unmarshal(raw, v.Interface()); err != nil {
			return errors.Wrapf(ErrBadArgs, "decode %s: %v", dst.Type(), err)
		}
		dst.Set(v.Elem())
		return nil
	})
}

// modify runs fn on the addressed value in storage
// Component access goes through World.Mutate so the changed tick is bumped
func (b *Bridge) modify(ref valueRef, fn func(dst reflect.Value) error) error {
	apply := func(root reflect.Value) error {
		dst, err := walk(root, ref.path)
		if err != nil {
			return err
		}
		return fn(deref(dst))
	}

	switch ref.kind {
	case refResource:
		res, ok := b.world.Resources.ByName(ref.resource)
		if !ok {
			return errors.Wrapf(ErrStaleRef, "resource %s removed", ref.resource)
		}
		return apply(reflect.ValueOf(res))
	case refValue:
		return apply(ref.owned)
	}
	err := b.world.Mutate(ref.entity, ref.component, func(ptr any) error {
		return apply(reflect.ValueOf(ptr))
	})
	if errors.Is(err, engine.ErrNoSuchEntity) || errors.Is(err, engine.ErrUnknownComponent) {
		return errors.Wrap(ErrStaleRef, err.Error())
	}
	return err
}

func (b *Bridge) valueRefGet(args []json.RawMessage) (any, error) {
	ref, err := b.lookupRef(args, 0)
	if err != nil {
		return nil, err
	}
	key, err := pathKey(args, 1)
	if err != nil {
		return nil, err
	}
	child := ref.child(key)
	v, err := b.read(child)
	if err != nil {
		return nil, err
	}
	if isLeaf(v) {
		return deref(v).Interface(), nil
	}
	return b.refs.insert(child), nil
}

func (b *Bridge) valueRefSet(args []json.RawMessage) (any, error) {
	ref, err := b.lookupRef(args, 0)
	if err != nil {
		return nil, err
	}
	key, err := pathKey(args, 1)
	if err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return nil, errors.Wrap(ErrBadArgs, "missing value")
	}
	return nil, b.write(ref.child(key), args[2])
}

func (b *Bridge) valueRefKeys(args []json.RawMessage) (any, error) {
	ref, err := b.lookupRef(args, 0)
	if err != nil {
		return nil, err
	}
	v, err := b.read(ref)
	if err != nil {
		return nil, err
	}
	return keys(v), nil
}

func (b *Bridge) valueRefToString(args []json.RawMessage) (any, error) {
	ref, err := b.lookupRef(args, 0)
	if err != nil {
		return nil, err
	}
	v, err := b.read(ref)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%+v", deref(v).Interface()), nil
}

func (b *Bridge) valueRefEq(args []json.RawMessage) (any, error) {
	left, err := b.lookupRef(args, 0)
	if err != nil {
		return nil, err
	}
	right, err := b.lookupRef(args, 1)
	if err != nil {
		return nil, err
	}
	lv, err := b.read(left)
	if err != nil {
		return nil, err
	}
	rv, err := b.read(right)
	if err != nil {
		return nil, err
	}
	return reflect.DeepEqual(deref(lv).Interface(), deref(rv).Interface()), nil
}

// valueRefCall invokes an exported method on the referenced value
// Value-receiver methods run on a copy; pointer-receiver methods run on storage and mark a component changed
func (b *Bridge) valueRefCall(args []json.RawMessage) (any, error) {
	ref, err := b.lookupRef(args, 0)
	if err != nil {
		return nil, err
	}
	name, err := arg[string](args, 1)
	if err != nil {
		return nil, err
	}
	callArgs := args[2:]

	v, err := b.read(ref)
	if err != nil {
		return nil, err
	}
	recv := deref(v)
	var out []reflect.Value
	invoke := func(recv reflect.Value) error {
		m := recv.MethodByName(name)
		in, err := b.methodArgs(m.Type(), callArgs)
		if err != nil {
			return errors.WithMessage(err, name)
		}
		out = m.Call(in)
		return nil
	}

	switch {
	case recv.MethodByName(name).IsValid():
		err = invoke(recv)
	case hasPointerMethod(recv.Type(), name):
		err = b.modify(ref, func(dst reflect.Value) error {
			if !dst.CanAddr() {
				return errors.Wrapf(ErrReadOnly, "%s.%s needs an addressable receiver", dst.Type(), name)
			}
			return invoke(dst.Addr())
		})
	default:
		return nil, errors.Wrapf(ErrNoSuchMethod, "%s has no method %q", recv.Type(), name)
	}
	if err != nil {
		return nil, err
	}
	return b.callResult(name, out)
}

var errorType = reflect.TypeFor[error]()

func hasPointerMethod(t reflect.Type, name string) bool {
	_, ok := reflect.PointerTo(t).MethodByName(name)
	return ok
}

// methodArgs decodes JSON arguments into the method's parameter types
// A {"key": n} argument naming a live ref is passed as a copy of the referenced value
func (b *Bridge) methodArgs(mt reflect.Type, raw []json.RawMessage) ([]reflect.Value, error) {
	if mt.IsVariadic() {
		return nil, errors.Wrap(ErrBadArgs, "variadic methods cannot be called")
	}
	if mt.NumIn() != len(raw) {
		return nil, errors.Wrapf(ErrBadArgs, "want %d arguments, got %d", mt.NumIn(), len(raw))
	}
	in := make([]reflect.Value, len(raw))
	for i, r := range raw {
		pt := mt.In(i)
		if v, ok := b.refArg(r, pt); ok {
			in[i] = v
			continue
		}
		v := reflect.New(pt)
		if err := json.Unmarshal(r, v.Interface()); err != nil {
			return nil, errors.Wrapf(ErrBadArgs, "argument %d: decode %s: %v", i, pt, err)
		}
		in[i] = v.Elem()
	}
	return in, nil
}

func (b *Bridge) refArg(raw json.RawMessage, pt reflect.Type) (reflect.Value, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) != 1 {
		return reflect.Value{}, false
	}
	var key ValueRef
	if _, ok := fields["key"]; !ok || json.Unmarshal(raw, &key) != nil {
		return reflect.Value{}, false
	}
	ref, ok := b.refs.get(key)
	if !ok {
		return reflect.Value{}, false
	}
	v, err := b.read(ref)
	if err != nil {
		return reflect.Value{}, false
	}
	v = deref(v)
	switch {
	case v.Type().AssignableTo(pt):
		c := reflect.New(v.Type()).Elem()
		c.Set(v)
		return c, true
	case pt.Kind() == reflect.Pointer && v.Type().AssignableTo(pt.Elem()):
		c := reflect.New(v.Type())
		c.Elem().Set(v)
		return c, true
	}
	return reflect.Value{}, false
}

// callResult drops a trailing nil error and maps each result to a leaf value or a new ref
func (b *Bridge) callResult(name string, out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			return nil, errors.Wrapf(out[n-1].Interface().(error), "%s", name)
		}
		out = out[:n-1]
	}
	results := make([]any, len(out))
	for i, v := range out {
		results[i] = b.resultValue(v)
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	}
	return results, nil
}

func (b *Bridge) resultValue(v reflect.Value) any {
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil
	}
	if isLeaf(v) {
		return deref(v).Interface()
	}
	v = deref(v)
	owned := reflect.New(v.Type())
	owned.Elem().Set(v)
	return b.refs.insert(valueRef{kind: refValue, owned: owned})
}

func (b *Bridge) frameEnd(_ []json.RawMessage) (any, error) {
	freed := b.refs.reset()
	return freed, nil
}

func (b *Bridge) valueRefFree(args []json.RawMessage) (any, error) {
	key, err := arg[ValueRef](args, 0)
	if err != nil {
		return nil, err
	}
	return b.refs.remove(key), nil
}
