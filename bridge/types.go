package bridge

import (
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/query"
	"github.com/lixenwraith/dynecs/registry"
)

// Entity is the wire form of core.Entity
type Entity struct {
	Bits       uint64 `json:"bits"`
	ID         uint32 `json:"id"`
	Generation uint32 `json:"generation"`
}

func entityJSON(e core.Entity) Entity {
	return Entity{Bits: e.Bits(), ID: e.Index(), Generation: e.Generation()}
}

// Core accepts either bits or id/generation
func (e Entity) Core() core.Entity {
	if e.Bits != 0 {
		return core.EntityFromBits(e.Bits)
	}
	return core.NewEntity(e.ID, e.Generation)
}

// ComponentID is the wire form of core.ComponentID
type ComponentID struct {
	Index uint32 `json:"index"`
}

// ComponentInfo describes one registered component
type ComponentInfo struct {
	ID      ComponentID `json:"id"`
	Name    string      `json:"name"`
	Size    uintptr     `json:"size"`
	Storage string      `json:"storage"`
}

// ComponentRef names a component by id or by type name
type ComponentRef struct {
	Index    *uint32 `json:"index,omitempty"`
	TypeName *string `json:"typeName,omitempty"`
}

func (r *ComponentRef) UnmarshalJSON(data []byte) error {
	type plain ComponentRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrap(ErrBadArgs, err.Error())
	}
	if (p.Index == nil) == (p.TypeName == nil) {
		return errors.Wrapf(ErrBadArgs, "component ref needs exactly one of index or typeName: %s", data)
	}
	*r = ComponentRef(p)
	return nil
}

func (r ComponentRef) resolve(c *registry.Components) (registry.ComponentInfo, error) {
	if r.TypeName != nil {
		id, ok := c.Lookup(*r.TypeName)
		if !ok {
			return registry.ComponentInfo{}, errors.Wrapf(ErrUnknownComponent, "%q", *r.TypeName)
		}
		info, _ := c.Info(id)
		return info, nil
	}
	if r.Index == nil {
		return registry.ComponentInfo{}, errors.Wrap(ErrBadArgs, "empty component ref")
	}
	info, ok := c.Info(core.ComponentID(*r.Index))
	if !ok {
		return registry.ComponentInfo{}, errors.Wrapf(ErrUnknownComponent, "index %d", *r.Index)
	}
	return info, nil
}

// FetchJSON is one entry of a descriptor's fetch list
type FetchJSON struct {
	Component ComponentRef `json:"component"`
	Mode      string       `json:"mode"`
}

// FilterJSON is one entry of a descriptor's filter list
type FilterJSON struct {
	Component ComponentRef `json:"component"`
	Kind      string       `json:"kind"`
}

// QueryDescriptor is the wire form of a query
// Components are read fetches and come before Fetch entries
type QueryDescriptor struct {
	Components []ComponentRef `json:"components"`
	Fetch      []FetchJSON    `json:"fetch,omitempty"`
	Filter     []FilterJSON   `json:"filter,omitempty"`
}

func (d QueryDescriptor) build(c *registry.Components) (query.Descriptor, error) {
	var out query.Descriptor
	for _, ref := range d.Components {
		info, err := ref.resolve(c)
		if err != nil {
			return out, err
		}
		out.Fetch = append(out.Fetch, query.ReadOf(info.ID))
	}
	for _, f := range d.Fetch {
		info, err := f.Component.resolve(c)
		if err != nil {
			return out, err
		}
		mode, ok := query.ParseFetchMode(f.Mode)
		if !ok {
			return out, errors.Wrapf(ErrBadArgs, "fetch mode %q", f.Mode)
		}
		out.Fetch = append(out.Fetch, query.FetchRequest{Component: info.ID, Mode: mode})
	}
	for _, f := range d.Filter {
		info, err := f.Component.resolve(c)
		if err != nil {
			return out, err
		}
		kind, ok := query.ParseFilterKind(f.Kind)
		if !ok {
			return out, errors.Wrapf(ErrBadArgs, "filter kind %q", f.Kind)
		}
		out.Filter = append(out.Filter, query.Filter(kind, info.ID))
	}
	return out, nil
}

// ValueRef is the wire handle of a value held in the ref table
type ValueRef struct {
	Key uint64 `json:"key"`
}

// QueryItem is one row of a world_query result
type QueryItem struct {
	Entity     Entity     `json:"entity"`
	Components []ValueRef `json:"components"`
}
