package main

import (
	_ "embed"
	"os"
	"reflect"
	"strings"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/component"
	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
	"github.com/lixenwraith/dynecs/query"
	"github.com/lixenwraith/dynecs/registry"
)

//go:embed default.toml
var defaultScenario []byte

// Scenario is the TOML description of a sandbox world
type Scenario struct {
	Seed   int64 `toml:"seed"`
	Width  int   `toml:"width"`
	Height int   `toml:"height"`
	// Storage overrides the catalogue storage kind, keyed by component type name
	Storage  map[string]string `toml:"storage"`
	Entities []EntityGroup     `toml:"entities"`
	Queries  []QueryScenario   `toml:"queries"`
}

// EntityGroup spawns Count entities with identical initial components
// Component keys are type names with or without the package prefix; values use the JSON field names
type EntityGroup struct {
	Count      int                               `toml:"count"`
	Components map[string]map[string]interface{} `toml:"components"`
}

// QueryScenario is a named query shown in the side panel
type QueryScenario struct {
	Name   string        `toml:"name"`
	Fetch  []FetchEntry  `toml:"fetch"`
	Filter []FilterEntry `toml:"filter"`
}

type FetchEntry struct {
	Component string `toml:"component"`
	Mode      string `toml:"mode"`
}

type FilterEntry struct {
	Component string `toml:"component"`
	Kind      string `toml:"kind"`
}

// LoadScenario reads path, or the built-in scenario when path is empty
func LoadScenario(path string) (*Scenario, error) {
	data := defaultScenario
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read scenario")
		}
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario and fills defaults
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	if s.Width <= 0 {
		s.Width = 40
	}
	if s.Height <= 0 {
		s.Height = 20
	}
	return &s, nil
}

// Register adds the component catalogue to c, applying storage overrides
func (s *Scenario) Register(c *registry.Components) error {
	known := make(map[string]bool, len(component.Storage))
	for _, entry := range component.Storage {
		known[entry.Type.Name()] = true
		known[entry.Type.String()] = true
	}
	for name := range s.Storage {
		if !known[name] {
			return errors.Errorf("storage override for unknown component %q", name)
		}
	}

	for _, entry := range component.Storage {
		storage := entry.Storage
		override, ok := s.Storage[entry.Type.Name()]
		if !ok {
			override, ok = s.Storage[entry.Type.String()]
		}
		if ok {
			if storage, ok = core.ParseStorageKind(override); !ok {
				return errors.Errorf("%s: storage kind %q", entry.Type.Name(), override)
			}
		}
		if _, err := c.Register(entry.Type, storage); err != nil {
			return errors.Wrapf(err, "register %s", entry.Type)
		}
	}
	return nil
}

// resolveComponent accepts "PositionComponent" or "component.PositionComponent"
func resolveComponent(c *registry.Components, name string) (registry.ComponentInfo, error) {
	if !strings.Contains(name, ".") {
		name = "component." + name
	}
	id, ok := c.Lookup(name)
	if !ok {
		return registry.ComponentInfo{}, errors.Errorf("unknown component %q", name)
	}
	info, _ := c.Info(id)
	return info, nil
}

// decodeComponent converts a TOML table into a value of the component's Go type
func decodeComponent(info registry.ComponentInfo, fields map[string]interface{}) (any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", info.Name)
	}
	v := reflect.New(info.Type)
	if err := json.Unmarshal(raw, v.Interface()); err != nil {
		return nil, errors.Wrapf(err, "decode %s", info.Name)
	}
	return v.Elem().Interface(), nil
}

// Populate spawns every entity group into w
func (s *Scenario) Populate(w *engine.World) ([]core.Entity, error) {
	var spawned []core.Entity
	for gi, group := range s.Entities {
		values := make([]any, 0, len(group.Components))
		for name, fields := range group.Components {
			info, err := resolveComponent(w.Components(), name)
			if err != nil {
				return nil, errors.Wrapf(err, "entity group %d", gi)
			}
			v, err := decodeComponent(info, fields)
			if err != nil {
				return nil, errors.Wrapf(err, "entity group %d", gi)
			}
			values = append(values, v)
		}
		count := max(group.Count, 1)
		for i := 0; i < count; i++ {
			spawned = append(spawned, w.Spawn(values...))
		}
	}
	return spawned, nil
}

// BuildQueries constructs every named query against w
func (s *Scenario) BuildQueries(w *engine.World) ([]*query.DynamicQuery, error) {
	out := make([]*query.DynamicQuery, 0, len(s.Queries))
	for _, qs := range s.Queries {
		var fetches []query.FetchRequest
		var filters []query.FilterRequest
		for _, f := range qs.Fetch {
			info, err := resolveComponent(w.Components(), f.Component)
			if err != nil {
				return nil, errors.Wrapf(err, "query %q", qs.Name)
			}
			mode, ok := query.ParseFetchMode(f.Mode)
			if !ok {
				return nil, errors.Errorf("query %q: fetch mode %q", qs.Name, f.Mode)
			}
			fetches = append(fetches, query.FetchRequest{Component: info.ID, Mode: mode})
		}
		for _, f := range qs.Filter {
			info, err := resolveComponent(w.Components(), f.Component)
			if err != nil {
				return nil, errors.Wrapf(err, "query %q", qs.Name)
			}
			kind, ok := query.ParseFilterKind(f.Kind)
			if !ok {
				return nil, errors.Errorf("query %q: filter kind %q", qs.Name, f.Kind)
			}
			filters = append(filters, query.Filter(kind, info.ID))
		}
		q, err := query.New(w, fetches, filters, query.WithName(qs.Name))
		if err != nil {
			return nil, errors.Wrapf(err, "query %q", qs.Name)
		}
		out = append(out, q)
	}
	return out, nil
}
