package component

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/registry"
)

// Storage lists every sandbox component with its storage kind
var Storage = []struct {
	Type    reflect.Type
	Storage core.StorageKind
}{
	{reflect.TypeFor[PositionComponent](), core.StorageTable},
	{reflect.TypeFor[KineticComponent](), core.StorageTable},
	{reflect.TypeFor[EnergyComponent](), core.StorageTable},
	{reflect.TypeFor[HeatComponent](), core.StorageTable},
	{reflect.TypeFor[TimerComponent](), core.StorageTable},
	{reflect.TypeFor[GlyphComponent](), core.StorageTable},
	{reflect.TypeFor[MarkerComponent](), core.StorageSparse},
	{reflect.TypeFor[ShieldComponent](), core.StorageSparse},
}

// Register adds every component to c in a fixed order
func Register(c *registry.Components) error {
	for _, s := range Storage {
		if _, err := c.Register(s.Type, s.Storage); err != nil {
			return errors.Wrapf(err, "register %s", s.Type)
		}
	}
	return nil
}
