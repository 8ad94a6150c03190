package core

// ComponentID identifies a registered component type within one registry
// IDs are dense and assigned in registration order starting at 0
type ComponentID uint32

// Index returns the id as a slice/bitset index
func (id ComponentID) Index() int {
	return int(id)
}

// StorageKind selects where a component's values live
type StorageKind uint8

const (
	// StorageTable stores values in a contiguous per-table column, addressed by row
	StorageTable StorageKind = iota
	// StorageSparse stores values in a per-component sparse set keyed by entity
	StorageSparse
)

func (k StorageKind) String() string {
	switch k {
	case StorageTable:
		return "table"
	case StorageSparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// ParseStorageKind maps "table"/"sparse" to a StorageKind
func ParseStorageKind(s string) (StorageKind, bool) {
	switch s {
	case "table", "":
		return StorageTable, true
	case "sparse", "sparse_set":
		return StorageSparse, true
	default:
		return 0, false
	}
}
