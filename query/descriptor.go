package query

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/dynecs/core"
)

// FetchMode selects read-only or read-write access to a fetched component
type FetchMode uint8

const (
	Read FetchMode = iota
	Write
)

func (m FetchMode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// ParseFetchMode accepts "read"/"ref" and "write"/"mut"
func ParseFetchMode(s string) (FetchMode, bool) {
	switch strings.ToLower(s) {
	case "read", "ref", "":
		return Read, true
	case "write", "mut":
		return Write, true
	default:
		return 0, false
	}
}

// FilterKind selects a per-component filter
type FilterKind uint8

const (
	// With requires the component to be present
	With FilterKind = iota
	// Without requires the component to be absent
	Without
	// Changed requires the component's changed tick to fall inside the iteration window
	Changed
	// Added requires the component's added tick to fall inside the iteration window
	Added
)

func (k FilterKind) String() string {
	switch k {
	case With:
		return "with"
	case Without:
		return "without"
	case Changed:
		return "changed"
	case Added:
		return "added"
	default:
		return "unknown"
	}
}

// ParseFilterKind maps a filter name to its kind
func ParseFilterKind(s string) (FilterKind, bool) {
	switch strings.ToLower(s) {
	case "with", "present":
		return With, true
	case "without", "absent":
		return Without, true
	case "changed":
		return Changed, true
	case "added":
		return Added, true
	default:
		return 0, false
	}
}

// tickFilter reports whether the filter compares change ticks per row
func (k FilterKind) tickFilter() bool {
	return k == Changed || k == Added
}

// FetchRequest asks for one component handle per yielded entity
type FetchRequest struct {
	Component core.ComponentID
	Mode      FetchMode
}

// ReadOf builds a read request
func ReadOf(id core.ComponentID) FetchRequest {
	return FetchRequest{Component: id, Mode: Read}
}

// WriteOf builds a write request
func WriteOf(id core.ComponentID) FetchRequest {
	return FetchRequest{Component: id, Mode: Write}
}

func (r FetchRequest) String() string {
	return fmt.Sprintf("%s(%d)", r.Mode, r.Component)
}

// FilterRequest restricts which entities are yielded without fetching anything
type FilterRequest struct {
	Component core.ComponentID
	Kind      FilterKind
}

// Filter builds a filter request
func Filter(kind FilterKind, id core.ComponentID) FilterRequest {
	return FilterRequest{Component: id, Kind: kind}
}

func (r FilterRequest) String() string {
	return fmt.Sprintf("%s(%d)", r.Kind, r.Component)
}

// Descriptor is the runtime shape of a query
type Descriptor struct {
	Fetch  []FetchRequest
	Filter []FilterRequest
}

func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteString("Query{fetch: [")
	for i, f := range d.Fetch {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	b.WriteString("], filter: [")
	for i, f := range d.Filter {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	b.WriteString("]}")
	return b.String()
}

// HasWrite reports whether any fetch is read-write
func (d Descriptor) HasWrite() bool {
	for _, f := range d.Fetch {
		if f.Mode == Write {
			return true
		}
	}
	return false
}
