package engine

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/lixenwraith/dynecs/core"
)

// TableID indexes Tables; table 0 is the empty table with no columns
type TableID uint32

// Table stores the table-backed components of every entity sharing one table component set
// Row i of every column belongs to entities[i]
type Table struct {
	id           TableID
	entities     []core.Entity
	componentIDs []core.ComponentID
	columns      map[core.ComponentID]*Column
}

// ID returns the table index
func (t *Table) ID() TableID {
	return t.id
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.entities)
}

// Entities returns the row-ordered entity list
// The slice aliases table storage and must not be modified
func (t *Table) Entities() []core.Entity {
	return t.entities
}

// EntityAt returns the entity stored in row
func (t *Table) EntityAt(row int) core.Entity {
	return t.entities[row]
}

// ComponentIDs returns the sorted component ids with a column in this table
func (t *Table) ComponentIDs() []core.ComponentID {
	return t.componentIDs
}

// Column returns the column for id
func (t *Table) Column(id core.ComponentID) (*Column, bool) {
	col, ok := t.columns[id]
	return col, ok
}

// HasColumn reports whether id is stored in this table
func (t *Table) HasColumn(id core.ComponentID) bool {
	_, ok := t.columns[id]
	return ok
}

// allocate reserves a row for e; caller must push one value into every column
func (t *Table) allocate(e core.Entity) int {
	t.entities = append(t.entities, e)
	return len(t.entities) - 1
}

// swapRemove deletes row from the entity list and all columns
// Returns the entity moved into row, if any
func (t *Table) swapRemove(row int) (core.Entity, bool) {
	last := len(t.entities) - 1
	for _, col := range t.columns {
		col.swapRemove(row)
	}
	moved := t.entities[last]
	t.entities[row] = moved
	t.entities = t.entities[:last]
	return moved, row != last
}

// moveRow transfers row into dst, dropping columns dst does not have
// Columns present only in dst are left for the caller to fill at the returned row
func (t *Table) moveRow(row int, dst *Table) (dstRow int, moved core.Entity, swapped bool) {
	e := t.entities[row]
	dstRow = dst.allocate(e)
	for id, col := range t.columns {
		if dstCol, ok := dst.columns[id]; ok {
			col.moveRowTo(row, dstCol)
		}
	}
	moved, swapped = t.swapRemove(row)
	return dstRow, moved, swapped
}

// Tables owns every table of a world; tables are never removed
type Tables struct {
	tables []*Table
	byKey  map[string]TableID
}

func newTables() *Tables {
	ts := &Tables{
		byKey: make(map[string]TableID),
	}
	ts.getOrCreate(nil, nil, 0)
	return ts
}

// Len returns the number of tables
func (ts *Tables) Len() int {
	return len(ts.tables)
}

// Get returns the table for id
// Panics on an id this world never created
func (ts *Tables) Get(id TableID) *Table {
	if int(id) >= len(ts.tables) {
		panic(fmt.Sprintf("table %d does not exist (have %d)", id, len(ts.tables)))
	}
	return ts.tables[id]
}

// getOrCreate returns the table for a sorted component id set, creating it on first use
func (ts *Tables) getOrCreate(ids []core.ComponentID, types []reflect.Type, capacity int) (*Table, bool) {
	key := componentKey(ids)
	if id, ok := ts.byKey[key]; ok {
		return ts.tables[id], false
	}

	t := &Table{
		id:           TableID(len(ts.tables)),
		entities:     make([]core.Entity, 0, capacity),
		componentIDs: slices.Clone(ids),
		columns:      make(map[core.ComponentID]*Column, len(ids)),
	}
	for i, id := range ids {
		t.columns[id] = newColumn(types[i], capacity)
	}
	ts.tables = append(ts.tables, t)
	ts.byKey[key] = t.id
	return t, true
}

func (ts *Tables) clampTicks(current core.Tick) {
	for _, t := range ts.tables {
		for _, col := range t.columns {
			col.clampTicks(current)
		}
	}
}

// componentKey renders a sorted id set as a map key
func componentKey(ids []core.ComponentID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return b.String()
}
