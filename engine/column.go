package engine

import (
	"fmt"
	"reflect"

	"github.com/lixenwraith/dynecs/core"
)

// Column is a typed buffer holding one component for every row of a table
// Values and their change ticks are kept in parallel slices indexed by row
type Column struct {
	typ   reflect.Type
	data  reflect.Value // []T
	ticks []core.ComponentTicks
}

func newColumn(t reflect.Type, capacity int) *Column {
	return &Column{
		typ:   t,
		data:  reflect.MakeSlice(reflect.SliceOf(t), 0, capacity),
		ticks: make([]core.ComponentTicks, 0, capacity),
	}
}

// Type returns the element type stored in the column
func (c *Column) Type() reflect.Type {
	return c.typ
}

// Len returns the number of rows
func (c *Column) Len() int {
	return len(c.ticks)
}

// At returns the addressable value at row
// Panics if row is outside the column
func (c *Column) At(row int) reflect.Value {
	c.checkRow(row)
	return c.data.Index(row)
}

// TicksAt returns a pointer to the change ticks of row
// Panics if row is outside the column
func (c *Column) TicksAt(row int) *core.ComponentTicks {
	c.checkRow(row)
	return &c.ticks[row]
}

// Ticks exposes the tick buffer for bulk scans
// The slice aliases column storage and is invalidated by any structural change to the table
func (c *Column) Ticks() []core.ComponentTicks {
	return c.ticks
}

func (c *Column) checkRow(row int) {
	if row < 0 || row >= len(c.ticks) {
		panic(fmt.Sprintf("column %s: row %d out of range [0,%d)", c.typ, row, len(c.ticks)))
	}
}

func (c *Column) push(v reflect.Value, ticks core.ComponentTicks) {
	c.data = reflect.Append(c.data, v)
	c.ticks = append(c.ticks, ticks)
}

func (c *Column) set(row int, v reflect.Value, tick core.Tick) {
	c.At(row).Set(v)
	c.ticks[row].SetChanged(tick)
}

// swapRemove deletes row by moving the last row into it
func (c *Column) swapRemove(row int) {
	c.checkRow(row)
	last := len(c.ticks) - 1
	if row != last {
		c.data.Index(row).Set(c.data.Index(last))
		c.ticks[row] = c.ticks[last]
	}
	// Zero the vacated slot so pointers inside it are released
	c.data.Index(last).SetZero()
	c.data = c.data.Slice(0, last)
	c.ticks = c.ticks[:last]
}

// moveRowTo appends row's value and ticks to dst without removing it from c
func (c *Column) moveRowTo(row int, dst *Column) {
	dst.push(c.At(row), c.ticks[row])
}

func (c *Column) clampTicks(current core.Tick) {
	for i := range c.ticks {
		c.ticks[i].Clamp(current)
	}
}
