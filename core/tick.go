package core

import "github.com/lixenwraith/dynecs/parameter"

// Tick is a wrapping change counter
// Comparisons are only meaningful relative to a current tick, never absolute
type Tick = uint32

// ComponentTicks records when a component slot was inserted and last written
type ComponentTicks struct {
	Added   Tick
	Changed Tick
}

// NewComponentTicks stamps both ticks with the insertion tick
func NewComponentTicks(tick Tick) ComponentTicks {
	return ComponentTicks{Added: tick, Changed: tick}
}

// IsAdded reports lastRun < Added <= current under wrapping arithmetic
func (t ComponentTicks) IsAdded(lastRun, current Tick) bool {
	return TickNewerThan(t.Added, lastRun, current)
}

// IsChanged reports lastRun < Changed <= current under wrapping arithmetic
func (t ComponentTicks) IsChanged(lastRun, current Tick) bool {
	return TickNewerThan(t.Changed, lastRun, current)
}

// SetChanged marks the slot written at tick
func (t *ComponentTicks) SetChanged(tick Tick) {
	t.Changed = tick
}

// Clamp pulls both ticks forward so neither is older than MaxChangeAge relative to current
func (t *ComponentTicks) Clamp(current Tick) {
	ClampTick(&t.Added, current)
	ClampTick(&t.Changed, current)
}

// TickNewerThan reports whether tick falls in the window (lastRun, current]
// Distances are measured backwards from current so a wrapped counter still orders correctly
func TickNewerThan(tick, lastRun, current Tick) bool {
	sinceTick := current - tick
	sinceRun := current - lastRun
	return sinceRun > sinceTick
}

// ClampTick rewrites a stored tick whose age exceeds MaxChangeAge
func ClampTick(tick *Tick, current Tick) {
	age := current - *tick
	if age > parameter.MaxChangeAge {
		*tick = current - parameter.MaxChangeAge
	}
}
