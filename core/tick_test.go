package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lixenwraith/dynecs/parameter"
)

func TestTickNewerThan(t *testing.T) {
	tests := []struct {
		name    string
		tick    Tick
		lastRun Tick
		current Tick
		want    bool
	}{
		{"inside window", 5, 3, 10, true},
		{"at current", 10, 3, 10, true},
		{"at last run", 3, 3, 10, false},
		{"before last run", 1, 3, 10, false},
		{"ahead of current", 11, 3, 10, false},
		{"empty window", 10, 10, 10, false},
		{"wrapped counter inside", ^uint32(0), ^uint32(0) - 5, 3, true},
		{"wrapped counter after wrap", 2, ^uint32(0) - 5, 3, true},
		{"wrapped counter before window", ^uint32(0) - 10, ^uint32(0) - 5, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TickNewerThan(tt.tick, tt.lastRun, tt.current))
		})
	}
}

func TestComponentTicks(t *testing.T) {
	ticks := NewComponentTicks(4)
	assert.True(t, ticks.IsAdded(3, 4))
	assert.True(t, ticks.IsChanged(3, 4))
	assert.False(t, ticks.IsAdded(4, 7))

	ticks.SetChanged(6)
	assert.False(t, ticks.IsAdded(4, 7))
	assert.True(t, ticks.IsChanged(4, 7))
}

func TestClampTick(t *testing.T) {
	current := Tick(parameter.MaxChangeAge + 100)

	old := Tick(10)
	ClampTick(&old, current)
	assert.Equal(t, current-parameter.MaxChangeAge, old)

	recent := current - 5
	ClampTick(&recent, current)
	assert.Equal(t, current-5, recent)
}

func TestEntityPacking(t *testing.T) {
	e := NewEntity(7, 3)
	assert.Equal(t, uint32(7), e.Index())
	assert.Equal(t, uint32(3), e.Generation())
	assert.Equal(t, e, EntityFromBits(e.Bits()))
	assert.Equal(t, "7v3", e.String())
}
