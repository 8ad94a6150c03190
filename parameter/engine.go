package parameter

// Change Detection
const (
	// CheckTickThreshold is the number of change ticks that may elapse before stored ticks are re-clamped
	// Chosen so a world advancing one tick per frame at 60 FPS checks roughly once every 100 days
	CheckTickThreshold uint32 = 518_400_000

	// MaxChangeAge is the oldest a stored tick may be relative to the current tick before it is clamped
	// Must stay below the u32 range minus one full threshold so wraparound comparisons remain valid
	MaxChangeAge uint32 = ^uint32(0) - (2*CheckTickThreshold - 1)

	// InitialChangeTick is the first tick a new world hands out
	InitialChangeTick uint32 = 1
)

// Storage Defaults
const (
	// DefaultColumnCapacity is the initial capacity of a table column or sparse set buffer
	DefaultColumnCapacity = 64

	// DefaultEntityCapacity is the initial capacity of the entity location table
	DefaultEntityCapacity = 256

	// DefaultQueryCapacity is the pre-allocated size of per-query match lists
	DefaultQueryCapacity = 8
)
