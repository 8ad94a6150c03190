package core

import "fmt"

// Entity is a unique identifier for an entity
// Low 32 bits hold the slot index, high 32 bits the generation of that slot
type Entity uint64

// NewEntity packs a slot index and generation into an Entity
func NewEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// EntityFromBits reconstructs an Entity from its Bits representation
func EntityFromBits(bits uint64) Entity {
	return Entity(bits)
}

// Index returns the slot index, stable while the entity is alive
func (e Entity) Index() uint32 {
	return uint32(e)
}

// Generation returns how many times the slot has been recycled
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

// Bits returns the packed 64-bit representation
func (e Entity) Bits() uint64 {
	return uint64(e)
}

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.Index(), e.Generation())
}
