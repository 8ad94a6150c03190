package component

// KineticComponent carries sub-cell motion in Q16.16 fixed point
// Integration adds Vel to the accumulated position each tick and Accel to Vel
type KineticComponent struct {
	VelX   int32 `json:"velX"`
	VelY   int32 `json:"velY"`
	AccelX int32 `json:"accelX"`
	AccelY int32 `json:"accelY"`
	// Fractional remainder not yet applied to PositionComponent
	RemX int32 `json:"remX"`
	RemY int32 `json:"remY"`
}

// FixedOne is 1.0 in Q16.16
const FixedOne int32 = 1 << 16
