package component

// PositionComponent places an entity on the sandbox grid
type PositionComponent struct {
	X int `json:"x"`
	Y int `json:"y"`
}
