package component

// ShieldComponent is an elliptical shield; RadiusX and RadiusY are in cells
type ShieldComponent struct {
	Active     bool    `json:"active"`
	RadiusX    int     `json:"radiusX"`
	RadiusY    int     `json:"radiusY"`
	MaxOpacity float64 `json:"maxOpacity"`
}

// Covers reports whether offset (dx, dy) from the shield center is inside the ellipse
func (s ShieldComponent) Covers(dx, dy int) bool {
	if !s.Active || s.RadiusX <= 0 || s.RadiusY <= 0 {
		return false
	}
	rx2, ry2 := s.RadiusX*s.RadiusX, s.RadiusY*s.RadiusY
	return dx*dx*ry2+dy*dy*rx2 <= rx2*ry2
}
