package component

// MarkerShape defines how a marked area is drawn
type MarkerShape uint8

const (
	MarkerShapeNone MarkerShape = iota
	MarkerShapeRectangle
	MarkerShapeInvert
)

// MarkerComponent flags an area around an entity
// Few entities carry one at a time so it lives in sparse storage
type MarkerComponent struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Shape  MarkerShape `json:"shape"`
}
