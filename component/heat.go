package component

// HeatComponent tracks heat; Max of zero means unbounded
type HeatComponent struct {
	Current int64 `json:"current"`
	Max     int64 `json:"max"`
}

// Add raises Current by delta, clamped to [0, Max] when Max is set, and returns the new value
func (h *HeatComponent) Add(delta int64) int64 {
	h.Current = max(h.Current+delta, 0)
	if h.Max > 0 {
		h.Current = min(h.Current, h.Max)
	}
	return h.Current
}
