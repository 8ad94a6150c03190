package component

import "time"

// TimerComponent counts down to an action
type TimerComponent struct {
	Remaining time.Duration `json:"remaining"`
}

// Expired reports whether the countdown has finished
func (t TimerComponent) Expired() bool {
	return t.Remaining <= 0
}
