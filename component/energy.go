package component

import "time"

// EnergyComponent holds an energy pool and its blink feedback
type EnergyComponent struct {
	Current        int64         `json:"current"`
	BlinkActive    bool          `json:"blinkActive"`
	BlinkRemaining time.Duration `json:"blinkRemaining"`
}
