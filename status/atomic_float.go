package status

import (
	"math"
	"sync/atomic"
)

// AtomicFloat is a float64 gauge stored as its IEEE-754 bits; the zero value reads 0
type AtomicFloat struct {
	bits atomic.Uint64
}

func (f *AtomicFloat) Set(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *AtomicFloat) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Add applies delta with a CAS loop and returns the result
func (f *AtomicFloat) Add(delta float64) float64 {
	return f.update(func(cur float64) (float64, bool) { return cur + delta, true })
}

// Max raises the gauge to v if v is larger, returning the stored value
func (f *AtomicFloat) Max(v float64) float64 {
	return f.update(func(cur float64) (float64, bool) { return v, v > cur })
}

func (f *AtomicFloat) update(fn func(cur float64) (float64, bool)) float64 {
	for {
		old := f.bits.Load()
		next, ok := fn(math.Float64frombits(old))
		if !ok {
			return math.Float64frombits(old)
		}
		if f.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}
