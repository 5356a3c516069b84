// Package uictl holds small read-only controls the UI polls for values.
package uictl

import (
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// CappedDial is a Dial with a maximum cap value.
type CappedDial[N Number] interface {
	Dial[N]
	Cap() (num, max N)
}

// Percent reads a capped dial as a whole percentage clamped to [0, 100].
// An unknown (zero or negative) cap reads as 0.
func Percent[N Number](d CappedDial[N]) int {
	num, maxValue := d.Cap()
	if maxValue <= 0 || num <= 0 {
		return 0
	}
	if num >= maxValue {
		return 100
	}

	return int(float64(num) / float64(maxValue) * 100)
}

// Snapshot is a CappedDial frozen at one reading.
type Snapshot[N Number] struct {
	Num N
	Max N
}

func (s Snapshot[N]) Read() N {
	return s.Num
}

func (s Snapshot[N]) Cap() (N, N) {
	return s.Num, s.Max
}

// Counter is a CappedDial over a byte count. Safe for concurrent use.
type Counter struct {
	n   atomic.Int64
	max int64
}

// NewCounter returns a counter capped at maxValue.
func NewCounter(maxValue int64) *Counter {
	return &Counter{max: maxValue}
}

// Add advances the counter and returns the new value.
func (c *Counter) Add(delta int64) int64 {
	return c.n.Add(delta)
}

func (c *Counter) Read() int64 {
	return c.n.Load()
}

func (c *Counter) Cap() (int64, int64) {
	return c.Read(), c.max
}
