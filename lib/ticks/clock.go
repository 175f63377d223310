package ticks

import (
	"sync/atomic"
	"time"
)

// Clock is a source of millisecond timestamps.  Readings are only ever
// compared with one another, so the epoch is arbitrary; the Tracker reduces
// each reading by its clock modulus.
type Clock interface {
	Millis() uint64
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() uint64

// Millis fulfills Clock.
func (fn ClockFunc) Millis() uint64 {
	return fn()
}

var _ Clock = ClockFunc(nil)

// TimeClock is a Clock that counts milliseconds elapsed since Epoch, as
// measured by NowFn.
type TimeClock struct {
	Epoch time.Time
	NowFn func() time.Time
}

// SystemClock returns a TimeClock that counts milliseconds since the moment
// it was created, using the monotonic system clock.
func SystemClock() *TimeClock {
	return &TimeClock{Epoch: time.Now(), NowFn: time.Now}
}

// Millis fulfills Clock.
func (c *TimeClock) Millis() uint64 {
	nowFn := c.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	d := nowFn().Sub(c.Epoch)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}

var _ Clock = (*TimeClock)(nil)

// ManualClock is a Clock that only moves when told to.  It is intended for
// tests and for replaying recorded pulse trains.
type ManualClock struct {
	ms atomic.Uint64
}

// NewManualClock returns a ManualClock reading ms.
func NewManualClock(ms uint64) *ManualClock {
	c := new(ManualClock)
	c.ms.Store(ms)
	return c
}

// Millis fulfills Clock.
func (c *ManualClock) Millis() uint64 {
	return c.ms.Load()
}

// Set moves the clock to ms.
func (c *ManualClock) Set(ms uint64) {
	c.ms.Store(ms)
}

// Advance moves the clock forward by ms.
func (c *ManualClock) Advance(ms uint64) {
	c.ms.Add(ms)
}

var _ Clock = (*ManualClock)(nil)
