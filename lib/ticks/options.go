package ticks

import (
	"sync"
)

type trackerOptions struct {
	clock       Clock
	counterBits uint
	clockBits   uint
	locker      sync.Locker
}

// Option represents an option for constructing a Tracker.
type Option func(*trackerOptions)

// WithClock specifies the millisecond time source.  The default is
// SystemClock().
func WithClock(clock Clock) Option {
	return func(o *trackerOptions) {
		o.clock = clock
	}
}

// WithCounterBits specifies the width of the pulse counter.  The default is
// DefaultCounterBits.
func WithCounterBits(bits uint) Option {
	return func(o *trackerOptions) {
		o.counterBits = bits
	}
}

// WithClockBits specifies the width of the millisecond clock.  The default is
// DefaultClockBits.
func WithClockBits(bits uint) Option {
	return func(o *trackerOptions) {
		o.clockBits = bits
	}
}

// WithLocker specifies a lock which serializes Operate with the queries.  It
// is only needed when the queries are made from a goroutine other than the
// one calling Operate.  HandleEvent never takes it.
func WithLocker(locker sync.Locker) Option {
	return func(o *trackerOptions) {
		o.locker = locker
	}
}
