package ticks

import (
	"fmt"
	"sync/atomic"

	"github.com/chronos-tachyon/ticks/lib/wrap"
)

// Counter is a monotonic event tally that wraps around at its Modulus.
//
// Increment is meant to be called from an asynchronous notification context
// (one writer) while Read is called from the polling loop (one reader).  The
// tally lives in a single 32-bit word accessed only through sync/atomic, so
// neither side ever locks and a read can never observe a torn value.  Ports
// to targets without native atomic access at this width must instead mask
// the notification source around Read; that is a platform concern and is not
// handled here.
type Counter struct {
	n   atomic.Uint32
	mod wrap.Modulus
}

// NewCounter returns a zeroed Counter which wraps at mod.  mod must be no
// wider than MaxCounterBits.
func NewCounter(mod wrap.Modulus) *Counter {
	c := new(Counter)
	c.init(mod)
	return c
}

func (c *Counter) init(mod wrap.Modulus) {
	if mod.IsZero() || mod.Bits() > MaxCounterBits {
		panic(fmt.Errorf("counter modulus %v is out of range", mod))
	}
	c.mod = mod
}

// Modulus returns the wraparound modulus of the Counter.
func (c *Counter) Modulus() wrap.Modulus {
	return c.mod
}

// Increment adds one to the Counter.
//
// 2^32 is a multiple of every supported modulus, so letting the raw word
// overflow and reducing on Read is equivalent to wrapping at the modulus.
func (c *Counter) Increment() {
	c.n.Add(1)
}

// Read returns the current tally.
func (c *Counter) Read() uint32 {
	return uint32(c.mod.Reduce(uint64(c.n.Load())))
}
