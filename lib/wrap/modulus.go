// Package wrap implements arithmetic on fixed-width unsigned values that wrap
// around to zero, such as hardware pulse counters and millisecond clocks.
//
// A Modulus names the width explicitly, so that code which corrects for
// wraparound can be exercised at small widths in tests and at the native
// widths in production.
package wrap

import (
	"fmt"
)

// MaxBits is the widest Modulus that New will construct.
const MaxBits = 63

// Modulus is 2^bits for some width 1 <= bits <= MaxBits.
type Modulus struct {
	bits uint
}

// Counter16 is the modulus of a 16-bit pulse counter.
var Counter16 = Modulus{bits: 16}

// Counter32 is the modulus of a 32-bit pulse counter.
var Counter32 = Modulus{bits: 32}

// Clock32 is the modulus of a 32-bit millisecond clock, which wraps after
// roughly 49.7 days.
var Clock32 = Modulus{bits: 32}

// New returns the Modulus for values that are bits wide.
func New(bits uint) (Modulus, error) {
	if bits < 1 || bits > MaxBits {
		return Modulus{}, BitsError{Bits: bits}
	}
	return Modulus{bits: bits}, nil
}

// MustNew is like New, but panics on error.
func MustNew(bits uint) Modulus {
	m, err := New(bits)
	if err != nil {
		panic(err)
	}
	return m
}

// IsZero returns true if m is the zero value, which is not a valid Modulus.
func (m Modulus) IsZero() bool {
	return m.bits == 0
}

// Bits returns the width of the wrapped values.
func (m Modulus) Bits() uint {
	return m.bits
}

// Value returns the modulus itself, 2^bits.
func (m Modulus) Value() uint64 {
	return uint64(1) << m.bits
}

// Max returns the largest representable value, 2^bits - 1.
func (m Modulus) Max() uint64 {
	return m.Value() - 1
}

// Reduce returns v modulo m.
func (m Modulus) Reduce(v uint64) uint64 {
	return v & m.Max()
}

// Add returns (a + b) modulo m.
func (m Modulus) Add(a, b uint64) uint64 {
	return m.Reduce(m.Reduce(a) + m.Reduce(b))
}

// Sub returns the forward distance from older to newer, assuming that newer
// was observed no more than one full period after older.
//
// If newer is numerically smaller than older, the value wrapped in between
// the two readings and the full modulus is added back before subtracting.
func (m Modulus) Sub(newer, older uint64) uint64 {
	newer = m.Reduce(newer)
	older = m.Reduce(older)
	if newer >= older {
		return newer - older
	}
	return (m.Value() - older) + newer
}

// String returns a human-readable representation, e.g. "2^16".
func (m Modulus) String() string {
	return fmt.Sprintf("2^%d", m.bits)
}

// GoString returns a Go expression that evaluates to m.
func (m Modulus) GoString() string {
	return fmt.Sprintf("wrap.MustNew(%d)", m.bits)
}

var _ fmt.Stringer = Modulus{}
var _ fmt.GoStringer = Modulus{}

// type BitsError {{{

// BitsError indicates an unsupported width.
type BitsError struct {
	Bits uint
}

// Error fulfills the error interface.
func (err BitsError) Error() string {
	return fmt.Sprintf("invalid width %d bits; expected 1 .. %d", err.Bits, MaxBits)
}

var _ error = BitsError{}

// }}}
