package ticks

import (
	"sync"

	"github.com/rs/zerolog"
)

const (
	// BufferCapacity is the number of samples retained by each of the two
	// circular sample buffers.
	BufferCapacity = 6

	// LongBlockPeriods is the number of base periods per long buffer slot.
	LongBlockPeriods = 5

	// DefaultCounterBits is the default width of the pulse counter.
	DefaultCounterBits = 16

	// DefaultClockBits is the default width of the millisecond clock.
	DefaultClockBits = 32

	// MaxCounterBits is the widest pulse counter supported.
	MaxCounterBits = 32
)

var (
	gMu     sync.Mutex
	gLogger *zerolog.Logger = newNop()
)

func newNop() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// SetLogger replaces the logger used by this package.  The default discards
// all output.
func SetLogger(logger zerolog.Logger) {
	gMu.Lock()
	gLogger = &logger
	gMu.Unlock()
}

// Logger returns the logger used by this package.
func Logger() *zerolog.Logger {
	gMu.Lock()
	logger := gLogger
	gMu.Unlock()
	return logger
}

type dummyLocker struct{}

func (dummyLocker) Lock()   {}
func (dummyLocker) Unlock() {}

var _ sync.Locker = dummyLocker{}
