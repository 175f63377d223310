package pulsesource

import (
	"context"
	"io/fs"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MaxSyntheticHz is the highest frequency a Synthetic source will generate.
const MaxSyntheticHz = 1000000

// DefaultSyntheticInterval is the wakeup interval of a Synthetic source.
const DefaultSyntheticInterval = 10 * time.Millisecond

// Synthetic generates pulses at a fixed frequency.  Pulses are delivered in
// bursts once per Interval, with the burst size chosen so that the total
// matches Hz exactly over the long run.
type Synthetic struct {
	Hz       float64
	Interval time.Duration
	NowFn    func() time.Time

	mu      sync.Mutex
	closeCh chan struct{}
	closed  bool
	start   time.Time
	emitted uint64
}

// NewSynthetic returns a Synthetic source that generates hz pulses per second.
func NewSynthetic(hz float64) *Synthetic {
	return &Synthetic{Hz: hz}
}

// Run fulfills Source.
func (src *Synthetic) Run(ctx context.Context, notify func()) error {
	closeCh := src.init()

	interval := src.Interval
	if interval <= 0 {
		interval = DefaultSyntheticInterval
	}

	zerolog.Ctx(ctx).Debug().
		Float64("hz", src.Hz).
		Dur("interval", interval).
		Msg("synthetic source running")

	t := time.NewTicker(interval)
	defer t.Stop()

	src.reset(src.now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closeCh:
			return nil
		case <-t.C:
			src.step(src.now(), notify)
		}
	}
}

// Close fulfills Source.
func (src *Synthetic) Close() error {
	closeCh := src.init()

	src.mu.Lock()
	defer src.mu.Unlock()
	if src.closed {
		return fs.ErrClosed
	}
	src.closed = true
	close(closeCh)
	return nil
}

// Emitted returns the number of pulses delivered so far.
func (src *Synthetic) Emitted() uint64 {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.emitted
}

func (src *Synthetic) init() chan struct{} {
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.closeCh == nil {
		src.closeCh = make(chan struct{})
	}
	return src.closeCh
}

func (src *Synthetic) now() time.Time {
	if src.NowFn != nil {
		return src.NowFn()
	}
	return time.Now()
}

func (src *Synthetic) reset(now time.Time) {
	src.mu.Lock()
	src.start = now
	src.emitted = 0
	src.mu.Unlock()
}

// step delivers every pulse that has come due since start.
func (src *Synthetic) step(now time.Time, notify func()) {
	src.mu.Lock()
	due := src.due(now.Sub(src.start))
	var n uint64
	if due > src.emitted {
		n = due - src.emitted
		src.emitted = due
	}
	src.mu.Unlock()

	for i := uint64(0); i < n; i++ {
		notify()
	}
}

func (src *Synthetic) due(elapsed time.Duration) uint64 {
	if elapsed <= 0 {
		return 0
	}
	return uint64(math.Floor(elapsed.Seconds() * src.Hz))
}

var _ Source = (*Synthetic)(nil)
