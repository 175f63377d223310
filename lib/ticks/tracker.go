package ticks

import (
	"errors"
	"io/fs"
	"sync"

	"github.com/chronos-tachyon/ticks/lib/wrap"
)

// Tracker measures the rate of one event source.
//
// The zero value is not usable; construct with New.  HandleEvent may be
// called from any goroutine at any time.  Operate and the rate queries are
// meant for a single polling goroutine; if queries also come from elsewhere,
// supply WithLocker.
type Tracker struct {
	registry *Registry
	channel  Channel
	periodMS uint32
	clock    Clock
	clockMod wrap.Modulus
	mu       sync.Locker

	counter Counter

	initialized bool
	closed      bool
	previous    Sample
	current     Sample
	short       ring
	long        ring
}

// New constructs a Tracker for the event source on channel ch, with a base
// period of periodMS milliseconds, and binds it to ch in reg.
//
// New fails if periodMS is 0 or too long for the clock width, if ch is out of
// range for reg, or if another handler is already bound to ch.
func New(reg *Registry, ch Channel, periodMS uint32, opts ...Option) (*Tracker, error) {
	if reg == nil {
		panic(errors.New("*Registry is nil"))
	}

	o := trackerOptions{
		counterBits: DefaultCounterBits,
		clockBits:   DefaultClockBits,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = SystemClock()
	}
	if o.locker == nil {
		o.locker = dummyLocker{}
	}

	if o.counterBits < 1 || o.counterBits > MaxCounterBits {
		return nil, CounterWidthError{Bits: o.counterBits}
	}
	counterMod := wrap.MustNew(o.counterBits)

	clockMod, err := wrap.New(o.clockBits)
	if err != nil {
		return nil, err
	}

	limit := clockMod.Max()
	if periodMS == 0 || uint64(periodMS)*LongBlockPeriods >= limit {
		return nil, BadPeriodError{PeriodMS: periodMS, LimitMS: limit}
	}

	t := &Tracker{
		registry: reg,
		channel:  ch,
		periodMS: periodMS,
		clock:    o.clock,
		clockMod: clockMod,
		mu:       o.locker,
	}
	t.counter.init(counterMod)

	if err := reg.Bind(ch, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Channel returns the notification channel this Tracker is bound to.
func (t *Tracker) Channel() Channel {
	return t.channel
}

// BasePeriodMS returns the base period in milliseconds.
func (t *Tracker) BasePeriodMS() uint32 {
	return t.periodMS
}

// Counter returns the Tracker's pulse counter.
func (t *Tracker) Counter() *Counter {
	return &t.counter
}

// HandleEvent counts one pulse.  It is the asynchronous entry point: it takes
// no lock, does not allocate, and completes in constant time.
func (t *Tracker) HandleEvent() {
	t.counter.Increment()
}

// Init primes the delta state and every slot of both sample buffers with the
// current clock reading and count, so that all rates read 0 until real
// samples arrive.  It must be called exactly once, before the first Operate.
func (t *Tracker) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return ErrAlreadyInitialized
	}

	s := t.read()
	t.previous = s
	t.current = s
	t.short.fill(s)
	t.long.fill(s)
	t.initialized = true

	Logger().Debug().
		Uint8("channel", uint8(t.channel)).
		Uint32("periodMS", t.periodMS).
		Uint64("millis", s.Millis).
		Uint64("count", s.Count).
		Msg("initialized")
	return nil
}

// Operate takes one sample.  Call it once per iteration of the polling loop,
// at least once per base period.
//
// The short buffer advances when more than one base period has passed since
// its newest sample, and the long buffer when more than LongBlockPeriods
// base periods have.  Each buffer advances at most once per call, however
// long it has been since the previous call.
//
// Operate does nothing before Init.
func (t *Tracker) Operate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return
	}

	t.previous = t.current
	t.current = t.read()

	period := uint64(t.periodMS)

	if t.clockMod.Sub(t.current.Millis, t.short.newest().Millis) > period {
		t.short.advance(t.current)
		Logger().Trace().
			Uint8("channel", uint8(t.channel)).
			Str("buffer", "short").
			Uint64("millis", t.current.Millis).
			Uint64("count", t.current.Count).
			Msg("advance")
	}

	if t.clockMod.Sub(t.current.Millis, t.long.newest().Millis) > period*LongBlockPeriods {
		t.long.advance(t.current)
		Logger().Trace().
			Uint8("channel", uint8(t.channel)).
			Str("buffer", "long").
			Uint64("millis", t.current.Millis).
			Uint64("count", t.current.Count).
			Msg("advance")
	}
}

// CurrentCount returns the live value of the pulse counter.
func (t *Tracker) CurrentCount() uint32 {
	return t.counter.Read()
}

// InstantRate returns the events per second between the last two calls to
// Operate.
func (t *Tracker) InstantRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate(t.current, t.previous)
}

// Rate1Period returns the events per second between the two most recent
// short buffer samples, i.e. over the last base period (or slightly more,
// depending on how the polling loop lines up with the period).
func (t *Tracker) Rate1Period() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate(t.short.newest(), t.short.older(1))
}

// Rate5Periods returns the events per second between the newest and oldest
// short buffer samples, which span BufferCapacity-1 = 5 base periods once
// the buffer is warm.
func (t *Tracker) Rate5Periods() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate(t.short.newest(), t.short.oldest())
}

// Rate25Periods returns the events per second between the newest and oldest
// long buffer samples, which span 5 blocks of LongBlockPeriods base periods
// once the buffer is warm.
func (t *Tracker) Rate25Periods() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate(t.long.newest(), t.long.oldest())
}

// Data returns a consistent snapshot of the counter and all four rates.
func (t *Tracker) Data() Data {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Data{
		Channel:       t.channel,
		BasePeriodMS:  t.periodMS,
		Initialized:   t.initialized,
		Count:         t.counter.Read(),
		Millis:        t.current.Millis,
		InstantRate:   t.rate(t.current, t.previous),
		Rate1Period:   t.rate(t.short.newest(), t.short.older(1)),
		Rate5Periods:  t.rate(t.short.newest(), t.short.oldest()),
		Rate25Periods: t.rate(t.long.newest(), t.long.oldest()),
		ShortAdvances: t.short.advances,
		LongAdvances:  t.long.advances,
		ShortWarm:     t.short.warm(),
		LongWarm:      t.long.warm(),
	}
}

// Close unbinds the Tracker from its channel.  Notifications arriving on the
// channel afterward are dropped by the Registry; the captured rates remain
// readable.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fs.ErrClosed
	}
	t.closed = true
	t.registry.Unbind(t.channel, t)
	return nil
}

func (t *Tracker) read() Sample {
	count := t.counter.Read()
	millis := t.clock.Millis()
	return Sample{
		Millis: t.clockMod.Reduce(millis),
		Count:  uint64(count),
	}
}

// rate returns the events per second from older to newer, correcting both
// deltas for wraparound.  It returns 0 if no time has passed.
func (t *Tracker) rate(newer, older Sample) float64 {
	dTicks := t.counter.mod.Sub(newer.Count, older.Count)
	dMillis := t.clockMod.Sub(newer.Millis, older.Millis)
	if dMillis == 0 {
		return 0
	}
	dSeconds := float64(dMillis) / 1000.0
	return float64(dTicks) / dSeconds
}

var _ EventHandler = (*Tracker)(nil)
