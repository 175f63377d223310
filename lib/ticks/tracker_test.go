package ticks

import (
	"errors"
	"io/fs"
	"math"
	"sync"
	"testing"

	"github.com/chronos-tachyon/ticks/lib/wrap"
)

func newTestTracker(t *testing.T, clock Clock, periodMS uint32, opts ...Option) *Tracker {
	t.Helper()
	reg := NewRegistry(1)
	opts = append([]Option{WithClock(clock)}, opts...)
	tr, err := New(reg, 0, periodMS, opts...)
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}
	return tr
}

func mustInit(t *testing.T, tr *Tracker) {
	t.Helper()
	if err := tr.Init(); err != nil {
		t.Fatalf("Init: unexpected error: %v", err)
	}
}

func deliver(tr *Tracker, n int) {
	for i := 0; i < n; i++ {
		tr.HandleEvent()
	}
}

func checkClose(t *testing.T, label string, expect float64, actual float64, tolerance float64) {
	t.Helper()
	if math.Abs(actual-expect) > tolerance {
		t.Errorf("%s: expected %.6f ± %g, got %.6f", label, expect, tolerance, actual)
	}
}

func allRates(tr *Tracker) [4]float64 {
	return [4]float64{
		tr.InstantRate(),
		tr.Rate1Period(),
		tr.Rate5Periods(),
		tr.Rate25Periods(),
	}
}

func TestTracker_ZeroBeforeAndAfterInit(t *testing.T) {
	clock := NewManualClock(12345)
	tr := newTestTracker(t, clock, 1000)

	if rates := allRates(tr); rates != [4]float64{} {
		t.Errorf("before Init: expected all zero, got %v", rates)
	}

	clock.Advance(5000)
	tr.Operate()
	if data := tr.Data(); data.Initialized || data.ShortAdvances != 0 || data.LongAdvances != 0 {
		t.Errorf("Operate before Init: expected no-op, got %+v", data)
	}

	mustInit(t, tr)
	if rates := allRates(tr); rates != [4]float64{} {
		t.Errorf("after Init: expected all zero, got %v", rates)
	}

	if err := tr.Init(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init: expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestTracker_CountsEveryEvent(t *testing.T) {
	reg := NewRegistry(2)
	clock := NewManualClock(0)
	tr, err := New(reg, 1, 10, WithClock(clock))
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}
	mustInit(t, tr)

	const numProducers = 1
	const numEvents = 100000

	var wg sync.WaitGroup
	wg.Add(numProducers)
	go func() {
		defer wg.Done()
		notify := reg.Notifier(1)
		for i := 0; i < numEvents; i++ {
			notify()
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for looping := true; looping; {
		select {
		case <-done:
			looping = false
		default:
			clock.Advance(3)
			tr.Operate()
		}
	}
	tr.Operate()

	expect := uint32(numEvents % 65536)
	if actual := tr.CurrentCount(); actual != expect {
		t.Errorf("CurrentCount: expected %d, got %d", expect, actual)
	}
	if dropped := reg.Dropped(1); dropped != 0 {
		t.Errorf("Dropped: expected 0, got %d", dropped)
	}
}

func TestTracker_QueriesAreIdempotent(t *testing.T) {
	clock := NewManualClock(0)
	tr := newTestTracker(t, clock, 100)
	mustInit(t, tr)

	for step := 0; step < 40; step++ {
		deliver(tr, step%7)
		clock.Advance(30)
		tr.Operate()

		first := allRates(tr)
		second := allRates(tr)
		if first != second {
			t.Errorf("[%d]: queries changed with no intervening Operate: %v vs %v", step, first, second)
		}
	}
}

func TestTracker_OnePeriodScenario(t *testing.T) {
	clock := NewManualClock(0)
	tr := newTestTracker(t, clock, 1000)
	mustInit(t, tr)

	deliver(tr, 10)
	tr.Operate()
	clock.Set(1001)
	tr.Operate()

	checkClose(t, "Rate1Period", 10/1.001, tr.Rate1Period(), 1e-9)
	checkClose(t, "Rate1Period", 9.99, tr.Rate1Period(), 0.001)
}

func TestTracker_SteadyHundredHertz(t *testing.T) {
	clock := NewManualClock(0)
	tr := newTestTracker(t, clock, 1000)
	mustInit(t, tr)

	// 100 Hz for 26 s, polled every 50 ms.
	for ms := uint64(50); ms <= 26000; ms += 50 {
		deliver(tr, 5)
		clock.Set(ms)
		tr.Operate()
	}

	checkClose(t, "Rate25Periods", 100, tr.Rate25Periods(), 1.0)
	checkClose(t, "Rate5Periods", 100, tr.Rate5Periods(), 1.0)
	checkClose(t, "Rate1Period", 100, tr.Rate1Period(), 1.0)
	checkClose(t, "InstantRate", 100, tr.InstantRate(), 1.0)

	data := tr.Data()
	if data.LongAdvances != 5 {
		t.Errorf("LongAdvances: expected 5, got %d", data.LongAdvances)
	}
	if data.Count != 2600 {
		t.Errorf("Count: expected 2600, got %d", data.Count)
	}
}

func TestTracker_WarmUp(t *testing.T) {
	clock := NewManualClock(0)
	tr := newTestTracker(t, clock, 1000)
	mustInit(t, tr)

	// 100 Hz, polled every 100 ms; the short buffer advances every 1100 ms.
	for tr.Data().ShortAdvances < BufferCapacity {
		if tr.Data().ShortWarm {
			t.Fatalf("ShortWarm after %d advances", tr.Data().ShortAdvances)
		}
		deliver(tr, 10)
		clock.Advance(100)
		tr.Operate()
	}

	data := tr.Data()
	if !data.ShortWarm {
		t.Errorf("ShortWarm: expected true after %d advances", data.ShortAdvances)
	}
	checkClose(t, "Rate1Period", 100, data.Rate1Period, 1e-9)
	checkClose(t, "Rate5Periods", 100, data.Rate5Periods, 1e-9)
}

func TestTracker_OneAdvancePerCall(t *testing.T) {
	clock := NewManualClock(0)
	tr := newTestTracker(t, clock, 1000)
	mustInit(t, tr)

	deliver(tr, 70)
	clock.Set(7000)
	tr.Operate()

	data := tr.Data()
	if data.ShortAdvances != 1 || data.LongAdvances != 1 {
		t.Errorf("expected one advance per buffer, got short=%d long=%d", data.ShortAdvances, data.LongAdvances)
	}
	checkClose(t, "Rate1Period", 10, data.Rate1Period, 1e-9)
	checkClose(t, "Rate25Periods", 10, data.Rate25Periods, 1e-9)
}

func TestTracker_GateIsStrictlyGreater(t *testing.T) {
	clock := NewManualClock(0)
	tr := newTestTracker(t, clock, 1000)
	mustInit(t, tr)

	clock.Set(1000)
	tr.Operate()
	if n := tr.Data().ShortAdvances; n != 0 {
		t.Errorf("at exactly one period: expected 0 advances, got %d", n)
	}

	clock.Set(1001)
	tr.Operate()
	if n := tr.Data().ShortAdvances; n != 1 {
		t.Errorf("after one period: expected 1 advance, got %d", n)
	}
}

// runScenario drives tr with a fixed pulse train and returns every rate after
// every step.
func runScenario(tr *Tracker, clock *ManualClock, steps int, stepMS uint64, perStep int) [][4]float64 {
	out := make([][4]float64, 0, steps)
	for step := 0; step < steps; step++ {
		deliver(tr, perStep)
		clock.Advance(stepMS)
		tr.Operate()
		out = append(out, allRates(tr))
	}
	return out
}

func compareScenarios(t *testing.T, label string, expect [][4]float64, actual [][4]float64) {
	t.Helper()
	for index := range expect {
		if expect[index] != actual[index] {
			t.Errorf("%s: step %d: expected %v, got %v", label, index, expect[index], actual[index])
		}
	}
}

func TestTracker_CounterWraparound(t *testing.T) {
	type testRow struct {
		Bits    uint
		Preload int
	}

	testData := [...]testRow{
		{16, 65530},
		{16, 65535},
		{16, 32768},
		{8, 250},
		{8, 255},
		{8, 3},
	}

	for index, row := range testData {
		refClock := NewManualClock(0)
		ref := newTestTracker(t, refClock, 100, WithCounterBits(row.Bits))
		mustInit(t, ref)

		clock := NewManualClock(0)
		tr := newTestTracker(t, clock, 100, WithCounterBits(row.Bits))
		deliver(tr, row.Preload)
		mustInit(t, tr)

		// 3 events per 40 ms keeps even the long window's delta below 2^8.
		expect := runScenario(ref, refClock, 60, 40, 3)
		actual := runScenario(tr, clock, 60, 40, 3)
		compareScenarios(t, "counter", expect, actual)

		checkClose(t, "InstantRate", 75, actual[len(actual)-1][0], 1e-9)
		if t.Failed() {
			t.Logf("[%d]: bits=%d preload=%d", index, row.Bits, row.Preload)
		}
	}
}

func TestTracker_ClockWraparound(t *testing.T) {
	type testRow struct {
		Bits  uint
		Start uint64
	}

	testData := [...]testRow{
		{32, (1 << 32) - 300},
		{32, (1 << 32) - 1},
		{32, (1 << 32) - 2500},
		{12, (1 << 12) - 250},
		{12, 0},
	}

	for index, row := range testData {
		refClock := NewManualClock(0)
		ref := newTestTracker(t, refClock, 100)
		mustInit(t, ref)

		clock := NewManualClock(row.Start)
		tr := newTestTracker(t, clock, 100, WithClockBits(row.Bits))
		mustInit(t, tr)

		expect := runScenario(ref, refClock, 120, 70, 4)
		actual := runScenario(tr, clock, 120, 70, 4)
		compareScenarios(t, "clock", expect, actual)

		if t.Failed() {
			t.Logf("[%d]: bits=%d start=%d", index, row.Bits, row.Start)
		}
	}
}

func TestNew_FailsFast(t *testing.T) {
	reg := NewRegistry(2)

	_, err := New(reg, 0, 0)
	var periodErr BadPeriodError
	if !errors.As(err, &periodErr) {
		t.Errorf("period 0: expected BadPeriodError, got %v", err)
	}

	_, err = New(reg, 0, 1000, WithClockBits(10))
	if !errors.As(err, &periodErr) {
		t.Errorf("period too long for clock: expected BadPeriodError, got %v", err)
	}

	_, err = New(reg, 2, 1000)
	var rangeErr ChannelRangeError
	if !errors.As(err, &rangeErr) {
		t.Errorf("channel 2: expected ChannelRangeError, got %v", err)
	}

	_, err = New(reg, 0, 1000, WithCounterBits(33))
	var widthErr CounterWidthError
	if !errors.As(err, &widthErr) {
		t.Errorf("33-bit counter: expected CounterWidthError, got %v", err)
	}

	_, err = New(reg, 0, 1000, WithClockBits(64))
	var bitsErr wrap.BitsError
	if !errors.As(err, &bitsErr) {
		t.Errorf("64-bit clock: expected wrap.BitsError, got %v", err)
	}

	first, err := New(reg, 0, 1000)
	if err != nil {
		t.Fatalf("channel 0: unexpected error: %v", err)
	}

	_, err = New(reg, 0, 500)
	var inUseErr ChannelInUseError
	if !errors.As(err, &inUseErr) {
		t.Errorf("channel 0 again: expected ChannelInUseError, got %v", err)
	}

	if err := first.Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
	if err := first.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("second Close: expected fs.ErrClosed, got %v", err)
	}

	if _, err := New(reg, 0, 500); err != nil {
		t.Errorf("channel 0 after Close: unexpected error: %v", err)
	}
}

func TestTracker_InstancesAreIndependent(t *testing.T) {
	reg := NewRegistry(2)
	clock := NewManualClock(0)
	a, err := New(reg, 0, 100, WithClock(clock))
	if err != nil {
		t.Fatalf("New a: unexpected error: %v", err)
	}
	b, err := New(reg, 1, 100, WithClock(clock))
	if err != nil {
		t.Fatalf("New b: unexpected error: %v", err)
	}
	mustInit(t, a)
	mustInit(t, b)

	for i := 0; i < 7; i++ {
		reg.Notify(0)
	}
	for i := 0; i < 3; i++ {
		reg.Notify(1)
	}

	if a.CurrentCount() != 7 {
		t.Errorf("a: expected 7, got %d", a.CurrentCount())
	}
	if b.CurrentCount() != 3 {
		t.Errorf("b: expected 3, got %d", b.CurrentCount())
	}
}
