package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/chronos-tachyon/ticks/lib/ticks"
)

type countingOperator struct {
	n int
}

func (op *countingOperator) Operate() {
	op.n++
}

func TestScheduler_Step(t *testing.T) {
	var s Scheduler
	a := &countingOperator{}
	b := &countingOperator{}
	s.Add(a)
	s.Add(b)

	for i := 0; i < 3; i++ {
		s.Step()
	}

	if a.n != 3 || b.n != 3 {
		t.Errorf("expected 3 Operate calls each, got a=%d b=%d", a.n, b.n)
	}
	if s.Steps() != 3 {
		t.Errorf("Steps: expected 3, got %d", s.Steps())
	}
}

func TestScheduler_Run(t *testing.T) {
	ch := make(chan time.Time)
	stopped := make(chan struct{})

	s := Scheduler{
		Interval: time.Hour,
		TickerFn: func(d time.Duration) (<-chan time.Time, func()) {
			if d != time.Hour {
				t.Errorf("TickerFn: expected %v, got %v", time.Hour, d)
			}
			return ch, func() { close(stopped) }
		},
	}

	reg := ticks.NewRegistry(1)
	clock := ticks.NewManualClock(0)
	tr, err := ticks.New(reg, 0, 100, ticks.WithClock(clock))
	if err != nil {
		t.Fatalf("ticks.New: unexpected error: %v", err)
	}
	if err := tr.Init(); err != nil {
		t.Fatalf("Init: unexpected error: %v", err)
	}
	s.Add(tr)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
	}()

	for i := 0; i < 4; i++ {
		reg.Notify(0)
		reg.Notify(0)
		clock.Advance(101)
		ch <- time.Time{}
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run: unexpected error: %v", err)
	}
	<-stopped

	// One Step at startup, then one per tick.
	if steps := s.Steps(); steps != 5 {
		t.Errorf("Steps: expected 5, got %d", steps)
	}
	data := tr.Data()
	if data.ShortAdvances < 3 {
		t.Errorf("ShortAdvances: expected at least 3, got %d", data.ShortAdvances)
	}
	if data.Count != 8 {
		t.Errorf("Count: expected 8, got %d", data.Count)
	}
}
