// Package scheduler implements the cooperative polling loop that samples
// every ticks.Tracker once per iteration.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the polling interval used when Scheduler.Interval is
// zero.  It should be well below the shortest tracker base period.
const DefaultInterval = 50 * time.Millisecond

// Operator is implemented by *ticks.Tracker.
type Operator interface {
	Operate()
}

// TickerFunc starts a periodic timer.  It returns the channel the timer
// fires on and a function that stops it.
type TickerFunc func(time.Duration) (<-chan time.Time, func())

// Scheduler calls Operate on each of its Operators, in the order they were
// added, once per Interval.
//
// Operate calls are made from one goroutine only, so the Operators never
// see concurrent polling.
type Scheduler struct {
	Interval time.Duration
	TickerFn TickerFunc

	mu    sync.Mutex
	ops   []Operator
	steps atomic.Uint64
}

// Add appends op to the list of Operators.
func (s *Scheduler) Add(op Operator) {
	if op == nil {
		panic(errors.New("Operator is nil"))
	}
	s.mu.Lock()
	s.ops = append(s.ops, op)
	s.mu.Unlock()
}

// Len returns the number of Operators.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	n := len(s.ops)
	s.mu.Unlock()
	return n
}

// Steps returns the number of completed polling iterations.
func (s *Scheduler) Steps() uint64 {
	return s.steps.Load()
}

// Step runs one polling iteration.
func (s *Scheduler) Step() {
	s.mu.Lock()
	ops := s.ops
	s.mu.Unlock()

	for _, op := range ops {
		op.Operate()
	}
	s.steps.Add(1)
}

// Run performs one Step immediately and then one per Interval, until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	tickerFn := s.TickerFn
	if tickerFn == nil {
		tickerFn = realTicker
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Dur("interval", interval).
		Int("operators", s.Len()).
		Msg("scheduler running")

	ch, stop := tickerFn(interval)
	defer stop()

	s.Step()
	for {
		select {
		case <-ctx.Done():
			logger.Debug().
				Uint64("steps", s.Steps()).
				Msg("scheduler stopped")
			return nil

		case <-ch:
			s.Step()
		}
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
