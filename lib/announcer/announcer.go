package announcer

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/membership"
)

type stateType uint8

const (
	stateInit stateType = iota
	stateRunning
	stateClosed
)

// Impl is one service discovery backend.
type Impl interface {
	Announce(ctx context.Context, t *membership.Ticks) error
	Withdraw(ctx context.Context) error
	Close() error
}

// Announcer fans Announce and Withdraw out to every Impl that has been
// added.  An Impl whose Announce fails is skipped by the matching Withdraw.
type Announcer struct {
	mu    sync.Mutex
	impls []Impl
	alive []bool
	state stateType
}

// New returns an empty Announcer.
func New() *Announcer {
	return &Announcer{}
}

// Len returns the number of Impls.
func (a *Announcer) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.impls)
}

// Add appends impl.  It panics if Announce is in effect or Close has been
// called.
func (a *Announcer) Add(impl Impl) {
	if impl == nil {
		panic(errors.New("Impl is nil"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	checkAnnounce(a.state)
	a.impls = append(a.impls, impl)
}

// Announce publishes t through every Impl.  It returns every failure, but
// the Impls that succeeded stay announced.
func (a *Announcer) Announce(ctx context.Context, t *membership.Ticks) error {
	if ctx == nil {
		panic(errors.New("context.Context is nil"))
	}
	if t == nil {
		panic(errors.New("*membership.Ticks is nil"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	checkAnnounce(a.state)

	a.state = stateRunning
	a.alive = make([]bool, len(a.impls))
	var errs multierror.Error
	for index, impl := range a.impls {
		err := impl.Announce(ctx, t)
		if err == nil {
			a.alive[index] = true
			continue
		}
		if isRealError(err) {
			errs.Errors = append(errs.Errors, err)
		}
	}

	log.Logger.Debug().
		Int("impls", len(a.impls)).
		Int("errors", len(errs.Errors)).
		Msg("announced")
	return misc.ErrorOrNil(errs)
}

// Withdraw removes the announcement from every Impl that accepted it.
func (a *Announcer) Withdraw(ctx context.Context) error {
	if ctx == nil {
		panic(errors.New("context.Context is nil"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	checkWithdraw(a.state)

	err := a.withdrawLocked(ctx)
	a.state = stateInit
	return err
}

// Close withdraws any announcement still in effect, then closes every Impl.
// A second call returns fs.ErrClosed.
func (a *Announcer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := checkClose(a.state); err != nil {
		return err
	}

	var errs multierror.Error
	if a.state == stateRunning {
		if err := a.withdrawLocked(context.Background()); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	for _, impl := range a.impls {
		if err := impl.Close(); isRealError(err) {
			errs.Errors = append(errs.Errors, err)
		}
	}
	a.state = stateClosed
	return misc.ErrorOrNil(errs)
}

func (a *Announcer) withdrawLocked(ctx context.Context) error {
	var errs multierror.Error
	for index, impl := range a.impls {
		if !a.alive[index] {
			continue
		}
		if err := impl.Withdraw(ctx); isRealError(err) {
			errs.Errors = append(errs.Errors, err)
		}
	}
	a.alive = nil
	return misc.ErrorOrNil(errs)
}

func isRealError(err error) bool {
	switch {
	case err == nil:
		return false
	case err == io.EOF:
		return false
	case errors.Is(err, fs.ErrClosed):
		return false
	default:
		return true
	}
}
