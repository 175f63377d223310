package ticks

import (
	"errors"
	"fmt"
)

// ErrAlreadyInitialized is returned by Init when called more than once.
var ErrAlreadyInitialized = errors.New("tracker is already initialized")

// type ChannelRangeError {{{

// ChannelRangeError indicates a notification channel that the Registry does
// not have a slot for.
type ChannelRangeError struct {
	Channel     Channel
	NumChannels uint
}

// Error fulfills the error interface.
func (err ChannelRangeError) Error() string {
	return fmt.Sprintf("channel %d is out of range; registry has %d channels", uint(err.Channel), err.NumChannels)
}

var _ error = ChannelRangeError{}

// }}}

// type ChannelInUseError {{{

// ChannelInUseError indicates an attempt to bind a second handler to a
// notification channel.
type ChannelInUseError struct {
	Channel Channel
}

// Error fulfills the error interface.
func (err ChannelInUseError) Error() string {
	return fmt.Sprintf("channel %d is already bound", uint(err.Channel))
}

var _ error = ChannelInUseError{}

// }}}

// type BadPeriodError {{{

// BadPeriodError indicates a base period that is zero, or so long that the
// long buffer's block could never elapse within one turn of the clock.
type BadPeriodError struct {
	PeriodMS uint32
	LimitMS  uint64
}

// Error fulfills the error interface.
func (err BadPeriodError) Error() string {
	if err.PeriodMS == 0 {
		return "base period must be greater than 0 ms"
	}
	return fmt.Sprintf("base period %d ms is too long; %d periods must fit in %d ms", err.PeriodMS, LongBlockPeriods, err.LimitMS)
}

var _ error = BadPeriodError{}

// }}}

// type CounterWidthError {{{

// CounterWidthError indicates an unsupported counter width.
type CounterWidthError struct {
	Bits uint
}

// Error fulfills the error interface.
func (err CounterWidthError) Error() string {
	return fmt.Sprintf("invalid counter width %d bits; expected 1 .. %d", err.Bits, MaxCounterBits)
}

var _ error = CounterWidthError{}

// }}}
