package pulsesource

import (
	"fmt"
	"runtime"

	"github.com/chronos-tachyon/ticks/internal/enums"
)

// type UnknownTypeError {{{

// UnknownTypeError indicates a Config with no recognized source type.
type UnknownTypeError struct {
	Type enums.SourceType
}

// Error fulfills the error interface.
func (err UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown source type %#v", err.Type)
}

var _ error = UnknownTypeError{}

// }}}

// type MissingFieldError {{{

// MissingFieldError indicates that a field required by the source type was
// left empty.
type MissingFieldError struct {
	Type  enums.SourceType
	Field string
}

// Error fulfills the error interface.
func (err MissingFieldError) Error() string {
	return fmt.Sprintf("source type %q requires field %q", err.Type, err.Field)
}

var _ error = MissingFieldError{}

// }}}

// type BadNetworkError {{{

// BadNetworkError indicates a packet network other than udp or unixgram.
type BadNetworkError struct {
	Network string
}

// Error fulfills the error interface.
func (err BadNetworkError) Error() string {
	return fmt.Sprintf("unsupported network %q; expected one of [\"udp\" \"udp4\" \"udp6\" \"unixgram\"]", err.Network)
}

var _ error = BadNetworkError{}

// }}}

// type BadAddressError {{{

// BadAddressError indicates a UDP address that is not "host:port".
type BadAddressError struct {
	Address string
	Err     error
}

// Error fulfills the error interface.
func (err BadAddressError) Error() string {
	return fmt.Sprintf("invalid UDP address %q: %v", err.Address, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err BadAddressError) Unwrap() error {
	return err.Err
}

var _ error = BadAddressError{}

// }}}

// type BadRateError {{{

// BadRateError indicates a synthetic frequency outside (0, MaxSyntheticHz].
type BadRateError struct {
	Hz float64
}

// Error fulfills the error interface.
func (err BadRateError) Error() string {
	return fmt.Sprintf("invalid synthetic rate %g Hz; expected 0 < hz <= %g", err.Hz, float64(MaxSyntheticHz))
}

var _ error = BadRateError{}

// }}}

// type UnsupportedError {{{

// UnsupportedError indicates a source type that this platform cannot provide.
type UnsupportedError struct {
	Type enums.SourceType
}

// Error fulfills the error interface.
func (err UnsupportedError) Error() string {
	return fmt.Sprintf("source type %q is not supported on %s", err.Type, runtime.GOOS)
}

var _ error = UnsupportedError{}

// }}}

// type GPIOError {{{

// GPIOError wraps a failed system call on a sysfs GPIO line.
type GPIOError struct {
	Op   string
	Path string
	Err  error
}

// Error fulfills the error interface.
func (err GPIOError) Error() string {
	return fmt.Sprintf("gpio: %s %q: %v", err.Op, err.Path, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err GPIOError) Unwrap() error {
	return err.Err
}

var _ error = GPIOError{}

// }}}
