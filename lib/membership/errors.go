package membership

import (
	"fmt"
)

// type UnknownNamedPortError {{{

// UnknownNamedPortError indicates a lookup of a port the daemon does not
// advertise.
type UnknownNamedPortError struct {
	Name string
}

// Error fulfills the error interface.
func (err UnknownNamedPortError) Error() string {
	return fmt.Sprintf("unknown named port %q", err.Name)
}

var _ error = UnknownNamedPortError{}

// }}}

// type MissingPrimaryPortError {{{

// MissingPrimaryPortError indicates a record that cannot be rendered as a
// ServerSet because it lacks the primary port.
type MissingPrimaryPortError struct {
	Name string
}

// Error fulfills the error interface.
func (err MissingPrimaryPortError) Error() string {
	return fmt.Sprintf("primary port %q is not advertised", err.Name)
}

var _ error = MissingPrimaryPortError{}

// }}}
