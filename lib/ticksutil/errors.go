package ticksutil

import (
	"fmt"
	"io/fs"
	"regexp"
)

// ErrNotExist signals that something does not exist.
var ErrNotExist = notExistError(0)

// ErrFailedToMatch et al signal that input parsing has failed.
var (
	ErrFailedToMatch       = inputError("failed to match expected pattern")
	ErrExpectNonEmpty      = inputError("expected non-empty string")
	ErrExpectLeadingSlash  = inputError("expected path to start with '/'")
	ErrExpectTrailingSlash = inputError("expected path to end with '/'")
	ErrExpectNoEndSlash    = inputError("did not expect path to end with '/'")
	ErrExpectNoDoubleSlash = inputError("did not expect path to contain '//'")
	ErrExpectNoDot         = inputError("did not expect path to contain '/./'")
	ErrExpectNoDotDot      = inputError("did not expect path to contain '/../'")
)

// type notExistError {{{

type notExistError int

// Error fulfills the error interface.
func (err notExistError) Error() string {
	return "does not exist"
}

// Is returns true for fs.ErrNotExist.
func (err notExistError) Is(other error) bool {
	return other == fs.ErrNotExist
}

var _ error = notExistError(0)

// }}}

// type inputError {{{

type inputError string

// Error fulfills the error interface.
func (err inputError) Error() string {
	return string(err)
}

var _ error = inputError("")

// }}}

// type CheckError {{{

// CheckError represents an assertion failure.
type CheckError struct {
	Message string
}

// Error fulfills the error interface.
func (err CheckError) Error() string {
	return err.Message
}

var _ error = CheckError{}

// }}}

// type RegexpMatchError {{{

// RegexpMatchError represents failure to match a regular expression.
type RegexpMatchError struct {
	Input   string
	Pattern *regexp.Regexp
}

// Error fulfills the error interface.
func (err RegexpMatchError) Error() string {
	return fmt.Sprintf("input %q failed to match pattern /%s/", err.Input, err.Pattern.String())
}

var _ error = RegexpMatchError{}

// }}}

// type BoolError {{{

// BoolError represents failure to parse the string representation of a
// boolean value.
type BoolError struct {
	Input string
	Err   error
}

// Error fulfills the error interface.
func (err BoolError) Error() string {
	return fmt.Sprintf("invalid boolean value %q: %v", err.Input, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err BoolError) Unwrap() error {
	return err.Err
}

var _ error = BoolError{}

// }}}

// type HostPortError {{{

// HostPortError represents failure to parse a "host:port"-shaped string.
type HostPortError struct {
	HostPort string
	Err      error
}

// Error fulfills the error interface.
func (err HostPortError) Error() string {
	return fmt.Sprintf("invalid <host>:<port> string %q: %v", err.HostPort, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err HostPortError) Unwrap() error {
	return err.Err
}

var _ error = HostPortError{}

// }}}

// type HostError {{{

// HostError represents failure to parse a hostname string.
type HostError struct {
	Host string
	Err  error
}

// Error fulfills the error interface.
func (err HostError) Error() string {
	return fmt.Sprintf("invalid hostname %q: %v", err.Host, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err HostError) Unwrap() error {
	return err.Err
}

var _ error = HostError{}

// }}}

// type PortError {{{

// PortType denotes whether a port is named, numbered, or either.
type PortType uint8

// PortType constants.
const (
	NumericPort PortType = iota
	NumericPortOrServiceName
	NamedPort
)

// PortError represents failure to parse a port.
type PortError struct {
	Type PortType
	Port string
	Err  error
}

// Error fulfills the error interface.
func (err PortError) Error() string {
	var format string
	switch err.Type {
	case NumericPort:
		format = "invalid port number %q: %v"
	case NumericPortOrServiceName:
		format = "invalid port number or /etc/services port name %q: %v"
	case NamedPort:
		format = "invalid named port %q: %v"
	default:
		format = "invalid port %q: %v"
	}
	return fmt.Sprintf(format, err.Port, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err PortError) Unwrap() error {
	return err.Err
}

var _ error = PortError{}

// }}}

// type BadPathError {{{

// BadPathError represents a malformed ZooKeeper path or etcd key prefix.
type BadPathError struct {
	Path string
	Err  error
}

// Error fulfills the error interface.
func (err BadPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %v", err.Path, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err BadPathError) Unwrap() error {
	return err.Err
}

var _ error = BadPathError{}

// }}}

// type TrackerNameError {{{

// TrackerNameError represents an invalid tracker name.
type TrackerNameError struct {
	Name string
	Err  error
}

// Error fulfills the error interface.
func (err TrackerNameError) Error() string {
	return fmt.Sprintf("invalid tracker name %q: %v", err.Name, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err TrackerNameError) Unwrap() error {
	return err.Err
}

var _ error = TrackerNameError{}

// }}}

// type EnvVarLookupError {{{

// EnvVarLookupError represents failure to look up an environment variable.
type EnvVarLookupError struct {
	Var string
	Err error
}

// Error fulfills the error interface.
func (err EnvVarLookupError) Error() string {
	return fmt.Sprintf("invalid environment variable ${%s}: %v", err.Var, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err EnvVarLookupError) Unwrap() error {
	return err.Err
}

var _ error = EnvVarLookupError{}

// }}}

// type LookupUserByNameError {{{

// LookupUserByNameError represents failure to look up an OS user by name.
type LookupUserByNameError struct {
	Name string
	Err  error
}

// Error fulfills the error interface.
func (err LookupUserByNameError) Error() string {
	if err.Name == "" {
		return fmt.Sprintf("\"os/user\".Current() failed: %v", err.Err)
	}
	return fmt.Sprintf("\"os/user\".Lookup(%q) failed: %v", err.Name, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err LookupUserByNameError) Unwrap() error {
	return err.Err
}

var _ error = LookupUserByNameError{}

// }}}

// type PathAbsError {{{

// PathAbsError represents failure to make a file path absolute.
type PathAbsError struct {
	Path string
	Err  error
}

// Error fulfills the error interface.
func (err PathAbsError) Error() string {
	return fmt.Sprintf("failed to make path absolute: %q: %v", err.Path, err.Err)
}

// Unwrap returns the underlying cause of this error.
func (err PathAbsError) Unwrap() error {
	return err.Err
}

var _ error = PathAbsError{}

// }}}
