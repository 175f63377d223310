package main

import (
	"fmt"
	"strings"
	"time"
)

// type ConfigLoadError {{{

type ConfigLoadError struct {
	Path    string
	Section string
	Err     error
}

func (err ConfigLoadError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "failed to load config file %q: ", err.Path)
	if err.Section != "" {
		buf.WriteString(err.Section)
		buf.WriteString(": ")
	}
	buf.WriteString(err.Err.Error())
	return buf.String()
}

func (err ConfigLoadError) Unwrap() error {
	return err.Err
}

var _ error = ConfigLoadError{}

// }}}

// type DuplicateNameError {{{

type DuplicateNameError struct {
	Name  string
	First int
}

func (err DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate tracker name %q, first used by trackers[%d]", err.Name, err.First)
}

var _ error = DuplicateNameError{}

// }}}

// type DuplicateChannelError {{{

type DuplicateChannelError struct {
	Channel uint
	First   string
}

func (err DuplicateChannelError) Error() string {
	return fmt.Sprintf("channel %d is already used by tracker %q", err.Channel, err.First)
}

var _ error = DuplicateChannelError{}

// }}}

// type ChannelCountError {{{

type ChannelCountError struct {
	Channels uint
	Trackers uint
}

func (err ChannelCountError) Error() string {
	if err.Channels == 0 || err.Channels > maxChannels {
		return fmt.Sprintf("channels must be in 1 .. %d; got %d", maxChannels, err.Channels)
	}
	return fmt.Sprintf("%d trackers configured, but only %d channels", err.Trackers, err.Channels)
}

var _ error = ChannelCountError{}

// }}}

// type ChannelRangeError {{{

type ChannelRangeError struct {
	Channel  uint
	Channels uint
}

func (err ChannelRangeError) Error() string {
	return fmt.Sprintf("channel %d out of range; expected 0 .. %d", err.Channel, err.Channels-1)
}

var _ error = ChannelRangeError{}

// }}}

// type IntervalError {{{

type IntervalError struct {
	Field string
	Value time.Duration
}

func (err IntervalError) Error() string {
	return fmt.Sprintf("%s must be positive; got %v", err.Field, err.Value)
}

var _ error = IntervalError{}

// }}}

// type UnknownTrackerError {{{

type UnknownTrackerError struct {
	Name string
}

func (err UnknownTrackerError) Error() string {
	return fmt.Sprintf("no tracker named %q", err.Name)
}

var _ error = UnknownTrackerError{}

// }}}

// type ReservedNameError {{{

type ReservedNameError struct {
	Name string
}

func (err ReservedNameError) Error() string {
	return fmt.Sprintf("tracker name %q is reserved for a server subsystem", err.Name)
}

var _ error = ReservedNameError{}

// }}}

// type TrackerSetupError {{{

type TrackerSetupError struct {
	Name string
	Err  error
}

func (err TrackerSetupError) Error() string {
	return fmt.Sprintf("failed to set up tracker %q: %v", err.Name, err.Err)
}

func (err TrackerSetupError) Unwrap() error {
	return err.Err
}

var _ error = TrackerSetupError{}

// }}}
