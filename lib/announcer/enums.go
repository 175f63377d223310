package announcer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/chronos-tachyon/ticks/internal/constants"
)

// Format selects the payload written by an Impl.
type Format uint8

const (
	// TicksFormat writes membership.TicksJSON.
	TicksFormat Format = iota

	// FinagleFormat writes a Finagle membership.ServerSet, with the
	// configured named port as the service endpoint.
	FinagleFormat
)

var formatNames = []string{
	"ticks",
	"finagle",
}

// String returns the name of the format.
func (f Format) String() string {
	if uint(f) >= uint(len(formatNames)) {
		return fmt.Sprintf("Format(%d)", uint(f))
	}
	return formatNames[f]
}

// Parse parses the name of a format.  The empty string is TicksFormat.
func (f *Format) Parse(str string) error {
	if str == "" {
		*f = TicksFormat
		return nil
	}
	for index, name := range formatNames {
		if str == name {
			*f = Format(index)
			return nil
		}
	}
	return fmt.Errorf("expected one of %q; got %q", formatNames, str)
}

// MarshalJSON fulfills json.Marshaler.
func (f Format) MarshalJSON() ([]byte, error) {
	if uint(f) >= uint(len(formatNames)) {
		return nil, fmt.Errorf("bad value Format(%d)", uint(f))
	}
	return json.Marshal(formatNames[f])
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (f *Format) UnmarshalJSON(raw []byte) error {
	if bytes.Equal(raw, constants.NullBytes) {
		return nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return err
	}
	return f.Parse(str)
}

var _ fmt.Stringer = Format(0)
var _ json.Marshaler = Format(0)
var _ json.Unmarshaler = (*Format)(nil)
