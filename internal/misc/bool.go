package misc

import (
	"strings"

	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

var boolMap = map[string]bool{
	"0":     false,
	"1":     true,
	"off":   false,
	"on":    true,
	"n":     false,
	"no":    false,
	"y":     true,
	"yes":   true,
	"f":     false,
	"false": false,
	"t":     true,
	"true":  true,
}

// ParseBool parses the usual spellings of a boolean config value,
// case-insensitively.
func ParseBool(str string) (bool, error) {
	if value, found := boolMap[strings.ToLower(str)]; found {
		return value, nil
	}
	return false, ticksutil.BoolError{Input: str, Err: ticksutil.ErrFailedToMatch}
}
