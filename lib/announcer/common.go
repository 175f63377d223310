package announcer

import (
	"encoding/json"
	"errors"
	"io/fs"

	"github.com/chronos-tachyon/ticks/lib/membership"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

func checkAnnounce(state stateType) {
	switch state {
	case stateInit:
		return
	case stateRunning:
		panic(errors.New("Announce has already been called"))
	default:
		panic(errors.New("Close has already been called"))
	}
}

func checkWithdraw(state stateType) {
	switch state {
	case stateRunning:
		return
	case stateInit:
		panic(errors.New("Announce has not yet been called"))
	default:
		panic(errors.New("Close has already been called"))
	}
}

func checkClose(state stateType) error {
	if state == stateClosed {
		return fs.ErrClosed
	}
	return nil
}

func encodePayload(t *membership.Ticks, format Format, namedPort string) ([]byte, error) {
	var v interface{}
	switch format {
	case FinagleFormat:
		ss, err := t.AsServerSet(namedPort)
		if err != nil {
			return nil, err
		}
		v = ss
	default:
		v = t.AsJSON()
	}
	return json.Marshal(v)
}

func validateCommon(unique string, format Format, namedPort string) error {
	if unique == "" {
		return errors.New("unique ID is empty")
	}
	if format == FinagleFormat || namedPort != "" {
		if err := ticksutil.ValidateNamedPort(namedPort); err != nil {
			return err
		}
	}
	return nil
}
