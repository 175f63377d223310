package mainutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// ListenConfig describes a stream listener.
//
// The string form is "address[;net=network]".  Addresses beginning with '/'
// or '@' (abstract) are AF_UNIX sockets; anything else is TCP unless the
// network says otherwise.
type ListenConfig struct {
	Enabled bool
	Network string
	Address string
}

type lcJSON struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

// AppendTo appends the string form of lc to out.
func (lc ListenConfig) AppendTo(out *strings.Builder) {
	out.WriteString(escapeListenAddress(lc.Address))
	if lc.Network != constants.NetTCP {
		writeOption(out, optionNet, lc.Network)
	}
}

// String returns the string form of lc.
func (lc ListenConfig) String() string {
	if !lc.Enabled {
		return ""
	}

	var buf strings.Builder
	buf.Grow(64)
	lc.AppendTo(&buf)
	return buf.String()
}

// MarshalJSON fulfills json.Marshaler.
func (lc ListenConfig) MarshalJSON() ([]byte, error) {
	if !lc.Enabled {
		return constants.NullBytes, nil
	}
	return json.Marshal(lc.toAlt())
}

// Parse parses either the string form or the JSON form.
func (lc *ListenConfig) Parse(str string) error {
	wantZero := true
	defer func() {
		if wantZero {
			*lc = ListenConfig{}
		}
	}()

	if str == "" || str == constants.NullString {
		return nil
	}

	err := misc.StrictUnmarshalJSON([]byte(str), lc)
	if err == nil {
		wantZero = false
		return nil
	}

	pieces := strings.Split(str, ";")

	tmp := ListenConfig{
		Enabled: true,
		Address: pieces[0],
	}

	for _, item := range pieces[1:] {
		name, value, complete, err := splitOption(item)
		if err != nil {
			return err
		}

		switch name {
		case optionNet, optionNetwork:
			tmp.Network = value

		default:
			return OptionError{Name: name, Value: value, Complete: complete, Err: UnknownOptionError{}}
		}
	}

	tmp, err = tmp.postprocess()
	if err != nil {
		return err
	}

	*lc = tmp
	wantZero = false
	return nil
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (lc *ListenConfig) UnmarshalJSON(raw []byte) error {
	wantZero := true
	defer func() {
		if wantZero {
			*lc = ListenConfig{}
		}
	}()

	if bytes.Equal(raw, constants.NullBytes) {
		return nil
	}

	var alt lcJSON
	err := misc.StrictUnmarshalJSON(raw, &alt)
	if err != nil {
		return err
	}

	tmp, err := alt.toStd().postprocess()
	if err != nil {
		return err
	}

	*lc = tmp
	wantZero = false
	return nil
}

// Listen opens the listener.  A disabled ListenConfig yields a listener
// that never accepts anything, so that servers can be wired up uniformly.
func (lc ListenConfig) Listen(ctx context.Context) (net.Listener, error) {
	if !lc.Enabled {
		return newDummyListener(), nil
	}

	var lcfg net.ListenConfig
	return lcfg.Listen(ctx, lc.Network, lc.Address)
}

func (lc ListenConfig) toAlt() *lcJSON {
	if !lc.Enabled {
		return nil
	}
	return &lcJSON{
		Network: lc.Network,
		Address: escapeListenAddress(lc.Address),
	}
}

func (alt *lcJSON) toStd() ListenConfig {
	if alt == nil {
		return ListenConfig{}
	}
	return ListenConfig{
		Enabled: true,
		Network: alt.Network,
		Address: unescapeListenAddress(alt.Address),
	}
}

func (lc ListenConfig) postprocess() (out ListenConfig, err error) {
	var zero ListenConfig

	if !lc.Enabled {
		return zero, nil
	}

	if lc.Address == "" {
		return zero, ticksutil.HostPortError{HostPort: lc.Address, Err: ticksutil.ErrExpectNonEmpty}
	}

	maybeUnix := (lc.Network == constants.NetEmpty) || constants.IsNetUnix(lc.Network)
	if maybeUnix {
		switch {
		case lc.Address[0] == '/' || lc.Address[0] == '\x00':
			// already absolute or abstract

		case lc.Address[0] == '@':
			lc.Address = "\x00" + lc.Address[1:]

		case lc.Network != constants.NetEmpty || strings.Contains(lc.Address, "/"):
			abs, err := ticksutil.PathAbs(lc.Address)
			if err != nil {
				return zero, err
			}
			lc.Address = abs

		default:
			maybeUnix = false
		}
		if maybeUnix && lc.Network == constants.NetEmpty {
			lc.Network = constants.NetUnix
		}
	}

	if lc.Network == constants.NetEmpty {
		lc.Network = constants.NetTCP
	}

	if constants.IsNetTCP(lc.Network) {
		if _, _, err := net.SplitHostPort(lc.Address); err != nil {
			return zero, ticksutil.HostPortError{HostPort: lc.Address, Err: err}
		}
	}

	return lc, nil
}

func escapeListenAddress(addr string) string {
	if addr != "" && addr[0] == '\x00' {
		return "@" + addr[1:]
	}
	return addr
}

func unescapeListenAddress(addr string) string {
	if addr != "" && addr[0] == '@' {
		return "\x00" + addr[1:]
	}
	return addr
}

// type dummyListener {{{

type dummyListener struct {
	ch   chan struct{}
	once *sync.Once
}

func newDummyListener() net.Listener {
	return dummyListener{ch: make(chan struct{}), once: new(sync.Once)}
}

func (l dummyListener) Addr() net.Addr {
	return &net.TCPAddr{
		IP:   net.IPv4(127, 0, 0, 1),
		Port: 0,
	}
}

func (l dummyListener) Accept() (net.Conn, error) {
	<-l.ch
	return nil, net.ErrClosed
}

func (l dummyListener) Close() error {
	l.once.Do(func() { close(l.ch) })
	return nil
}

var _ net.Listener = dummyListener{}

// }}}

var _ json.Marshaler = ListenConfig{}
var _ json.Unmarshaler = (*ListenConfig)(nil)
