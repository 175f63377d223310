package misc

import (
	"net"
	"strconv"
	"strings"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// SplitHostPort splits a string in "<host>:<port>" format, except that if a
// port is not present in the string and defaultPort is non-empty, then
// defaultPort is used instead.
func SplitHostPort(str, defaultPort string) (host string, port string, err error) {
	if str == "" {
		return "", "", ticksutil.HostPortError{HostPort: str, Err: ticksutil.ErrExpectNonEmpty}
	}

	host, port, err = net.SplitHostPort(str)
	if err != nil && defaultPort != "" {
		if h, p, err2 := net.SplitHostPort(net.JoinHostPort(strings.Trim(str, "[]"), defaultPort)); err2 == nil {
			host, port, err = h, p, nil
		}
	}
	if err != nil {
		return "", "", ticksutil.HostPortError{HostPort: str, Err: err}
	}
	if host == "" {
		return "", "", ticksutil.HostError{Host: host, Err: ticksutil.ErrExpectNonEmpty}
	}
	return host, port, nil
}

// ParsePort parses a port number or an /etc/services name.
func ParsePort(port string) (uint16, error) {
	u64, err := strconv.ParseUint(port, 10, 16)
	if err == nil {
		return uint16(u64), nil
	}

	if p, err2 := net.LookupPort(constants.NetTCP, port); err2 == nil {
		return uint16(p), nil
	}

	return 0, ticksutil.PortError{Type: ticksutil.NumericPortOrServiceName, Port: port, Err: err}
}
