package constants

import (
	"time"
)

// Various constants.
const (
	// NullString is the string representation of the JSON null value.
	NullString = "null"

	// NetEmpty et al are networks for net.Dial() and friends.
	NetEmpty      = ""
	NetUDP        = "udp"
	NetUDP4       = "udp4"
	NetUDP6       = "udp6"
	NetTCP        = "tcp"
	NetTCP4       = "tcp4"
	NetTCP6       = "tcp6"
	NetUnix       = "unix"
	NetUnixgram   = "unixgram"
	NetUnixPacket = "unixpacket"

	// SchemeHTTP et al are URL schemes.
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeWS    = "ws"

	// PortZK et al are TCP port numbers, in decimal string form.
	PortHTTP = "80"
	PortZK   = "2181"
	PortEtcd = "2379"

	// SubsystemDaemon et al are server subsystem names, as used in logs and
	// in gRPC health checks.
	SubsystemDaemon = ""
	SubsystemProm   = "prom"
	SubsystemHTTP   = "http"
	SubsystemGRPC   = "grpc"

	// MetricNamespace is the Prometheus namespace for all exported metrics.
	MetricNamespace = "ticks"

	// DefaultConfigFile et al are the defaults for command-line flags.
	DefaultConfigFile     = "/etc/opt/ticks/config.json"
	DefaultUniqueFile     = "/var/opt/ticks/lib/state/unique.id"
	DefaultPromAddress    = "localhost:6800"
	DefaultHTTPAddress    = "localhost:6801"
	DefaultGRPCAddress    = "localhost:6802"
	DefaultZKAnnouncePath = "/ticks"
	DefaultEtcdPrefix     = "ticks/"

	// DefaultPollInterval is the default scheduler interval.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultStreamInterval is the default interval between WebSocket frames.
	DefaultStreamInterval = 1 * time.Second

	// ShutdownGracePeriod is how long a graceful shutdown may take before it
	// is forced.
	ShutdownGracePeriod = 5 * time.Second
)

var (
	// NullBytes is the []byte representation of the JSON null value.
	NullBytes = []byte("null")
)

// IsNetUnix returns true iff its argument is an AF_UNIX network.
func IsNetUnix(str string) bool {
	switch str {
	case NetUnix, NetUnixgram, NetUnixPacket:
		return true
	default:
		return false
	}
}

// IsNetUDP returns true iff its argument is an AF_INET/AF_INET6 network with
// IPPROTO_UDP.
func IsNetUDP(str string) bool {
	switch str {
	case NetUDP, NetUDP4, NetUDP6:
		return true
	default:
		return false
	}
}

// IsNetTCP returns true iff its argument is an AF_INET/AF_INET6 network with
// IPPROTO_TCP.
func IsNetTCP(str string) bool {
	switch str {
	case NetTCP, NetTCP4, NetTCP6:
		return true
	default:
		return false
	}
}
