// Package membership defines the record that a running ticks daemon
// advertises about itself in ZooKeeper or etcd.
package membership

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"sort"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
)

// Named ports advertised by the daemon.
const (
	PortHTTP = "http"
	PortGRPC = "grpc"
	PortProm = "prom"
)

// Ticks describes one running daemon.
type Ticks struct {
	Ready    bool
	Unique   string
	Hostname string
	IP       net.IP
	Zone     string
	Version  string
	Ports    map[string]uint16
	Trackers []string
}

// TicksJSON is the JSON doppelgänger of Ticks.
type TicksJSON struct {
	Ready    bool              `json:"ready"`
	Unique   string            `json:"unique"`
	Hostname string            `json:"hostname,omitempty"`
	IP       string            `json:"ip,omitempty"`
	Zone     string            `json:"zone,omitempty"`
	Version  string            `json:"version,omitempty"`
	Ports    map[string]uint16 `json:"ports,omitempty"`
	Trackers []string          `json:"trackers,omitempty"`
}

// IsAlive returns true if this represents the advertisement of a live daemon.
func (t *Ticks) IsAlive() bool {
	return t != nil && t.Ready
}

// NamedPorts returns the sorted list of advertised port names.
func (t *Ticks) NamedPorts() []string {
	if t == nil {
		return nil
	}
	list := make([]string, 0, len(t.Ports))
	for name := range t.Ports {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// NamedAddr returns the endpoint for the given named port.
func (t *Ticks) NamedAddr(name string) (*net.TCPAddr, error) {
	port, found := t.Ports[name]
	if !found {
		return nil, UnknownNamedPortError{Name: name}
	}
	return &net.TCPAddr{IP: t.IP, Port: int(port), Zone: t.Zone}, nil
}

// AsJSON returns the JSON doppelgänger.
func (t *Ticks) AsJSON() *TicksJSON {
	if t == nil {
		return nil
	}
	var ip string
	if t.IP != nil {
		ip = t.IP.String()
	}
	return &TicksJSON{
		Ready:    t.Ready,
		Unique:   t.Unique,
		Hostname: t.Hostname,
		IP:       ip,
		Zone:     t.Zone,
		Version:  t.Version,
		Ports:    t.Ports,
		Trackers: t.Trackers,
	}
}

// FromJSON replaces t with the contents of x.
func (t *Ticks) FromJSON(x *TicksJSON) error {
	if t == nil {
		panic(errors.New("*membership.Ticks is nil"))
	}
	if x == nil {
		panic(errors.New("*membership.TicksJSON is nil"))
	}

	var ip net.IP
	if x.IP != "" {
		ip = net.ParseIP(x.IP)
		if ip == nil {
			return &net.ParseError{Type: "IP address", Text: x.IP}
		}
		if ipv4 := ip.To4(); ipv4 != nil {
			ip = ipv4
		}
	}

	*t = Ticks{
		Ready:    x.Ready,
		Unique:   x.Unique,
		Hostname: x.Hostname,
		IP:       ip,
		Zone:     x.Zone,
		Version:  x.Version,
		Ports:    x.Ports,
		Trackers: x.Trackers,
	}
	return nil
}

// MarshalJSON fulfills json.Marshaler.
func (t *Ticks) MarshalJSON() ([]byte, error) {
	if t == nil {
		return constants.NullBytes, nil
	}
	return json.Marshal(t.AsJSON())
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (t *Ticks) UnmarshalJSON(raw []byte) error {
	if bytes.Equal(raw, constants.NullBytes) {
		return nil
	}

	var x TicksJSON
	if err := misc.StrictUnmarshalJSON(raw, &x); err != nil {
		*t = Ticks{}
		return err
	}
	return t.FromJSON(&x)
}

// AsServerSet renders t in Finagle ServerSet format, with primary as the
// service endpoint and every other named port as an additional endpoint.
func (t *Ticks) AsServerSet(primary string) (*ServerSet, error) {
	if t == nil {
		return nil, nil
	}

	primaryAddr, err := t.NamedAddr(primary)
	if err != nil {
		return nil, MissingPrimaryPortError{Name: primary}
	}

	status := StatusDead
	if t.IsAlive() {
		status = StatusAlive
	}

	additional := make(map[string]*ServerSetEndpoint, len(t.Ports))
	for _, name := range t.NamedPorts() {
		addr, _ := t.NamedAddr(name)
		additional[name] = ServerSetEndpointFromTCPAddr(addr)
	}

	metadata := map[string]string{
		"unique": t.Unique,
	}
	if t.Hostname != "" {
		metadata["hostname"] = t.Hostname
	}

	return &ServerSet{
		ServiceEndpoint:     ServerSetEndpointFromTCPAddr(primaryAddr),
		AdditionalEndpoints: additional,
		Status:              status,
		Metadata:            metadata,
	}, nil
}

var _ json.Marshaler = (*Ticks)(nil)
var _ json.Unmarshaler = (*Ticks)(nil)
