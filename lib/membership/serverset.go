package membership

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
)

// ServerSet is the Finagle serverset membership format, as read by Finagle
// and Aurora clients watching a ZooKeeper path.
type ServerSet struct {
	ServiceEndpoint     *ServerSetEndpoint            `json:"serviceEndpoint"`
	AdditionalEndpoints map[string]*ServerSetEndpoint `json:"additionalEndpoints"`
	Status              ServerSetStatus               `json:"status"`
	ShardID             *int32                        `json:"shardId,omitempty"`
	Metadata            map[string]string             `json:"metadata,omitempty"`
}

// IsAlive returns true if the advertised server is alive.
func (ss *ServerSet) IsAlive() bool {
	return ss != nil && ss.Status == StatusAlive
}

// ServerSetEndpoint is one host:port pair in a ServerSet.
type ServerSetEndpoint struct {
	Host string `json:"host"`
	Port uint16 `json:"port"`
}

// ServerSetEndpointFromTCPAddr converts addr into a ServerSetEndpoint.
func ServerSetEndpointFromTCPAddr(addr *net.TCPAddr) *ServerSetEndpoint {
	if addr == nil {
		return nil
	}
	host := addr.IP.String()
	if addr.Zone != "" {
		host += "%" + addr.Zone
	}
	return &ServerSetEndpoint{Host: host, Port: uint16(addr.Port)}
}

// ServerSetStatus is the liveness of a ServerSet member.
type ServerSetStatus uint8

const (
	StatusDead ServerSetStatus = iota
	StatusStarting
	StatusAlive
	StatusStopping
	StatusStopped
	StatusWarning
)

var serversetStatusData = []enumData{
	{"StatusDead", "DEAD"},
	{"StatusStarting", "STARTING"},
	{"StatusAlive", "ALIVE"},
	{"StatusStopping", "STOPPING"},
	{"StatusStopped", "STOPPED"},
	{"StatusWarning", "WARNING"},
}

var serversetStatusMap = map[string]ServerSetStatus{
	"0":        StatusDead,
	"1":        StatusStarting,
	"2":        StatusAlive,
	"3":        StatusStopping,
	"4":        StatusStopped,
	"5":        StatusWarning,
	"DEAD":     StatusDead,
	"STARTING": StatusStarting,
	"ALIVE":    StatusAlive,
	"STOPPING": StatusStopping,
	"STOPPED":  StatusStopped,
	"WARNING":  StatusWarning,
}

func (st ServerSetStatus) String() string {
	if uint(st) >= uint(len(serversetStatusData)) {
		return fmt.Sprintf("#%d", uint(st))
	}
	return serversetStatusData[st].Name
}

func (st ServerSetStatus) GoString() string {
	if uint(st) >= uint(len(serversetStatusData)) {
		return fmt.Sprintf("ServerSetStatus(%d)", uint(st))
	}
	return serversetStatusData[st].GoName
}

func (st ServerSetStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(st.String())
}

func (st *ServerSetStatus) UnmarshalJSON(raw []byte) error {
	if string(raw) == "null" {
		return nil
	}

	if num, found := serversetStatusMap[string(raw)]; found {
		*st = num
		return nil
	}

	var str string
	err0 := json.Unmarshal(raw, &str)
	if err0 == nil {
		if num, found := serversetStatusMap[str]; found {
			*st = num
			return nil
		}
		for index, data := range serversetStatusData {
			if strings.EqualFold(str, data.Name) {
				*st = ServerSetStatus(index)
				return nil
			}
		}
		*st = 0
		return fmt.Errorf("unknown ServerSetStatus %q", str)
	}

	var num uint8
	err1 := json.Unmarshal(raw, &num)
	if err1 == nil {
		*st = ServerSetStatus(num)
		return nil
	}

	*st = 0
	return err0

}

var _ fmt.Stringer = ServerSetStatus(0)
var _ fmt.GoStringer = ServerSetStatus(0)
var _ json.Marshaler = ServerSetStatus(0)
var _ json.Unmarshaler = (*ServerSetStatus)(nil)

type enumData struct {
	GoName string
	Name   string
}
