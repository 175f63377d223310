package enums

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EdgeType selects which signal transitions of a GPIO line count as pulses.
// The names match the values accepted by the sysfs "edge" attribute.
type EdgeType uint8

const (
	UndefinedEdgeType EdgeType = iota
	RisingEdgeType
	FallingEdgeType
	BothEdgeType
)

var edgeTypeData = []enumData{
	{"UndefinedEdgeType", ""},
	{"RisingEdgeType", "rising"},
	{"FallingEdgeType", "falling"},
	{"BothEdgeType", "both"},
}

var edgeTypeMap = map[string]EdgeType{
	"":        UndefinedEdgeType,
	"rising":  RisingEdgeType,
	"rise":    RisingEdgeType,
	"falling": FallingEdgeType,
	"fall":    FallingEdgeType,
	"both":    BothEdgeType,
	"change":  BothEdgeType,
}

func (t EdgeType) String() string {
	if uint(t) >= uint(len(edgeTypeData)) {
		return fmt.Sprintf("#%d", uint(t))
	}
	return edgeTypeData[t].Name
}

func (t EdgeType) GoString() string {
	if uint(t) >= uint(len(edgeTypeData)) {
		return fmt.Sprintf("EdgeType(%d)", uint(t))
	}
	return edgeTypeData[t].GoName
}

func (t EdgeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (ptr *EdgeType) UnmarshalJSON(raw []byte) error {
	*ptr = 0

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return err
	}

	if num, ok := edgeTypeMap[strings.ToLower(str)]; ok {
		*ptr = num
		return nil
	}

	return fmt.Errorf("illegal edge type %q; expected one of %q", str, makeAllowedNames(edgeTypeData))
}

var _ fmt.Stringer = EdgeType(0)
var _ fmt.GoStringer = EdgeType(0)
var _ json.Marshaler = EdgeType(0)
var _ json.Unmarshaler = (*EdgeType)(nil)
