package enums

import (
	"encoding/json"
	"fmt"
	"strings"
)

type SourceType uint8

const (
	UndefinedSourceType SourceType = iota
	GPIOSourceType
	PacketSourceType
	SyntheticSourceType
)

var sourceTypeData = []enumData{
	{"UndefinedSourceType", ""},
	{"GPIOSourceType", "gpio"},
	{"PacketSourceType", "udp"},
	{"SyntheticSourceType", "synthetic"},
}

var sourceTypeMap = map[string]SourceType{
	"":          UndefinedSourceType,
	"gpio":      GPIOSourceType,
	"sysfs":     GPIOSourceType,
	"udp":       PacketSourceType,
	"packet":    PacketSourceType,
	"unixgram":  PacketSourceType,
	"synthetic": SyntheticSourceType,
	"fake":      SyntheticSourceType,
}

func (t SourceType) String() string {
	if uint(t) >= uint(len(sourceTypeData)) {
		return fmt.Sprintf("#%d", uint(t))
	}
	return sourceTypeData[t].Name
}

func (t SourceType) GoString() string {
	if uint(t) >= uint(len(sourceTypeData)) {
		return fmt.Sprintf("SourceType(%d)", uint(t))
	}
	return sourceTypeData[t].GoName
}

func (t SourceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (ptr *SourceType) UnmarshalJSON(raw []byte) error {
	*ptr = 0

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return err
	}

	if num, ok := sourceTypeMap[strings.ToLower(str)]; ok {
		*ptr = num
		return nil
	}

	return fmt.Errorf("illegal source type %q; expected one of %q", str, makeAllowedNames(sourceTypeData))
}

var _ fmt.Stringer = SourceType(0)
var _ fmt.GoStringer = SourceType(0)
var _ json.Marshaler = SourceType(0)
var _ json.Unmarshaler = (*SourceType)(nil)
