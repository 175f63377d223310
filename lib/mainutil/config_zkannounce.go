package mainutil

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/go-zookeeper/zk"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/announcer"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// ZKAnnounceConfig is a ZKConfig plus the ZooKeeper directory in which the
// daemon announces itself.
//
// The string form is a ZKConfig string with the extra options path,
// uniqueID, namedPort, and format.
type ZKAnnounceConfig struct {
	ZKConfig
	Path      string
	Unique    string
	NamedPort string
	Format    announcer.Format
}

type zacJSON struct {
	zcJSON
	Path      string           `json:"path"`
	Unique    string           `json:"uniqueID,omitempty"`
	NamedPort string           `json:"namedPort,omitempty"`
	Format    announcer.Format `json:"format"`
}

// AppendTo appends the string form of zac to out.
func (zac ZKAnnounceConfig) AppendTo(out *strings.Builder) {
	zac.ZKConfig.AppendTo(out)
	writeOption(out, optionPath, zac.Path)
	if zac.Unique != "" {
		writeOption(out, optionUniqueID, zac.Unique)
	}
	if zac.NamedPort != "" {
		writeOption(out, optionNamedPort, zac.NamedPort)
	}
	writeOption(out, optionFormat, zac.Format.String())
}

// String returns the string form of zac.
func (zac ZKAnnounceConfig) String() string {
	if !zac.Enabled {
		return ""
	}

	var buf strings.Builder
	buf.Grow(64)
	zac.AppendTo(&buf)
	return buf.String()
}

// MarshalJSON fulfills json.Marshaler.
func (zac ZKAnnounceConfig) MarshalJSON() ([]byte, error) {
	if !zac.Enabled {
		return constants.NullBytes, nil
	}
	return json.Marshal(zac.toAlt())
}

// Parse parses either the string form or the JSON form.
func (zac *ZKAnnounceConfig) Parse(str string) error {
	wantZero := true
	defer func() {
		if wantZero {
			*zac = ZKAnnounceConfig{}
		}
	}()

	if str == "" || str == constants.NullString {
		return nil
	}

	err := misc.StrictUnmarshalJSON([]byte(str), zac)
	if err == nil {
		wantZero = false
		return nil
	}

	var tmp ZKAnnounceConfig
	rest, err := parseAnnounceOptions(str, &tmp.Path, &tmp.Unique, &tmp.NamedPort, &tmp.Format)
	if err != nil {
		return err
	}

	err = tmp.ZKConfig.Parse(rest)
	if err != nil {
		return err
	}

	tmp, err = tmp.postprocess()
	if err != nil {
		return err
	}

	*zac = tmp
	wantZero = false
	return nil
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (zac *ZKAnnounceConfig) UnmarshalJSON(raw []byte) error {
	wantZero := true
	defer func() {
		if wantZero {
			*zac = ZKAnnounceConfig{}
		}
	}()

	if bytes.Equal(raw, constants.NullBytes) {
		return nil
	}

	var alt zacJSON
	err := misc.StrictUnmarshalJSON(raw, &alt)
	if err != nil {
		return err
	}

	tmp1, err := alt.toStd()
	if err != nil {
		return err
	}

	tmp2, err := tmp1.postprocess()
	if err != nil {
		return err
	}

	*zac = tmp2
	wantZero = false
	return nil
}

// AddTo adds a ZooKeeper Impl to a.  The configured unique ID, if any,
// overrides unique.
func (zac ZKAnnounceConfig) AddTo(zkconn *zk.Conn, a *announcer.Announcer, unique string) error {
	if zac.Unique != "" {
		unique = zac.Unique
	}
	return a.AddZK(zkconn, zac.Path, unique, zac.Format, zac.NamedPort)
}

func (zac ZKAnnounceConfig) toAlt() *zacJSON {
	if !zac.Enabled {
		return nil
	}
	return &zacJSON{
		zcJSON:    *zac.ZKConfig.toAlt(),
		Path:      zac.Path,
		Unique:    zac.Unique,
		NamedPort: zac.NamedPort,
		Format:    zac.Format,
	}
}

func (alt *zacJSON) toStd() (ZKAnnounceConfig, error) {
	if alt == nil {
		return ZKAnnounceConfig{}, nil
	}
	tmp, err := alt.zcJSON.toStd()
	if err != nil {
		return ZKAnnounceConfig{}, err
	}
	return ZKAnnounceConfig{
		ZKConfig:  tmp,
		Path:      alt.Path,
		Unique:    alt.Unique,
		NamedPort: alt.NamedPort,
		Format:    alt.Format,
	}, nil
}

func (zac ZKAnnounceConfig) postprocess() (out ZKAnnounceConfig, err error) {
	var zero ZKAnnounceConfig

	tmp, err := zac.ZKConfig.postprocess()
	if err != nil {
		return zero, err
	}
	if !tmp.Enabled {
		return zero, nil
	}
	zac.ZKConfig = tmp

	if zac.Path == "" {
		zac.Path = constants.DefaultZKAnnouncePath
	}
	if !strings.HasPrefix(zac.Path, "/") {
		zac.Path = "/" + zac.Path
	}
	if err := ticksutil.ValidateZKPath(zac.Path); err != nil {
		return zero, err
	}

	if err := postprocessNamedPort(&zac.NamedPort, zac.Format); err != nil {
		return zero, err
	}

	return zac, nil
}

// parseAnnounceOptions extracts the announce-specific options from str, and
// returns the remainder for the connection config's own parser.
func parseAnnounceOptions(str string, path, unique, namedPort *string, format *announcer.Format) (string, error) {
	pieces := strings.Split(str, ";")

	var rest strings.Builder
	rest.Grow(len(str))
	rest.WriteString(pieces[0])

	for _, item := range pieces[1:] {
		name, value, complete, err := splitOption(item)
		if err != nil {
			return "", err
		}

		switch name {
		case optionPath:
			*path, err = ticksutil.ExpandString(value)
		case optionUniqueID:
			*unique, err = ticksutil.ExpandString(value)
		case optionNamedPort, optionPort:
			*namedPort = value
		case optionFormat:
			err = format.Parse(value)
		default:
			rest.WriteString(";")
			rest.WriteString(item)
			continue
		}
		if err != nil {
			return "", OptionError{Name: name, Value: value, Complete: complete, Err: err}
		}
	}

	return rest.String(), nil
}

func postprocessNamedPort(namedPort *string, format announcer.Format) error {
	if format == announcer.FinagleFormat && *namedPort == "" {
		*namedPort = "http"
	}
	if *namedPort != "" {
		return ticksutil.ValidateNamedPort(*namedPort)
	}
	return nil
}
