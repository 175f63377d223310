package mainutil

import (
	"bytes"
	"encoding/json"
	"strings"

	v3 "go.etcd.io/etcd/client/v3"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/announcer"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// EtcdAnnounceConfig is an EtcdConfig plus the key prefix under which the
// daemon announces itself.
//
// The string form is an EtcdConfig string with the extra options path,
// uniqueID, namedPort, and format.
type EtcdAnnounceConfig struct {
	EtcdConfig
	Path      string
	Unique    string
	NamedPort string
	Format    announcer.Format
}

type eacJSON struct {
	EtcdConfigJSON
	Path      string           `json:"path"`
	Unique    string           `json:"uniqueID,omitempty"`
	NamedPort string           `json:"namedPort,omitempty"`
	Format    announcer.Format `json:"format"`
}

// AppendTo appends the string form of eac to out.
func (eac EtcdAnnounceConfig) AppendTo(out *strings.Builder) {
	eac.EtcdConfig.AppendTo(out)
	writeOption(out, optionPath, eac.Path)
	if eac.Unique != "" {
		writeOption(out, optionUniqueID, eac.Unique)
	}
	if eac.NamedPort != "" {
		writeOption(out, optionNamedPort, eac.NamedPort)
	}
	writeOption(out, optionFormat, eac.Format.String())
}

// String returns the string form of eac.
func (eac EtcdAnnounceConfig) String() string {
	if !eac.Enabled {
		return ""
	}

	var buf strings.Builder
	buf.Grow(64)
	eac.AppendTo(&buf)
	return buf.String()
}

// MarshalJSON fulfills json.Marshaler.
func (eac EtcdAnnounceConfig) MarshalJSON() ([]byte, error) {
	if !eac.Enabled {
		return constants.NullBytes, nil
	}
	return json.Marshal(eac.toAlt())
}

// Parse parses either the string form or the JSON form.
func (eac *EtcdAnnounceConfig) Parse(str string) error {
	wantZero := true
	defer func() {
		if wantZero {
			*eac = EtcdAnnounceConfig{}
		}
	}()

	if str == "" || str == constants.NullString {
		return nil
	}

	err := misc.StrictUnmarshalJSON([]byte(str), eac)
	if err == nil {
		wantZero = false
		return nil
	}

	var tmp EtcdAnnounceConfig
	rest, err := parseAnnounceOptions(str, &tmp.Path, &tmp.Unique, &tmp.NamedPort, &tmp.Format)
	if err != nil {
		return err
	}

	err = tmp.EtcdConfig.Parse(rest)
	if err != nil {
		return err
	}

	err = tmp.postprocess()
	if err != nil {
		return err
	}

	*eac = tmp
	wantZero = false
	return nil
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (eac *EtcdAnnounceConfig) UnmarshalJSON(raw []byte) error {
	wantZero := true
	defer func() {
		if wantZero {
			*eac = EtcdAnnounceConfig{}
		}
	}()

	if bytes.Equal(raw, constants.NullBytes) {
		return nil
	}

	var alt eacJSON
	err := misc.StrictUnmarshalJSON(raw, &alt)
	if err != nil {
		return err
	}

	var tmp EtcdAnnounceConfig
	err = tmp.EtcdConfig.FromJSON(&alt.EtcdConfigJSON)
	if err != nil {
		return err
	}
	err = tmp.EtcdConfig.PostProcess()
	if err != nil {
		return err
	}
	tmp.Path = alt.Path
	tmp.Unique = alt.Unique
	tmp.NamedPort = alt.NamedPort
	tmp.Format = alt.Format

	err = tmp.postprocess()
	if err != nil {
		return err
	}

	*eac = tmp
	wantZero = false
	return nil
}

// AddTo adds an etcd Impl to a.  The configured unique ID, if any, overrides
// unique.
func (eac EtcdAnnounceConfig) AddTo(etcd *v3.Client, a *announcer.Announcer, unique string) error {
	if eac.Unique != "" {
		unique = eac.Unique
	}
	return a.AddEtcd(etcd, eac.Path, unique, eac.Format, eac.NamedPort)
}

func (eac EtcdAnnounceConfig) toAlt() *eacJSON {
	if !eac.Enabled {
		return nil
	}
	return &eacJSON{
		EtcdConfigJSON: *eac.EtcdConfig.ToJSON(),
		Path:           eac.Path,
		Unique:         eac.Unique,
		NamedPort:      eac.NamedPort,
		Format:         eac.Format,
	}
}

func (eac *EtcdAnnounceConfig) postprocess() error {
	if !eac.Enabled {
		*eac = EtcdAnnounceConfig{}
		return nil
	}

	if eac.Path == "" {
		eac.Path = constants.DefaultEtcdPrefix
	}
	if !strings.HasSuffix(eac.Path, "/") {
		eac.Path += "/"
	}
	if err := ticksutil.ValidateEtcdPath(eac.Path); err != nil {
		return err
	}

	return postprocessNamedPort(&eac.NamedPort, eac.Format)
}
