package mainutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// DefaultZKSessionTimeout is the session timeout used when none is
// configured.
const DefaultZKSessionTimeout = 30 * time.Second

// ZKConfig describes a ZooKeeper ensemble and how to authenticate to it.
//
// The string form is "host[:port],...[;option=value...]", with options
// sessionTimeout, authtype, authdata (base64), username, and password.
type ZKConfig struct {
	Enabled        bool
	Servers        []string
	SessionTimeout time.Duration
	Auth           ZKAuthConfig
}

// ZKAuthConfig holds the credentials for (*zk.Conn).AddAuth.  Either Raw or
// Username/Password is set, never both.
type ZKAuthConfig struct {
	Enabled  bool
	Scheme   string
	Raw      []byte
	Username string
	Password string
}

type zcJSON struct {
	Servers        []string `json:"servers"`
	SessionTimeout string   `json:"sessionTimeout,omitempty"`
	Auth           *zcaJSON `json:"auth,omitempty"`
}

type zcaJSON struct {
	Scheme   string `json:"scheme"`
	Raw      string `json:"raw,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// AppendTo appends the string form of zc to out.
func (zc ZKConfig) AppendTo(out *strings.Builder) {
	if !zc.Enabled {
		return
	}
	out.WriteString(strings.Join(zc.Servers, ","))
	if zc.SessionTimeout != 0 {
		writeOption(out, optionSessionTimeout, zc.SessionTimeout.String())
	}
	if !zc.Auth.Enabled {
		return
	}
	writeOption(out, optionAuthType, zc.Auth.Scheme)
	if zc.Auth.Raw != nil {
		writeOption(out, optionAuthData, base64.StdEncoding.EncodeToString(zc.Auth.Raw))
	}
	if zc.Auth.Username != "" {
		writeOption(out, optionUsername, zc.Auth.Username)
	}
	if zc.Auth.Password != "" {
		writeOption(out, optionPassword, zc.Auth.Password)
	}
}

// String returns the string form of zc.
func (zc ZKConfig) String() string {
	if !zc.Enabled {
		return ""
	}

	var buf strings.Builder
	buf.Grow(64)
	zc.AppendTo(&buf)
	return buf.String()
}

// MarshalJSON fulfills json.Marshaler.
func (zc ZKConfig) MarshalJSON() ([]byte, error) {
	if !zc.Enabled {
		return constants.NullBytes, nil
	}
	return json.Marshal(zc.toAlt())
}

// Parse parses either the string form or the JSON form.  An empty server
// list leaves zc disabled.
func (zc *ZKConfig) Parse(str string) error {
	wantZero := true
	defer func() {
		if wantZero {
			*zc = ZKConfig{}
		}
	}()

	if str == "" || str == constants.NullString {
		return nil
	}

	err := misc.StrictUnmarshalJSON([]byte(str), zc)
	if err == nil {
		wantZero = false
		return nil
	}

	pieces := strings.Split(str, ";")

	serverListString, err := ticksutil.ExpandString(pieces[0])
	if err != nil {
		return err
	}

	var tmp ZKConfig
	for _, server := range strings.Split(serverListString, ",") {
		if server == "" {
			continue
		}
		host, port, err := misc.SplitHostPort(server, constants.PortZK)
		if err != nil {
			return err
		}
		tmp.Servers = append(tmp.Servers, net.JoinHostPort(host, port))
	}
	if len(tmp.Servers) == 0 {
		return nil
	}

	for _, item := range pieces[1:] {
		if err := tmp.parseOption(item); err != nil {
			return err
		}
	}

	tmp.Enabled = true
	tmp, err = tmp.postprocess()
	if err != nil {
		return err
	}

	*zc = tmp
	wantZero = false
	return nil
}

func (zc *ZKConfig) parseOption(item string) error {
	name, value, complete, err := splitOption(item)
	if err != nil {
		return err
	}

	wrap := func(err error) error {
		return OptionError{Name: name, Value: value, Complete: complete, Err: err}
	}

	switch name {
	case optionSessionTimeout:
		zc.SessionTimeout, err = time.ParseDuration(value)
		if err != nil {
			return wrap(err)
		}

	case optionAuthType:
		zc.Auth.Enabled = true
		zc.Auth.Scheme = value

	case optionAuthData:
		zc.Auth.Enabled = true
		zc.Auth.Raw, err = misc.TryBase64DecodeString(value)
		if err != nil {
			return wrap(err)
		}

	case optionUsername:
		expanded, err := ticksutil.ExpandString(value)
		if err != nil {
			return wrap(err)
		}
		zc.Auth.Enabled = true
		zc.Auth.Username = expanded

	case optionPassword:
		expanded, err := ticksutil.ExpandPassword(value)
		if err != nil {
			return wrap(err)
		}
		zc.Auth.Enabled = true
		zc.Auth.Password = expanded

	default:
		return wrap(UnknownOptionError{})
	}
	return nil
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (zc *ZKConfig) UnmarshalJSON(raw []byte) error {
	wantZero := true
	defer func() {
		if wantZero {
			*zc = ZKConfig{}
		}
	}()

	if bytes.Equal(raw, constants.NullBytes) {
		return nil
	}

	var alt zcJSON
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

	*zc = tmp2
	wantZero = false
	return nil
}

// Connect dials the ensemble and authenticates.  It returns nil, nil if zc
// is disabled.
func (zc ZKConfig) Connect(ctx context.Context) (*zk.Conn, error) {
	if !zc.Enabled {
		return nil, nil
	}

	sessTimeout := zc.SessionTimeout
	if sessTimeout == 0 {
		sessTimeout = DefaultZKSessionTimeout
	}

	zkconn, _, err := zk.Connect(
		zc.Servers,
		sessTimeout,
		zk.WithLogger(ZKLoggerBridge{}))
	if err != nil {
		return nil, err
	}

	if zc.Auth.Enabled {
		authRaw := zc.Auth.Raw
		if authRaw == nil {
			authRaw = []byte(zc.Auth.Username + ":" + zc.Auth.Password)
		}

		err = zkconn.AddAuth(zc.Auth.Scheme, authRaw)
		if err != nil {
			zkconn.Close()
			return nil, ZKAddAuthError{AuthScheme: zc.Auth.Scheme, Err: err}
		}
	}

	return zkconn, nil
}

func (zc ZKConfig) toAlt() *zcJSON {
	if !zc.Enabled {
		return nil
	}

	var altAuth *zcaJSON
	if zc.Auth.Enabled {
		altAuth = &zcaJSON{
			Scheme:   zc.Auth.Scheme,
			Username: zc.Auth.Username,
			Password: zc.Auth.Password,
		}
		if zc.Auth.Raw != nil {
			altAuth.Raw = base64.StdEncoding.EncodeToString(zc.Auth.Raw)
		}
	}

	var timeout string
	if zc.SessionTimeout != 0 {
		timeout = zc.SessionTimeout.String()
	}

	return &zcJSON{
		Servers:        zc.Servers,
		SessionTimeout: timeout,
		Auth:           altAuth,
	}
}

func (alt *zcJSON) toStd() (ZKConfig, error) {
	if alt == nil {
		return ZKConfig{}, nil
	}

	var stdAuth ZKAuthConfig
	if alt.Auth != nil {
		var raw []byte
		if alt.Auth.Raw != "" {
			var err error
			raw, err = misc.TryBase64DecodeString(alt.Auth.Raw)
			if err != nil {
				return ZKConfig{}, err
			}
		}

		stdAuth = ZKAuthConfig{
			Enabled:  true,
			Scheme:   alt.Auth.Scheme,
			Raw:      raw,
			Username: alt.Auth.Username,
			Password: alt.Auth.Password,
		}
	}

	var timeout time.Duration
	if alt.SessionTimeout != "" {
		var err error
		timeout, err = time.ParseDuration(alt.SessionTimeout)
		if err != nil {
			return ZKConfig{}, err
		}
	}

	return ZKConfig{
		Enabled:        true,
		Servers:        alt.Servers,
		SessionTimeout: timeout,
		Auth:           stdAuth,
	}, nil
}

func (zc ZKConfig) postprocess() (out ZKConfig, err error) {
	var zero ZKConfig

	if !zc.Enabled || len(zc.Servers) == 0 {
		return zero, nil
	}

	for _, server := range zc.Servers {
		if server == "" {
			return zero, nil
		}
	}

	if !zc.Auth.Enabled {
		zc.Auth = ZKAuthConfig{}
		return zc, nil
	}

	switch {
	case zc.Auth.Raw == nil && zc.Auth.Username == "":
		return zero, errors.New("must specify either \"authdata\" or \"username\"")
	case zc.Auth.Raw != nil && zc.Auth.Username != "":
		return zero, errors.New("cannot specify both \"authdata\" and \"username\"")
	case zc.Auth.Scheme == "" && zc.Auth.Raw != nil:
		return zero, errors.New("must specify \"authtype\" with \"authdata\"")
	case zc.Auth.Scheme == "":
		zc.Auth.Scheme = "digest"
	}

	return zc, nil
}

func writeOption(out *strings.Builder, name, value string) {
	out.WriteString(";")
	out.WriteString(name)
	out.WriteString("=")
	out.WriteString(value)
}

var _ json.Marshaler = ZKConfig{}
var _ json.Unmarshaler = (*ZKConfig)(nil)
