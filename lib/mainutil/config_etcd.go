package mainutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	v3 "go.etcd.io/etcd/client/v3"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// DefaultEtcdDialTimeout is the dial timeout used when none is configured.
const DefaultEtcdDialTimeout = 5 * time.Second

// EtcdConfig represents the configuration for an etcd.io *v3.Client.
//
// The string form is "endpoint,...[;option=value...]", with options
// username, password, dialTimeout, keepAlive, and keepAliveTimeout.
// Endpoints without a scheme are http://, and endpoints without a port use
// the etcd client port.
type EtcdConfig struct {
	Enabled          bool
	Endpoints        []string
	Username         string
	Password         string
	DialTimeout      time.Duration
	KeepAlive        time.Duration
	KeepAliveTimeout time.Duration
}

// EtcdConfigJSON represents the JSON doppelgänger of an EtcdConfig.
type EtcdConfigJSON struct {
	Endpoints        []string `json:"endpoints"`
	Username         string   `json:"username,omitempty"`
	Password         string   `json:"password,omitempty"`
	DialTimeout      string   `json:"dialTimeout,omitempty"`
	KeepAlive        string   `json:"keepAlive,omitempty"`
	KeepAliveTimeout string   `json:"keepAliveTimeout,omitempty"`
}

// AppendTo appends the string representation to the given Builder.
func (cfg EtcdConfig) AppendTo(out *strings.Builder) {
	if !cfg.Enabled {
		return
	}
	out.WriteString(strings.Join(cfg.Endpoints, ","))
	if cfg.Username != "" {
		writeOption(out, optionUsername, cfg.Username)
	}
	if cfg.Password != "" {
		writeOption(out, optionPassword, cfg.Password)
	}
	if cfg.DialTimeout != 0 {
		writeOption(out, optionDialTimeout, cfg.DialTimeout.String())
	}
	if cfg.KeepAlive != 0 {
		writeOption(out, optionKeepAlive, cfg.KeepAlive.String())
	}
	if cfg.KeepAliveTimeout != 0 {
		writeOption(out, optionKeepAliveTime, cfg.KeepAliveTimeout.String())
	}
}

// String returns the string representation.
func (cfg EtcdConfig) String() string {
	if !cfg.Enabled {
		return ""
	}

	var buf strings.Builder
	buf.Grow(64)
	cfg.AppendTo(&buf)
	return buf.String()
}

// MarshalJSON fulfills json.Marshaler.
func (cfg EtcdConfig) MarshalJSON() ([]byte, error) {
	if !cfg.Enabled {
		return constants.NullBytes, nil
	}
	return json.Marshal(cfg.ToJSON())
}

// ToJSON converts the object to its JSON doppelgänger.
func (cfg EtcdConfig) ToJSON() *EtcdConfigJSON {
	if !cfg.Enabled {
		return nil
	}
	return &EtcdConfigJSON{
		Endpoints:        cfg.Endpoints,
		Username:         cfg.Username,
		Password:         cfg.Password,
		DialTimeout:      durationString(cfg.DialTimeout),
		KeepAlive:        durationString(cfg.KeepAlive),
		KeepAliveTimeout: durationString(cfg.KeepAliveTimeout),
	}
}

// Parse parses the string representation.
func (cfg *EtcdConfig) Parse(str string) error {
	if cfg == nil {
		panic(errors.New("*EtcdConfig is nil"))
	}

	wantZero := true
	defer func() {
		if wantZero {
			*cfg = EtcdConfig{}
		}
	}()

	if str == "" || str == constants.NullString {
		return nil
	}

	err := misc.StrictUnmarshalJSON([]byte(str), cfg)
	if err == nil {
		wantZero = false
		return nil
	}

	pieces := strings.Split(str, ";")

	endpointListString, err := ticksutil.ExpandString(pieces[0])
	if err != nil {
		return err
	}

	var tmp EtcdConfig
	for _, endpoint := range strings.Split(endpointListString, ",") {
		if endpoint != "" {
			tmp.Endpoints = append(tmp.Endpoints, endpoint)
		}
	}
	if len(tmp.Endpoints) == 0 {
		return nil
	}

	for _, item := range pieces[1:] {
		if err := tmp.parseOption(item); err != nil {
			return err
		}
	}

	tmp.Enabled = true
	if err := tmp.PostProcess(); err != nil {
		return err
	}

	*cfg = tmp
	wantZero = false
	return nil
}

func (cfg *EtcdConfig) parseOption(item string) error {
	name, value, complete, err := splitOption(item)
	if err != nil {
		return err
	}

	switch name {
	case optionUsername:
		cfg.Username, err = ticksutil.ExpandString(value)

	case optionPassword:
		cfg.Password, err = ticksutil.ExpandPassword(value)

	case optionDialTimeout:
		cfg.DialTimeout, err = time.ParseDuration(value)

	case optionKeepAlive:
		cfg.KeepAlive, err = time.ParseDuration(value)

	case optionKeepAliveTime:
		cfg.KeepAliveTimeout, err = time.ParseDuration(value)

	default:
		err = UnknownOptionError{}
	}

	if err != nil {
		return OptionError{Name: name, Value: value, Complete: complete, Err: err}
	}
	return nil
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (cfg *EtcdConfig) UnmarshalJSON(raw []byte) error {
	if cfg == nil {
		panic(errors.New("*EtcdConfig is nil"))
	}

	wantZero := true
	defer func() {
		if wantZero {
			*cfg = EtcdConfig{}
		}
	}()

	if bytes.Equal(raw, constants.NullBytes) {
		return nil
	}

	var alt *EtcdConfigJSON
	err := misc.StrictUnmarshalJSON(raw, &alt)
	if err != nil {
		return err
	}

	err = cfg.FromJSON(alt)
	if err != nil {
		return err
	}

	err = cfg.PostProcess()
	if err != nil {
		return err
	}

	wantZero = false
	return nil
}

// FromJSON converts the object's JSON doppelgänger into the object.
func (cfg *EtcdConfig) FromJSON(alt *EtcdConfigJSON) error {
	if cfg == nil {
		panic(errors.New("*EtcdConfig is nil"))
	}

	if alt == nil {
		*cfg = EtcdConfig{}
		return nil
	}

	tmp := EtcdConfig{
		Enabled:   true,
		Endpoints: alt.Endpoints,
		Username:  alt.Username,
		Password:  alt.Password,
	}

	var err error
	if tmp.DialTimeout, err = parseDurationString(alt.DialTimeout); err != nil {
		return err
	}
	if tmp.KeepAlive, err = parseDurationString(alt.KeepAlive); err != nil {
		return err
	}
	if tmp.KeepAliveTimeout, err = parseDurationString(alt.KeepAliveTimeout); err != nil {
		return err
	}

	*cfg = tmp
	return nil
}

// PostProcess performs data integrity checks and input post-processing.
func (cfg *EtcdConfig) PostProcess() error {
	if cfg == nil {
		panic(errors.New("*EtcdConfig is nil"))
	}

	if !cfg.Enabled {
		*cfg = EtcdConfig{}
		return nil
	}

	if len(cfg.Endpoints) == 0 {
		return errors.New("len(EtcdConfig.Endpoints) == 0")
	}

	endpoints := make([]string, len(cfg.Endpoints))
	for index, endpoint := range cfg.Endpoints {
		normalized, err := normalizeEtcdEndpoint(endpoint)
		if err != nil {
			return fmt.Errorf("EtcdConfig.Endpoints[%d]: %w", index, err)
		}
		endpoints[index] = normalized
	}
	cfg.Endpoints = endpoints
	return nil
}

func normalizeEtcdEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", ticksutil.ErrExpectNonEmpty
	}

	if !strings.Contains(endpoint, "://") {
		endpoint = constants.SchemeHTTP + "://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint URL %q: %w", endpoint, err)
	}

	if u.Scheme != constants.SchemeHTTP {
		return "", fmt.Errorf("expected scheme %q, got scheme %q in URL %q", constants.SchemeHTTP, u.Scheme, u.String())
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), constants.PortEtcd)
	}

	if u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("URL %q contains forbidden components", u.String())
	}
	u.Path = ""

	return u.String(), nil
}

// Connect constructs the configured etcd.io *v3.Client and dials the etcd
// cluster.  The client's zap logs are forwarded to zerolog.  It returns
// nil, nil if cfg is disabled.
func (cfg EtcdConfig) Connect(ctx context.Context) (*v3.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = DefaultEtcdDialTimeout
	}

	return v3.New(v3.Config{
		Endpoints:            cfg.Endpoints,
		AutoSyncInterval:     1 * time.Minute,
		DialTimeout:          dialTimeout,
		DialKeepAliveTime:    cfg.KeepAlive,
		DialKeepAliveTimeout: cfg.KeepAliveTimeout,
		Username:             cfg.Username,
		Password:             cfg.Password,
		LogConfig:            NewDummyZapConfig(),
		Context:              ctx,
	})
}

func durationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func parseDurationString(str string) (time.Duration, error) {
	if str == "" {
		return 0, nil
	}
	return time.ParseDuration(str)
}

var _ json.Marshaler = EtcdConfig{}
var _ json.Unmarshaler = (*EtcdConfig)(nil)
