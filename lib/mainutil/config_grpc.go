package mainutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// GRPCClientConfig represents the configuration for a *grpc.ClientConn.
//
// The string form is "target[;waitForReady]".  The target is either
// "host[:port]" or "unix:/path".
type GRPCClientConfig struct {
	Enabled      bool
	Target       string
	WaitForReady bool
}

// GRPCClientConfigJSON represents the JSON doppelgänger of a GRPCClientConfig.
type GRPCClientConfigJSON struct {
	Target       string `json:"target"`
	WaitForReady bool   `json:"waitForReady,omitempty"`
}

// AppendTo appends the string representation to the given Builder.
func (cfg GRPCClientConfig) AppendTo(out *strings.Builder) {
	out.WriteString(cfg.Target)
	if cfg.WaitForReady {
		out.WriteString(";")
		out.WriteString(optionWaitForReady)
	}
}

// String returns the string representation.
func (cfg GRPCClientConfig) String() string {
	if !cfg.Enabled {
		return ""
	}

	var buf strings.Builder
	buf.Grow(64)
	cfg.AppendTo(&buf)
	return buf.String()
}

// MarshalJSON fulfills json.Marshaler.
func (cfg GRPCClientConfig) MarshalJSON() ([]byte, error) {
	if !cfg.Enabled {
		return constants.NullBytes, nil
	}
	return json.Marshal(cfg.ToJSON())
}

// ToJSON converts the object to its JSON doppelgänger.
func (cfg GRPCClientConfig) ToJSON() *GRPCClientConfigJSON {
	if !cfg.Enabled {
		return nil
	}
	return &GRPCClientConfigJSON{
		Target:       cfg.Target,
		WaitForReady: cfg.WaitForReady,
	}
}

// Parse parses the string representation.
func (cfg *GRPCClientConfig) Parse(str string) error {
	if cfg == nil {
		panic(errors.New("*GRPCClientConfig is nil"))
	}

	wantZero := true
	defer func() {
		if wantZero {
			*cfg = GRPCClientConfig{}
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

	tmp := GRPCClientConfig{Enabled: true}
	tmp.Target, err = ticksutil.ExpandString(pieces[0])
	if err != nil {
		return err
	}

	for _, item := range pieces[1:] {
		optName, optValue, optComplete, err := splitOption(item)
		if err != nil {
			return err
		}

		optErr := OptionError{
			Name:     optName,
			Value:    optValue,
			Complete: optComplete,
		}

		switch optName {
		case optionWaitForReady:
			tmp.WaitForReady, err = misc.ParseBool(optValue)
			if err != nil {
				optErr.Err = err
				return optErr
			}

		default:
			optErr.Err = UnknownOptionError{}
			return optErr
		}
	}

	err = tmp.PostProcess()
	if err != nil {
		return err
	}

	*cfg = tmp
	wantZero = false
	return nil
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (cfg *GRPCClientConfig) UnmarshalJSON(raw []byte) error {
	if cfg == nil {
		panic(errors.New("*GRPCClientConfig is nil"))
	}

	wantZero := true
	defer func() {
		if wantZero {
			*cfg = GRPCClientConfig{}
		}
	}()

	if bytes.Equal(raw, constants.NullBytes) {
		return nil
	}

	var alt *GRPCClientConfigJSON
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
func (cfg *GRPCClientConfig) FromJSON(alt *GRPCClientConfigJSON) error {
	if cfg == nil {
		panic(errors.New("*GRPCClientConfig is nil"))
	}

	if alt == nil {
		*cfg = GRPCClientConfig{}
		return nil
	}

	*cfg = GRPCClientConfig{
		Enabled:      true,
		Target:       alt.Target,
		WaitForReady: alt.WaitForReady,
	}
	return nil
}

// PostProcess performs data integrity checks and input post-processing.
// A TCP target without a port gets the daemon's default gRPC port.
func (cfg *GRPCClientConfig) PostProcess() error {
	if cfg == nil {
		panic(errors.New("*GRPCClientConfig is nil"))
	}

	if !cfg.Enabled {
		*cfg = GRPCClientConfig{}
		return nil
	}

	if cfg.Target == "" {
		return ticksutil.BadPathError{Path: cfg.Target, Err: ticksutil.ErrExpectNonEmpty}
	}

	if strings.HasPrefix(cfg.Target, "unix:") {
		return nil
	}

	_, defaultPort, err := net.SplitHostPort(constants.DefaultGRPCAddress)
	if err != nil {
		return err
	}

	host, port, err := misc.SplitHostPort(cfg.Target, defaultPort)
	if err != nil {
		return err
	}
	cfg.Target = net.JoinHostPort(host, port)
	return nil
}

// Dial dials the configured gRPC server.  It returns nil, nil if cfg is
// disabled.
func (cfg GRPCClientConfig) Dial(ctx context.Context, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	dialOpts := make([]grpc.DialOption, 1, 2+len(opts))
	dialOpts[0] = grpc.WithTransportCredentials(insecure.NewCredentials())
	if cfg.WaitForReady {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(grpc.WaitForReady(true)))
	}
	dialOpts = append(dialOpts, opts...)

	return grpc.DialContext(ctx, cfg.Target, dialOpts...)
}

var _ json.Marshaler = GRPCClientConfig{}
var _ json.Unmarshaler = (*GRPCClientConfig)(nil)
