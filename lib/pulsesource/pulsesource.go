// Package pulsesource provides the asynchronous producers that turn physical
// or simulated pulses into ticks.Registry notifications.
package pulsesource

import (
	"context"
	"net"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/enums"
	"github.com/chronos-tachyon/ticks/internal/misc"
)

// Source is an asynchronous producer of pulses.
type Source interface {
	// Run delivers pulses by calling notify once per pulse, until ctx is
	// cancelled or the Source is closed.  It returns nil in either of those
	// cases, or the error that prevented further delivery.
	//
	// notify must not block.
	Run(ctx context.Context, notify func()) error

	// Close releases the Source's resources.  A concurrent Run returns
	// promptly.
	Close() error
}

// Config selects and configures a Source.
type Config struct {
	Type enums.SourceType `json:"type"`

	// GPIO
	Path string         `json:"path,omitempty"`
	Edge enums.EdgeType `json:"edge,omitempty"`

	// UDP / unixgram
	Network string `json:"network,omitempty"`
	Address string `json:"address,omitempty"`

	// Synthetic
	Hz float64 `json:"hz,omitempty"`
}

// Validate checks that the fields required by cfg.Type are present.
func (cfg Config) Validate() error {
	switch cfg.Type {
	case enums.GPIOSourceType:
		if cfg.Path == "" {
			return MissingFieldError{Type: cfg.Type, Field: "path"}
		}

	case enums.PacketSourceType:
		if cfg.Address == "" {
			return MissingFieldError{Type: cfg.Type, Field: "address"}
		}
		switch {
		case cfg.Network == constants.NetEmpty || constants.IsNetUDP(cfg.Network):
			_, port, err := net.SplitHostPort(cfg.Address)
			if err == nil {
				_, err = misc.ParsePort(port)
			}
			if err != nil {
				return BadAddressError{Address: cfg.Address, Err: err}
			}
		case cfg.Network == constants.NetUnixgram:
		default:
			return BadNetworkError{Network: cfg.Network}
		}

	case enums.SyntheticSourceType:
		if !(cfg.Hz > 0 && cfg.Hz <= MaxSyntheticHz) {
			return BadRateError{Hz: cfg.Hz}
		}

	default:
		return UnknownTypeError{Type: cfg.Type}
	}
	return nil
}

// New constructs the Source described by cfg.
func New(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case enums.GPIOSourceType:
		src, err := NewGPIO(cfg.Path, cfg.Edge)
		if err != nil {
			return nil, err
		}
		return src, nil

	case enums.PacketSourceType:
		network := cfg.Network
		if network == "" {
			network = "udp"
		}
		src, err := NewPacket(network, cfg.Address)
		if err != nil {
			return nil, err
		}
		return src, nil

	default:
		return NewSynthetic(cfg.Hz), nil
	}
}
