package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/pulsesource"
	"github.com/chronos-tachyon/ticks/lib/ticks"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
	"github.com/chronos-tachyon/ticks/lib/wrap"
)

// maxChannels is the size of the ticks.Channel space.
const maxChannels = 256

var errNoTrackers = errors.New("at least one tracker must be configured")

type Config struct {
	Channels     uint
	PollInterval time.Duration
	Trackers     []TrackerConfig
}

type configJSON struct {
	Channels     uint            `json:"channels,omitempty"`
	PollInterval string          `json:"pollInterval,omitempty"`
	Trackers     []TrackerConfig `json:"trackers"`
}

type TrackerConfig struct {
	Name         string             `json:"name"`
	Channel      uint               `json:"channel"`
	BasePeriodMS uint32             `json:"basePeriodMs"`
	CounterBits  uint               `json:"counterBits,omitempty"`
	ClockBits    uint               `json:"clockBits,omitempty"`
	Source       pulsesource.Config `json:"source"`
}

// TrackerOptions returns the ticks.Options that t selects.
func (t TrackerConfig) TrackerOptions() []ticks.Option {
	out := make([]ticks.Option, 0, 2)
	if t.CounterBits != 0 {
		out = append(out, ticks.WithCounterBits(t.CounterBits))
	}
	if t.ClockBits != 0 {
		out = append(out, ticks.WithClockBits(t.ClockBits))
	}
	return out
}

func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ConfigLoadError{Path: path, Err: err}
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		var loadErr ConfigLoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
			return nil, loadErr
		}
		return nil, ConfigLoadError{Path: path, Err: err}
	}
	return cfg, nil
}

func ParseConfig(raw []byte) (*Config, error) {
	var alt configJSON
	if err := misc.StrictUnmarshalJSON(raw, &alt); err != nil {
		return nil, ConfigLoadError{Section: "decode", Err: err}
	}

	cfg := &Config{
		Channels: alt.Channels,
		Trackers: alt.Trackers,
	}

	if alt.PollInterval != "" {
		d, err := time.ParseDuration(alt.PollInterval)
		if err != nil {
			return nil, ConfigLoadError{Section: "decode", Err: fmt.Errorf("pollInterval: %w", err)}
		}
		if d <= 0 {
			return nil, ConfigLoadError{Section: "validate", Err: IntervalError{Field: "pollInterval", Value: d}}
		}
		cfg.PollInterval = d
	}

	cfg.postprocess()

	if err := cfg.Validate(); err != nil {
		return nil, ConfigLoadError{Section: "validate", Err: err}
	}
	return cfg, nil
}

func (cfg *Config) postprocess() {
	if cfg.Channels == 0 {
		cfg.Channels = uint(len(cfg.Trackers))
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = constants.DefaultPollInterval
	}
}

// Validate reports every problem with cfg, not just the first.
func (cfg *Config) Validate() error {
	var errs multierror.Error

	if len(cfg.Trackers) == 0 {
		errs.Errors = append(errs.Errors, errNoTrackers)
	}

	numTrackers := uint(len(cfg.Trackers))
	if cfg.Channels == 0 || cfg.Channels > maxChannels || numTrackers > cfg.Channels {
		errs.Errors = append(errs.Errors, ChannelCountError{Channels: cfg.Channels, Trackers: numTrackers})
	}

	if cfg.PollInterval <= 0 {
		errs.Errors = append(errs.Errors, IntervalError{Field: "pollInterval", Value: cfg.PollInterval})
	}

	byName := make(map[string]int, len(cfg.Trackers))
	byChannel := make(map[uint]string, len(cfg.Trackers))
	for index, t := range cfg.Trackers {
		prefix := fmt.Sprintf("trackers[%d]", index)

		if err := ticksutil.ValidateTrackerName(t.Name); err != nil {
			misc.AppendPrefixed(&errs, prefix, err)
		} else if isReservedName(t.Name) {
			misc.AppendPrefixed(&errs, prefix, ReservedNameError{Name: t.Name})
		} else if first, found := byName[t.Name]; found {
			misc.AppendPrefixed(&errs, prefix, DuplicateNameError{Name: t.Name, First: first})
		} else {
			byName[t.Name] = index
		}

		if cfg.Channels != 0 && t.Channel >= cfg.Channels {
			misc.AppendPrefixed(&errs, prefix, ChannelRangeError{Channel: t.Channel, Channels: cfg.Channels})
		} else if first, found := byChannel[t.Channel]; found {
			misc.AppendPrefixed(&errs, prefix, DuplicateChannelError{Channel: t.Channel, First: first})
		} else {
			byChannel[t.Channel] = t.Name
		}

		misc.AppendPrefixed(&errs, prefix, t.validateWidths())
		misc.AppendPrefixed(&errs, prefix+".source", t.Source.Validate())
	}

	return misc.ErrorOrNil(errs)
}

func isReservedName(name string) bool {
	switch name {
	case constants.SubsystemProm, constants.SubsystemHTTP, constants.SubsystemGRPC:
		return true
	default:
		return false
	}
}

func (t TrackerConfig) validateWidths() error {
	var errs multierror.Error

	counterBits := t.CounterBits
	if counterBits == 0 {
		counterBits = ticks.DefaultCounterBits
	}
	if counterBits > ticks.MaxCounterBits {
		errs.Errors = append(errs.Errors, ticks.CounterWidthError{Bits: counterBits})
	}

	clockBits := t.ClockBits
	if clockBits == 0 {
		clockBits = ticks.DefaultClockBits
	}
	clockMod, err := wrap.New(clockBits)
	if err != nil {
		errs.Errors = append(errs.Errors, err)
		if t.BasePeriodMS == 0 {
			errs.Errors = append(errs.Errors, ticks.BadPeriodError{})
		}
		return misc.ErrorOrNil(errs)
	}

	limit := clockMod.Max()
	if t.BasePeriodMS == 0 || uint64(t.BasePeriodMS)*ticks.LongBlockPeriods >= limit {
		errs.Errors = append(errs.Errors, ticks.BadPeriodError{PeriodMS: t.BasePeriodMS, LimitMS: limit})
	}
	return misc.ErrorOrNil(errs)
}

// MarshalJSON fulfills json.Marshaler.
func (cfg Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{
		Channels:     cfg.Channels,
		PollInterval: cfg.PollInterval.String(),
		Trackers:     cfg.Trackers,
	})
}

// UnmarshalJSON fulfills json.Unmarshaler.
func (cfg *Config) UnmarshalJSON(raw []byte) error {
	if bytes.Equal(raw, constants.NullBytes) {
		*cfg = Config{}
		return nil
	}
	tmp, err := ParseConfig(raw)
	if err != nil {
		*cfg = Config{}
		return err
	}
	*cfg = *tmp
	return nil
}

var _ json.Marshaler = Config{}
var _ json.Unmarshaler = (*Config)(nil)
