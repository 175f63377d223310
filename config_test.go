package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/chronos-tachyon/ticks/dist"
	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/enums"
	"github.com/chronos-tachyon/ticks/lib/pulsesource"
	"github.com/chronos-tachyon/ticks/lib/ticks"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
	"github.com/chronos-tachyon/ticks/lib/wrap"
)

const goodConfig = `{
	"channels": 2,
	"pollInterval": "20ms",
	"trackers": [
		{"name": "anemometer", "channel": 0, "basePeriodMs": 1000,
		 "counterBits": 16, "clockBits": 32,
		 "source": {"type": "gpio", "path": "/sys/class/gpio/gpio17", "edge": "rising"}},
		{"name": "flow", "channel": 1, "basePeriodMs": 500,
		 "source": {"type": "udp", "network": "udp", "address": "127.0.0.1:9100"}}
	]
}`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(goodConfig))
	if err != nil {
		t.Fatalf("ParseConfig: unexpected error: %v", err)
	}

	if cfg.Channels != 2 {
		t.Errorf("Channels: expected 2, got %d", cfg.Channels)
	}
	if cfg.PollInterval != 20*time.Millisecond {
		t.Errorf("PollInterval: expected 20ms, got %v", cfg.PollInterval)
	}
	if len(cfg.Trackers) != 2 {
		t.Fatalf("Trackers: expected 2, got %d", len(cfg.Trackers))
	}

	expect := []TrackerConfig{
		{
			Name:         "anemometer",
			Channel:      0,
			BasePeriodMS: 1000,
			CounterBits:  16,
			ClockBits:    32,
			Source: pulsesource.Config{
				Type: enums.GPIOSourceType,
				Path: "/sys/class/gpio/gpio17",
				Edge: enums.RisingEdgeType,
			},
		},
		{
			Name:         "flow",
			Channel:      1,
			BasePeriodMS: 500,
			Source: pulsesource.Config{
				Type:    enums.PacketSourceType,
				Network: "udp",
				Address: "127.0.0.1:9100",
			},
		},
	}
	for index, row := range expect {
		if actual := cfg.Trackers[index]; actual != row {
			t.Errorf("[%d]: expected %+v, got %+v", index, row, actual)
		}
	}

	if n := len(cfg.Trackers[0].TrackerOptions()); n != 2 {
		t.Errorf("trackers[0].TrackerOptions: expected 2 options, got %d", n)
	}
	if n := len(cfg.Trackers[1].TrackerOptions()); n != 0 {
		t.Errorf("trackers[1].TrackerOptions: expected 0 options, got %d", n)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"trackers":[{"name":"a","channel":0,"basePeriodMs":100,"source":{"type":"synthetic","hz":5}}]}`))
	if err != nil {
		t.Fatalf("ParseConfig: unexpected error: %v", err)
	}
	if cfg.Channels != 1 {
		t.Errorf("Channels: expected 1, got %d", cfg.Channels)
	}
	if cfg.PollInterval != constants.DefaultPollInterval {
		t.Errorf("PollInterval: expected %v, got %v", constants.DefaultPollInterval, cfg.PollInterval)
	}
}

func TestParseConfig_Example(t *testing.T) {
	cfg, err := ParseConfig(dist.ExampleConfigJSON())
	if err != nil {
		t.Fatalf("ParseConfig: unexpected error: %v", err)
	}
	if cfg.Channels != 4 || len(cfg.Trackers) != 3 {
		t.Errorf("expected 4 channels and 3 trackers, got %d and %d", cfg.Channels, len(cfg.Trackers))
	}
}

func TestParseConfig_Decode(t *testing.T) {
	type testRow struct {
		Input string
	}

	testData := [...]testRow{
		{`not json`},
		{`{"trackers":[],"bogus":true}`},
		{`{"pollInterval":"soon","trackers":[]}`},
		{`{"trackers":[{"name":"a","channel":0,"basePeriodMs":1,"source":{"type":"carrier-pigeon"}}]}`},
		{`{"trackers":[{"name":"a","channel":0,"basePeriodMs":1,"source":{"type":"gpio","path":"/x","edge":"sideways"}}]}`},
		{`{"trackers":[{"name":"a","channel":-1,"basePeriodMs":1,"source":{"type":"synthetic","hz":1}}]}`},
	}

	for index, row := range testData {
		_, err := ParseConfig([]byte(row.Input))
		var loadErr ConfigLoadError
		if !errors.As(err, &loadErr) {
			t.Errorf("[%d]: expected ConfigLoadError, got %v", index, err)
			continue
		}
		if loadErr.Section != "decode" {
			t.Errorf("[%d]: expected section %q, got %q (%v)", index, "decode", loadErr.Section, err)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	synth := pulsesource.Config{Type: enums.SyntheticSourceType, Hz: 10}

	type testRow struct {
		Config Config
		Check  func(error) bool
	}

	isType := func(target interface{}) func(error) bool {
		return func(err error) bool {
			return errors.As(err, target)
		}
	}

	testData := [...]testRow{
		{
			Config{Channels: 1, PollInterval: time.Millisecond},
			func(err error) bool { return errors.Is(err, errNoTrackers) },
		},
		{
			Config{Channels: 1, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 100, Source: synth},
				{Name: "b", Channel: 1, BasePeriodMS: 100, Source: synth},
			}},
			isType(&ChannelCountError{}),
		},
		{
			Config{Channels: 300, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 100, Source: synth},
			}},
			isType(&ChannelCountError{}),
		},
		{
			Config{Channels: 2, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 2, BasePeriodMS: 100, Source: synth},
			}},
			isType(&ChannelRangeError{}),
		},
		{
			Config{Channels: 2, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 1, BasePeriodMS: 100, Source: synth},
				{Name: "b", Channel: 1, BasePeriodMS: 100, Source: synth},
			}},
			isType(&DuplicateChannelError{}),
		},
		{
			Config{Channels: 2, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 100, Source: synth},
				{Name: "a", Channel: 1, BasePeriodMS: 100, Source: synth},
			}},
			isType(&DuplicateNameError{}),
		},
		{
			Config{Channels: 1, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "", Channel: 0, BasePeriodMS: 100, Source: synth},
			}},
			isType(&ticksutil.TrackerNameError{}),
		},
		{
			Config{Channels: 1, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "http", Channel: 0, BasePeriodMS: 100, Source: synth},
			}},
			isType(&ReservedNameError{}),
		},
		{
			Config{Channels: 1, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 0, Source: synth},
			}},
			isType(&ticks.BadPeriodError{}),
		},
		{
			Config{Channels: 1, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 10, ClockBits: 4, Source: synth},
			}},
			isType(&ticks.BadPeriodError{}),
		},
		{
			Config{Channels: 1, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 100, CounterBits: 33, Source: synth},
			}},
			isType(&ticks.CounterWidthError{}),
		},
		{
			Config{Channels: 1, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 100, ClockBits: 64, Source: synth},
			}},
			isType(&wrap.BitsError{}),
		},
		{
			Config{Channels: 1, PollInterval: time.Millisecond, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 100},
			}},
			isType(&pulsesource.UnknownTypeError{}),
		},
		{
			Config{Channels: 1, PollInterval: 0, Trackers: []TrackerConfig{
				{Name: "a", Channel: 0, BasePeriodMS: 100, Source: synth},
			}},
			isType(&IntervalError{}),
		},
	}

	for index, row := range testData {
		err := row.Config.Validate()
		if err == nil {
			t.Errorf("[%d]: expected error, got nil", index)
			continue
		}
		if !row.Check(err) {
			t.Errorf("[%d]: wrong error: %v", index, err)
		}
	}
}

func TestConfig_ValidateCollectsEverything(t *testing.T) {
	cfg := Config{
		Channels:     2,
		PollInterval: time.Millisecond,
		Trackers: []TrackerConfig{
			{Name: "a", Channel: 0, BasePeriodMS: 0, Source: pulsesource.Config{Type: enums.SyntheticSourceType, Hz: 1}},
			{Name: "a", Channel: 5, BasePeriodMS: 100, Source: pulsesource.Config{Type: enums.GPIOSourceType}},
		},
	}

	err := cfg.Validate()
	var multi *multierror.Error
	if !errors.As(err, &multi) {
		t.Fatalf("expected *multierror.Error, got %T: %v", err, err)
	}
	if len(multi.Errors) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(multi.Errors), err)
	}

	str := err.Error()
	for _, want := range []string{"trackers[0]:", "trackers[1]:", "trackers[1].source:"} {
		if !strings.Contains(str, want) {
			t.Errorf("expected error text to mention %q, got %q", want, str)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(goodConfig), 0o666); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(good); err != nil {
		t.Errorf("LoadConfig(good): unexpected error: %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"channels":1,"trackers":[]}`), 0o666); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(bad)
	var loadErr ConfigLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("LoadConfig(bad): expected ConfigLoadError, got %v", err)
	}
	if loadErr.Path != bad || loadErr.Section != "validate" {
		t.Errorf("LoadConfig(bad): expected path %q section %q, got %q %q", bad, "validate", loadErr.Path, loadErr.Section)
	}

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing): expected os.ErrNotExist, got %v", err)
	}
}
