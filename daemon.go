package main

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/pulsesource"
	"github.com/chronos-tachyon/ticks/lib/scheduler"
	"github.com/chronos-tachyon/ticks/lib/ticks"
	"github.com/chronos-tachyon/ticks/lib/ticksprom"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// HealthSetter receives the health of each tracker, keyed by tracker name.
// *mainutil.MultiServer implements it.
type HealthSetter interface {
	SetHealth(subsystem string, isHealthy bool)
}

type nopHealthSetter struct{}

func (nopHealthSetter) SetHealth(string, bool) {}

type trackerEntry struct {
	name    string
	mu      sync.Mutex
	tracker *ticks.Tracker
	source  pulsesource.Source
}

// Daemon owns the Registry, one Tracker and pulse source per configured
// tracker, and the Scheduler that polls them.
type Daemon struct {
	registry  *ticks.Registry
	scheduler *scheduler.Scheduler
	collector *ticksprom.Collector
	health    HealthSetter
	entries   []*trackerEntry
	byName    map[string]*trackerEntry

	wg      sync.WaitGroup
	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	closed  bool
}

// NewDaemon builds every tracker and pulse source named by cfg.  Nothing
// runs until Start.  Extra opts are passed to every ticks.New call.
func NewDaemon(cfg *Config, health HealthSetter, opts ...ticks.Option) (*Daemon, error) {
	ticksutil.AssertNotNil(&cfg)
	if health == nil {
		health = nopHealthSetter{}
	}

	reg := ticks.NewRegistry(cfg.Channels)
	d := &Daemon{
		registry:  reg,
		scheduler: &scheduler.Scheduler{Interval: cfg.PollInterval},
		collector: ticksprom.NewCollector(constants.MetricNamespace, reg),
		health:    health,
		entries:   make([]*trackerEntry, 0, len(cfg.Trackers)),
		byName:    make(map[string]*trackerEntry, len(cfg.Trackers)),
	}

	for _, tc := range cfg.Trackers {
		e := &trackerEntry{name: tc.Name}

		trackerOpts := make([]ticks.Option, 0, 3+len(opts))
		trackerOpts = append(trackerOpts, tc.TrackerOptions()...)
		trackerOpts = append(trackerOpts, ticks.WithLocker(&e.mu))
		trackerOpts = append(trackerOpts, opts...)

		t, err := ticks.New(reg, ticks.Channel(tc.Channel), tc.BasePeriodMS, trackerOpts...)
		if err != nil {
			_ = d.closeEntries()
			return nil, TrackerSetupError{Name: tc.Name, Err: err}
		}
		e.tracker = t

		src, err := pulsesource.New(tc.Source)
		if err != nil {
			_ = t.Close()
			_ = d.closeEntries()
			return nil, TrackerSetupError{Name: tc.Name, Err: err}
		}
		e.source = src

		d.entries = append(d.entries, e)
		d.byName[e.name] = e
		d.scheduler.Add(t)
		d.collector.Add(e.name, t)
		health.SetHealth(e.name, false)
	}

	return d, nil
}

// Registry returns the notification table shared by every tracker.
func (d *Daemon) Registry() *ticks.Registry {
	return d.registry
}

// Scheduler returns the polling loop.
func (d *Daemon) Scheduler() *scheduler.Scheduler {
	return d.scheduler
}

// Collector returns the Prometheus collector covering every tracker.
func (d *Daemon) Collector() *ticksprom.Collector {
	return d.collector
}

// Names returns the configured tracker names, in configuration order.
func (d *Daemon) Names() []string {
	out := make([]string, len(d.entries))
	for index, e := range d.entries {
		out[index] = e.name
	}
	return out
}

// Init initializes every tracker and marks it healthy.  Start calls it.
func (d *Daemon) Init() error {
	var errs multierror.Error
	for _, e := range d.entries {
		if err := e.tracker.Init(); err != nil {
			misc.AppendPrefixed(&errs, e.name, err)
			continue
		}
		d.health.SetHealth(e.name, true)
	}
	return misc.ErrorOrNil(errs)
}

// Start initializes every tracker, then runs the scheduler and every pulse
// source in the background until ctx is cancelled or Close is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fs.ErrClosed
	}
	if d.started {
		return errors.New("daemon already started")
	}
	d.started = true

	if err := d.Init(); err != nil {
		return err
	}

	ctx, d.cancel = context.WithCancel(ctx)
	ctx = log.Logger.With().Str("subsystem", "scheduler").Logger().WithContext(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.scheduler.Run(ctx)
	}()

	for _, e := range d.entries {
		d.wg.Add(1)
		go d.runSource(ctx, e)
	}
	return nil
}

func (d *Daemon) runSource(ctx context.Context, e *trackerEntry) {
	defer d.wg.Done()

	logger := log.Logger.With().
		Str("tracker", e.name).
		Uint8("channel", uint8(e.tracker.Channel())).
		Logger()

	logger.Debug().Msg("pulse source running")

	err := e.source.Run(ctx, d.registry.Notifier(e.tracker.Channel()))
	if err != nil {
		d.health.SetHealth(e.name, false)
		logger.Error().
			Err(err).
			Msg("pulse source failed")
		return
	}

	logger.Debug().Msg("pulse source stopped")
}

// Status returns a snapshot of every tracker, in configuration order.
func (d *Daemon) Status() []ticks.NamedData {
	out := make([]ticks.NamedData, len(d.entries))
	for index, e := range d.entries {
		out[index] = ticks.NamedData{Name: e.name, Data: e.tracker.Data()}
	}
	return out
}

// StatusOf returns a snapshot of the named tracker.
func (d *Daemon) StatusOf(name string) (ticks.NamedData, error) {
	e, found := d.byName[name]
	if !found {
		return ticks.NamedData{}, UnknownTrackerError{Name: name}
	}
	return ticks.NamedData{Name: e.name, Data: e.tracker.Data()}, nil
}

// SortedNames returns the configured tracker names in lexical order.
func (d *Daemon) SortedNames() []string {
	out := d.Names()
	sort.Strings(out)
	return out
}

// Close stops the scheduler and every pulse source, then unbinds every
// tracker.  A second call returns fs.ErrClosed.
func (d *Daemon) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fs.ErrClosed
	}
	d.closed = true
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var errs multierror.Error
	for _, e := range d.entries {
		if err := e.source.Close(); err != nil && !errors.Is(err, fs.ErrClosed) {
			misc.AppendPrefixed(&errs, e.name, err)
		}
	}

	d.wg.Wait()

	misc.AppendPrefixed(&errs, "trackers", d.closeEntries())
	d.registry.Close()

	err := misc.ErrorOrNil(errs)
	logEvent(err).
		Int("trackers", len(d.entries)).
		Uint64("steps", d.scheduler.Steps()).
		Err(err).
		Msg("daemon closed")
	return err
}

func (d *Daemon) closeEntries() error {
	var errs multierror.Error
	for _, e := range d.entries {
		d.health.SetHealth(e.name, false)
		if err := e.tracker.Close(); err != nil && !errors.Is(err, fs.ErrClosed) {
			misc.AppendPrefixed(&errs, e.name, err)
		}
	}
	return misc.ErrorOrNil(errs)
}

func logEvent(err error) *zerolog.Event {
	if err != nil {
		return log.Logger.Warn()
	}
	return log.Logger.Debug()
}
