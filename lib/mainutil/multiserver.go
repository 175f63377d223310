package mainutil

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/misc"
)

// HealthWatchFunc is called whenever the health of a subsystem changes.
// isStopped is true on the final call, after which the subsystem will never
// change again.
type HealthWatchFunc func(subsystem string, isHealthy bool, isStopped bool)

// WatchID identifies a HealthWatchFunc registered with WatchHealth.
type WatchID uint32

// MultiServer runs a set of servers as one unit: it starts them together,
// reloads them on SIGHUP, and shuts them all down when any one of them exits
// or on SIGINT/SIGTERM.  It also tracks the health of named subsystems for
// the grpc.health.v1 service.
type MultiServer struct {
	wg           sync.WaitGroup
	runList      []func()
	reloadList   []func() error
	shutdownList []func(bool) error
	exitList     []func() error

	mu            sync.Mutex
	shutdownCh    chan struct{}
	alreadyTermed bool
	alreadyClosed bool

	healthMu      sync.Mutex
	health        map[string]bool
	watches       map[WatchID]HealthWatchFunc
	lastWatchID   WatchID
	healthStopped bool
}

// Go runs fn in a goroutine that Run waits for.
func (m *MultiServer) Go(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// OnRun registers fn to run in its own goroutine when Run is called.
func (m *MultiServer) OnRun(fn func()) {
	m.runList = append(m.runList, fn)
}

// OnReload registers fn to be called on Reload.
func (m *MultiServer) OnReload(fn func() error) {
	m.reloadList = append(m.reloadList, fn)
}

// OnShutdown registers fn to be called on Shutdown.  Shutdown functions run
// concurrently, in reverse order of registration.
func (m *MultiServer) OnShutdown(fn func(bool) error) {
	m.shutdownList = append(m.shutdownList, fn)
}

// OnExit registers fn to be called once every shutdown function has
// returned.  Exit functions run sequentially, in reverse order of
// registration.
func (m *MultiServer) OnExit(fn func() error) {
	m.exitList = append(m.exitList, fn)
}

// AddHTTPServer arranges for server to serve on listen.
func (m *MultiServer) AddHTTPServer(name string, server *http.Server, listen net.Listener) {
	if server == nil {
		panic(errors.New("*http.Server is nil"))
	}
	if listen == nil {
		panic(errors.New("net.Listener is nil"))
	}
	m.SetHealth(name, true)
	m.OnRun(func() {
		err := server.Serve(listen)
		m.SetHealth(name, false)
		m.closeShutdownCh()
		if isRealShutdownError(err) {
			log.Logger.Error().
				Str("subsystem", name).
				Err(err).
				Msg("failed to Serve")
		}
	})
	m.OnShutdown(func(alreadyTermed bool) error {
		m.SetHealth(name, false)

		var action string
		var err error
		if alreadyTermed {
			action = "Close"
			err = server.Close()
		} else {
			action = "Shutdown"
			ctx, cancel := context.WithTimeout(RootContext(), constants.ShutdownGracePeriod)
			err = server.Shutdown(ctx)
			cancel()
		}
		if isRealShutdownError(err) {
			log.Logger.Error().
				Str("subsystem", name).
				Err(err).
				Msg("failed to " + action)
			return err
		}
		return nil
	})
}

// AddGRPCServer arranges for server to serve on listen.  The grpc.health.v1
// service is registered on server, reporting the subsystems of m.
func (m *MultiServer) AddGRPCServer(name string, server *grpc.Server, listen net.Listener) {
	if server == nil {
		panic(errors.New("*grpc.Server is nil"))
	}
	if listen == nil {
		panic(errors.New("net.Listener is nil"))
	}
	grpc_health_v1.RegisterHealthServer(server, healthServer{m: m})
	m.SetHealth(name, true)
	m.OnRun(func() {
		err := server.Serve(listen)
		m.SetHealth(name, false)
		m.closeShutdownCh()
		if isRealShutdownError(err) {
			log.Logger.Error().
				Str("subsystem", name).
				Err(err).
				Msg("failed to Serve")
		}
	})
	m.OnShutdown(func(alreadyTermed bool) error {
		m.SetHealth(name, false)
		if alreadyTermed {
			server.Stop()
		} else {
			go server.GracefulStop()
		}
		return nil
	})
}

// Run starts every server and blocks until all of them have exited.
func (m *MultiServer) Run() {
	m.mu.Lock()
	m.shutdownCh = make(chan struct{})
	m.alreadyTermed = false
	m.alreadyClosed = false
	m.mu.Unlock()

	sdNotify("READY=1")

	for _, fn := range m.runList {
		m.Go(fn)
	}

	ctx := RootContext()
	doneCh := ctx.Done()
	exitCh := make(chan struct{})

	go func() {
		select {
		case <-doneCh:
			return

		case <-m.shutdownCh:
			// pass
		}

		_ = m.Shutdown(true)

		t := time.NewTimer(constants.ShutdownGracePeriod)

		select {
		case <-doneCh:
			t.Stop()
			return

		case <-exitCh:
			t.Stop()
			return

		case <-t.C:
			// pass
		}

		_ = m.Shutdown(false)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-doneCh:
				return

			case <-exitCh:
				return

			case sig := <-sigCh:
				log.Logger.Info().
					Str("sig", sig.String()).
					Msg("got signal")
				switch sig {
				case syscall.SIGINT, syscall.SIGTERM:
					_ = m.Shutdown(true)
				case syscall.SIGHUP:
					_ = m.Reload()
				}
			}
		}
	}()

	go func() {
		m.wg.Wait()
		close(exitCh)
	}()

	<-exitCh
}

// Reload calls every reload function.
func (m *MultiServer) Reload() error {
	var errs multierror.Error
	sdNotify("RELOADING=1")
	for _, fn := range m.reloadList {
		if err := fn(); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	sdNotify("READY=1")
	return misc.ErrorOrNil(errs)
}

// Shutdown stops every server.  The first call with graceful set lets
// in-flight requests finish; any later call forces an immediate stop and
// cancels the root context.
func (m *MultiServer) Shutdown(graceful bool) error {
	m.mu.Lock()
	alreadyTermed := m.alreadyTermed
	m.alreadyTermed = true
	m.mu.Unlock()

	if alreadyTermed && graceful {
		return nil
	}

	forced := alreadyTermed || !graceful
	if forced {
		log.Logger.Warn().
			Msg("forcing dirty shutdown")
		CancelRootContext()
	}

	sdNotify("STOPPING=1")

	var wg sync.WaitGroup
	errCh := make(chan error)

	for index := uint(len(m.shutdownList)); index > 0; index-- {
		fn := m.shutdownList[index-1]
		wg.Add(1)
		go func(fn func(bool) error) {
			defer wg.Done()
			if err := fn(forced); err != nil {
				errCh <- err
			}
		}(fn)
	}

	go func() {
		wg.Wait()
		for index := uint(len(m.exitList)); index > 0; index-- {
			fn := m.exitList[index-1]
			if err := fn(); err != nil {
				errCh <- err
			}
		}
		m.StopHealth()
		close(errCh)
	}()

	var errs multierror.Error
	for err := range errCh {
		errs.Errors = append(errs.Errors, err)
	}
	return misc.ErrorOrNil(errs)
}

// SetHealth records the health of the named subsystem, and tells every
// watcher if it changed.  The empty name is the daemon as a whole.
func (m *MultiServer) SetHealth(subsystem string, isHealthy bool) {
	m.healthMu.Lock()
	if m.healthStopped {
		m.healthMu.Unlock()
		return
	}
	if m.health == nil {
		m.health = make(map[string]bool)
	}
	old, found := m.health[subsystem]
	m.health[subsystem] = isHealthy
	var fns []HealthWatchFunc
	if !found || old != isHealthy {
		fns = m.watchListLocked()
	}
	m.healthMu.Unlock()

	for _, fn := range fns {
		fn(subsystem, isHealthy, false)
	}
}

// GetHealth returns the health of the named subsystem, and whether the
// subsystem is known at all.
func (m *MultiServer) GetHealth(subsystem string) (isHealthy bool, found bool) {
	m.healthMu.Lock()
	defer m.healthMu.Unlock()
	isHealthy, found = m.health[subsystem]
	return
}

// HealthSubsystems returns the sorted names of every known subsystem.
func (m *MultiServer) HealthSubsystems() []string {
	m.healthMu.Lock()
	defer m.healthMu.Unlock()
	out := make([]string, 0, len(m.health))
	for name := range m.health {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WatchHealth registers fn to be called on every health change.
func (m *MultiServer) WatchHealth(fn HealthWatchFunc) WatchID {
	if fn == nil {
		panic(errors.New("HealthWatchFunc is nil"))
	}

	m.healthMu.Lock()
	defer m.healthMu.Unlock()
	if m.watches == nil {
		m.watches = make(map[WatchID]HealthWatchFunc)
	}
	m.lastWatchID++
	id := m.lastWatchID
	m.watches[id] = fn
	return id
}

// CancelWatchHealth unregisters a HealthWatchFunc.  Unknown IDs are ignored.
func (m *MultiServer) CancelWatchHealth(id WatchID) {
	m.healthMu.Lock()
	delete(m.watches, id)
	m.healthMu.Unlock()
}

// StopHealth marks every subsystem unhealthy for the last time, then drops
// every watcher.  Later calls to SetHealth are ignored.
func (m *MultiServer) StopHealth() {
	m.healthMu.Lock()
	if m.healthStopped {
		m.healthMu.Unlock()
		return
	}
	m.healthStopped = true
	names := make([]string, 0, len(m.health))
	for name := range m.health {
		m.health[name] = false
		names = append(names, name)
	}
	fns := m.watchListLocked()
	m.watches = nil
	m.healthMu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		for _, fn := range fns {
			fn(name, false, true)
		}
	}
}

func (m *MultiServer) watchListLocked() []HealthWatchFunc {
	ids := make([]WatchID, 0, len(m.watches))
	for id := range m.watches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]HealthWatchFunc, len(ids))
	for index, id := range ids {
		fns[index] = m.watches[id]
	}
	return fns
}

func (m *MultiServer) closeShutdownCh() {
	m.mu.Lock()
	if !m.alreadyClosed && m.shutdownCh != nil {
		m.alreadyClosed = true
		close(m.shutdownCh)
	}
	m.mu.Unlock()
}

func isRealShutdownError(err error) bool {
	switch {
	case err == nil:
		return false

	case errors.Is(err, fs.ErrClosed):
		return false

	case errors.Is(err, net.ErrClosed):
		return false

	case errors.Is(err, http.ErrServerClosed):
		return false

	case errors.Is(err, grpc.ErrServerStopped):
		return false

	case errors.Is(err, context.Canceled):
		return false

	default:
		return true
	}
}
