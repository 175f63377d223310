package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	getopt "github.com/pborman/getopt/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	v3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/lib/announcer"
	"github.com/chronos-tachyon/ticks/lib/mainutil"
	"github.com/chronos-tachyon/ticks/lib/membership"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

var gMultiServer mainutil.MultiServer

var (
	flagConfig         string = constants.DefaultConfigFile
	flagPromNet        string = constants.NetTCP
	flagPromAddr       string = constants.DefaultPromAddress
	flagListenHTTP     string = constants.DefaultHTTPAddress
	flagListenGRPC     string = constants.DefaultGRPCAddress
	flagAnnounceZK     string
	flagAnnounceEtcd   string
	flagUniqueFile     string = constants.DefaultUniqueFile
	flagStreamInterval string = constants.DefaultStreamInterval.String()
)

func init() {
	getopt.SetParameters("")

	mainutil.RegisterVersionFlag()
	mainutil.RegisterLoggingFlags()

	getopt.FlagLong(&flagConfig, "config", 'c', "path to configuration file")
	getopt.FlagLong(&flagPromNet, "prometheus-net", 0, "network for Prometheus monitoring metrics")
	getopt.FlagLong(&flagPromAddr, "prometheus-addr", 0, "address for Prometheus monitoring metrics")
	getopt.FlagLong(&flagListenHTTP, "listen-http", 0, "listen config for the HTTP status and stream server")
	getopt.FlagLong(&flagListenGRPC, "listen-grpc", 0, "listen config for the gRPC health server")
	getopt.FlagLong(&flagAnnounceZK, "announce-zk", 0, "announce this daemon in ZooKeeper")
	getopt.FlagLong(&flagAnnounceEtcd, "announce-etcd", 0, "announce this daemon in etcd")
	getopt.FlagLong(&flagUniqueFile, "unique-file", 0, "path to the unique ID state file")
	getopt.FlagLong(&flagStreamInterval, "stream-interval", 0, "interval between WebSocket stream frames")
}

func main() {
	getopt.Parse()

	mainutil.InitVersion()

	mainutil.InitContext()
	defer mainutil.CancelRootContext()
	ctx := mainutil.RootContext()

	mainutil.InitLogging()
	defer mainutil.DoneLogging()

	abs, err := ticksutil.ExpandPath(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	flagConfig = abs

	if constants.IsNetUnix(flagPromNet) && flagPromAddr != "" && flagPromAddr[0] != '@' {
		abs, err = ticksutil.ExpandPath(flagPromAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		flagPromAddr = abs
	}

	streamInterval, err := time.ParseDuration(flagStreamInterval)
	if err == nil && streamInterval <= 0 {
		err = IntervalError{Field: "--stream-interval", Value: streamInterval}
	}
	if err != nil {
		log.Logger.Fatal().
			Str("flag", "--stream-interval").
			Err(err).
			Msg("invalid flag")
	}

	var httpListenConfig mainutil.ListenConfig
	if err := httpListenConfig.Parse(flagListenHTTP); err != nil {
		log.Logger.Fatal().
			Str("flag", "--listen-http").
			Err(err).
			Msg("invalid flag")
	}

	var grpcListenConfig mainutil.ListenConfig
	if err := grpcListenConfig.Parse(flagListenGRPC); err != nil {
		log.Logger.Fatal().
			Str("flag", "--listen-grpc").
			Err(err).
			Msg("invalid flag")
	}

	var zkAnnounceConfig mainutil.ZKAnnounceConfig
	if err := zkAnnounceConfig.Parse(flagAnnounceZK); err != nil {
		log.Logger.Fatal().
			Str("flag", "--announce-zk").
			Err(err).
			Msg("invalid flag")
	}

	var etcdAnnounceConfig mainutil.EtcdAnnounceConfig
	if err := etcdAnnounceConfig.Parse(flagAnnounceEtcd); err != nil {
		log.Logger.Fatal().
			Str("flag", "--announce-etcd").
			Err(err).
			Msg("invalid flag")
	}

	if err := mainutil.SetUniqueFile(flagUniqueFile); err != nil {
		log.Logger.Fatal().
			Str("flag", "--unique-file").
			Err(err).
			Msg("invalid flag")
	}

	cfg, err := LoadConfig(flagConfig)
	if err != nil {
		log.Logger.Fatal().
			Str("path", flagConfig).
			Err(err).
			Msg("failed to load config file")
	}

	daemon, err := NewDaemon(cfg, &gMultiServer)
	if err != nil {
		log.Logger.Fatal().
			Err(err).
			Msg("failed to create trackers")
	}

	gMultiServer.OnExit(func() error {
		if err := daemon.Close(); err != nil {
			log.Logger.Error().
				Err(err).
				Msg("failed to close all trackers")
			return err
		}
		return nil
	})

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: constants.MetricNamespace}),
		daemon.Collector(),
	)

	promMetrics := NewMetrics(constants.SubsystemProm)
	promMetrics.MustRegister(promRegistry)

	httpMetrics := NewMetrics(constants.SubsystemHTTP)
	httpMetrics.MustRegister(promRegistry)

	streamShutdownCh := make(chan struct{})
	var streamShutdownOnce sync.Once
	gMultiServer.OnShutdown(func(bool) error {
		streamShutdownOnce.Do(func() { close(streamShutdownCh) })
		return nil
	})

	var promHandler http.Handler
	promHandler = promhttp.HandlerFor(
		promRegistry,
		promhttp.HandlerOpts{
			ErrorLog:            mainutil.PromLoggerBridge{},
			Registry:            promRegistry,
			MaxRequestsInFlight: 4,
			EnableOpenMetrics:   true,
		})
	promHandler = RootHandler{Metrics: promMetrics, Next: promHandler}
	promServer := &http.Server{
		Handler:           promHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       MakeBaseContextFunc(),
		ConnContext:       MakeConnContextFunc(constants.SubsystemProm),
	}

	var httpHandler http.Handler
	httpHandler = NewMux(daemon, httpMetrics, streamInterval, streamShutdownCh)
	httpHandler = RootHandler{Metrics: httpMetrics, Next: httpHandler}
	httpServer := &http.Server{
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       MakeBaseContextFunc(),
		ConnContext:       MakeConnContextFunc(constants.SubsystemHTTP),
	}

	grpcServer := grpc.NewServer()

	promListener, err := net.Listen(flagPromNet, flagPromAddr)
	if err != nil {
		log.Logger.Fatal().
			Str("subsystem", constants.SubsystemProm).
			Err(err).
			Msg("failed to Listen")
	}

	httpListener, err := httpListenConfig.Listen(ctx)
	if err != nil {
		log.Logger.Fatal().
			Str("subsystem", constants.SubsystemHTTP).
			Err(err).
			Msg("failed to Listen")
	}

	grpcListener, err := grpcListenConfig.Listen(ctx)
	if err != nil {
		log.Logger.Fatal().
			Str("subsystem", constants.SubsystemGRPC).
			Err(err).
			Msg("failed to Listen")
	}

	gMultiServer.AddHTTPServer(constants.SubsystemProm, promServer, promListener)
	gMultiServer.AddHTTPServer(constants.SubsystemHTTP, httpServer, httpListener)
	gMultiServer.AddGRPCServer(constants.SubsystemGRPC, grpcServer, grpcListener)

	if err := daemon.Start(ctx); err != nil {
		log.Logger.Fatal().
			Err(err).
			Msg("failed to start trackers")
	}

	a := setupAnnouncer(ctx, zkAnnounceConfig, etcdAnnounceConfig)
	if a != nil {
		record := buildMembership(daemon, []namedListener{
			{membership.PortHTTP, httpListener},
			{membership.PortGRPC, grpcListener},
			{membership.PortProm, promListener},
		})
		if err := a.Announce(ctx, record); err != nil {
			log.Logger.Error().
				Err(err).
				Msg("failed to announce")
		}

		var withdrawOnce sync.Once
		gMultiServer.OnShutdown(func(bool) error {
			var err error
			withdrawOnce.Do(func() {
				wctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownGracePeriod)
				defer cancel()
				err = a.Withdraw(wctx)
			})
			if err != nil {
				log.Logger.Warn().
					Err(err).
					Msg("failed to withdraw announcement")
			}
			return err
		})
	}

	gMultiServer.SetHealth(constants.SubsystemDaemon, true)

	gMultiServer.OnReload(func() error {
		return mainutil.RotateLogs(ctx)
	})

	gMultiServer.OnRun(func() {
		log.Logger.Info().
			Strs("trackers", daemon.Names()).
			Str("version", mainutil.AppVersion()).
			Msg("Running")
	})

	gMultiServer.Run()

	log.Logger.Info().
		Msg("Exit")
}

// setupAnnouncer connects to ZooKeeper and etcd as configured.  It returns
// nil if neither is enabled.
func setupAnnouncer(ctx context.Context, zac mainutil.ZKAnnounceConfig, eac mainutil.EtcdAnnounceConfig) *announcer.Announcer {
	if !zac.Enabled && !eac.Enabled {
		return nil
	}

	unique, err := mainutil.UniqueID()
	if err != nil {
		log.Logger.Fatal().
			Err(err).
			Msg("failed to read or create unique ID")
	}

	a := announcer.New()

	var zkconn *zk.Conn
	if zac.Enabled {
		zkconn, err = zac.Connect(ctx)
		if err != nil {
			log.Logger.Fatal().
				Str("zk", zac.ZKConfig.String()).
				Err(err).
				Msg("failed to connect to ZooKeeper")
		}
		if err := zac.AddTo(zkconn, a, unique); err != nil {
			log.Logger.Fatal().
				Err(err).
				Msg("failed to configure ZooKeeper announcer")
		}
	}

	var etcd *v3.Client
	if eac.Enabled {
		etcd, err = eac.Connect(ctx)
		if err != nil {
			log.Logger.Fatal().
				Strs("endpoints", eac.Endpoints).
				Err(err).
				Msg("failed to connect to etcd")
		}
		if err := eac.AddTo(etcd, a, unique); err != nil {
			log.Logger.Fatal().
				Err(err).
				Msg("failed to configure etcd announcer")
		}
	}

	gMultiServer.OnExit(func() error {
		if etcd != nil {
			_ = etcd.Close()
		}
		if zkconn != nil {
			zkconn.Close()
		}
		return nil
	})

	gMultiServer.OnExit(func() error {
		if err := a.Close(); err != nil {
			log.Logger.Error().
				Err(err).
				Msg("failed to close announcer")
			return err
		}
		return nil
	})

	return a
}

type namedListener struct {
	name     string
	listener net.Listener
}

// buildMembership describes this daemon for service discovery.  The first
// listener bound to a specific IP supplies the advertised address.
func buildMembership(d *Daemon, listeners []namedListener) *membership.Ticks {
	unique, _ := mainutil.UniqueID()

	record := &membership.Ticks{
		Ready:    true,
		Unique:   unique,
		Hostname: mainutil.Hostname(),
		Version:  mainutil.AppVersion(),
		Ports:    make(map[string]uint16, len(listeners)),
		Trackers: d.SortedNames(),
	}

	for _, nl := range listeners {
		tcpAddr, ok := nl.listener.Addr().(*net.TCPAddr)
		if !ok || tcpAddr.Port == 0 {
			continue
		}
		record.Ports[nl.name] = uint16(tcpAddr.Port)
		if record.IP == nil && !tcpAddr.IP.IsUnspecified() {
			record.IP = tcpAddr.IP
			record.Zone = tcpAddr.Zone
		}
	}

	if record.IP == nil && record.Hostname != "" {
		if ips, err := net.LookupIP(record.Hostname); err == nil && len(ips) != 0 {
			record.IP = ips[0]
		}
	}

	return record
}
