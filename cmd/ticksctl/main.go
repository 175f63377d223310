// Command "ticksctl" is the admin CLI for "ticks".
//
// Usage:
//
//	ticksctl [<flags>] <cmd> [<args>...]
//
// Flags:
//
//	-V, --version        print version and exit
//	-s, --server=url     Base URL of the ticks HTTP server
//	     [default: "http://localhost:6801"]
//	-g, --grpc=addr      Address of the ticks gRPC health server
//	     [default: "localhost:6802"]
//	-f, --follow         for "logs", keep reading after end of file
//	-N, --no-color       for "logs", disable ANSI color
//	-J, --log-journald   log to journald
//	-l, --log-file=path  log JSON to file
//	-S, --log-stderr     log JSON to stderr
//	-v, --verbose        enable debug logging
//	-d, --debug          enable debug and trace logging
//
// Commands:
//
//	help                 list available commands
//	status [name]        print the rates of every tracker, or of one tracker
//	watch [count]        print stream frames until interrupted, or count frames
//	healthcheck [name]   check the health of the daemon, or of one tracker(*)
//	logs [file]          render a JSON log file (default stdin) for humans
//	example-config       print an example daemon config file
//
//	(*) The empty name "" is the daemon as a whole.  Every tracker is also
//	    a health subsystem, healthy once it has been initialized.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/chronos-tachyon/ticks/dist"
	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/lib/mainutil"
	"github.com/chronos-tachyon/ticks/lib/ticks"
)

const helpText = `ticksctl [<flags>] <cmd> [<arg>...]
Commands available:
	help
	status [<tracker>]
	watch [<count>]
	healthcheck [<tracker>]
	logs [<file>]
	example-config
`

var (
	flagServer  string = constants.SchemeHTTP + "://" + constants.DefaultHTTPAddress
	flagGRPC    string = constants.DefaultGRPCAddress
	flagFollow  bool
	flagNoColor bool
)

func init() {
	getopt.SetParameters("<cmd> [<arg>...]")

	mainutil.SetAppVersion(mainutil.TicksVersion())
	mainutil.RegisterVersionFlag()
	mainutil.RegisterLoggingFlags()

	getopt.FlagLong(&flagServer, "server", 's', "base URL of the HTTP status server")
	getopt.FlagLong(&flagGRPC, "grpc", 'g', "address of the gRPC health server")
	getopt.FlagLong(&flagFollow, "follow", 'f', "follow the log file in real time")
	getopt.FlagLong(&flagNoColor, "no-color", 'N', "disable ANSI color in rendered logs")
}

func main() {
	getopt.Parse()

	mainutil.InitVersion()

	mainutil.InitLogging()
	defer mainutil.DoneLogging()

	mainutil.InitContext()
	defer mainutil.CancelRootContext()
	ctx := mainutil.RootContext()

	var cmd string
	if getopt.NArgs() == 0 {
		cmd = "help"
	} else {
		cmd = getopt.Arg(0)
	}

	if cmd == "help" {
		printHelp(os.Stdout)
		os.Exit(0)
	}

	maxNArgs := 1
	switch cmd {
	case "status", "watch", "healthcheck", "logs":
		maxNArgs = 2
	}

	if getopt.NArgs() > maxNArgs {
		log.Logger.Fatal().
			Int("max", maxNArgs).
			Int("actual", getopt.NArgs()).
			Msg("wrong number of arguments")
	}

	var arg string
	if getopt.NArgs() > 1 {
		arg = getopt.Arg(1)
	}

	switch cmd {
	case "status":
		client := mustStatusClient()
		list, err := client.Status(ctx, arg)
		if err != nil {
			log.Logger.Fatal().
				Str("url", client.statusURL(arg)).
				Err(err).
				Msg("GET failed")
		}
		for _, nd := range list {
			logTracker(log.Logger.Info(), nd).Msg("status")
		}

	case "watch":
		var count uint64
		if arg != "" {
			var err error
			count, err = strconv.ParseUint(arg, 10, 64)
			if err != nil {
				log.Logger.Fatal().
					Str("input", arg).
					Err(err).
					Msg("invalid frame count")
			}
		}

		client := mustStatusClient()
		watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		watchCtx = log.Logger.WithContext(watchCtx)

		err := client.Watch(watchCtx, count, func(frame ticks.Frame) {
			for _, nd := range frame.Trackers {
				logTracker(log.Logger.Info(), nd).
					Uint64("seq", frame.Seq).
					Msg("frame")
			}
		})
		if err != nil {
			log.Logger.Fatal().
				Str("url", client.streamURL()).
				Err(err).
				Msg("stream failed")
		}

	case "healthcheck":
		healthCheck(ctx, arg)

	case "logs":
		f, err := openLogInput(arg)
		if err != nil {
			log.Logger.Fatal().
				Str("inputFile", arg).
				Err(err).
				Msg("failed to open input file")
		}
		defer func() {
			_ = f.Close()
		}()

		logsCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = colorizeLogs(logsCtx, f, os.Stdout, flagNoColor, flagFollow)
		if err != nil {
			log.Logger.Fatal().
				Str("inputFile", arg).
				Err(err).
				Msg("failed to read from input file")
		}
		return

	case "example-config":
		_, _ = os.Stdout.Write(dist.ExampleConfigJSON())
		return

	default:
		log.Logger.Fatal().
			Str("cmd", cmd).
			Msg("unknown command")
	}

	log.Logger.Info().Msg("OK")
}

func printHelp(w io.Writer) {
	_, _ = fmt.Fprint(w, helpText)
}

func mustStatusClient() *statusClient {
	client, err := newStatusClient(flagServer, nil)
	if err != nil {
		log.Logger.Fatal().
			Str("input", flagServer).
			Err(err).
			Msg("--server: failed to parse")
	}
	return client
}

func healthCheck(ctx context.Context, service string) {
	var grpcConfig mainutil.GRPCClientConfig
	err := grpcConfig.Parse(flagGRPC)
	if err != nil {
		log.Logger.Fatal().
			Str("input", flagGRPC).
			Err(err).
			Msg("--grpc: failed to parse")
	}

	cc, err := grpcConfig.Dial(ctx)
	if err != nil {
		log.Logger.Fatal().
			Interface("config", grpcConfig).
			Err(err).
			Msg("--grpc: failed to Dial")
	}
	if cc == nil {
		log.Logger.Fatal().
			Msg("--grpc: no address given")
	}
	defer func() {
		_ = cc.Close()
	}()

	health := grpc_health_v1.NewHealthClient(cc)
	req := &grpc_health_v1.HealthCheckRequest{
		Service: service,
	}
	resp, err := health.Check(ctx, req)
	if err != nil {
		log.Logger.Fatal().
			Str("rpcService", "grpc.health.v1.Health").
			Str("rpcMethod", "Check").
			Str("subsystem", service).
			Err(err).
			Msg("RPC failed")
	}

	raw, err := protojson.Marshal(resp)
	if err != nil {
		log.Logger.Fatal().
			Err(err).
			Msg("failed to marshal response")
	}
	fmt.Println(string(raw))

	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		log.Logger.Fatal().
			Str("subsystem", service).
			Str("status", resp.Status.String()).
			Msg("not serving")
	}
}

func logTracker(event *zerolog.Event, nd ticks.NamedData) *zerolog.Event {
	return event.
		Str("tracker", nd.Name).
		Uint8("channel", uint8(nd.Channel)).
		Bool("initialized", nd.Initialized).
		Uint32("count", nd.Count).
		Float64("instant", nd.InstantRate).
		Float64("rate1", nd.Rate1Period).
		Float64("rate5", nd.Rate5Periods).
		Float64("rate25", nd.Rate25Periods)
}
