package mainutil

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	getopt "github.com/pborman/getopt/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/journald"
	"github.com/rs/zerolog/log"

	"github.com/chronos-tachyon/ticks/internal/misc"
	"github.com/chronos-tachyon/ticks/lib/ticks"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

var gLogger *RotatingLogWriter

var (
	flagVersion     bool
	flagDebug       bool
	flagTrace       bool
	flagLogStderr   bool
	flagLogJournald bool
	flagLogFile     string
)

// RegisterVersionFlag registers the -V/--version flag.
func RegisterVersionFlag() {
	getopt.FlagLong(&flagVersion, "version", 'V', "print version and exit")
}

// RegisterLoggingFlags registers the flags for controlling log output.
func RegisterLoggingFlags() {
	getopt.FlagLong(&flagDebug, "verbose", 'v', "enable debug logging")
	getopt.FlagLong(&flagTrace, "debug", 'd', "enable debug and trace logging")
	getopt.FlagLong(&flagLogStderr, "log-stderr", 'S', "log JSON to stderr")
	getopt.FlagLong(&flagLogJournald, "log-journald", 'J', "log to journald")
	getopt.FlagLong(&flagLogFile, "log-file", 'l', "log JSON to file")
}

// InitVersion processes the -V/--version flag.
func InitVersion() {
	if flagVersion {
		fmt.Println(AppVersion())
		os.Exit(0)
	}
}

// InitLogging processes the logging flags, sets up log.Logger, and hands a
// child logger to the ticks package.  Errors are reported to stderr and are
// fatal.
//
// The caller must ensure that DoneLogging gets called by the end of the
// program's lifecycle.
func InitLogging() {
	if err := checkLoggingFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldUnit = time.Second
	zerolog.DurationFieldInteger = false
	zerolog.SetGlobalLevel(LogLevel(flagDebug, flagTrace))

	switch {
	case flagLogStderr:
		// do nothing

	case flagLogJournald:
		log.Logger = log.Output(journald.NewJournalDWriter())

	case flagLogFile != "":
		var err error
		gLogger, err = NewRotatingLogWriter(flagLogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: failed to open log file for append: %q: %v\n", flagLogFile, err)
			os.Exit(1)
		}
		log.Logger = log.Output(gLogger)

	default:
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	ticks.SetLogger(log.Logger.With().Str("lib", "ticks").Logger())
}

// LogLevel returns the global level selected by the -v and -d flags.
func LogLevel(debug, trace bool) zerolog.Level {
	switch {
	case trace:
		return zerolog.TraceLevel
	case debug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func checkLoggingFlags() error {
	type pair struct {
		a, b     string
		conflict bool
	}

	pairs := [...]pair{
		{"--log-stderr", "--log-journald", flagLogStderr && flagLogJournald},
		{"--log-stderr", "--log-file", flagLogStderr && flagLogFile != ""},
		{"--log-journald", "--log-file", flagLogJournald && flagLogFile != ""},
	}
	for _, p := range pairs {
		if p.conflict {
			return fmt.Errorf("flags '%s' and '%s' are mutually exclusive", p.a, p.b)
		}
	}

	if flagLogFile != "" {
		abs, err := ticksutil.ExpandPath(flagLogFile)
		if err != nil {
			return err
		}
		flagLogFile = abs
	}
	return nil
}

// DoneLogging does end-of-program cleanup on the logging subsystem.
func DoneLogging() {
	if gLogger != nil {
		_ = gLogger.Close()
	}
}

// RotateLogs rotates the logfile, if that operation makes sense in the current
// logging configuration.
func RotateLogs(ctx context.Context) error {
	if gLogger != nil {
		if err := gLogger.Rotate(); err != nil {
			log.Logger.Error().
				Err(err).
				Msg("failed to rotate logs")
			return err
		}
	}
	return nil
}

// type RotatingLogWriter {{{

// RotatingLogWriter is an io.WriteCloser that can close and re-open its output
// file, for logrotate(8) and the like.
type RotatingLogWriter struct {
	fileName   string
	mu         sync.Mutex
	cv         *sync.Cond
	file       *os.File
	numWriters int
}

// NewRotatingLogWriter constructs a new RotatingLogWriter.
func NewRotatingLogWriter(fileName string) (*RotatingLogWriter, error) {
	file, err := openLogFile(fileName)
	if err != nil {
		return nil, err
	}

	w := &RotatingLogWriter{
		fileName: fileName,
		file:     file,
	}
	w.cv = sync.NewCond(&w.mu)
	return w, nil
}

// Write writes one log line.  Writes may proceed concurrently with each
// other, but not with Rotate or Close.
func (w *RotatingLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	file := w.file
	w.numWriters++
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.numWriters--
		if w.numWriters <= 0 {
			w.cv.Signal()
		}
		w.mu.Unlock()
	}()

	return file.Write(p)
}

// Close closes the logfile.
func (w *RotatingLogWriter) Close() error {
	w.mu.Lock()
	defer func() {
		w.cv.Signal()
		w.mu.Unlock()
	}()

	w.waitLocked()
	return syncAndClose(w.file)
}

// Rotate closes and re-opens the log file.
func (w *RotatingLogWriter) Rotate() error {
	newFile, err := openLogFile(w.fileName)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer func() {
		w.cv.Signal()
		w.mu.Unlock()
	}()

	w.waitLocked()
	oldFile := w.file
	w.file = newFile
	return syncAndClose(oldFile)
}

func (w *RotatingLogWriter) waitLocked() {
	for w.numWriters > 0 {
		w.cv.Wait()
	}
}

func openLogFile(fileName string) (*os.File, error) {
	return os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
}

func syncAndClose(file *os.File) error {
	var errs multierror.Error
	if err := file.Sync(); err != nil {
		errs.Errors = append(errs.Errors, err)
	}
	if err := file.Close(); err != nil {
		errs.Errors = append(errs.Errors, err)
	}
	return misc.ErrorOrNil(errs)
}

var _ io.WriteCloser = (*RotatingLogWriter)(nil)

// }}}
