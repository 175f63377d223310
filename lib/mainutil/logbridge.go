package mainutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapSinkScheme is the URL scheme under which ZapLoggerBridge is registered.
const zapSinkScheme = "zerolog"

var unixZero = time.Unix(0, 0)

// type PromLoggerBridge {{{

// PromLoggerBridge is a promhttp.Logger that forwards to zerolog.
type PromLoggerBridge struct{}

// Println fulfills promhttp.Logger.
func (PromLoggerBridge) Println(v ...interface{}) {
	log.Logger.Error().
		Str("subsystem", "prom").
		Msg(fmt.Sprint(v...))
}

var _ promhttp.Logger = PromLoggerBridge{}

// }}}

// type ZKLoggerBridge {{{

// ZKLoggerBridge is a zk.Logger that forwards to zerolog.
type ZKLoggerBridge struct{}

// Printf fulfills zk.Logger.
func (ZKLoggerBridge) Printf(format string, args ...interface{}) {
	log.Logger.Debug().
		Str("subsystem", "zookeeper").
		Msgf(format, args...)
}

var _ zk.Logger = ZKLoggerBridge{}

// }}}

// type ZapLoggerBridge {{{

// ZapLoggerBridge is a zap.Sink that re-emits each JSON-encoded zap entry on
// a zerolog.Logger.  The zero value writes to log.Logger.
type ZapLoggerBridge struct {
	Logger *zerolog.Logger
}

// Write fulfills zap.Sink.
func (b ZapLoggerBridge) Write(p []byte) (int, error) {
	logger := &log.Logger
	if b.Logger != nil {
		logger = b.Logger
	}

	var data map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	if err := d.Decode(&data); err != nil {
		logger.Error().Err(err).Msg("ZapLoggerBridge: failed to decode entry")
		return len(p), nil
	}

	e := logger.Log()
	if levelStr, ok := data[zerolog.LevelFieldName].(string); ok {
		delete(data, zerolog.LevelFieldName)
		if level, err := zerolog.ParseLevel(levelStr); err == nil {
			e = logger.WithLevel(level)
		}
	}

	message, hasMessage := data[zerolog.MessageFieldName].(string)
	delete(data, zerolog.MessageFieldName)
	delete(data, zerolog.TimestampFieldName)

	e = e.Str("subsystem", "etcd").Interface("zap", data)
	if hasMessage {
		e.Msg(message)
	} else {
		e.Send()
	}
	return len(p), nil
}

// Sync fulfills zap.Sink.
func (ZapLoggerBridge) Sync() error {
	return nil
}

// Close fulfills zap.Sink.
func (ZapLoggerBridge) Close() error {
	return nil
}

var _ zap.Sink = ZapLoggerBridge{}

// }}}

// NewDummyZapConfig returns a *zap.Config whose output is forwarded to
// zerolog through ZapLoggerBridge.
func NewDummyZapConfig() *zap.Config {
	return &zap.Config{
		Level:    zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     zerolog.MessageFieldName,
			LevelKey:       zerolog.LevelFieldName,
			TimeKey:        zerolog.TimestampFieldName,
			NameKey:        "name",
			CallerKey:      zerolog.CallerFieldName,
			FunctionKey:    "function",
			StacktraceKey:  "stackTrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeZapLevel,
			EncodeTime:     encodeZapTime,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		},
		OutputPaths:      []string{zapSinkScheme + ":///"},
		ErrorOutputPaths: []string{zapSinkScheme + ":///"},
	}
}

func encodeZapLevel(l zapcore.Level, out zapcore.PrimitiveArrayEncoder) {
	out.AppendString(zapToZerologLevel(l).String())
}

func encodeZapTime(t time.Time, out zapcore.PrimitiveArrayEncoder) {
	out.AppendFloat64(t.Sub(unixZero).Seconds())
}

func zapToZerologLevel(l zapcore.Level) zerolog.Level {
	switch l {
	case zapcore.DebugLevel:
		return zerolog.DebugLevel
	case zapcore.InfoLevel:
		return zerolog.InfoLevel
	case zapcore.WarnLevel:
		return zerolog.WarnLevel
	case zapcore.ErrorLevel:
		return zerolog.ErrorLevel
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		return zerolog.PanicLevel
	case zapcore.FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.NoLevel
	}
}

func init() {
	_ = zap.RegisterSink(zapSinkScheme, func(u *url.URL) (zap.Sink, error) {
		return ZapLoggerBridge{}, nil
	})

	zaplogger, err := NewDummyZapConfig().Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(zaplogger)
}
