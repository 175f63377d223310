package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chronos-tachyon/ticks/lib/mainutil"
)

type contextKey int

const (
	connContextKey contextKey = iota
	requestContextKey
)

// type ConnContext {{{

type ConnContext struct {
	Context    context.Context
	Logger     zerolog.Logger
	Subsystem  string
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

// GetConnContext returns the ConnContext attached by MakeConnContextFunc.
// Connections that bypassed it get a placeholder logging to log.Logger.
func GetConnContext(ctx context.Context) *ConnContext {
	if cc, ok := ctx.Value(connContextKey).(*ConnContext); ok {
		return cc
	}
	return &ConnContext{
		Context: ctx,
		Logger:  log.Logger,
	}
}

func WithConnContext(ctx context.Context, cc *ConnContext) context.Context {
	if ctx == nil {
		panic(errors.New("ctx is nil"))
	}
	if cc == nil {
		panic(errors.New("cc is nil"))
	}
	return context.WithValue(ctx, connContextKey, cc)
}

// }}}

// type RequestContext {{{

type RequestContext struct {
	Context    context.Context
	Logger     zerolog.Logger
	Subsystem  string
	LocalAddr  net.Addr
	RemoteAddr net.Addr
	XID        xid.ID
	Metrics    *Metrics
	Request    *http.Request
	Writer     ResponseWriter
	StartTime  time.Time
	EndTime    time.Time
}

func GetRequestContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}

func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	if ctx == nil {
		panic(errors.New("ctx is nil"))
	}
	if rc == nil {
		panic(errors.New("rc is nil"))
	}
	return context.WithValue(ctx, requestContextKey, rc)
}

// }}}

func MakeBaseContextFunc() func(net.Listener) context.Context {
	return func(l net.Listener) context.Context {
		return mainutil.RootContext()
	}
}

func MakeConnContextFunc(name string) func(context.Context, net.Conn) context.Context {
	return func(ctx context.Context, c net.Conn) context.Context {
		cc := &ConnContext{
			Logger:     log.Logger.With().Str("subsystem", name).Logger(),
			Subsystem:  name,
			LocalAddr:  c.LocalAddr(),
			RemoteAddr: c.RemoteAddr(),
		}
		ctx = WithConnContext(ctx, cc)
		ctx = cc.Logger.WithContext(ctx)
		cc.Context = ctx
		return ctx
	}
}
