package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/wsutil"
	"github.com/chronos-tachyon/ticks/lib/mainutil"
	"github.com/chronos-tachyon/ticks/lib/ticks"
)

const streamPingInterval = 15 * time.Second

type errorBody struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// type RootHandler {{{

type RootHandler struct {
	Metrics *Metrics
	Next    http.Handler
}

func (h RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := xid.New()
	idStr := id.String()
	r.Header.Set(headerXID, idStr)
	w.Header().Set(headerXID, idStr)
	w.Header().Set(headerServer, "ticks/"+mainutil.AppVersion())
	w.Header().Set(headerXCTO, "nosniff")

	ctx := r.Context()
	cc := GetConnContext(ctx)

	c := cc.Logger.With()
	c = c.Str("xid", idStr)
	c = c.Str("ip", addrWithNoPort(cc.RemoteAddr))
	c = c.Str("method", r.Method)
	c = c.Str("url", r.URL.String())
	if value := r.Header.Get(headerUserAgent); value != "" {
		c = c.Str("userAgent", value)
	}

	rc := &RequestContext{
		Logger:     c.Logger(),
		Subsystem:  cc.Subsystem,
		LocalAddr:  cc.LocalAddr,
		RemoteAddr: cc.RemoteAddr,
		XID:        id,
		Metrics:    h.Metrics,
		Writer:     WrapWriter(w),
	}
	ctx = WithRequestContext(ctx, rc)
	ctx = rc.Logger.WithContext(ctx)
	ctx = hlog.CtxWithID(ctx, id)
	r = r.WithContext(ctx)
	rc.Request = r
	rc.Context = ctx

	rc.Logger.Debug().
		Msg("start request")
	rc.StartTime = time.Now()
	if rc.Metrics != nil {
		rc.Metrics.RequestCountByMethod.WithLabelValues(simplifyHTTPMethod(r.Method)).Inc()
	}

	defer func() {
		rc.EndTime = time.Now()

		panicValue := recover()
		if panicValue != nil {
			if !rc.Writer.WroteHeader() {
				writeError(rc.Writer, http.StatusInternalServerError)
			}
			if rc.Metrics != nil {
				rc.Metrics.PanicCount.Inc()
			}
		}

		elapsed := rc.EndTime.Sub(rc.StartTime)
		if rc.Metrics != nil {
			rc.Metrics.ResponseCountByCode.WithLabelValues(simplifyHTTPStatusCode(rc.Writer.Status())).Inc()
			rc.Metrics.ResponseSize.Observe(float64(rc.Writer.BytesWritten()))
			rc.Metrics.ResponseDuration.Observe(elapsed.Seconds())
		}

		var event *zerolog.Event
		if panicValue != nil {
			event = rc.Logger.Error()
			switch x := panicValue.(type) {
			case error:
				event = event.AnErr("panic", x)
			case string:
				event = event.Str("panic", x)
			default:
				event = event.Interface("panic", x)
			}
		} else if rc.Subsystem == constants.SubsystemProm {
			event = rc.Logger.Debug()
		} else {
			event = rc.Logger.Info()
		}
		event = event.Dur("elapsed", elapsed)
		event = event.Int("status", rc.Writer.Status())
		if contentType := rc.Writer.Header().Get(headerContentType); contentType != "" {
			event = event.Str("contentType", contentType)
		}
		event = event.Int64("bytesWritten", rc.Writer.BytesWritten())
		event.Msg("end request")
	}()

	h.Next.ServeHTTP(rc.Writer, rc.Request)
}

var _ http.Handler = RootHandler{}

// }}}

// type StatusHandler {{{

// StatusHandler serves GET /status (every tracker) and GET /status/{name}
// (one tracker).
type StatusHandler struct {
	Daemon *Daemon
}

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !checkMethod(w, r) {
		return
	}

	switch {
	case r.URL.Path == pathStatus:
		writeJSON(w, r, http.StatusOK, h.Daemon.Status())

	case strings.HasPrefix(r.URL.Path, pathStatusPrefix):
		name := strings.TrimPrefix(r.URL.Path, pathStatusPrefix)
		data, err := h.Daemon.StatusOf(name)
		if err != nil {
			writeError(w, http.StatusNotFound)
			return
		}
		writeJSON(w, r, http.StatusOK, data)

	default:
		writeError(w, http.StatusNotFound)
	}
}

var _ http.Handler = StatusHandler{}

// }}}

// type StreamHandler {{{

// StreamHandler upgrades GET /ws to a WebSocket and sends one ticks.Frame
// per Interval until the client goes away or Shutdown is closed.
type StreamHandler struct {
	Daemon   *Daemon
	Metrics  *Metrics
	Interval time.Duration
	Shutdown <-chan struct{}
	Upgrader websocket.Upgrader
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set(headerAllow, http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.Upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		// Upgrade has already written the error response.
		zerolog.Ctx(r.Context()).Debug().
			Err(err).
			Msg("WebSocket upgrade failed")
		return
	}

	if h.Metrics != nil {
		h.Metrics.StreamClients.Inc()
		defer h.Metrics.StreamClients.Dec()
	}

	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	looper := wsutil.NewLooper(ctx, conn, wsutil.WithPingInterval(streamPingInterval))

	interval := h.Interval
	if interval <= 0 {
		interval = constants.DefaultStreamInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	send := func() bool {
		frame := ticks.Frame{
			Seq:      seq + 1,
			Trackers: h.Daemon.Status(),
		}
		if err := looper.SendJSON(frame); err != nil {
			return false
		}
		seq = frame.Seq
		if h.Metrics != nil {
			h.Metrics.StreamFrames.Inc()
		}
		return true
	}

	logger.Debug().Msg("stream opened")

	ok := send()
	for ok {
		select {
		case <-h.Shutdown:
			looper.SendClose(websocket.CloseGoingAway, "server shutting down")
			ok = false

		case <-looper.Done():
			ok = false

		case <-ticker.C:
			ok = send()
		}
	}

	err = looper.Wait()
	logger.Debug().
		Uint64("frames", seq).
		AnErr("closeErr", err).
		Msg("stream closed")
}

var _ http.Handler = (*StreamHandler)(nil)

// }}}

// NewMux routes the daemon's HTTP endpoints.  Open streams are closed when
// shutdown is closed.
func NewMux(d *Daemon, m *Metrics, streamInterval time.Duration, shutdown <-chan struct{}) *http.ServeMux {
	mux := http.NewServeMux()
	status := StatusHandler{Daemon: d}
	mux.Handle(pathStatus, status)
	mux.Handle(pathStatusPrefix, status)
	mux.Handle(pathStream, &StreamHandler{
		Daemon:   d,
		Metrics:  m,
		Interval: streamInterval,
		Shutdown: shutdown,
	})
	return mux
}

func checkMethod(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return true
	case http.MethodOptions:
		w.Header().Set(headerAllow, "GET, HEAD, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return false
	default:
		w.Header().Set(headerAllow, "GET, HEAD, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed)
		return false
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	raw = append(raw, '\n')

	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int) {
	raw, _ := json.Marshal(errorBody{Status: status, Error: http.StatusText(status)})
	raw = append(raw, '\n')
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
