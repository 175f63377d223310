// Package wsutil runs one side of a WebSocket connection carrying JSON
// messages, with PING/PONG keepalive and orderly CLOSE handling.
package wsutil

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPongTimeout  = 30 * time.Second
	defaultCloseTimeout = 1 * time.Second
	defaultReadLimit    = 1 << 20 // 1 MiB
)

// TextHandlerFunc is the type for an OnText handler.
type TextHandlerFunc func(context.Context, *Looper, string)

type looperOptions struct {
	writeTimeout time.Duration
	pingInterval time.Duration
	pongTimeout  time.Duration
	readLimit    int64
	onText       TextHandlerFunc
}

// LooperOption represents an option for constructing a Looper.
type LooperOption func(*looperOptions)

// WithWriteTimeout specifies the deadline for each outgoing message.
func WithWriteTimeout(timeout time.Duration) LooperOption {
	return func(o *looperOptions) {
		o.writeTimeout = timeout
	}
}

// WithPingInterval specifies the interval between automatic PING control
// messages.  Zero, the default, sends none; the peer's PINGs are always
// answered.
func WithPingInterval(interval time.Duration) LooperOption {
	return func(o *looperOptions) {
		o.pingInterval = interval
	}
}

// WithPongTimeout specifies how long the connection may go without receiving
// anything before it is abandoned.
func WithPongTimeout(timeout time.Duration) LooperOption {
	return func(o *looperOptions) {
		o.pongTimeout = timeout
	}
}

// WithReadLimit specifies the maximum number of bytes to read per message.
func WithReadLimit(limit int64) LooperOption {
	return func(o *looperOptions) {
		o.readLimit = limit
	}
}

// OnText specifies a handler for TEXT data messages.  It runs on the
// receiving goroutine.
func OnText(handler TextHandlerFunc) LooperOption {
	return func(o *looperOptions) {
		o.onText = handler
	}
}

// Looper owns a *websocket.Conn: it runs the receive loop and the PING
// timer, and serializes all writes.
type Looper struct {
	ctx    context.Context
	conn   *websocket.Conn
	logger zerolog.Logger

	writeTimeout time.Duration
	pingInterval time.Duration
	pongTimeout  time.Duration
	onText       TextHandlerFunc

	writeMu sync.Mutex

	closeOnce sync.Once
	closeCh   chan struct{}
	err       error

	wg sync.WaitGroup
}

// NewLooper takes ownership of conn and starts its goroutines.
func NewLooper(ctx context.Context, conn *websocket.Conn, opts ...LooperOption) *Looper {
	if ctx == nil {
		panic(errors.New("context.Context is nil"))
	}
	if conn == nil {
		panic(errors.New("*websocket.Conn is nil"))
	}

	o := looperOptions{
		writeTimeout: defaultWriteTimeout,
		pongTimeout:  defaultPongTimeout,
		readLimit:    defaultReadLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pingInterval > 0 && o.pongTimeout <= o.pingInterval {
		o.pongTimeout = 2 * o.pingInterval
	}

	looper := &Looper{
		ctx:          ctx,
		conn:         conn,
		logger:       *zerolog.Ctx(ctx),
		writeTimeout: o.writeTimeout,
		pingInterval: o.pingInterval,
		pongTimeout:  o.pongTimeout,
		onText:       o.onText,
		closeCh:      make(chan struct{}),
	}

	conn.SetReadLimit(o.readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(looper.pongTimeout))
	conn.SetPingHandler(looper.handlePing)
	conn.SetPongHandler(looper.handlePong)
	conn.SetCloseHandler(looper.handleClose)

	looper.wg.Add(1)
	go looper.recvThread()

	if looper.pingInterval > 0 {
		looper.wg.Add(1)
		go looper.pingThread()
	}

	return looper
}

// Done returns a channel that is closed once the connection has shut down.
func (looper *Looper) Done() <-chan struct{} {
	return looper.closeCh
}

// Wait blocks until the connection shuts down, then returns the error which
// caused it, or nil for a normal closure.
func (looper *Looper) Wait() error {
	looper.wg.Wait()
	return looper.Err()
}

// Err returns the error which shut down the connection, or nil if it is
// still open or was closed normally.
func (looper *Looper) Err() error {
	select {
	case <-looper.closeCh:
	default:
		return nil
	}
	if ce, ok := AsCloseError(looper.err); ok && ce.IsNormal() {
		return nil
	}
	return looper.err
}

// SendJSON sends v as a TEXT data message.
//
// It's safe to call this from any goroutine.
func (looper *Looper) SendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	looper.logger.Trace().
		Stringer("payload", textPayloadStringer(payload)).
		Int("len", len(payload)).
		Msg("SendJSON")

	looper.writeMu.Lock()
	defer looper.writeMu.Unlock()

	_ = looper.conn.SetWriteDeadline(time.Now().Add(looper.writeTimeout))
	err = looper.conn.WriteMessage(websocket.TextMessage, payload)
	if err != nil {
		looper.finish(err)
	}
	return err
}

// SendClose sends a CLOSE control message, waits briefly for the peer to
// answer it, and then shuts down the connection.
//
// It's safe to call this from any goroutine.
func (looper *Looper) SendClose(code uint16, text string) {
	ce := CloseError{Code: code, Text: text}
	looper.logger.Trace().
		Stringer("payload", binPayloadStringer(ce.AsBytes())).
		Err(ce).
		Msg("SendClose")

	deadline := time.Now().Add(looper.writeTimeout)
	err := looper.conn.WriteControl(websocket.CloseMessage, ce.AsBytes(), deadline)
	if err != nil {
		looper.finish(err)
		return
	}

	t := time.NewTimer(defaultCloseTimeout)
	select {
	case <-looper.closeCh:
		t.Stop()
	case <-t.C:
		looper.finish(ce)
	}
}

func (looper *Looper) finish(err error) {
	looper.closeOnce.Do(func() {
		looper.err = err
		close(looper.closeCh)
		_ = looper.conn.Close()
	})
}

func (looper *Looper) extendReadDeadline() {
	_ = looper.conn.SetReadDeadline(time.Now().Add(looper.pongTimeout))
}

func (looper *Looper) handlePing(appData string) error {
	looper.logger.Trace().
		Stringer("payload", textPayloadStringer(appData)).
		Msg("Recv PING")
	looper.extendReadDeadline()
	deadline := time.Now().Add(looper.writeTimeout)
	err := looper.conn.WriteControl(websocket.PongMessage, []byte(appData), deadline)
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (looper *Looper) handlePong(appData string) error {
	looper.logger.Trace().
		Stringer("payload", textPayloadStringer(appData)).
		Msg("Recv PONG")
	looper.extendReadDeadline()
	return nil
}

func (looper *Looper) handleClose(code int, text string) error {
	ce := CloseError{Code: uint16(code), Text: text}
	looper.logger.Trace().
		Err(ce).
		Msg("Recv CLOSE")
	deadline := time.Now().Add(looper.writeTimeout)
	_ = looper.conn.WriteControl(websocket.CloseMessage, ce.AsBytes(), deadline)
	return ce
}

func (looper *Looper) recvThread() {
	defer looper.wg.Done()

	for {
		messageType, payload, err := looper.conn.ReadMessage()
		if err != nil {
			looper.finish(err)
			return
		}
		looper.extendReadDeadline()

		switch messageType {
		case websocket.TextMessage:
			looper.logger.Trace().
				Stringer("payload", textPayloadStringer(payload)).
				Int("len", len(payload)).
				Msg("Recv TEXT")

			if !utf8.Valid(payload) {
				go looper.SendClose(websocket.CloseInvalidFramePayloadData, "text is not valid UTF-8")
				continue
			}
			if looper.onText != nil {
				looper.onText(looper.ctx, looper, string(payload))
			}

		default:
			looper.logger.Trace().
				Stringer("payload", binPayloadStringer(payload)).
				Int("len", len(payload)).
				Msg("Recv BINARY")
			go looper.SendClose(websocket.CloseUnsupportedData, "binary messages are not supported")
		}
	}
}

func (looper *Looper) pingThread() {
	defer looper.wg.Done()

	t := time.NewTicker(looper.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-looper.closeCh:
			return

		case <-t.C:
			looper.logger.Trace().Msg("SendPing")
			deadline := time.Now().Add(looper.writeTimeout)
			err := looper.conn.WriteControl(websocket.PingMessage, nil, deadline)
			if err != nil {
				looper.finish(err)
				return
			}
		}
	}
}

type textPayloadStringer []byte

func (p textPayloadStringer) String() string {
	var runeLen int
	runes := make([]rune, 0, 16)
	for _, ch := range string(p) {
		runeLen++
		if len(runes) < cap(runes) {
			runes = append(runes, ch)
		}
	}

	var byteLen int
	for _, ch := range runes {
		byteLen += utf8.RuneLen(ch)
	}

	truncated := (runeLen > len(runes))
	if truncated {
		byteLen += 3
	}

	var buf strings.Builder
	buf.Grow(byteLen)
	for _, ch := range runes {
		buf.WriteRune(ch)
	}
	if truncated {
		buf.WriteString("...")
	}
	return buf.String()
}

var _ fmt.Stringer = textPayloadStringer(nil)

type binPayloadStringer []byte

func (p binPayloadStringer) String() string {
	n := len(p)
	truncated := false
	if n > 8 {
		n = 8
		truncated = true
	}
	var buf strings.Builder
	buf.Grow(19)
	buf.WriteString(hex.EncodeToString(p[:n]))
	if truncated {
		buf.WriteString("...")
	}
	return buf.String()
}

var _ fmt.Stringer = binPayloadStringer(nil)
