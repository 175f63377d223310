package main

import (
	"bufio"
	"net"
	"net/http"
)

// type ResponseWriter {{{

type ResponseWriter interface {
	http.ResponseWriter
	Unwrap() http.ResponseWriter
	Status() int
	BytesWritten() int64
	WroteHeader() bool
}

// type basicWriter {{{

type basicWriter struct {
	next        http.ResponseWriter
	wroteHeader bool
	status      int
	bytes       int64
}

func (bw *basicWriter) Header() http.Header {
	return bw.next.Header()
}

func (bw *basicWriter) WriteHeader(status int) {
	if !bw.wroteHeader {
		bw.status = status
		bw.wroteHeader = true
		bw.next.WriteHeader(status)
	}
}

func (bw *basicWriter) Write(buf []byte) (int, error) {
	bw.WriteHeader(http.StatusOK)
	n, err := bw.next.Write(buf)
	bw.bytes += int64(n)
	return n, err
}

func (bw *basicWriter) Unwrap() http.ResponseWriter {
	return bw.next
}

func (bw *basicWriter) Status() int {
	return bw.status
}

func (bw *basicWriter) BytesWritten() int64 {
	return bw.bytes
}

func (bw *basicWriter) WroteHeader() bool {
	return bw.wroteHeader
}

var (
	_ http.ResponseWriter = (*basicWriter)(nil)
	_ ResponseWriter      = (*basicWriter)(nil)
)

// }}}

// type flushWriter {{{

type flushWriter struct {
	basicWriter
}

func (fw *flushWriter) Flush() {
	fw.basicWriter.WriteHeader(http.StatusOK)
	fw.basicWriter.next.(http.Flusher).Flush()
}

var (
	_ http.ResponseWriter = (*flushWriter)(nil)
	_ http.Flusher        = (*flushWriter)(nil)
	_ ResponseWriter      = (*flushWriter)(nil)
)

// }}}

// type hijackWriter {{{

// hijackWriter is what the WebSocket upgrader sees.  A successful Hijack is
// recorded as 101 Switching Protocols.
type hijackWriter struct {
	basicWriter
}

func (hw *hijackWriter) Flush() {
	hw.basicWriter.WriteHeader(http.StatusOK)
	hw.basicWriter.next.(http.Flusher).Flush()
}

func (hw *hijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := hw.basicWriter.next.(http.Hijacker).Hijack()
	if err == nil && !hw.wroteHeader {
		hw.status = http.StatusSwitchingProtocols
		hw.wroteHeader = true
	}
	return conn, rw, err
}

var (
	_ http.ResponseWriter = (*hijackWriter)(nil)
	_ http.Flusher        = (*hijackWriter)(nil)
	_ http.Hijacker       = (*hijackWriter)(nil)
	_ ResponseWriter      = (*hijackWriter)(nil)
)

// }}}

// }}}

func WrapWriter(w http.ResponseWriter) ResponseWriter {
	type hijackInterface interface {
		http.ResponseWriter
		http.Flusher
		http.Hijacker
	}

	if _, ok := w.(hijackInterface); ok {
		return &hijackWriter{basicWriter{next: w}}
	}

	type flushInterface interface {
		http.ResponseWriter
		http.Flusher
	}

	if _, ok := w.(flushInterface); ok {
		return &flushWriter{basicWriter{next: w}}
	}

	return &basicWriter{next: w}
}
