//go:build linux
// +build linux

package pulsesource

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/chronos-tachyon/ticks/internal/enums"
)

// gpioPollMillis bounds how long Run blocks in poll(2) before it rechecks for
// cancellation.
const gpioPollMillis = 100

// GPIO counts edges on a Linux sysfs GPIO line, e.g. /sys/class/gpio/gpio17.
// The line must already be exported and configured as an input.
//
// The kernel signals an edge by raising POLLPRI on the "value" attribute;
// each wakeup is one pulse.
type GPIO struct {
	path string
	edge enums.EdgeType

	mu      sync.Mutex
	fd      int
	running bool
	closed  bool
}

// NewGPIO opens the GPIO line at path.  If edge is not UndefinedEdgeType, it
// is written to the line's "edge" attribute first.
func NewGPIO(path string, edge enums.EdgeType) (*GPIO, error) {
	if edge != enums.UndefinedEdgeType {
		edgePath := filepath.Join(path, "edge")
		if err := os.WriteFile(edgePath, []byte(edge.String()), 0); err != nil {
			return nil, GPIOError{Op: "write", Path: edgePath, Err: err}
		}
	}

	valuePath := filepath.Join(path, "value")
	fd, err := unix.Open(valuePath, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, GPIOError{Op: "open", Path: valuePath, Err: err}
	}

	return &GPIO{path: path, edge: edge, fd: fd}, nil
}

// Run fulfills Source.
func (src *GPIO) Run(ctx context.Context, notify func()) error {
	src.mu.Lock()
	if src.closed {
		src.mu.Unlock()
		return fs.ErrClosed
	}
	src.running = true
	fd := src.fd
	src.mu.Unlock()

	defer func() {
		src.mu.Lock()
		src.running = false
		if src.closed {
			_ = unix.Close(fd)
		}
		src.mu.Unlock()
	}()

	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("path", src.path).
		Stringer("edge", src.edge).
		Msg("gpio source running")

	// A read is required to arm the first edge notification.
	var buf [8]byte
	if _, err := unix.Pread(fd, buf[:], 0); err != nil {
		return GPIOError{Op: "read", Path: src.path, Err: err}
	}

	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLPRI | unix.POLLERR}}
	for {
		if ctx.Err() != nil || src.isClosed() {
			return nil
		}

		pfd[0].Revents = 0
		n, err := unix.Poll(pfd, gpioPollMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return GPIOError{Op: "poll", Path: src.path, Err: err}
		}
		if n == 0 {
			continue
		}

		if pfd[0].Revents&unix.POLLNVAL != 0 {
			return GPIOError{Op: "poll", Path: src.path, Err: unix.EBADF}
		}

		if pfd[0].Revents&unix.POLLPRI != 0 {
			if _, err := unix.Pread(fd, buf[:], 0); err != nil {
				return GPIOError{Op: "read", Path: src.path, Err: err}
			}
			notify()
		}
	}
}

// Close fulfills Source.
func (src *GPIO) Close() error {
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.closed {
		return fs.ErrClosed
	}
	src.closed = true
	if !src.running {
		return unix.Close(src.fd)
	}
	return nil
}

func (src *GPIO) isClosed() bool {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.closed
}

var _ Source = (*GPIO)(nil)
