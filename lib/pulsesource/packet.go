package pulsesource

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Packet counts one pulse per datagram received on a UDP or unixgram socket.
// The datagram contents are ignored.
type Packet struct {
	network string
	address string
	conn    net.PacketConn

	mu     sync.Mutex
	closed bool
}

// NewPacket opens a datagram socket listening on the given address.
func NewPacket(network, address string) (*Packet, error) {
	if network == "unixgram" {
		if err := os.Remove(address); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	conn, err := net.ListenPacket(network, address)
	if err != nil {
		return nil, err
	}

	return &Packet{
		network: network,
		address: address,
		conn:    conn,
	}, nil
}

// Addr returns the local address of the socket.
func (src *Packet) Addr() net.Addr {
	return src.conn.LocalAddr()
}

// Run fulfills Source.
func (src *Packet) Run(ctx context.Context, notify func()) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("network", src.network).
		Stringer("addr", src.Addr()).
		Msg("packet source running")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = src.Close()
		case <-done:
		}
	}()

	var buf [512]byte
	for {
		_, _, err := src.conn.ReadFrom(buf[:])
		if err != nil {
			if src.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		notify()
	}
}

// Close fulfills Source.
func (src *Packet) Close() error {
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.closed {
		return fs.ErrClosed
	}
	src.closed = true
	err := src.conn.Close()
	if src.network == "unixgram" {
		_ = os.Remove(src.address)
	}
	return err
}

func (src *Packet) isClosed() bool {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.closed
}

var _ Source = (*Packet)(nil)
