//go:build !linux
// +build !linux

package pulsesource

import (
	"context"
	"io/fs"

	"github.com/chronos-tachyon/ticks/internal/enums"
)

// GPIO is only available on Linux.
type GPIO struct{}

// NewGPIO always fails on this platform.
func NewGPIO(path string, edge enums.EdgeType) (*GPIO, error) {
	return nil, UnsupportedError{Type: enums.GPIOSourceType}
}

// Run fulfills Source.
func (src *GPIO) Run(ctx context.Context, notify func()) error {
	return UnsupportedError{Type: enums.GPIOSourceType}
}

// Close fulfills Source.
func (src *GPIO) Close() error {
	return fs.ErrClosed
}

var _ Source = (*GPIO)(nil)
