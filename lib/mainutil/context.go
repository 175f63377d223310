package mainutil

import (
	"context"
)

var (
	gRootContext context.Context
	gRootCancel  context.CancelFunc
)

// InitContext creates the root context.  Call it once, early in main().
func InitContext() {
	gRootContext = context.Background()
	gRootContext, gRootCancel = context.WithCancel(gRootContext)
}

// RootContext returns the root context created by InitContext.
func RootContext() context.Context {
	return gRootContext
}

// CancelRootContext cancels the root context, stopping everything derived
// from it.
func CancelRootContext() {
	gRootCancel()
}
