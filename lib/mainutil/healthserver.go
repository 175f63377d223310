package mainutil

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type healthServer struct {
	grpc_health_v1.UnimplementedHealthServer

	m *MultiServer
}

func (s healthServer) Check(
	ctx context.Context,
	req *grpc_health_v1.HealthCheckRequest,
) (*grpc_health_v1.HealthCheckResponse, error) {
	log.Logger.Debug().
		Str("rpcService", "grpc.health.v1.Health").
		Str("rpcMethod", "Check").
		Str("subsystem", req.Service).
		Msg("RPC")

	isHealthy, found := s.m.GetHealth(req.Service)
	if !found {
		return nil, status.Errorf(codes.NotFound, "unknown subsystem %q", req.Service)
	}
	return makeResponse(isHealthy), nil
}

func (s healthServer) Watch(
	req *grpc_health_v1.HealthCheckRequest,
	ws grpc_health_v1.Health_WatchServer,
) error {
	log.Logger.Debug().
		Str("rpcService", "grpc.health.v1.Health").
		Str("rpcMethod", "Watch").
		Str("subsystem", req.Service).
		Msg("RPC")

	// Only the latest state matters, so a pending update is replaced rather
	// than queued behind.
	var mu sync.Mutex
	var once sync.Once
	updates := make(chan bool, 1)
	stopped := make(chan struct{})

	id := s.m.WatchHealth(func(subsystem string, isHealthy bool, isStopped bool) {
		if subsystem != req.Service {
			return
		}
		mu.Lock()
		select {
		case <-updates:
		default:
		}
		updates <- isHealthy
		mu.Unlock()
		if isStopped {
			once.Do(func() { close(stopped) })
		}
	})
	defer s.m.CancelWatchHealth(id)

	isHealthy, found := s.m.GetHealth(req.Service)
	if !found {
		return status.Errorf(codes.NotFound, "unknown subsystem %q", req.Service)
	}
	if err := ws.Send(makeResponse(isHealthy)); err != nil {
		return err
	}

	ctx := ws.Context()
	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()

		case isHealthy := <-updates:
			if err := ws.Send(makeResponse(isHealthy)); err != nil {
				return err
			}

		case <-stopped:
			select {
			case isHealthy := <-updates:
				return ws.Send(makeResponse(isHealthy))
			default:
				return nil
			}
		}
	}
}

func makeResponse(isHealthy bool) *grpc_health_v1.HealthCheckResponse {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if isHealthy {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	return &grpc_health_v1.HealthCheckResponse{Status: status}
}
