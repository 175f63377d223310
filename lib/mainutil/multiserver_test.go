package mainutil

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type healthEvent struct {
	Name    string
	Healthy bool
	Stopped bool
}

func TestMultiServer_Health(t *testing.T) {
	var m MultiServer

	var mu sync.Mutex
	var events []healthEvent
	id := m.WatchHealth(func(name string, isHealthy bool, isStopped bool) {
		mu.Lock()
		events = append(events, healthEvent{name, isHealthy, isStopped})
		mu.Unlock()
	})

	if _, found := m.GetHealth("anemometer"); found {
		t.Error("GetHealth before SetHealth: expected not found")
	}

	m.SetHealth("anemometer", false)
	m.SetHealth("anemometer", true)
	m.SetHealth("anemometer", true)
	m.SetHealth("", true)

	if isHealthy, found := m.GetHealth("anemometer"); !found || !isHealthy {
		t.Errorf("GetHealth: expected (true, true), got (%v, %v)", isHealthy, found)
	}

	expect := []healthEvent{
		{"anemometer", false, false},
		{"anemometer", true, false},
		{"", true, false},
	}
	mu.Lock()
	checkEvents(t, "after SetHealth", events, expect)
	events = nil
	mu.Unlock()

	m.StopHealth()
	expect = []healthEvent{
		{"", false, true},
		{"anemometer", false, true},
	}
	mu.Lock()
	checkEvents(t, "after StopHealth", events, expect)
	events = nil
	mu.Unlock()

	m.SetHealth("anemometer", true)
	if isHealthy, _ := m.GetHealth("anemometer"); isHealthy {
		t.Error("SetHealth after StopHealth: expected no effect")
	}

	m.CancelWatchHealth(id)

	names := m.HealthSubsystems()
	if len(names) != 2 || names[0] != "" || names[1] != "anemometer" {
		t.Errorf("HealthSubsystems: got %q", names)
	}
}

func TestMultiServer_CancelWatchHealth(t *testing.T) {
	var m MultiServer
	calls := 0
	id := m.WatchHealth(func(string, bool, bool) { calls++ })
	m.SetHealth("a", true)
	m.CancelWatchHealth(id)
	m.SetHealth("a", false)
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func checkEvents(t *testing.T, label string, actual, expect []healthEvent) {
	t.Helper()
	if len(actual) != len(expect) {
		t.Errorf("%s: expected %d events, got %d: %v", label, len(expect), len(actual), actual)
		return
	}
	for index := range expect {
		if actual[index] != expect[index] {
			t.Errorf("%s: [%d]: expected %+v, got %+v", label, index, expect[index], actual[index])
		}
	}
}

func TestHealthServer_Check(t *testing.T) {
	var m MultiServer
	m.SetHealth("", true)
	m.SetHealth("anemometer", false)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer{m: &m})
	go func() { _ = srv.Serve(l) }()
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cc, err := grpc.DialContext(ctx, l.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = cc.Close() }()

	client := grpc_health_v1.NewHealthClient(cc)

	type testRow struct {
		Service string
		Expect  grpc_health_v1.HealthCheckResponse_ServingStatus
		Code    codes.Code
	}

	testData := [...]testRow{
		{"", grpc_health_v1.HealthCheckResponse_SERVING, codes.OK},
		{"anemometer", grpc_health_v1.HealthCheckResponse_NOT_SERVING, codes.OK},
		{"bogus", 0, codes.NotFound},
	}

	for index, row := range testData {
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: row.Service})
		if code := status.Code(err); code != row.Code {
			t.Errorf("[%d]: %q: expected code %v, got %v", index, row.Service, row.Code, code)
			continue
		}
		if err == nil && resp.Status != row.Expect {
			t.Errorf("[%d]: %q: expected %v, got %v", index, row.Service, row.Expect, resp.Status)
		}
	}

	stream, err := client.Watch(ctx, &grpc_health_v1.HealthCheckRequest{Service: "anemometer"})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	resp, err := stream.Recv()
	if err != nil || resp.Status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("Watch: first response: %v, %v", resp, err)
	}

	// The watcher is registered before the first response is sent.
	m.SetHealth("anemometer", true)
	resp, err = stream.Recv()
	if err != nil || resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("Watch: second response: %v, %v", resp, err)
	}
}
