package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chronos-tachyon/ticks/lib/ticks"
)

func newTestServer(t *testing.T, streamInterval time.Duration) (*httptest.Server, *Daemon, chan struct{}) {
	t.Helper()

	clock := ticks.NewManualClock(1000)
	d, _ := newTestDaemon(t, clock)
	if err := d.Init(); err != nil {
		t.Fatalf("Init: unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		d.Registry().Notify(0)
	}
	clock.Advance(200)
	d.Scheduler().Step()

	shutdownCh := make(chan struct{})
	m := NewMetrics("test")
	server := httptest.NewServer(RootHandler{
		Metrics: m,
		Next:    NewMux(d, m, streamInterval, shutdownCh),
	})
	t.Cleanup(server.Close)
	return server, d, shutdownCh
}

func TestStatusHandler(t *testing.T) {
	server, _, _ := newTestServer(t, time.Second)

	type testRow struct {
		Method       string
		Path         string
		ExpectStatus int
		ExpectAllow  string
		ExpectEmpty  bool
		ExpectNames  []string
	}

	testData := [...]testRow{
		{Method: http.MethodGet, Path: "/status", ExpectStatus: http.StatusOK, ExpectNames: []string{"wind", "rain"}},
		{Method: http.MethodGet, Path: "/status/rain", ExpectStatus: http.StatusOK, ExpectNames: []string{"rain"}},
		{Method: http.MethodHead, Path: "/status", ExpectStatus: http.StatusOK, ExpectEmpty: true},
		{Method: http.MethodGet, Path: "/status/snow", ExpectStatus: http.StatusNotFound},
		{Method: http.MethodGet, Path: "/status/", ExpectStatus: http.StatusNotFound},
		{Method: http.MethodGet, Path: "/elsewhere", ExpectStatus: http.StatusNotFound},
		{Method: http.MethodPost, Path: "/status", ExpectStatus: http.StatusMethodNotAllowed, ExpectAllow: "GET, HEAD, OPTIONS"},
		{Method: http.MethodOptions, Path: "/status", ExpectStatus: http.StatusNoContent, ExpectAllow: "GET, HEAD, OPTIONS", ExpectEmpty: true},
		{Method: http.MethodPost, Path: "/ws", ExpectStatus: http.StatusMethodNotAllowed, ExpectAllow: "GET"},
	}

	for index, row := range testData {
		req, err := http.NewRequest(row.Method, server.URL+row.Path, nil)
		if err != nil {
			t.Fatalf("[%d]: NewRequest: %v", index, err)
		}
		resp, err := server.Client().Do(req)
		if err != nil {
			t.Errorf("[%d]: %s %s: unexpected error: %v", index, row.Method, row.Path, err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			t.Errorf("[%d]: ReadAll: unexpected error: %v", index, err)
			continue
		}

		if resp.StatusCode != row.ExpectStatus {
			t.Errorf("[%d]: %s %s: expected status %d, got %d", index, row.Method, row.Path, row.ExpectStatus, resp.StatusCode)
		}
		if xid := resp.Header.Get(headerXID); xid == "" {
			t.Errorf("[%d]: expected %s header", index, headerXID)
		}
		if value := resp.Header.Get(headerXCTO); value != "nosniff" {
			t.Errorf("[%d]: expected %s: nosniff, got %q", index, headerXCTO, value)
		}
		if !strings.HasPrefix(resp.Header.Get(headerServer), "ticks/") {
			t.Errorf("[%d]: expected %s: ticks/..., got %q", index, headerServer, resp.Header.Get(headerServer))
		}
		if row.ExpectAllow != "" {
			if allow := resp.Header.Get(headerAllow); allow != row.ExpectAllow {
				t.Errorf("[%d]: expected %s %q, got %q", index, headerAllow, row.ExpectAllow, allow)
			}
		}
		if row.ExpectEmpty && len(body) != 0 {
			t.Errorf("[%d]: expected empty body, got %q", index, body)
		}
		if row.ExpectNames == nil {
			continue
		}

		var list []ticks.NamedData
		if strings.HasPrefix(row.Path, pathStatusPrefix) {
			var one ticks.NamedData
			err = json.Unmarshal(body, &one)
			list = append(list, one)
		} else {
			err = json.Unmarshal(body, &list)
		}
		if err != nil {
			t.Errorf("[%d]: json.Unmarshal: unexpected error: %v", index, err)
			continue
		}
		if len(list) != len(row.ExpectNames) {
			t.Errorf("[%d]: expected %d trackers, got %d", index, len(row.ExpectNames), len(list))
			continue
		}
		for j, name := range row.ExpectNames {
			if list[j].Name != name {
				t.Errorf("[%d/%d]: expected name %q, got %q", index, j, name, list[j].Name)
			}
			if !list[j].Initialized {
				t.Errorf("[%d/%d]: expected initialized tracker", index, j)
			}
		}
	}
}

func TestStatusHandler_Rates(t *testing.T) {
	server, _, _ := newTestServer(t, time.Second)

	resp, err := server.Client().Get(server.URL + "/status/wind")
	if err != nil {
		t.Fatalf("GET: unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get(headerContentType); ct != contentTypeJSON {
		t.Errorf("expected %s %q, got %q", headerContentType, contentTypeJSON, ct)
	}

	var nd ticks.NamedData
	if err := json.NewDecoder(resp.Body).Decode(&nd); err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}
	if nd.Count != 10 || nd.InstantRate != 50 || nd.Rate1Period != 50 {
		t.Errorf("expected count 10 at 50/s, got %+v", nd.Data)
	}
}

func TestRootHandler_Panic(t *testing.T) {
	server := httptest.NewServer(RootHandler{
		Next: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(errors.New("boom"))
		}),
	})
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET: unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}
	if body.Status != http.StatusInternalServerError {
		t.Errorf("expected body status 500, got %d", body.Status)
	}
}

func dialStream(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + pathStream
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: unexpected error: %v", err)
	}
	if resp.Header.Get(headerXID) == "" {
		t.Errorf("expected %s header on upgrade response", headerXID)
	}
	if actual := resp.Header.Get(headerXCTO); actual != "nosniff" {
		t.Errorf("expected %s: nosniff on upgrade response, got %q", headerXCTO, actual)
	}
	if actual := resp.Header.Get(headerServer); !strings.HasPrefix(actual, "ticks/") {
		t.Errorf("expected %s: ticks/* on upgrade response, got %q", headerServer, actual)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestStreamHandler(t *testing.T) {
	server, _, shutdownCh := newTestServer(t, 10*time.Millisecond)
	conn := dialStream(t, server)

	for i := uint64(1); i <= 3; i++ {
		var frame ticks.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("[%d]: ReadJSON: unexpected error: %v", i, err)
		}
		if frame.Seq != i {
			t.Errorf("[%d]: expected seq %d, got %d", i, i, frame.Seq)
		}
		if len(frame.Trackers) != 2 || frame.Trackers[0].Name != "wind" || frame.Trackers[1].Name != "rain" {
			t.Errorf("[%d]: expected trackers [wind rain], got %+v", i, frame.Trackers)
		}
	}

	close(shutdownCh)

	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
			t.Errorf("expected CLOSE 1001, got %v", err)
		}
		break
	}
}

func TestStreamHandler_ClientClose(t *testing.T) {
	server, _, _ := newTestServer(t, 10*time.Millisecond)
	conn := dialStream(t, server)

	var frame ticks.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON: unexpected error: %v", err)
	}
	if frame.Seq != 1 {
		t.Errorf("expected seq 1, got %d", frame.Seq)
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("WriteControl: unexpected error: %v", err)
	}

	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Errorf("expected CLOSE 1000 echo, got %v", err)
		}
		break
	}
}
