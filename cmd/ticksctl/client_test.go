package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chronos-tachyon/ticks/internal/wsutil"
	"github.com/chronos-tachyon/ticks/lib/ticks"
)

func TestNewStatusClient(t *testing.T) {
	type testRow struct {
		Input        string
		ExpectErr    bool
		ExpectStatus string
		ExpectStream string
	}

	testData := [...]testRow{
		{"localhost:6801", false, "http://localhost:6801/status", "ws://localhost:6801/ws"},
		{"http://example.com/", false, "http://example.com/status", "ws://example.com/ws"},
		{"https://example.com/ticks/", false, "https://example.com/ticks/status", "wss://example.com/ticks/ws"},
		{"ftp://example.com", true, "", ""},
		{"http://", true, "", ""},
	}

	for index, row := range testData {
		client, err := newStatusClient(row.Input, nil)
		if row.ExpectErr {
			if err == nil {
				t.Errorf("[%d]: expected error, got nil", index)
			}
			continue
		}
		if err != nil {
			t.Errorf("[%d]: unexpected error: %v", index, err)
			continue
		}
		if actual := client.statusURL(""); actual != row.ExpectStatus {
			t.Errorf("[%d]: statusURL: expected %q, got %q", index, row.ExpectStatus, actual)
		}
		if actual := client.streamURL(); actual != row.ExpectStream {
			t.Errorf("[%d]: streamURL: expected %q, got %q", index, row.ExpectStream, actual)
		}
	}
}

var fakeTrackers = []ticks.NamedData{
	{Name: "wind", Data: ticks.Data{Channel: 0, BasePeriodMS: 1000, Initialized: true, Count: 42, Rate1Period: 4.2}},
	{Name: "rain", Data: ticks.Data{Channel: 1, BasePeriodMS: 500, Initialized: true}},
}

func newFakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	var upgrader websocket.Upgrader
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, fakeTrackers)
	})
	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		for _, nd := range fakeTrackers {
			if r.URL.Path == "/status/"+nd.Name {
				writeJSON(w, http.StatusOK, nd)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, StatusError{Code: http.StatusNotFound, Text: "Not Found"})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		looper := wsutil.NewLooper(r.Context(), conn)
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for seq := uint64(1); ; seq++ {
			if err := looper.SendJSON(ticks.Frame{Seq: seq, Trackers: fakeTrackers}); err != nil {
				break
			}
			select {
			case <-looper.Done():
				_ = looper.Wait()
				return
			case <-ticker.C:
			}
		}
		_ = looper.Wait()
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestStatusClient_Status(t *testing.T) {
	server := newFakeDaemon(t)
	client, err := newStatusClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("newStatusClient: unexpected error: %v", err)
	}

	type testRow struct {
		Name        string
		ExpectCode  int
		ExpectNames []string
	}

	testData := [...]testRow{
		{"", 0, []string{"wind", "rain"}},
		{"wind", 0, []string{"wind"}},
		{"snow", http.StatusNotFound, nil},
	}

	for index, row := range testData {
		list, err := client.Status(context.Background(), row.Name)
		if row.ExpectCode != 0 {
			var statusErr StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != row.ExpectCode {
				t.Errorf("[%d]: expected StatusError %d, got %v", index, row.ExpectCode, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("[%d]: unexpected error: %v", index, err)
			continue
		}
		if len(list) != len(row.ExpectNames) {
			t.Errorf("[%d]: expected %d trackers, got %d", index, len(row.ExpectNames), len(list))
			continue
		}
		for j, name := range row.ExpectNames {
			if list[j].Name != name {
				t.Errorf("[%d/%d]: expected %q, got %q", index, j, name, list[j].Name)
			}
		}
	}

	list, _ := client.Status(context.Background(), "wind")
	if len(list) == 1 && (list[0].Count != 42 || list[0].Rate1Period != 4.2) {
		t.Errorf("wind: expected count 42 at 4.2/s, got %+v", list[0].Data)
	}
}

func TestStatusClient_Watch(t *testing.T) {
	server := newFakeDaemon(t)
	client, err := newStatusClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("newStatusClient: unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frames []ticks.Frame
	err = client.Watch(ctx, 3, func(frame ticks.Frame) {
		frames = append(frames, frame)
	})
	if err != nil {
		t.Errorf("Watch: unexpected error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for index, frame := range frames {
		if expect := uint64(index + 1); frame.Seq != expect {
			t.Errorf("[%d]: expected seq %d, got %d", index, expect, frame.Seq)
		}
		if len(frame.Trackers) != 2 {
			t.Errorf("[%d]: expected 2 trackers, got %d", index, len(frame.Trackers))
		}
	}
}

func TestStatusClient_WatchCancel(t *testing.T) {
	server := newFakeDaemon(t)
	client, err := newStatusClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("newStatusClient: unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var seen int
	err = client.Watch(ctx, 0, func(frame ticks.Frame) {
		seen++
		if seen == 2 {
			cancel()
		}
	})
	if err != nil {
		t.Errorf("Watch: unexpected error: %v", err)
	}
	if seen < 2 {
		t.Errorf("expected at least 2 frames, got %d", seen)
	}
}
