package mainutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestZapLoggerBridge(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bridge := ZapLoggerBridge{Logger: &logger}

	input := `{"level":"warn","time":1.5,"message":"lease expired","lease":"7f"}` + "\n"
	n, err := bridge.Write([]byte(input))
	if err != nil || n != len(input) {
		t.Fatalf("Write: expected (%d, nil), got (%d, %v)", len(input), n, err)
	}

	var actual map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &actual); err != nil {
		t.Fatalf("output is not JSON: %q: %v", buf.String(), err)
	}
	if actual["level"] != "warn" {
		t.Errorf("level: expected \"warn\", got %v", actual["level"])
	}
	if actual["message"] != "lease expired" {
		t.Errorf("message: expected \"lease expired\", got %v", actual["message"])
	}
	if actual["subsystem"] != "etcd" {
		t.Errorf("subsystem: expected \"etcd\", got %v", actual["subsystem"])
	}
	zapFields, ok := actual["zap"].(map[string]interface{})
	if !ok || zapFields["lease"] != "7f" {
		t.Errorf("zap: expected {\"lease\":\"7f\"}, got %v", actual["zap"])
	}
	if _, found := zapFields["time"]; found {
		t.Error("zap: expected time to be dropped")
	}
}

func TestZapLoggerBridge_BadInput(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bridge := ZapLoggerBridge{Logger: &logger}

	if _, err := bridge.Write([]byte("not json")); err != nil {
		t.Errorf("Write: unexpected error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("failed to decode")) {
		t.Errorf("expected a decode error to be logged, got %q", buf.String())
	}
}

func TestNewDummyZapConfig(t *testing.T) {
	logger, err := NewDummyZapConfig().Build()
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}
	logger.Info("hello", zap.String("k", "v"))
	_ = logger.Sync()

	if zapToZerologLevel(zapcore.DPanicLevel) != zerolog.PanicLevel {
		t.Error("DPanicLevel: expected PanicLevel")
	}
}

func TestLogLevel(t *testing.T) {
	type testRow struct {
		Debug  bool
		Trace  bool
		Expect zerolog.Level
	}

	testData := [...]testRow{
		{false, false, zerolog.InfoLevel},
		{true, false, zerolog.DebugLevel},
		{false, true, zerolog.TraceLevel},
		{true, true, zerolog.TraceLevel},
	}

	for index, row := range testData {
		if actual := LogLevel(row.Debug, row.Trace); actual != row.Expect {
			t.Errorf("[%d]: expected %v, got %v", index, row.Expect, actual)
		}
	}
}
