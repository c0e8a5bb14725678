package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/twscan/pkg/config"
)

func jsonLogger(buf *bytes.Buffer) *Logger {
	return NewWithWriter(buf, &config.Config{Env: "test", LogLevel: "debug", LogFormat: "json"})
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, &config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}

			if logger.Level() != tt.wantLevel {
				t.Errorf("Expected level %v, got %v", tt.wantLevel, logger.Level())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" trace ", zerolog.DebugLevel},
		{"error", zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf)

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { logger.Debug("bars normalized") }, "bars normalized", "debug"},
		{"info", func() { logger.Info("scan finished") }, "scan finished", "info"},
		{"warnf", func() { logger.Warnf("skipped %d instruments", 2) }, "skipped 2 instruments", "warn"},
		{"error", func() { logger.Error("sink csv failed") }, "sink csv failed", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			if entry["level"] != tt.wantLevel {
				t.Errorf("Expected level %q, got %q", tt.wantLevel, entry["level"])
			}
			if entry["message"] != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, entry["message"])
			}
			if entry["service"] != "twscan" {
				t.Errorf("Expected service field, got %v", entry["service"])
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf)

	logger.WithStock("2330").
		WithFields(map[string]interface{}{
			"signal": "GREEN",
			"close":  912.5,
		}).
		Info("classified")

	entry := decode(t, &buf)
	if entry["stock_code"] != "2330" {
		t.Errorf("Expected stock_code to be 2330, got %v", entry["stock_code"])
	}
	if entry["signal"] != "GREEN" {
		t.Errorf("Expected signal GREEN, got %v", entry["signal"])
	}
	if entry["close"] != 912.5 {
		t.Errorf("Expected close 912.5, got %v", entry["close"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf)

	logger.WithError(errors.New("chart request timed out")).WithField("source", "yahoo").Warn("retrieval failed")

	entry := decode(t, &buf)
	if entry["error"] != "chart request timed out" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
	if entry["source"] != "yahoo" {
		t.Errorf("Expected source yahoo, got %v", entry["source"])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, &config.Config{Env: "test", LogLevel: "info", LogFormat: "console"})
	logger.Info("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Error("Expected console output, got JSON")
	}
}

func TestLevelIsPerLogger(t *testing.T) {
	var quiet, loud bytes.Buffer
	q := NewWithWriter(&quiet, &config.Config{LogLevel: "error", LogFormat: "json"})
	l := NewWithWriter(&loud, &config.Config{LogLevel: "debug", LogFormat: "json"})

	q.Info("dropped")
	l.Debug("kept")

	if quiet.Len() != 0 {
		t.Errorf("Expected error-level logger to drop info, got %s", quiet.String())
	}
	if !strings.Contains(loud.String(), "kept") {
		t.Errorf("Expected debug logger to write, got %q", loud.String())
	}
}

func TestRunAndModuleFields(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf).WithModule("scanner").WithRun("run-1").WithStock("2317").Warn("instrument skipped")

	entry := decode(t, &buf)
	for key, want := range map[string]string{FieldModule: "scanner", FieldRun: "run-1", FieldStock: "2317"} {
		if entry[key] != want {
			t.Errorf("Expected %s=%q, got %v", key, want, entry[key])
		}
	}
}

func TestNop(t *testing.T) {
	// must not panic or write anywhere
	Nop().WithStock("2330").WithError(errors.New("x")).Error("ignored")
}
