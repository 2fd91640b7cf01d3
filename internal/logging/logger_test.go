package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"surgitrack/internal/config"
	"surgitrack/internal/logging"
	"surgitrack/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (func(), string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{Format: format, Level: level, OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithSessionID(context.Background(), "0123456789abcdef")
	ctx = services.WithStage(ctx, "upload")
	component := logging.NewComponentLogger(logger, "controller")
	return func() {
		logging.WithContext(ctx, component).Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String("job_id", "job-1"),
		)
		logging.WithContext(ctx, component).Debug("tick", logging.Int("tick", 2))
	}, logPath
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(data)
}

func TestConsoleLoggerRendersSubjectAndDetails(t *testing.T) {
	log, path := newFileLogger(t, "console", "info")
	log()
	content := readFile(t, path)

	for _, want := range []string{"INFO [controller] Session 01234567 (upload) – stage started", "    - Job ID: job-1"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in output:\n%s", want, content)
		}
	}
	if strings.Contains(content, "event_type") || strings.Contains(content, "Event Type") {
		t.Fatalf("event type should not be rendered at info level:\n%s", content)
	}
	if strings.Contains(content, "tick") {
		t.Fatalf("debug record leaked at info level:\n%s", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information at info level:\n%s", content)
	}
}

func TestConsoleLoggerDebugIncludesSource(t *testing.T) {
	log, path := newFileLogger(t, "console", "debug")
	log()
	content := readFile(t, path)
	if !strings.Contains(content, "DEBUG") || !strings.Contains(content, "    tick: 2") {
		t.Fatalf("expected debug record with raw keys:\n%s", content)
	}
	if !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information at debug level:\n%s", content)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	log, path := newFileLogger(t, "json", "info")
	log()
	line := strings.TrimSpace(readFile(t, path))
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("invalid json %q: %v", line, err)
	}
	for key, want := range map[string]string{
		"level":      "info",
		"msg":        "stage started",
		"component":  "controller",
		"session_id": "0123456789abcdef",
		"stage":      "upload",
		"job_id":     "job-1",
	} {
		if payload[key] != want {
			t.Fatalf("%s = %v, want %s", key, payload[key], want)
		}
	}
	ts, ok := payload["ts"].(string)
	if !ok {
		t.Fatal("expected ts field")
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z07:00", ts); err != nil {
		t.Fatalf("ts %q is not RFC3339 with milliseconds: %v", ts, err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Error("upload failed", logging.String("cause", "status 500"))

	content := readFile(t, cfg.LogFilePath())
	if !strings.Contains(content, `"msg":"upload failed"`) || !strings.Contains(content, `"cause":"status 500"`) {
		t.Fatalf("unexpected log file content: %s", content)
	}
}

func TestNopLogger(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 100) {
		t.Fatal("nop logger should be disabled")
	}
	logging.WithContext(context.Background(), nil).Info("ignored")
}
