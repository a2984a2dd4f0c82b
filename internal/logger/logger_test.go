package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestParseLevel tests level parsing with the info fallback
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestParseFormat tests format parsing with the text fallback
func TestParseFormat(t *testing.T) {
	if got := ParseFormat("json"); got != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, want FormatJSON", got)
	}
	if got := ParseFormat("text"); got != FormatText {
		t.Errorf("ParseFormat(text) = %v, want FormatText", got)
	}
	if got := ParseFormat("yaml"); got != FormatText {
		t.Errorf("ParseFormat(yaml) = %v, want FormatText fallback", got)
	}
}

// TestSlogLoggerLevels tests level filtering through the writer override
func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewSlogLogger(Config{Level: LevelWarn, Writer: &buf})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	defer log.Shutdown()

	log.Debug("debug line")
	log.Info("info line")
	log.Warn("warn line")
	log.Error("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("output contains filtered lines:\n%s", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Errorf("output missing expected lines:\n%s", out)
	}
}

// TestSlogLoggerJSON tests the JSON encoding path
func TestSlogLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewSlogLogger(Config{Level: LevelInfo, Format: FormatJSON, Writer: &buf})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	defer log.Shutdown()

	log.Info("transfer finished", "files", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "transfer finished" {
		t.Errorf("msg = %v, want 'transfer finished'", entry["msg"])
	}
	if entry["files"] != float64(3) {
		t.Errorf("files = %v, want 3", entry["files"])
	}
}

// TestSlogLoggerWith tests attribute binding on child loggers
func TestSlogLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewSlogLogger(Config{Level: LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	defer log.Shutdown()

	child := log.With("component", "scanner")
	child.Info("scan complete")

	if !strings.Contains(buf.String(), "component=scanner") {
		t.Errorf("output missing bound attribute:\n%s", buf.String())
	}
	// child shutdown must not close the parent's writers
	if err := child.Shutdown(); err != nil {
		t.Errorf("child Shutdown() error = %v", err)
	}
}

// TestSlogLoggerFile tests the rotated-file output path
func TestSlogLoggerFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "mirror.log")

	var buf bytes.Buffer
	log, err := NewSlogLogger(Config{
		Level:  LevelInfo,
		Writer: &buf,
		File: FileConfig{
			Enabled:   true,
			Path:      path,
			MaxSizeMB: 1,
		},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}

	log.Info("written to both sinks")
	if err := log.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to both sinks") {
		t.Errorf("log file missing entry:\n%s", data)
	}
}

// TestGlobalLifecycle tests Init, Get, and Shutdown of the global logger
func TestGlobalLifecycle(t *testing.T) {
	// before Init, Get returns a safe null logger
	if _, ok := Get().(*NullLogger); !ok {
		t.Fatal("Get() before Init is not a NullLogger")
	}

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelInfo, Writer: &buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Shutdown()

	if err := Init(Config{Level: LevelInfo}); err == nil {
		t.Error("second Init() succeeded, want error")
	}

	Get().Info("global line")
	if !strings.Contains(buf.String(), "global line") {
		t.Errorf("global logger output missing:\n%s", buf.String())
	}

	if err := Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, ok := Get().(*NullLogger); !ok {
		t.Error("Get() after Shutdown is not a NullLogger")
	}
}
