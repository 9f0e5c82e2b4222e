package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetWeekKey(t *testing.T) {
	testTime := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	if got := getWeekKey(testTime); got != "2025-W41" {
		t.Errorf("Expected week key 2025-W41, got %s", got)
	}
}

func TestRotatingLoggerWritesWeeklyFile(t *testing.T) {
	tempDir := t.TempDir()
	rl := NewRotatingLogger(tempDir, 1, 0)

	if _, err := rl.Write([]byte("first line\n")); err != nil {
		t.Fatalf("Failed to write to log: %v", err)
	}

	expected := filepath.Join(tempDir, logFilePrefix+getWeekKey(time.Now())+".log")
	content, err := os.ReadFile(expected)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "first line") {
		t.Errorf("Log file does not contain the message: %s", content)
	}

	if err := rl.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}
}

func TestRotatingLoggerSizeLimit(t *testing.T) {
	tempDir := t.TempDir()
	rl := NewRotatingLogger(tempDir, 1, 32)
	defer rl.Close()

	for i := 0; i < 4; i++ {
		if _, err := rl.Write([]byte("0123456789abcdef\n")); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(tempDir, logFilePrefix+"*.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) < 2 {
		t.Errorf("Expected size rotation to create numbered files, got %v", matches)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	tempDir := t.TempDir()
	rl := NewRotatingLogger(tempDir, 1, 0)

	oldFile := filepath.Join(tempDir, logFilePrefix+"2020-W01.log")
	otherFile := filepath.Join(tempDir, "unrelated.log")
	for _, f := range []string{oldFile, otherFile} {
		if err := os.WriteFile(f, []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(-30 * 24 * time.Hour)
		if err := os.Chtimes(f, old, old); err != nil {
			t.Fatal(err)
		}
	}

	if err := rl.cleanupOldLogs(); err != nil {
		t.Fatalf("cleanupOldLogs failed: %v", err)
	}

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("Expected old log file to be removed")
	}
	if _, err := os.Stat(otherFile); err != nil {
		t.Error("Files without the log prefix must be kept")
	}
}

func TestInitLoggerWithOptions(t *testing.T) {
	tempDir := t.TempDir()
	InitLoggerWithOptions(Options{Dir: tempDir, Level: "debug", RetentionWeeks: 1, MaxFileSize: 1024 * 1024})
	t.Cleanup(func() {
		_ = Close()
		DefaultLoggingService = nil
	})

	With("run_id", "abc").Debug("debug message from test")

	expected := filepath.Join(tempDir, logFilePrefix+getWeekKey(time.Now())+".log")
	content, err := os.ReadFile(expected)
	if err != nil {
		t.Fatalf("Expected log file %s: %v", expected, err)
	}
	if !strings.Contains(string(content), `"run_id":"abc"`) {
		t.Errorf("Expected JSON record with run_id, got %s", content)
	}
}

func TestPackageFunctionsWithoutInit(t *testing.T) {
	saved := DefaultLoggingService
	DefaultLoggingService = nil
	defer func() { DefaultLoggingService = saved }()

	// Must not panic
	Info("info")
	Warn("warn")
	Error("error")
	Debug("debug")
	if Logger() == nil {
		t.Error("Logger() should never return nil")
	}
}
