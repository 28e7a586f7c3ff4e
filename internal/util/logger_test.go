package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerParsesLevel(t *testing.T) {
	logger, err := NewLogger("debug", "")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug logger should enable debug level")
	}
}

func TestNewLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("chatty", "")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("unknown level should not enable debug")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("unknown level should fall back to info")
	}
}

func TestNewLoggerWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "lab.log")

	logger, err := NewLogger("info", logFile)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("rating run started")
	logger.Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "rating run started") {
		t.Fatalf("log file missing entry: %q", string(data))
	}
}
