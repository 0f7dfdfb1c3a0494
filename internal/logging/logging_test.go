package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tracker.log")
	logger, err := New(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Infow("sweep finished", "spawned", 2)
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "sweep finished") {
		t.Errorf("expected log line in file, got %q", data)
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_NopWithoutOutputs(t *testing.T) {
	logger, err := New(Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("discarded")
}
