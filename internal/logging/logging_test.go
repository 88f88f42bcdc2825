package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/saltyorg/taskd/internal/config"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  zerolog.Level
	}{
		{0, zerolog.InfoLevel},
		{1, zerolog.DebugLevel},
		{2, zerolog.TraceLevel},
		{5, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		if got := LevelForVerbosity(tt.verbosity); got != tt.expected {
			t.Errorf("LevelForVerbosity(%d) = %s, want %s", tt.verbosity, got, tt.expected)
		}
	}
}

func TestWriter_WritesRotatingFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "taskd.log")
	var console bytes.Buffer

	w := writer(&console, config.NewLoader(config.MapGetter{"LOG_COMPRESS": "false"}), logPath)
	logger := zerolog.New(w)
	logger.Info().Str("component", "test").Msg("hello file")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("expected log file to contain message, got %q", string(data))
	}
	if !strings.Contains(console.String(), "hello file") {
		t.Fatalf("expected console to contain message, got %q", console.String())
	}
}

func TestWriter_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger := zerolog.New(writer(&console, nil, ""))
	logger.Info().Msg("console only")

	if !strings.Contains(console.String(), "console only") {
		t.Fatalf("expected console output, got %q", console.String())
	}
}
