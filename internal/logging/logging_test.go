package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
		ok       bool
	}{
		{name: "Debug", input: "debug", expected: LevelDebug, ok: true},
		{name: "Info", input: "info", expected: LevelInfo, ok: true},
		{name: "Warn", input: "warn", expected: LevelWarn, ok: true},
		{name: "Error", input: "error", expected: LevelError, ok: true},
		{name: "Case insensitive", input: "DEBUG", expected: LevelDebug, ok: true},
		{name: "Warning alias", input: "warning", expected: LevelWarn, ok: true},
		{name: "Surrounding spaces", input: "  error ", expected: LevelError, ok: true},
		{name: "Unknown defaults to info", input: "verbose", expected: LevelInfo, ok: false},
		{name: "Empty defaults to info", input: "", expected: LevelInfo, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_LEVEL", "warn")
	if got := levelFromEnv(); got != LevelWarn {
		t.Errorf("levelFromEnv() = %v, want warn", got)
	}

	t.Setenv("DEBUG", "yes")
	if got := levelFromEnv(); got != LevelDebug {
		t.Errorf("DEBUG=yes should force debug, got %v", got)
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

// captureOutput redirects the standard logger for the duration of fn.
func captureOutput(t *testing.T, level LogLevel, fn func()) string {
	t.Helper()

	previous := GetLevel()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	defer func() {
		SetOutput(os.Stderr)
		SetLevel(previous)
	}()

	flags := log.Flags()
	log.SetFlags(0)
	defer log.SetFlags(flags)

	fn()
	return buf.String()
}

func TestLevelGating(t *testing.T) {
	out := captureOutput(t, LevelWarn, func() {
		Debug("debug %d", 1)
		Info("info %d", 2)
		Warn("warn %d", 3)
		Error("error %d", 4)
	})

	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below warn should be suppressed, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestComponentLogger(t *testing.T) {
	out := captureOutput(t, LevelDebug, func() {
		For("controller").Info("advanced to %d", 3)
		For("").Debug("bare")
	})

	if !strings.Contains(out, "[INFO] controller: advanced to 3") {
		t.Errorf("component prefix missing in %q", out)
	}
	if !strings.Contains(out, "[DEBUG] bare") {
		t.Errorf("empty component should log without prefix, got %q", out)
	}
}

func TestNilLoggerDoesNotPanic(t *testing.T) {
	var l *Logger
	captureOutput(t, LevelDebug, func() {
		l.Debug("nil logger %s", "ok")
	})
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
