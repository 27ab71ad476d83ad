package internal

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	originalLevel := logLevel
	defer SetLogLevel(originalLevel)

	SetLogLevel(LogLevelDebug)
	if logLevel != LogLevelDebug {
		t.Errorf("SetLogLevel() logLevel = %v, want LogLevelDebug", logLevel)
	}
	if !atom.Enabled(LogLevelDebug.zapLevel()) {
		t.Error("SetLogLevel(LogLevelDebug) should enable debug output")
	}

	SetLogLevel(LogLevelError)
	if logLevel != LogLevelError {
		t.Errorf("SetLogLevel() logLevel = %v, want LogLevelError", logLevel)
	}
	if atom.Enabled(LogLevelWarn.zapLevel()) {
		t.Error("SetLogLevel(LogLevelError) should suppress warnings")
	}
}

func TestSetVerbose(t *testing.T) {
	originalLevel := logLevel
	defer SetLogLevel(originalLevel)

	SetVerbose(true)
	if logLevel != LogLevelDebug {
		t.Errorf("SetVerbose(true) logLevel = %v, want LogLevelDebug", logLevel)
	}

	SetVerbose(false)
	if logLevel != LogLevelInfo {
		t.Errorf("SetVerbose(false) logLevel = %v, want LogLevelInfo", logLevel)
	}
}

func TestLogOutputRespectsLevel(t *testing.T) {
	originalLevel := logLevel
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer func() {
		SetLogOutput(os.Stderr)
		SetLogLevel(originalLevel)
	}()

	SetLogLevel(LogLevelInfo)
	LogDebug("hidden %d", 1)
	LogInfo("shown %d", 2)
	LogWarn("warned %s", "x")
	LogError("failed %s", "y")
	SyncLogger()

	out := buf.String()
	if strings.Contains(out, "hidden 1") {
		t.Errorf("debug message should be filtered at info level, got: %q", out)
	}
	for _, want := range []string{"shown 2", "warned x", "failed y"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q, got: %q", want, out)
		}
	}
}
