package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHasFmtVerb(t *testing.T) {
	if !hasFmtVerb("value is %d") {
		t.Error("expected the d verb to be detected")
	}
	if hasFmtVerb("100%% done") {
		t.Error("escaped percent should not count")
	}
	if hasFmtVerb("plain message") {
		t.Error("plain message has no verbs")
	}
}

func TestStructuredAndPrintf(t *testing.T) {
	var buf bytes.Buffer
	Init(&Options{Level: LevelDebug, Output: &buf})
	defer Init(nil)

	L_info("cycle done", "user", 42)
	L_debug("took %dms", 15)

	out := buf.String()
	if !strings.Contains(out, "cycle done") || !strings.Contains(out, "user=42") {
		t.Errorf("structured output missing fields: %q", out)
	}
	if !strings.Contains(out, "took 15ms") {
		t.Errorf("printf output not formatted: %q", out)
	}
}

func TestSetLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(&Options{Level: LevelInfo, Output: &buf})
	defer Init(nil)

	SetLevel(LevelError)
	L_info("hidden")
	L_error("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("error line missing: %q", out)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Level != LevelInfo || !opts.ShowCaller {
		t.Errorf("unexpected defaults: %+v", opts)
	}

	if opts.TimeFormat == "" {
		t.Error("default time format is empty")
	}
	Init(nil)
	L_info("defaults applied")
}
