package util_test

import (
	"testing"

	"github.com/downfa11-org/go-journal/util"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		fallback int
		want     int
	}{
		{"123", 0, 123},
		{"0", 99, 0},
		{"-5", 0, -5},
		{"abc", 42, 42},
		{"", 7, 7},
		{" 8 ", 0, 8},
	}

	for _, tt := range tests {
		got := util.ParseInt(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseInt(%q, %d) = %d; want %d", tt.input, tt.fallback, got, tt.want)
		}
	}
}

func TestParseInt64(t *testing.T) {
	if got := util.ParseInt64("-86400000", 0); got != -86400000 {
		t.Errorf("ParseInt64 = %d", got)
	}
	if got := util.ParseInt64("x", 5); got != 5 {
		t.Errorf("ParseInt64 fallback = %d", got)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{"0", true, false},
		{"yes", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		got := util.ParseBool(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseBool(%q, %v) = %v; want %v", tt.input, tt.fallback, got, tt.want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]util.LogLevel{
		"debug":   util.LogLevelDebug,
		"INFO":    util.LogLevelInfo,
		"warning": util.LogLevelWarn,
		"error":   util.LogLevelError,
		"bogus":   util.LogLevelInfo,
	}
	for in, want := range cases {
		if got := util.ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v; want %v", in, got, want)
		}
	}
}
