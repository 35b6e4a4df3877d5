package stats

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/randomizedcoder/go-reqtime-dash/internal/protocol"
)

// =============================================================================
// Table-Driven Tests: Formatting Functions
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"zero", 0, "00:00:00"},
		{"one second", time.Second, "00:00:01"},
		{"one minute", time.Minute, "00:01:00"},
		{"one hour", time.Hour, "01:00:00"},
		{"mixed", 2*time.Hour + 30*time.Minute + 45*time.Second, "02:30:45"},
		{"24 hours", 24 * time.Hour, "24:00:00"},
		{"sub-second", 500 * time.Millisecond, "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.duration); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want string
	}{
		{"zero", 0, "0"},
		{"small", 123, "123"},
		{"999", 999, "999"},
		{"1K", 1000, "1.0K"},
		{"1.5K", 1500, "1.5K"},
		{"999K", 999000, "999.0K"},
		{"1M", 1000000, "1.0M"},
		{"1.5M", 1500000, "1.5M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatNumber(tt.n); got != tt.want {
				t.Errorf("FormatNumber(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestFormatMs(t *testing.T) {
	tests := []struct {
		name string
		ms   float64
		want string
	}{
		{"zero", 0, "0.00 ms"},
		{"fraction", 0.25, "0.25 ms"},
		{"typical", 42.5, "42.50 ms"},
		{"just under switch", 9999.99, "9999.99 ms"},
		{"seconds", 12_500, "12.5 s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMs(tt.ms); got != tt.want {
				t.Errorf("FormatMs(%v) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"zero", 0, "0.00/s"},
		{"small", 0.5, "0.50/s"},
		{"one", 1.0, "1.0/s"},
		{"hundred", 100.0, "100.0/s"},
		{"thousand", 1000.0, "1.0K/s"},
		{"1.5K", 1500.0, "1.5K/s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRate(tt.rate); got != tt.want {
				t.Errorf("FormatRate(%v) = %q, want %q", tt.rate, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 4, "abc…"},
		{"abcdef", 1, "a"},
		{"/ünïcode", 4, "/ün…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.s, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
		}
	}
}

// =============================================================================
// Exit Summary
// =============================================================================

func TestFormatExitSummary_Empty(t *testing.T) {
	out := FormatExitSummary(NewState(10), SummaryConfig{ListenAddr: ":2398"})

	for _, want := range []string{"Exit Summary", "Listen Address:         :2398", "no records received"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Slowest Origins") {
		t.Error("empty summary should not print the origin table")
	}
}

func TestFormatExitSummary_Basic(t *testing.T) {
	s := NewState(10)
	s.Apply(protocol.Record{Elapsed: 12.5, Origin: "/index.php"})
	s.Apply(protocol.Record{Elapsed: 900, Origin: "/slow.php"})

	out := FormatExitSummary(s, SummaryConfig{
		Duration:        90 * time.Second,
		ListenAddr:      ":2398",
		DecodeFailures:  3,
		LastDecodeError: "invalid elapsed time",
		MetricsAddr:     "127.0.0.1:9100",
	})

	for _, want := range []string{
		"Run Duration:           00:01:30",
		"Records:                2",
		"Distinct Origins:       2",
		"Malformed (dropped):    3",
		"  last: invalid elapsed time",
		"/index.php",
		"/slow.php",
		"http://127.0.0.1:9100/metrics",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "/slow.php") > strings.Index(out, "/index.php") {
		t.Error("slowest origin should be listed first")
	}
	if strings.Contains(out, "Ack Failures") {
		t.Error("zero ack failures should be omitted")
	}
}

func TestFormatExitSummary_Overwritten(t *testing.T) {
	s := NewState(2)
	for i := 0; i < 5; i++ {
		s.Apply(protocol.Record{Elapsed: float64(i), Origin: "/a"})
	}
	out := FormatExitSummary(s, SummaryConfig{AckFailures: 1})
	if !strings.Contains(out, "History Overwritten:    3") {
		t.Errorf("summary missing overwrite count:\n%s", out)
	}
	if !strings.Contains(out, "Ack Failures:           1") {
		t.Errorf("summary missing ack failures:\n%s", out)
	}
}

func TestFormatExitSummary_ExactTotals(t *testing.T) {
	s := NewState(10)
	for i := 0; i < 1234; i++ {
		s.Apply(protocol.Record{Elapsed: 1, Origin: "/a"})
	}
	out := FormatExitSummary(s, SummaryConfig{})
	if !strings.Contains(out, "Records:                1,234") {
		t.Errorf("summary should print the exact total:\n%s", out)
	}
	if !strings.Contains(out, "History Overwritten:    1,224") {
		t.Errorf("summary missing overwrite count:\n%s", out)
	}
}

func TestFormatExitSummary_CapsOrigins(t *testing.T) {
	s := NewState(100)
	for i := 0; i < maxSummaryOrigins+5; i++ {
		s.Apply(protocol.Record{Elapsed: float64(i + 1), Origin: fmt.Sprintf("/o%02d", i)})
	}
	out := FormatExitSummary(s, SummaryConfig{})
	if !strings.Contains(out, "... and 5 more") {
		t.Errorf("summary should note hidden origins:\n%s", out)
	}
	if strings.Contains(out, "/o00 ") {
		t.Error("fastest origin should be hidden")
	}
}

func TestFormatExitSummary_RecentWarnings(t *testing.T) {
	out := FormatExitSummary(NewState(1), SummaryConfig{
		ListenAddr:     ":2398",
		RecentWarnings: []string{"WARN ack_failed error=broken pipe"},
	})
	if !strings.Contains(out, "Recent Warnings:") || !strings.Contains(out, "ack_failed") {
		t.Errorf("summary missing warnings:\n%s", out)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkFormatExitSummary(b *testing.B) {
	s := NewState(1000)
	for i := 0; i < 1000; i++ {
		s.Apply(protocol.Record{Elapsed: float64(i % 97), Origin: fmt.Sprintf("/page-%d", i%30)})
	}
	cfg := SummaryConfig{Duration: time.Minute, ListenAddr: ":2398"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = FormatExitSummary(s, cfg)
	}
}

func BenchmarkFormatNumber(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = FormatNumber(int64(i))
	}
}
