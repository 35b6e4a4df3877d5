// This file implements the exit summary printed after the dashboard closes.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// maxSummaryOrigins caps the per-origin table; the slowest origins are kept.
const maxSummaryOrigins = 20

// SummaryConfig holds the run totals that live outside State.
type SummaryConfig struct {
	// Duration is the total run duration
	Duration time.Duration

	// ListenAddr is where records were accepted
	ListenAddr string

	// DecodeFailures is the number of malformed records dropped
	DecodeFailures int64

	// LastDecodeError is the most recent decode failure (empty if none)
	LastDecodeError string

	// AckFailures is the number of acknowledgments that could not be written
	AckFailures int64

	// MetricsAddr is the Prometheus endpoint address (empty if disabled)
	MetricsAddr string

	// RecentWarnings are the last warning/error log lines, oldest first
	RecentWarnings []string
}

// FormatExitSummary formats the run totals and the per-origin table.
// Totals are printed exactly; the dashboard status line abbreviates them.
func FormatExitSummary(s *State, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                          reqtime-dash Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	snap := s.Snapshot(0)

	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	fmt.Fprintf(&b, "Listen Address:         %s\n", cfg.ListenAddr)
	fmt.Fprintf(&b, "Records:                %s\n", humanize.Comma(snap.TotalRecords))
	fmt.Fprintf(&b, "Distinct Origins:       %d\n", snap.Origins)
	if cfg.DecodeFailures > 0 {
		fmt.Fprintf(&b, "Malformed (dropped):    %s\n", humanize.Comma(cfg.DecodeFailures))
		if cfg.LastDecodeError != "" {
			fmt.Fprintf(&b, "  last: %s\n", truncate(cfg.LastDecodeError, 70))
		}
	}
	if cfg.AckFailures > 0 {
		fmt.Fprintf(&b, "Ack Failures:           %s\n", humanize.Comma(cfg.AckFailures))
	}
	if snap.Overwritten > 0 {
		fmt.Fprintf(&b, "History Overwritten:    %s\n", humanize.Comma(snap.Overwritten))
	}
	b.WriteString("\n")

	if snap.TotalRecords == 0 {
		b.WriteString("(no records received)\n\n")
		writeWarnings(&b, cfg.RecentWarnings)
		b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Latency P50 / P95 / P99: %s / %s / %s\n\n",
		FormatMs(snap.P50), FormatMs(snap.P95), FormatMs(snap.P99))

	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
	b.WriteString("                              Slowest Origins\n")
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

	origins := s.Summaries()
	sort.SliceStable(origins, func(i, j int) bool { return origins[i].Mean > origins[j].Mean })
	hidden := 0
	if len(origins) > maxSummaryOrigins {
		hidden = len(origins) - maxSummaryOrigins
		origins = origins[:maxSummaryOrigins]
	}

	fmt.Fprintf(&b, "  %-40s %10s %12s %12s\n", "Origin", "Count", "Average", "P95")
	b.WriteString("  " + strings.Repeat("─", 77) + "\n")
	for _, o := range origins {
		fmt.Fprintf(&b, "  %-40s %10s %12s %12s\n",
			truncate(o.Origin, 40),
			humanize.Comma(o.Count),
			FormatMs(o.Mean),
			FormatMs(o.P95),
		)
	}
	if hidden > 0 {
		fmt.Fprintf(&b, "  ... and %d more\n", hidden)
	}
	b.WriteString("\n")

	writeWarnings(&b, cfg.RecentWarnings)

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

func writeWarnings(b *strings.Builder, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("Recent Warnings:\n")
	for _, line := range lines {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatMs formats a millisecond value, switching to seconds above 10s.
func FormatMs(ms float64) string {
	if ms >= 10_000 {
		return fmt.Sprintf("%.1f s", ms/1000)
	}
	return fmt.Sprintf("%.2f ms", ms)
}

// FormatRate formats a rate with appropriate precision.
func FormatRate(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	if rate >= 1 {
		return fmt.Sprintf("%.1f/s", rate)
	}
	return fmt.Sprintf("%.2f/s", rate)
}
