package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-reqtime-dash/internal/protocol"
	"github.com/randomizedcoder/go-reqtime-dash/internal/stats"
	"github.com/randomizedcoder/go-reqtime-dash/internal/timeseries"
)

const (
	// Title shown in the first row of the frame.
	Title = " Request Times "

	// MinWidth and MinHeight are the smallest terminal the frame fits in.
	MinWidth  = 40
	MinHeight = 6

	// frameOverhead is the rows not available for records: top and bottom
	// border, title row and column header.
	frameOverhead = 4
)

// VisibleRows returns how many records fit in a terminal of the given height.
func VisibleRows(height int) int {
	if height < frameOverhead {
		return 0
	}
	return height - frameOverhead
}

// columns holds the cell widths for one inner frame width.
type columns struct {
	time, origin, average, deviation int
}

// layoutColumns splits the inner width: time, average and deviation get a
// fifth each, origin takes the rest.
func layoutColumns(inner int) columns {
	fifth := inner / 5
	return columns{
		time:      fifth,
		origin:    inner - 3*fifth,
		average:   fifth,
		deviation: fifth,
	}
}

// RenderFrame renders one dashboard frame for a terminal of width x height.
// The result has exactly height lines unless the terminal is too small, in
// which case a one-line notice is returned.
func RenderFrame(snap stats.Snapshot, width, height int) string {
	return renderFrame(snap, timeseries.RateStats{}, width, height)
}

func renderFrame(snap stats.Snapshot, rates timeseries.RateStats, width, height int) string {
	if width < MinWidth || height < MinHeight {
		return renderTooSmall(width, height)
	}

	inner := width - 2
	cols := layoutColumns(inner)
	budget := VisibleRows(height)

	lines := make([]string, 0, budget+2)
	lines = append(lines, renderTitle(snap, rates, inner))
	lines = append(lines, renderHeader(cols))

	for i := 0; i < budget; i++ {
		if i < len(snap.Rows) {
			lines = append(lines, renderRow(snap.Rows[i], cols))
			continue
		}
		lines = append(lines, strings.Repeat(" ", inner))
	}

	return frameStyle.Render(strings.Join(lines, "\n"))
}

func renderTooSmall(width, height int) string {
	msg := fmt.Sprintf("terminal too small (%dx%d, need %dx%d)", width, height, MinWidth, MinHeight)
	if width > 0 {
		msg = truncateCells(msg, width)
	}
	return noticeStyle.Render(msg)
}

// =============================================================================
// Title and header
// =============================================================================

func renderTitle(snap stats.Snapshot, rates timeseries.RateStats, inner int) string {
	title := truncateCells(Title, inner)
	room := inner - lipgloss.Width(title)

	// Drop trailing parts that do not fit rather than cutting one in half.
	status := ""
	for _, part := range statusParts(snap, rates) {
		next := part
		if status != "" {
			next = status + " │ " + part
		}
		if lipgloss.Width(next)+1 > room {
			break
		}
		status = next
	}
	if status != "" {
		status += " "
	}
	return titleStyle.Render(title) + statusStyle.Render(fitRight(status, room))
}

// statusParts lists the status line fields in priority order.
func statusParts(snap stats.Snapshot, rates timeseries.RateStats) []string {
	parts := []string{
		"records " + stats.FormatNumber(snap.TotalRecords),
		fmt.Sprintf("origins %d", snap.Origins),
		stats.FormatRate(rates.Rate1s),
	}
	if snap.TotalRecords > 0 {
		parts = append(parts, fmt.Sprintf("p50/95/99 %.1f/%.1f/%.1f", snap.P50, snap.P95, snap.P99))
	}
	return append(parts, "30s "+stats.FormatRate(rates.Rate30s))
}

func renderHeader(cols columns) string {
	return tableHeaderStyle.Render(
		fitRight("Time", cols.time-1) + " " +
			" " + fitLeft("Origin", cols.origin-1) +
			fitRight("Average", cols.average-1) + " " +
			fitRight("Dev", cols.deviation-1) + " ",
	)
}

// =============================================================================
// Rows
// =============================================================================

func renderRow(r stats.Row, cols columns) string {
	timeCell := fitRight(fmt.Sprintf("%.2f", r.Elapsed), cols.time-1) + " "
	// Records can reach State without Decode, so sanitize again here.
	originCell := " " + fitLeft(protocol.SanitizeOrigin(r.Origin), cols.origin-1)
	avgCell := fitRight(fmt.Sprintf("%.2f", r.Average), cols.average-1) + " "
	devCell := fitRight(fmt.Sprintf("%+.1f%%", r.Deviation), cols.deviation-1) + " "

	style := DeviationStyle(r.Deviation)
	return style.Render(timeCell) + valueStyle.Render(originCell) + dimStyle.Render(avgCell) + style.Render(devCell)
}
