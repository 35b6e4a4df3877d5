// Package tui provides the live request-timing dashboard.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. It displays the most recent timing records, newest first, with
// each origin's running average and the record's deviation from it.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Styles
// =============================================================================

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	// Records at or above their origin's average.
	slowerStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	// Records below their origin's average.
	fasterStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)
)

// DeviationStyle returns the row style for a deviation percentage.
// Zero counts as slower: a record matching its average is not an improvement.
func DeviationStyle(deviation float64) lipgloss.Style {
	if deviation >= 0 {
		return slowerStyle
	}
	return fasterStyle
}

// =============================================================================
// Cell helpers
// =============================================================================

// fitLeft truncates s to w display cells (with an ellipsis) and pads it on
// the right.
func fitLeft(s string, w int) string {
	s = truncateCells(s, w)
	return s + strings.Repeat(" ", w-lipgloss.Width(s))
}

// fitRight truncates s to w display cells and pads it on the left.
func fitRight(s string, w int) string {
	s = truncateCells(s, w)
	return strings.Repeat(" ", w-lipgloss.Width(s)) + s
}

func truncateCells(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > w {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
