package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestDeviationStyle(t *testing.T) {
	tests := []struct {
		name      string
		deviation float64
		want      lipgloss.TerminalColor
		wantBold  bool
	}{
		{"slower", 25, colorError, true},
		{"equal counts as slower", 0, colorError, true},
		{"faster", -0.1, colorSuccess, false},
		{"much faster", -90, colorSuccess, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := DeviationStyle(tt.deviation)
			if got := style.GetForeground(); got != tt.want {
				t.Errorf("foreground = %v, want %v", got, tt.want)
			}
			if style.GetBold() != tt.wantBold {
				t.Errorf("bold = %v, want %v", style.GetBold(), tt.wantBold)
			}
		})
	}
}

func TestFitLeftRight(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string, int) string
		in    string
		width int
		want  string
	}{
		{"left pad", fitLeft, "ab", 5, "ab   "},
		{"right pad", fitRight, "ab", 5, "   ab"},
		{"exact", fitLeft, "abcde", 5, "abcde"},
		{"truncate", fitLeft, "abcdefgh", 5, "abcd…"},
		{"truncate right", fitRight, "12345.67", 6, "12345…"},
		{"zero width", fitLeft, "abc", 0, ""},
		{"width one", fitLeft, "abc", 1, "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in, tt.width); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
