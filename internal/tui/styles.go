// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"

	"breakfast/internal/analysis"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})

	bassStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4D7CFE"))
	midStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FE4D5C"))
	firedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFFFF")).
			Bold(true)
)

// pulseColor converts a pulse color to a terminal color.
func pulseColor(c analysis.Color) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", channel(c.Red), channel(c.Green), channel(c.Blue)))
}

func channel(v float64) uint8 {
	return uint8(min(max(v, 0), 1) * 255)
}
