package player

import "github.com/charmbracelet/lipgloss"

const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorMauve)
	bodyStyle     = lipgloss.NewStyle().Foreground(colorText).Padding(1, 2)
	optionStyle   = lipgloss.NewStyle().Foreground(colorText)
	selectedStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	buttonStyle   = lipgloss.NewStyle().Foreground(colorLavender).Border(lipgloss.RoundedBorder()).Padding(0, 1)
	disabledStyle = lipgloss.NewStyle().Foreground(colorSurface1).Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Foreground(colorRed)
	helpStyle     = lipgloss.NewStyle().Foreground(colorOverlay1)
)
