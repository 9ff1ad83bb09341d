package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors.
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorDanger  = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorBorder  = lipgloss.Color("#374151") // Border gray

	tileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	statusRunningStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSuccess)

	statusIdleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWarning)

	statusOtherStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorDanger)

	staleStyle = lipgloss.NewStyle().
			Foreground(colorDanger)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)
