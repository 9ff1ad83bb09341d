package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Atot4/iot-project/internal/normalize"
)

// staleAfter marks a machine stale when its sample is older than this.
const staleAfter = 15 * time.Second

// statusClass picks the style bucket for a status text: running is
// green, idle amber, everything else red.
func statusClass(status string, running, idle map[string]bool) string {
	switch {
	case running[status]:
		return "running"
	case idle[status]:
		return "idle"
	default:
		return "other"
	}
}

func statusStyle(class string) lipgloss.Style {
	switch class {
	case "running":
		return statusRunningStyle
	case "idle":
		return statusIdleStyle
	default:
		return statusOtherStyle
	}
}

// renderTile draws one machine box: name, status, program, spindle and
// feed, with a stale marker when the sample has stopped updating.
func renderTile(name string, s normalize.Sample, running, idle map[string]bool, now time.Time, width int) string {
	var b strings.Builder

	title := nameStyle.Render(name)
	if now.Sub(s.Timestamp()) > staleAfter {
		title += " " + staleStyle.Render("[stale]")
	}
	b.WriteString(title + "\n")

	style := statusStyle(statusClass(s.StatusText, running, idle))
	b.WriteString(style.Render(s.StatusText) + "\n")

	program := s.CurrentProgram
	if program == "" {
		program = "N/A"
	}
	b.WriteString(labelStyle.Render("prog ") + program + "\n")
	b.WriteString(labelStyle.Render("spindle ") + intOrNA(s.SpindleSpeed) +
		labelStyle.Render("  feed ") + intOrNA(s.FeedRate))

	return tileStyle.Width(width).Render(b.String())
}

func intOrNA(v *int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}
