package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	IconTask   = "📝"
	IconGoal   = "🎯"
	IconDone   = "✅"
	IconFail   = "❌"
	IconLoop   = "🔁"
	IconSync   = "🔄"
	IconLocal  = "💾"
	IconRemote = "🌐"
	IconWarn   = "⚠️"
	IconError  = "🧨"
	IconBox    = "📦"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)

	Panel = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

var titleCase = cases.Title(language.English)

// Label turns an identifier such as "in_progress" into "In Progress".
func Label(s string) string {
	return titleCase.String(strings.ReplaceAll(s, "_", " "))
}

func Heading(icon, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// StatusText colors a task or goal status.
func StatusText(status string) string {
	label := Label(status)
	switch strings.ToLower(status) {
	case "completed":
		return Good.Render(label)
	case "active", "pending":
		return H2.Render(label)
	case "paused":
		return Warn.Render(label)
	case "expired", "failed":
		return Bad.Render(label)
	default:
		return Muted.Render(label)
	}
}

// PriorityText colors a priority.
func PriorityText(priority string) string {
	label := Label(priority)
	switch priority {
	case "high":
		return Bad.Render(label)
	case "medium":
		return Warn.Render(label)
	default:
		return Muted.Render(label)
	}
}

// ProgressBar renders percent as a fixed-width bar.
func ProgressBar(percent, width int) string {
	if width <= 0 {
		width = 20
	}
	percent = max(0, min(100, percent))
	filled := percent * width / 100
	bar := Good.Render(strings.Repeat("█", filled)) + Muted.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3d%%", bar, percent)
}
