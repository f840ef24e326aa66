package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/planforge/internal/models"
)

var (
	// Colors
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#6366F1")
	colorSuccess   = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
	colorBorder    = lipgloss.Color("#4B5563")
	colorText      = lipgloss.Color("#F9FAFB")
	colorAccent    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(colorText).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	selectedCardStyle = cardStyle.
				BorderForeground(colorPrimary).
				Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSecondary).
			Padding(0, 1)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2)

	errorBarStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorError).
			Padding(0, 1)

	textStyle    = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	accentStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	helpStyle    = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
)

func statusColor(s models.TaskStatus) lipgloss.Color {
	switch s {
	case models.TaskStatusInProgress:
		return colorSecondary
	case models.TaskStatusCompleted:
		return colorSuccess
	case models.TaskStatusBlocked:
		return colorError
	default:
		return colorWarning
	}
}

func statusIcon(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusInProgress:
		return "◐"
	case models.TaskStatusCompleted:
		return "●"
	case models.TaskStatusBlocked:
		return "✗"
	default:
		return "○"
	}
}

func statusLabel(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusInProgress:
		return "IN PROGRESS"
	case models.TaskStatusCompleted:
		return "DONE"
	case models.TaskStatusBlocked:
		return "BLOCKED"
	default:
		return "PENDING"
	}
}

// formatStatus renders a colored status badge.
func formatStatus(s models.TaskStatus) string {
	return lipgloss.NewStyle().Foreground(statusColor(s)).Render(statusIcon(s) + " " + statusLabel(s))
}

func subStepIcon(s models.SubStepStatus) string {
	switch s {
	case models.SubStepInProgress:
		return "[~]"
	case models.SubStepCompleted:
		return "[x]"
	default:
		return "[ ]"
	}
}
