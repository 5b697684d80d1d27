package editor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
//
//nolint:gochecknoglobals
var (
	PrimaryColor = lipgloss.Color("#7D56F4")
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5F5F")
	SubtleColor  = lipgloss.Color("#626262")
)

//nolint:gochecknoglobals
var (
	LabelStyle = lipgloss.NewStyle().Bold(true).MarginRight(1)

	// ReadOnlyStyle renders the field while it cannot be edited
	ReadOnlyStyle = lipgloss.NewStyle().Foreground(SubtleColor)

	FieldStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 1).
			Width(20)

	ActiveFieldStyle = FieldStyle.BorderForeground(PrimaryColor)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(PrimaryColor).
			Padding(0, 2).
			MarginLeft(1)

	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	SpinnerStyle = lipgloss.NewStyle().Foreground(PrimaryColor)
)

// StatusStyle returns the style for a status class.
func StatusStyle(class StatusClass) lipgloss.Style {
	switch class {
	case StatusSuccess:
		return SuccessStyle
	case StatusError:
		return ErrorStyle
	default:
		return lipgloss.NewStyle()
	}
}

// View renders the field, the action button and the status line.
func (m Model) View() string {
	var field string
	if m.ReadOnly() {
		field = FieldStyle.Render(ReadOnlyStyle.Render(m.input.Value()))
	} else {
		field = ActiveFieldStyle.Render(m.input.View())
	}

	button := ButtonStyle.Render(m.ButtonLabel())
	if m.pending {
		button = lipgloss.JoinHorizontal(lipgloss.Center, button, " ", m.spinner.View())
	}

	row := lipgloss.JoinHorizontal(lipgloss.Center, LabelStyle.Render("Username"), field, button)

	var b strings.Builder

	b.WriteString(row)

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(StatusStyle(m.class).Render(m.status))
	}

	return b.String()
}
