package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/monocle-dev/workspace/internal/models"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}
	colorSubtle  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorError   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#CA8A04", Dark: "#FACC15"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}
)

// Styles holds the lipgloss styles shared by every screen.
type Styles struct {
	Header      lipgloss.Style
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Panel       lipgloss.Style
	Selected    lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Muted       lipgloss.Style
	StepActive  lipgloss.Style
	StepCurrent lipgloss.Style
	StepPending lipgloss.Style
	HelpKey     lipgloss.Style
	HelpDesc    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorPrimary).
			Padding(0, 1),
		Title:    lipgloss.NewStyle().Bold(true).MarginBottom(1),
		Subtitle: lipgloss.NewStyle().Foreground(colorSubtle),
		Label:    lipgloss.NewStyle().Foreground(colorSubtle).Width(14),
		Value:    lipgloss.NewStyle(),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1),
		Selected:    lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Error:       lipgloss.NewStyle().Foreground(colorError),
		Success:     lipgloss.NewStyle().Foreground(colorSuccess),
		Muted:       lipgloss.NewStyle().Foreground(colorMuted),
		StepActive:  lipgloss.NewStyle().Foreground(colorSuccess),
		StepCurrent: lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		StepPending: lipgloss.NewStyle().Foreground(colorMuted),
		HelpKey:     lipgloss.NewStyle().Foreground(colorPrimary),
		HelpDesc:    lipgloss.NewStyle().Foreground(colorSubtle),
	}
}

// StatusBadge renders a project status in its color.
func (s Styles) StatusBadge(status models.ProjectStatus) string {
	color := colorMuted
	switch status {
	case models.StatusActive:
		color = colorSuccess
	case models.StatusPaused:
		color = colorWarning
	}
	return lipgloss.NewStyle().Foreground(color).Render("● " + string(status))
}
