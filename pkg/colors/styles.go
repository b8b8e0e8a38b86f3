// Package colors holds console styles for task states and the Google Calendar color
// assignments of exported tasks.
package colors

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/hunt/pkg/model"
)

var (
	Header   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	Active   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	Idle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	Finished = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
	Over     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	Warning  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	Error    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("160"))
)

// ForState returns the style used for a task in state s.
func ForState(s model.State) lipgloss.Style {
	switch s {
	case model.Active:
		return Active
	case model.Finished:
		return Finished
	default:
		return Idle
	}
}
