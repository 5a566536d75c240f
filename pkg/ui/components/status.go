package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus is the exchange connection state.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	Breaker    string
	DryRun     bool
	LastUpdate time.Time
}

// StatusComponent renders the exchange connection.
type StatusComponent struct {
	status ConnectionStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent(name string) *StatusComponent {
	return &StatusComponent{status: ConnectionStatus{Name: name}}
}

// Update updates the connection status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	s.status = status
}

// Status returns the current connection status.
func (s *StatusComponent) Status() ConnectionStatus {
	return s.status
}

// View renders the status component.
func (s *StatusComponent) View() string {
	conn := s.status

	status := "● " + conn.Name
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	if !conn.Connected {
		status = "○ " + conn.Name + " (disconnected)"
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	} else if conn.Latency > 0 {
		status += fmt.Sprintf(" (%dms)", conn.Latency.Milliseconds())
	}

	line := style.Render(status)
	if conn.Breaker != "" && conn.Breaker != "closed" {
		line += lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("  breaker " + conn.Breaker)
	}
	if conn.DryRun {
		line += lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Render("  DRY RUN")
	}
	return line
}
