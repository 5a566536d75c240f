package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds running totals for display.
type Stats struct {
	Cycles         uint64
	TokensScanned  int
	DealsFound     int
	TradesExecuted int
	TradesFailed   int
	FailedCycles   int
	LastCycle      time.Duration
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the current totals.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	successRate := float64(0)
	if attempts := s.stats.TradesExecuted + s.stats.TradesFailed; attempts > 0 {
		successRate = float64(s.stats.TradesExecuted) / float64(attempts) * 100
	}

	failedDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.TradesFailed))
	if s.stats.TradesFailed > 0 {
		failedDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.TradesFailed))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Cycles: %s  │  Deals: %s  │  Executed: %s (%.1f%%)  │  Failed: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Cycles)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.DealsFound)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.TradesExecuted)),
			successRate,
			failedDisplay,
		) +
		fmt.Sprintf("Last cycle: %s  │  Failed cycles: %s",
			valueStyle.Render(s.stats.LastCycle.Round(time.Millisecond).String()),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.FailedCycles)),
		)
}
