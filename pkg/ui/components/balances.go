// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// BalanceRow is one non-zero holding.
type BalanceRow struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// BalancesComponent renders the account balances with the home stablecoin marked.
type BalancesComponent struct {
	rows []BalanceRow
	home string
}

// NewBalancesComponent creates a new balances component.
func NewBalancesComponent() *BalancesComponent {
	return &BalancesComponent{rows: make([]BalanceRow, 0)}
}

// Update replaces the balances.
func (b *BalancesComponent) Update(home string, rows []BalanceRow) {
	b.home = home
	b.rows = rows
}

// Home returns the current home stablecoin.
func (b *BalancesComponent) Home() string {
	return b.home
}

// View renders the balances component.
func (b *BalancesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	homeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("BALANCES"))
	if b.home != "" {
		sb.WriteString(dimStyle.Render("  home: "))
		sb.WriteString(homeStyle.Render(b.home))
	}
	sb.WriteString("\n\n")

	if len(b.rows) == 0 {
		sb.WriteString(dimStyle.Render("  Waiting for account data..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-6s  %18s  %18s\n", "Asset", "Free", "Locked"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 46)) + "\n")

	for _, row := range b.rows {
		line := fmt.Sprintf("  %-6s  %18s  %18s", row.Asset, row.Free.String(), row.Locked.String())
		if row.Asset == b.home {
			line = homeStyle.Render(line)
		}
		sb.WriteString(line + "\n")
	}

	return sb.String()
}
