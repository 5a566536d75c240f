package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Deal statuses.
const (
	DealPending  = "executing"
	DealExecuted = "executed"
	DealFailed   = "failed"
)

// DealRow is one deal and, once known, the outcome of its trade sequence.
type DealRow struct {
	Time          string
	Token         string
	BuyPair       string
	SellPair      string
	SpreadPercent decimal.Decimal
	MaxTrade      decimal.Decimal
	Status        string
	Detail        string
}

// DealsComponent renders the most recent deals, newest first.
type DealsComponent struct {
	rows    []DealRow
	maxRows int
	offset  int
	visible int
}

// NewDealsComponent creates a new deals component.
func NewDealsComponent(maxRows int) *DealsComponent {
	return &DealsComponent{
		rows:    make([]DealRow, 0),
		maxRows: maxRows,
		visible: 10,
	}
}

// Add prepends a deal.
func (d *DealsComponent) Add(row DealRow) {
	d.rows = append([]DealRow{row}, d.rows...)
	if len(d.rows) > d.maxRows {
		d.rows = d.rows[:d.maxRows]
	}
}

// Resolve sets the outcome of the newest pending deal for token.
func (d *DealsComponent) Resolve(token, status, detail string) bool {
	for i := range d.rows {
		if d.rows[i].Token == token && d.rows[i].Status == DealPending {
			d.rows[i].Status = status
			d.rows[i].Detail = detail
			return true
		}
	}
	return false
}

// Rows returns the stored deals, newest first.
func (d *DealsComponent) Rows() []DealRow {
	return d.rows
}

// Clear clears all deals.
func (d *DealsComponent) Clear() {
	d.rows = make([]DealRow, 0)
	d.offset = 0
}

// ScrollUp moves the view towards newer deals.
func (d *DealsComponent) ScrollUp() {
	if d.offset > 0 {
		d.offset--
	}
}

// ScrollDown moves the view towards older deals.
func (d *DealsComponent) ScrollDown() {
	if d.offset < len(d.rows)-d.visible {
		d.offset++
	}
}

// View renders the deals component.
func (d *DealsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	pendingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("DEALS (last %d)", d.maxRows)))
	sb.WriteString("\n\n")

	if len(d.rows) == 0 {
		sb.WriteString(dimStyle.Render("  No deals found yet..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-8s  %-6s  %-10s  %-10s  %8s  %8s  %s\n",
		"Time", "Token", "Buy", "Sell", "Spread", "Max", "Status"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 72)) + "\n")

	end := d.offset + d.visible
	if end > len(d.rows) {
		end = len(d.rows)
	}
	for _, row := range d.rows[d.offset:end] {
		style := pendingStyle
		switch row.Status {
		case DealExecuted:
			style = okStyle
		case DealFailed:
			style = failStyle
		}

		status := row.Status
		if row.Detail != "" {
			status += " " + row.Detail
		}

		sb.WriteString(fmt.Sprintf("  %-8s  %-6s  %-10s  %-10s  %7s%%  %8s  %s\n",
			row.Time,
			row.Token,
			row.BuyPair,
			row.SellPair,
			row.SpreadPercent.StringFixed(3),
			"$"+row.MaxTrade.StringFixed(2),
			style.Render(status),
		))
	}

	return sb.String()
}
