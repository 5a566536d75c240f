// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"time"

	"github.com/fd1az/stablearb/pkg/ui/components"
)

// Message types for TUI updates. Values arrive formatted by the sender; the
// model only stores and renders them.

// DealMsg is sent when a deal clears the profit threshold.
type DealMsg struct {
	Row components.DealRow
}

// TradeMsg is sent when the trade sequence for a deal finishes.
type TradeMsg struct {
	Token   string
	Success bool
	Detail  string
}

// PortfolioMsg is sent after every balance refresh.
type PortfolioMsg struct {
	Home     string
	Balances []components.BalanceRow
}

// CycleMsg is sent when a trading cycle ends.
type CycleMsg struct {
	Number         uint64
	Home           string
	TokensScanned  int
	DealsFound     int
	TradesExecuted int
	TradesFailed   int
	Duration       time.Duration
	Err            error
}

// ConnectionStatusMsg is sent when the exchange connection changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
	Breaker   string
	DryRun    bool
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "config", "exchange", "account"
	Status  string // "connecting", "connected", "failed", "done"
	Message string
}
