// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/stablearb/business/arbitrage/app"
	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
)

const rule = "================================================================================"

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	mu   sync.Mutex
	out  io.Writer
	home string
}

// NewConsoleReporter creates a ConsoleReporter writing to out, or stdout when out is nil.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out}
}

// DealFound prints the deal details.
func (r *ConsoleReporter) DealFound(deal *domain.Deal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "DEAL FOUND")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Token:          %s\n", deal.Token)
	fmt.Fprintf(r.out, "Buy:            %s @ %s\n", deal.BuyPair, deal.BuyAsk.String())
	fmt.Fprintf(r.out, "Sell:           %s @ %s\n", deal.SellPair, deal.SellBid.String())
	fmt.Fprintf(r.out, "Spread:         %s%% (threshold %s%%)\n", deal.SpreadPercent.StringFixed(4), deal.Threshold.String())
	fmt.Fprintf(r.out, "Max trade:      $%s\n", deal.MaxTradeNotional.StringFixed(2))
	fmt.Fprintln(r.out, rule)
}

// TradeExecuted prints every leg of a completed sequence.
func (r *ConsoleReporter) TradeExecuted(result app.TradeResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "[%s] TRADE EXECUTED %s in %s\n",
		result.FinishedAt.Format("15:04:05"), result.Deal.Token, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	r.writeLegs(result.Legs)
}

// TradeFailed prints the legs placed before the sequence aborted.
func (r *ConsoleReporter) TradeFailed(result app.TradeResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "[%s] TRADE FAILED %s: %v\n", result.FinishedAt.Format("15:04:05"), result.Deal.Token, result.Err)
	if result.PartialFill() {
		fmt.Fprintln(r.out, "  last leg partially filled, balances left as they are")
	}
	r.writeLegs(result.Legs)
}

func (r *ConsoleReporter) writeLegs(legs []app.LegResult) {
	for _, leg := range legs {
		status := string(leg.Status())
		if status == "" {
			status = "no ack"
		}
		fmt.Fprintf(r.out, "  %-8s %-32s %s\n", leg.Kind, leg.Order.String(), status)
	}
}

// PortfolioUpdated prints balances only when the home stablecoin changes.
func (r *ConsoleReporter) PortfolioUpdated(home string, balances *marketDomain.BalanceSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if home == r.home {
		return
	}
	r.home = home

	fmt.Fprintf(r.out, "[%s] home stablecoin: %s\n", time.Now().Format("15:04:05"), home)
	for _, b := range balances.NonZero() {
		fmt.Fprintf(r.out, "  %-6s free=%s locked=%s\n", b.Asset, b.Free.String(), b.Locked.String())
	}
}

// CycleCompleted prints a one-line summary.
func (r *ConsoleReporter) CycleCompleted(summary app.CycleSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := fmt.Sprintf("[%s] cycle #%d home=%s tokens=%d deals=%d executed=%d failed=%d in %s",
		summary.StartedAt.Format("15:04:05"),
		summary.Number,
		summary.Home,
		summary.TokensScanned,
		summary.DealsFound,
		summary.TradesExecuted,
		summary.TradesFailed,
		summary.Duration.Round(time.Millisecond))
	if summary.Err != nil {
		line += fmt.Sprintf(" error: %v", summary.Err)
	}
	fmt.Fprintln(r.out, line)
}
