package infra

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/stablearb/business/arbitrage/app"
	"github.com/fd1az/stablearb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/pkg/ui"
	"github.com/fd1az/stablearb/pkg/ui/components"
)

// TUIReporter implements app.Reporter by forwarding events to the Bubble Tea program.
type TUIReporter struct {
	send func(tea.Msg)
	now  func() time.Time
}

// NewTUIReporter creates a TUIReporter. A nil send falls back to ui.Send.
func NewTUIReporter(send func(tea.Msg)) *TUIReporter {
	if send == nil {
		send = ui.Send
	}
	return &TUIReporter{send: send, now: time.Now}
}

func (r *TUIReporter) DealFound(deal *domain.Deal) {
	r.send(ui.DealMsg{Row: components.DealRow{
		Time:          r.now().Format("15:04:05"),
		Token:         deal.Token,
		BuyPair:       deal.BuyPair,
		SellPair:      deal.SellPair,
		SpreadPercent: deal.SpreadPercent,
		MaxTrade:      deal.MaxTradeNotional,
		Status:        components.DealPending,
	}})
}

func (r *TUIReporter) TradeExecuted(result app.TradeResult) {
	r.send(ui.TradeMsg{
		Token:   result.Deal.Token,
		Success: true,
		Detail:  result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String(),
	})
}

func (r *TUIReporter) TradeFailed(result app.TradeResult) {
	detail := ""
	if n := len(result.Legs); n > 0 {
		detail = string(result.Legs[n-1].Kind)
		if result.PartialFill() {
			detail += " partial"
		}
	}
	r.send(ui.TradeMsg{Token: result.Deal.Token, Detail: detail})
	if result.Err != nil {
		r.send(ui.ErrorMsg{Error: result.Err})
	}
}

func (r *TUIReporter) PortfolioUpdated(home string, balances *marketDomain.BalanceSnapshot) {
	nonZero := balances.NonZero()
	rows := make([]components.BalanceRow, 0, len(nonZero))
	for _, b := range nonZero {
		rows = append(rows, components.BalanceRow{Asset: b.Asset, Free: b.Free, Locked: b.Locked})
	}
	r.send(ui.PortfolioMsg{Home: home, Balances: rows})
}

func (r *TUIReporter) CycleCompleted(summary app.CycleSummary) {
	r.send(ui.CycleMsg{
		Number:         summary.Number,
		Home:           summary.Home,
		TokensScanned:  summary.TokensScanned,
		DealsFound:     summary.DealsFound,
		TradesExecuted: summary.TradesExecuted,
		TradesFailed:   summary.TradesFailed,
		Duration:       summary.Duration,
		Err:            summary.Err,
	})
}
