package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/stablearb/internal/apperror"
)

// RawBalance is an account balance entry as the exchange reports it.
type RawBalance struct {
	Asset  string
	Free   string
	Locked string
}

// Balance is a validated holding of one asset.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// BalanceSnapshot is the account state of one refresh.
type BalanceSnapshot struct {
	balances map[string]Balance
	takenAt  time.Time
}

// NewBalanceSnapshot validates every entry. A malformed or negative value fails the
// whole refresh with INVALID_BALANCE.
func NewBalanceSnapshot(raw []RawBalance, takenAt time.Time) (*BalanceSnapshot, error) {
	s := &BalanceSnapshot{
		balances: make(map[string]Balance, len(raw)),
		takenAt:  takenAt,
	}

	for _, r := range raw {
		free, err := parseAmount(r.Asset, "free", r.Free)
		if err != nil {
			return nil, err
		}
		locked, err := parseAmount(r.Asset, "locked", r.Locked)
		if err != nil {
			return nil, err
		}
		s.balances[r.Asset] = Balance{Asset: r.Asset, Free: free, Locked: locked}
	}

	return s, nil
}

func parseAmount(asset, field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeInvalidBalance,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s %s=%q", asset, field, raw)))
	}
	if d.IsNegative() {
		return decimal.Zero, apperror.New(apperror.CodeInvalidBalance,
			apperror.WithContext(fmt.Sprintf("%s %s is negative", asset, field)))
	}
	return d, nil
}

// Free returns the free amount of asset, zero when absent.
func (s *BalanceSnapshot) Free(asset string) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return s.balances[asset].Free
}

// Balance returns the full entry for asset.
func (s *BalanceSnapshot) Balance(asset string) (Balance, bool) {
	if s == nil {
		return Balance{}, false
	}
	b, ok := s.balances[asset]
	return b, ok
}

// NonZero returns every balance with a positive free or locked amount, sorted by asset.
func (s *BalanceSnapshot) NonZero() []Balance {
	if s == nil {
		return nil
	}
	out := make([]Balance, 0)
	for _, b := range s.balances {
		if b.Free.IsPositive() || b.Locked.IsPositive() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// TakenAt returns when the snapshot was fetched.
func (s *BalanceSnapshot) TakenAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.takenAt
}

// SelectHome returns the stablecoin holding the most free balance. Ties, including
// all zero, resolve to the earliest entry in stablecoins.
func SelectHome(balances *BalanceSnapshot, stablecoins []string) string {
	if len(stablecoins) == 0 {
		return ""
	}

	home := stablecoins[0]
	best := balances.Free(home)
	for _, coin := range stablecoins[1:] {
		if free := balances.Free(coin); free.GreaterThan(best) {
			home, best = coin, free
		}
	}
	return home
}
