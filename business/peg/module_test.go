package peg

import (
	"testing"
	"time"

	"github.com/fd1az/stablearb/internal/apperror"
	"github.com/fd1az/stablearb/internal/config"
)

func TestParseConfig(t *testing.T) {
	valid := config.PegConfig{
		Symbol:     "USDTUSD",
		BaseAsset:  "USDT",
		QuoteAsset: "USD",
		OrderSize:  "100",
		BuyPrice:   "0.9989",
		SellPrice:  "1.0015",
		Interval:   300 * time.Second,
	}

	cfg, err := ParseConfig(valid)
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if cfg.BuyPrice.String() != "0.9989" || cfg.SellPrice.String() != "1.0015" || cfg.OrderSize.String() != "100" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	inverted := valid
	inverted.BuyPrice, inverted.SellPrice = "1.0015", "0.9989"
	if _, err := ParseConfig(inverted); !apperror.HasCode(err, apperror.CodeValidationError) {
		t.Errorf("expected VALIDATION_ERROR for buy >= sell, got %v", err)
	}
}
