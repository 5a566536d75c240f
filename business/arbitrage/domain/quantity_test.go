package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/stablearb/business/market/domain"
	"github.com/fd1az/stablearb/internal/apperror"
)

func rule(step, minQty string) marketDomain.LotSizeRule {
	return marketDomain.LotSizeRule{
		StepSize: decimal.RequireFromString(step),
		MinQty:   decimal.RequireFromString(minQty),
	}
}

func TestPrecision(t *testing.T) {
	tests := []struct {
		step string
		want int32
	}{
		{"1", 0},
		{"10", 0},
		{"0.1", 1},
		{"0.001", 3},
		{"0.00000100", 6},
		{"0.25", 1},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			got, err := Precision(decimal.RequireFromString(tt.step))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Precision(%s) = %d, want %d", tt.step, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		step     string
		minQty   string
		want     string
	}{
		{"truncates to step precision", "0.1234567", "0.001", "0.001", "0.123"},
		{"clamps to min and pads", "0.005", "0.001", "0.01", "0.010"},
		{"never rounds up", "0.1239999", "0.001", "0.001", "0.123"},
		{"whole step", "12.9", "1", "1", "12"},
		{"exact value keeps trailing zeros", "25", "0.01", "0.01", "25.00"},
		{"min finer than step rounds min up", "0.0001", "0.01", "0.005", "0.01"},
		{"zero goes to min", "0", "0.00000100", "0.00000100", "0.000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeQuantity(decimal.RequireFromString(tt.quantity), rule(tt.step, tt.minQty))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeQuantity(%s) = %q, want %q", tt.quantity, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuantity_FloorNeverExceedsInput(t *testing.T) {
	r := rule("0.0001", "0.0001")
	for _, raw := range []string{"1.99999", "0.00019", "123.45678", "0.5"} {
		q := decimal.RequireFromString(raw)
		got, err := NormalizeQuantity(q, r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := decimal.RequireFromString(got)
		if out.GreaterThan(q) {
			t.Errorf("NormalizeQuantity(%s) = %s rounds up", raw, got)
		}
		if q.Sub(out).GreaterThanOrEqual(r.StepSize) {
			t.Errorf("NormalizeQuantity(%s) = %s drops more than one step", raw, got)
		}
	}
}

func TestNormalizeQuantity_InvalidStep(t *testing.T) {
	for _, step := range []string{"0", "-0.1"} {
		_, err := NormalizeQuantity(decimal.NewFromInt(1), rule(step, "0"))
		if !apperror.HasCode(err, apperror.CodeInvalidPrecision) {
			t.Errorf("step %s: expected INVALID_PRECISION, got %v", step, err)
		}
	}
}
