package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  name: test-bot\n")
	t.Setenv("ARB_API_KEY", "key")
	t.Setenv("ARB_API_SECRET", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "test-bot" {
		t.Errorf("expected app name from file, got %s", cfg.App.Name)
	}
	if cfg.Exchange.BaseURL != "https://api.binance.us" {
		t.Errorf("unexpected base url %s", cfg.Exchange.BaseURL)
	}
	if cfg.Trading.PollInterval != 150*time.Millisecond {
		t.Errorf("expected 150ms poll interval, got %s", cfg.Trading.PollInterval)
	}
	if got := strings.Join(cfg.Trading.Stablecoins, ","); got != "USD,USDC,USDT,BUSD" {
		t.Errorf("unexpected stablecoins %s", got)
	}
	if cfg.Trading.ProfitThresholdDecimal().String() != "0.25" {
		t.Errorf("expected threshold 0.25, got %s", cfg.Trading.ProfitThresholdDecimal())
	}
	if cfg.Trading.HomeDiscountDecimal().String() != "0.075" {
		t.Errorf("expected discount 0.075, got %s", cfg.Trading.HomeDiscountDecimal())
	}
	if cfg.Exchange.Driver != DriverREST {
		t.Errorf("expected rest driver, got %s", cfg.Exchange.Driver)
	}
}

func TestLoad_CredentialFiles(t *testing.T) {
	dir := t.TempDir()
	keyFile := writeFile(t, dir, "api-public.txt", "  pub-key\n")
	secretFile := writeFile(t, dir, "api-secret.txt", "sec\n")
	path := writeFile(t, dir, "config.yaml", "exchange:\n  api_key_file: "+keyFile+"\n  api_secret_file: "+secretFile+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Exchange.APIKey != "pub-key" || cfg.Exchange.APISecret != "sec" {
		t.Errorf("expected trimmed credentials, got %q / %q", cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "exchange:\n  api_key_file: \"\"\n  api_secret_file: \"\"\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Exchange: ExchangeConfig{BaseURL: "https://api.binance.us", Driver: DriverREST, APIKey: "k", APISecret: "s"},
			Trading: TradingConfig{
				Stablecoins:      []string{"USD", "USDT"},
				BaseTokens:       []string{"BTC"},
				MaxTradeNotional: 100,
				MinTradeNotional: 10,
			},
			Peg: PegConfig{OrderSize: "100", BuyPrice: "0.9989", SellPrice: "1.0015"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Exchange.Driver = "grpc" }, true},
		{"no stablecoins", func(c *Config) { c.Trading.Stablecoins = nil }, true},
		{"no base tokens", func(c *Config) { c.Trading.BaseTokens = nil }, true},
		{"token is stablecoin", func(c *Config) { c.Trading.BaseTokens = []string{"USDT"} }, true},
		{"zero max notional", func(c *Config) { c.Trading.MaxTradeNotional = 0 }, true},
		{"min above max", func(c *Config) { c.Trading.MinTradeNotional = 200 }, true},
		{"bad peg price", func(c *Config) { c.Peg.BuyPrice = "abc" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
