// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Exchange drivers.
const (
	DriverREST = "rest"
	DriverSDK  = "sdk"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Peg       PegConfig       `mapstructure:"peg"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// ExchangeConfig holds Binance.US connectivity settings.
type ExchangeConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Driver            string        `mapstructure:"driver"`
	APIKey            string        `mapstructure:"api_key"`
	APISecret         string        `mapstructure:"api_secret"`
	APIKeyFile        string        `mapstructure:"api_key_file"`
	APISecretFile     string        `mapstructure:"api_secret_file"`
	RecvWindow        time.Duration `mapstructure:"recv_window"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"` // request weight budget
	DryRun            bool          `mapstructure:"dry_run"` // route orders to /api/v3/order/test
	TraceBodies       bool          `mapstructure:"trace_bodies"`
}

// TradingConfig holds arbitrage parameters.
type TradingConfig struct {
	Stablecoins            []string      `mapstructure:"stablecoins"`
	BaseTokens             []string      `mapstructure:"base_tokens"`
	ProfitThresholdPercent float64       `mapstructure:"profit_threshold_percent"`
	MaxTradeNotional       float64       `mapstructure:"max_trade_notional"`
	MinTradeNotional       float64       `mapstructure:"min_trade_notional"`
	HomeDiscountPercent    float64       `mapstructure:"home_discount_percent"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	HaltOnError            bool          `mapstructure:"halt_on_error"`
}

// ProfitThresholdDecimal returns the profit threshold in percent.
func (c *TradingConfig) ProfitThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ProfitThresholdPercent)
}

// MaxTradeNotionalDecimal returns the per-trade notional cap.
func (c *TradingConfig) MaxTradeNotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxTradeNotional)
}

// MinTradeNotionalDecimal returns the smallest notional worth trading.
func (c *TradingConfig) MinTradeNotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinTradeNotional)
}

// HomeDiscountDecimal returns the threshold discount applied when buying with the home stablecoin.
func (c *TradingConfig) HomeDiscountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.HomeDiscountPercent)
}

// PegConfig holds the USDT/USD peg limit-order settings.
type PegConfig struct {
	Symbol     string        `mapstructure:"symbol"`
	BaseAsset  string        `mapstructure:"base_asset"`
	QuoteAsset string        `mapstructure:"quote_asset"`
	OrderSize  string        `mapstructure:"order_size"`
	BuyPrice   string        `mapstructure:"buy_price"`
	SellPrice  string        `mapstructure:"sell_price"`
	Interval   time.Duration `mapstructure:"interval"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ZipkinEndpoint string `mapstructure:"zipkin_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port     int           `mapstructure:"port"`
	MaxStale time.Duration `mapstructure:"max_stale"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.loadCredentialFiles(); err != nil {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Exchange
	v.BindEnv("exchange.base_url", "ARB_EXCHANGE_BASE_URL")
	v.BindEnv("exchange.driver", "ARB_EXCHANGE_DRIVER")
	v.BindEnv("exchange.api_key", "ARB_API_KEY", "BINANCE_API_KEY")
	v.BindEnv("exchange.api_secret", "ARB_API_SECRET", "BINANCE_API_SECRET")
	v.BindEnv("exchange.api_key_file", "ARB_API_KEY_FILE")
	v.BindEnv("exchange.api_secret_file", "ARB_API_SECRET_FILE")
	v.BindEnv("exchange.dry_run", "ARB_DRY_RUN")
	v.BindEnv("exchange.trace_bodies", "ARB_TRACE_BODIES")

	// Trading
	v.BindEnv("trading.profit_threshold_percent", "ARB_PROFIT_THRESHOLD")
	v.BindEnv("trading.max_trade_notional", "ARB_MAX_TRADE")
	v.BindEnv("trading.poll_interval", "ARB_POLL_INTERVAL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.zipkin_endpoint", "ARB_ZIPKIN_ENDPOINT")
	v.BindEnv("telemetry.trace_provider", "ARB_TRACE_PROVIDER")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "stablearb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Exchange defaults
	v.SetDefault("exchange.base_url", "https://api.binance.us")
	v.SetDefault("exchange.driver", DriverREST)
	v.SetDefault("exchange.api_key_file", "api-public.txt")
	v.SetDefault("exchange.api_secret_file", "api-secret.txt")
	v.SetDefault("exchange.recv_window", "5s")
	v.SetDefault("exchange.request_timeout", "10s")
	v.SetDefault("exchange.requests_per_minute", 1200)
	v.SetDefault("exchange.dry_run", false)

	// Trading defaults
	v.SetDefault("trading.stablecoins", []string{"USD", "USDC", "USDT", "BUSD"})
	v.SetDefault("trading.base_tokens", []string{
		"BTC", "ETH", "ONE", "ADA", "VTHO", "VET", "ZIL", "ATOM", "BAT",
		"ALGO", "XLM", "LTC", "DOGE", "ZRX", "OMG", "UNI", "NEO", "MATIC",
	})
	v.SetDefault("trading.profit_threshold_percent", 0.25)
	v.SetDefault("trading.max_trade_notional", 100)
	v.SetDefault("trading.min_trade_notional", 10)
	v.SetDefault("trading.home_discount_percent", 0.075)
	v.SetDefault("trading.poll_interval", "150ms")
	v.SetDefault("trading.halt_on_error", false)

	// Peg defaults
	v.SetDefault("peg.symbol", "USDTUSD")
	v.SetDefault("peg.base_asset", "USDT")
	v.SetDefault("peg.quote_asset", "USD")
	v.SetDefault("peg.order_size", "100")
	v.SetDefault("peg.buy_price", "0.9989")
	v.SetDefault("peg.sell_price", "1.0015")
	v.SetDefault("peg.interval", "300s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "stablearb")
	v.SetDefault("telemetry.trace_provider", "ZIPKIN_PROVIDER")
	v.SetDefault("telemetry.zipkin_endpoint", "http://localhost:9411/api/v2/spans")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8081)
	v.SetDefault("health.max_stale", "1m")
}

// loadCredentialFiles fills missing key/secret from files. Missing files are ignored here;
// Validate reports absent credentials.
func (c *Config) loadCredentialFiles() error {
	read := func(path string) (string, error) {
		if path == "" {
			return "", nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil
			}
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	if c.Exchange.APIKey == "" {
		key, err := read(c.Exchange.APIKeyFile)
		if err != nil {
			return err
		}
		c.Exchange.APIKey = key
	}
	if c.Exchange.APISecret == "" {
		secret, err := read(c.Exchange.APISecretFile)
		if err != nil {
			return err
		}
		c.Exchange.APISecret = secret
	}
	return nil
}

func (c *Config) normalize() {
	for i, s := range c.Trading.Stablecoins {
		c.Trading.Stablecoins[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	for i, s := range c.Trading.BaseTokens {
		c.Trading.BaseTokens[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	c.Exchange.Driver = strings.ToLower(c.Exchange.Driver)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url is required")
	}
	if c.Exchange.Driver != DriverREST && c.Exchange.Driver != DriverSDK {
		return fmt.Errorf("exchange.driver must be %q or %q, got %q", DriverREST, DriverSDK, c.Exchange.Driver)
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("exchange api key and secret are required (inline, env or files)")
	}
	if len(c.Trading.Stablecoins) == 0 {
		return fmt.Errorf("trading.stablecoins cannot be empty")
	}
	if len(c.Trading.BaseTokens) == 0 {
		return fmt.Errorf("trading.base_tokens cannot be empty")
	}
	for _, token := range c.Trading.BaseTokens {
		if slices.Contains(c.Trading.Stablecoins, token) {
			return fmt.Errorf("base token %s is also a stablecoin", token)
		}
	}
	if c.Trading.MaxTradeNotional <= 0 {
		return fmt.Errorf("trading.max_trade_notional must be positive")
	}
	if c.Trading.MinTradeNotional < 0 || c.Trading.MinTradeNotional > c.Trading.MaxTradeNotional {
		return fmt.Errorf("trading.min_trade_notional must be between 0 and max_trade_notional")
	}
	if c.Trading.PollInterval < 0 {
		return fmt.Errorf("trading.poll_interval cannot be negative")
	}
	for name, val := range map[string]string{
		"peg.order_size": c.Peg.OrderSize,
		"peg.buy_price":  c.Peg.BuyPrice,
		"peg.sell_price": c.Peg.SellPrice,
	} {
		d, err := decimal.NewFromString(val)
		if err != nil || !d.IsPositive() {
			return fmt.Errorf("%s must be a positive decimal, got %q", name, val)
		}
	}
	return nil
}
