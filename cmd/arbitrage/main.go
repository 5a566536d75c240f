// Package main is the entry point for the Binance.US stablecoin arbitrage bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/stablearb/business/arbitrage"
	arbitrageDI "github.com/fd1az/stablearb/business/arbitrage/di"
	"github.com/fd1az/stablearb/business/market"
	marketDI "github.com/fd1az/stablearb/business/market/di"
	"github.com/fd1az/stablearb/business/peg"
	pegDI "github.com/fd1az/stablearb/business/peg/di"
	"github.com/fd1az/stablearb/internal/apm"
	"github.com/fd1az/stablearb/internal/config"
	"github.com/fd1az/stablearb/internal/health"
	"github.com/fd1az/stablearb/internal/logger"
	"github.com/fd1az/stablearb/internal/metrics"
	"github.com/fd1az/stablearb/internal/monolith"
	"github.com/fd1az/stablearb/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const (
	modeArbitrage = "arbitrage"
	modePeg       = "peg"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	mode := flag.String("mode", modeArbitrage, "Trading mode: arbitrage or peg")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stablearb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if *mode != modeArbitrage && *mode != modePeg {
		fmt.Fprintf(os.Stderr, "error: unknown mode %q\n", *mode)
		os.Exit(2)
	}

	// The dashboard only renders arbitrage events; peg always logs.
	tuiMode := !*cliMode && *mode == modeArbitrage

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *mode, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, mode string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = tuiMode

	var out io.Writer = os.Stderr
	if tuiMode {
		// Logs would tear the alt screen.
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	defer log.Sync() //nolint:errcheck

	log.Info(ctx, "starting stablecoin arbitrage bot",
		"version", version,
		"mode", mode,
		"environment", cfg.App.Environment,
		"driver", cfg.Exchange.Driver,
		"dry_run", cfg.Exchange.DryRun)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Telemetry.Enabled {
		shutdown, err := setupTelemetry(gctx, g, cfg.Telemetry, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	mono := monolith.New(cfg, log)

	modules := []monolith.Module{&market.Module{}}
	if mode == modePeg {
		modules = append(modules, &peg.Module{})
	} else {
		modules = append(modules, &arbitrage.Module{})
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	healthServer.SetInfo("mode", mode)
	healthServer.SetInfo("driver", cfg.Exchange.Driver)
	healthServer.SetInfo("dry_run", strconv.FormatBool(cfg.Exchange.DryRun))
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(shutdownCtx)
	}()

	switch {
	case mode == modePeg:
		if err := mono.StartModules(gctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		pegTrader := pegDI.GetPegTrader(mono.Services())
		registerChecks(healthServer, mono, "peg_rounds", pegTrader.LastSuccess)
		g.Go(func() error { return pegTrader.Run(gctx) })

	case tuiMode:
		startModules := func(ctx context.Context) error {
			return mono.StartModules(ctx, modules...)
		}
		g.Go(func() error { return runTUI(gctx, mono, startModules, healthServer) })

	default:
		if err := mono.StartModules(gctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		trader := arbitrageDI.GetTrader(mono.Services())
		registerChecks(healthServer, mono, "trading_cycles", trader.LastSuccess)
		g.Go(func() error { return trader.Run(gctx) })
	}

	err = g.Wait()
	log.Info(context.Background(), "shutdown complete")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// registerChecks adds the loop staleness check and, for drivers behind a
// circuit breaker, the breaker check. Modules must be started.
func registerChecks(s *health.Server, mono monolith.Monolith, name string, last func() time.Time) {
	s.RegisterCheck(name, health.Staleness(last, mono.Config().Health.MaxStale))
	if br, ok := marketDI.GetExchange(mono.Services()).(market.BreakerReporter); ok {
		s.RegisterCheck("exchange_breaker", health.Breaker(func() fmt.Stringer {
			return br.BreakerState()
		}))
	}
}

// setupTelemetry installs the tracer and meter providers and serves the
// Prometheus scrape endpoint on g. The returned func flushes both providers.
func setupTelemetry(ctx context.Context, g *errgroup.Group, cfg config.TelemetryConfig, log logger.LoggerInterface) (func(), error) {
	headers := metrics.ParseHeaders(cfg.OTLPHeaders)

	provider := apm.Provider(cfg.TraceProvider)
	endpoint := cfg.OTLPEndpoint
	if provider == apm.ZipkinProvider {
		endpoint = cfg.ZipkinEndpoint
	}
	tp, err := apm.NewTraceProvider(log, apm.Config{
		Provider:    provider,
		ServiceName: cfg.ServiceName,
		Endpoint:    endpoint,
		Headers:     headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(cfg.OTLPEndpoint, headers, metrics.InsecureOtel),
		))
	}
	mp, err := metrics.NewMetricProvider(opts...)
	if err != nil {
		_ = tp.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	port := cfg.PrometheusPort
	if port == 0 {
		port = 9090
	}
	g.Go(func() error {
		return metrics.ServePrometheusMetrics(ctx, log, metrics.WithPort(strconv.Itoa(port)))
	})

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "metric provider shutdown", "error", err)
		}
		if err := tp.Stop(); err != nil {
			log.Warn(shutdownCtx, "trace provider shutdown", "error", err)
		}
	}, nil
}

// runTUI shows the dashboard immediately and starts trading once the welcome
// screen completes. Quitting the dashboard returns context.Canceled so the
// rest of the group stops.
func runTUI(ctx context.Context, mono monolith.Monolith, startModules func(context.Context) error, healthServer *health.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	botErr := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			botErr <- nil
			return
		}
		botErr <- startTrading(ctx, mono, startModules, healthServer)
	}()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	cancel()

	if err := <-botErr; err != nil {
		return err
	}
	return context.Canceled
}

func startTrading(ctx context.Context, mono monolith.Monolith, startModules func(context.Context) error, healthServer *health.Server) error {
	cfg := mono.Config()
	ui.Send(ui.StartupMsg{Step: "config", Status: "done"})

	if err := startModules(ctx); err != nil {
		ui.Send(ui.StartupMsg{Step: "exchange", Status: "failed", Message: err.Error()})
		return fmt.Errorf("failed to start modules: %w", err)
	}

	svc := marketDI.GetMarketService(mono.Services())
	trader := arbitrageDI.GetTrader(mono.Services())

	ui.Send(ui.StartupMsg{Step: "exchange", Status: "connecting", Message: cfg.Exchange.BaseURL})
	start := time.Now()
	if err := trader.Initialize(ctx); err != nil {
		ui.Send(ui.StartupMsg{Step: "exchange", Status: "failed", Message: err.Error()})
		ui.Send(ui.ErrorMsg{Error: err})
		return err
	}
	latency := time.Since(start)

	status := ui.ConnectionStatusMsg{
		Name:      svc.ExchangeName(),
		Connected: true,
		Latency:   latency,
		DryRun:    cfg.Exchange.DryRun,
	}
	if br, ok := marketDI.GetExchange(mono.Services()).(market.BreakerReporter); ok {
		status.Breaker = br.BreakerState().String()
	}
	ui.Send(ui.StartupMsg{Step: "exchange", Status: "connected", Message: latency.Round(time.Millisecond).String()})
	ui.Send(status)

	registerChecks(healthServer, mono, "trading_cycles", trader.LastSuccess)

	if err := trader.Run(ctx); err != nil {
		ui.Send(ui.ErrorMsg{Error: err})
		return err
	}
	return nil
}
