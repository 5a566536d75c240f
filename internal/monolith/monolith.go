// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/stablearb/internal/config"
	"github.com/fd1az/stablearb/internal/di"
	"github.com/fd1az/stablearb/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	container di.Container
}

// New creates a new Monolith instance with config and logger registered as
// global services.
func New(cfg *config.Config, log logger.LoggerInterface) *app {
	container := di.NewContainer()

	container.Register("config", cfg)
	container.Register("logger", log)

	return &app{
		config:    cfg,
		logger:    log,
		container: container,
	}
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules in order.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %s: %w", moduleName(m), err)
		}
	}
	return nil
}

// StartModules starts modules in order. Service factories panic on bad
// configuration; the panic is returned as the module's startup error.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		start := time.Now()
		if err := a.startup(ctx, m); err != nil {
			return fmt.Errorf("start %s: %w", moduleName(m), err)
		}
		a.logger.Debug(ctx, "module started", "module", moduleName(m), "took", time.Since(start).String())
	}
	return nil
}

func (a *app) startup(ctx context.Context, m Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return m.Startup(ctx, a)
}

// moduleName turns *market.Module into "market".
func moduleName(m Module) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", m), "*")
	name, _, _ = strings.Cut(name, ".")
	return name
}
