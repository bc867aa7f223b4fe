// Package cli holds the start-up code shared by cmd/imprimecheque,
// cmd/cheque-worker and cmd/cheque-seed.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"imprimecheque/internal/amqp"
	"imprimecheque/internal/backend"
	"imprimecheque/internal/cache"
	"imprimecheque/internal/compositor"
	"imprimecheque/internal/config"
	"imprimecheque/internal/log"
	"imprimecheque/internal/metrics"
	"imprimecheque/internal/services"
	"imprimecheque/internal/spell"
	"imprimecheque/internal/templates"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.Format = log.ParseFormat(os.Getenv("LOG_FORMAT"))
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is ignored.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App is a wired CheckService and what it needs to shut down.
type App struct {
	Service *services.CheckService
	Caches  *cache.Manager
	Format  compositor.Format
}

// Close stops cache cleanup and closes the service.
func (a *App) Close() error {
	a.Caches.Stop()
	return a.Service.Close()
}

// BuildApp opens the backend, connects AMQP when configured and assembles
// the CheckService.
func BuildApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	currency, ok := spell.CurrencyByCode(cfg.Currency)
	if !ok {
		res.Cleanup()
		return nil, fmt.Errorf("unknown currency %q", cfg.Currency)
	}

	comp, format, err := newCompositor(cfg)
	if err != nil {
		res.Cleanup()
		return nil, err
	}

	var publisher services.Publisher
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Issuance works without events; the worker just has nothing to render.
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	caches := cache.NewManager()
	svc, err := services.NewCheckService(services.Options{
		Store:      res.Store,
		Templates:  templates.NewDir(cfg.TemplateDir),
		Publisher:  publisher,
		Speller:    spell.New(currency),
		Compositor: comp,
		Logger:     logger,
		Caches:     caches,
		CacheTTL:   cfg.LayoutCacheTTL,
	})
	if err != nil {
		res.Cleanup()
		if publisher != nil {
			publisher.Close()
		}
		return nil, err
	}

	caches.StartCleanup(cfg.LayoutCacheTTL)
	if err := metrics.RegisterCaches(caches); err != nil {
		logger.Warn("Cache metrics not registered", log.FieldError, err)
	}

	return &App{Service: svc, Caches: caches, Format: format}, nil
}

func newCompositor(cfg *config.Config) (*compositor.Compositor, compositor.Format, error) {
	format, err := compositor.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, "", err
	}
	regular, err := readOptional(cfg.FontRegular)
	if err != nil {
		return nil, "", err
	}
	bold, err := readOptional(cfg.FontBold)
	if err != nil {
		return nil, "", err
	}
	fonts, err := compositor.LoadFonts(regular, bold)
	if err != nil {
		return nil, "", err
	}
	comp, err := compositor.New(compositor.Options{Format: format, JPEGQuality: cfg.JPEGQuality, Fonts: fonts})
	if err != nil {
		return nil, "", err
	}
	return comp, format, nil
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return data, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs before the context is cancelled; done closes once shutdown finished
// or timeout elapsed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until shutdown finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// IgnoreCanceled drops context.Canceled, the normal end of a run.
func IgnoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
