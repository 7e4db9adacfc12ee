package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/widget/internal/application/promotion"
	"github.com/storefront/widget/internal/application/storefront"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"github.com/storefront/widget/internal/domain/shared/strategy"
	"github.com/storefront/widget/internal/domain/shared/valueobject"
	"github.com/storefront/widget/internal/infrastructure/config"
	"github.com/storefront/widget/internal/infrastructure/event"
	"github.com/storefront/widget/internal/infrastructure/logger"
	"github.com/storefront/widget/internal/infrastructure/persistence"
	"github.com/storefront/widget/internal/infrastructure/scheduler"
	"github.com/storefront/widget/internal/infrastructure/telemetry"
	"github.com/storefront/widget/internal/interfaces/display"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultConfig().TimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Storefront stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting storefront widget",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
	)

	// Telemetry
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           cfg.Telemetry.TracingEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log = telemetry.Bridge(log, loggerProvider.NewZapCore(level))

	ctx, _ = logger.WithSessionID(ctx, log, uuid.NewString())

	metrics, err := telemetry.NewStorefrontMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		return err
	}

	// Event bus
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(promotion.NewActivityHandler(metrics, log))
	if err := bus.Start(ctx); err != nil {
		return err
	}

	// Catalog and cart
	clock := shared.SystemClock{}
	products := persistence.NewInMemoryProductRepository(bus, clock, log)
	firstID, err := seedCatalog(ctx, products, cfg.Catalog.Products)
	if err != nil {
		return err
	}
	carts := persistence.NewInMemoryCartStore(products, bus, clock, log)

	// Pricing and display
	pricing := strategy.NewPromotionalPricingStrategy(
		decimal.NewFromInt(int64(cfg.Pricing.DiscountRate)),
		decimal.NewFromInt(int64(cfg.Pricing.SuggestionRate)),
	)
	summary := storefront.NewSummaryCalculator(pricing,
		valueobject.Currency(cfg.Pricing.Currency),
		decimal.NewFromInt(int64(cfg.Pricing.TuesdayRate)),
	)
	format, err := display.NewFormatter(cfg.Display.Locale)
	if err != nil {
		return err
	}
	registry, err := display.NewRegistry(display.NewLogSurface(log.Named("display")), format)
	if err != nil {
		return err
	}

	// Orchestrator
	orch, err := storefront.NewOrchestrator(products, carts, registry,
		storefront.WithClock(clock),
		storefront.WithSummaryCalculator(summary),
		storefront.WithMetrics(metrics),
		storefront.WithLogger(log),
		storefront.WithInitialSelection(firstID),
	)
	if err != nil {
		return err
	}
	if err := orch.RefreshAll(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	// Promotions
	promotions := promotion.NewService(orch, products, promotion.Config{
		DiscountDuration:   cfg.Scheduler.DiscountDuration,
		SuggestionDuration: cfg.Scheduler.SuggestionDuration,
	}, promotion.WithClock(clock), promotion.WithMetrics(metrics), promotion.WithLogger(log))

	promotionScheduler, err := scheduler.NewPromotionScheduler(scheduler.PromotionSchedulerConfig{
		DiscountEnabled:           cfg.Scheduler.DiscountEnabled,
		DiscountInitialDelayMax:   cfg.Scheduler.DiscountInitialDelayMax,
		DiscountInterval:          cfg.Scheduler.DiscountInterval,
		SuggestionEnabled:         cfg.Scheduler.SuggestionEnabled,
		SuggestionInitialDelayMax: cfg.Scheduler.SuggestionInitialDelayMax,
		SuggestionInterval:        cfg.Scheduler.SuggestionInterval,
		ExpiryCheckInterval:       cfg.Scheduler.ExpiryCheckInterval,
	}, promotions, log)
	if err != nil {
		return err
	}
	if err := promotionScheduler.Start(ctx); err != nil {
		return err
	}

	// Shopper input
	go newConsole(orch, os.Stdout, log).Run(ctx, os.Stdin)

	logger.L(ctx).Info("Storefront ready", zap.String("selection", firstID.String()))
	<-ctx.Done()
	log.Info("Shutting down storefront...")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.StopTimeout)
	defer cancel()

	var errs []error
	errs = append(errs, promotionScheduler.Stop(stopCtx))
	errs = append(errs, orch.Close())
	errs = append(errs, bus.Stop(stopCtx))
	errs = append(errs, tracerProvider.Shutdown(stopCtx))
	errs = append(errs, meterProvider.Shutdown(stopCtx))
	errs = append(errs, loggerProvider.Shutdown(stopCtx))
	return errors.Join(errs...)
}

// seedCatalog saves the configured products and returns the first id, which
// becomes the initial selection
func seedCatalog(ctx context.Context, products *persistence.InMemoryProductRepository, seeds []config.ProductSeed) (catalog.ProductID, error) {
	var first catalog.ProductID
	for i, seed := range seeds {
		p, err := catalog.NewProduct(catalog.ProductID(seed.ID), seed.Name, decimal.NewFromFloat(seed.Price), seed.Stock)
		if err != nil {
			return "", fmt.Errorf("seed product %s: %w", seed.ID, err)
		}
		if err := products.Save(ctx, p); err != nil {
			return "", fmt.Errorf("seed product %s: %w", seed.ID, err)
		}
		if i == 0 {
			first = p.ID
		}
	}
	return first, nil
}
