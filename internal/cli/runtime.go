package cli

import (
	"context"
	"fmt"

	"toko-checkout/internal/config"
	"toko-checkout/internal/metrics"
	"toko-checkout/internal/pricing"
	"toko-checkout/internal/repositories"
	"toko-checkout/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// runtime is the state shared by every command: configuration, logger and the
// migrated store.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *repositories.Store
	close  func()
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	dbLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		dbLevel = gormlogger.Info
	}
	db, err := repositories.Open(repositories.DatabaseConfig{
		Driver:   cfg.DatabaseDriver,
		DSN:      cfg.DatabaseDSN,
		LogLevel: dbLevel,
	})
	if err != nil {
		return nil, err
	}
	if err := repositories.Migrate(db.WithContext(ctx)); err != nil {
		return nil, err
	}
	logger.Info("database ready", zap.String("driver", cfg.DatabaseDriver))

	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  repositories.NewStore(db),
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
			_ = logger.Sync()
		},
	}, nil
}

// checkouts builds the checkout service with the configured TTL. addresses may be nil.
func (r *runtime) checkouts(m *metrics.Checkout, addresses services.AddressPublisher) *services.CheckoutService {
	return services.NewCheckoutService(r.store, pricing.NewEngine(), services.CheckoutOptions{
		TTL:       r.cfg.CheckoutTTL,
		Addresses: addresses,
		Metrics:   m,
		Logger:    r.logger,
	})
}

func newRegistry() (*prometheus.Registry, *metrics.Checkout) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, metrics.NewCheckout(reg)
}
