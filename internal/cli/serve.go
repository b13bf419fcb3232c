package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"toko-checkout/internal/payment"
	"toko-checkout/internal/reaper"
	"toko-checkout/internal/server"
	"toko-checkout/internal/services"
	"toko-checkout/internal/session"
	"toko-checkout/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the checkout reaper and the profile consumer",
		Long: `Start the checkout API on APP_PORT.

Redis sessions are enabled when REDIS_ADDR is set. Order events and profile
address sync are enabled when RABBITMQ_URL is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "insert the demo product catalog before serving")
	return cmd
}

func runServe(parent context.Context, seed bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger, store := rt.cfg, rt.logger, rt.store

	checks := map[string]server.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := store.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	auth := services.NewAuthService(store.Users, cfg.JWTSecret)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		sessions := session.NewRedisStore(client, cfg.SessionTTL)
		if err := sessions.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		auth = auth.WithSessions(sessions)
		checks["redis"] = sessions.Ping
		logger.Info("redis sessions enabled", zap.String("addr", cfg.RedisAddr))
	}

	var (
		orderEvents services.OrderEventPublisher
		addresses   services.AddressPublisher
		mq          *rabbitmq.Client
	)
	if cfg.RabbitMQURL != "" {
		mq, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			return err
		}
		defer mq.Close()
		orderEvents, addresses = mq, mq
	}

	reg, m := newRegistry()
	products := services.NewProductService(store.Products)
	checkouts := rt.checkouts(m, addresses)
	orders := services.NewOrderService(store, orderEvents, m, logger)
	gateway := payment.NewPayPalGateway(payment.PayPalConfig{
		BaseURL:      cfg.PayPalAPIBase,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Timeout:      cfg.PayPalTimeout,
	}, logger)
	profiles := services.NewProfileService(store.Users, logger)

	if seed {
		if _, err := seedProducts(ctx, products, logger); err != nil {
			return err
		}
	}

	if mq != nil {
		err := mq.Consume(rabbitmq.ProfileAddressQueue, func(body []byte) error {
			return profiles.HandleAddressEvent(ctx, body)
		})
		if err != nil {
			return err
		}
	}

	if cfg.ReaperInterval > 0 {
		go reaper.New(checkouts, cfg.ReaperInterval, logger).Run(ctx)
	}

	app := server.New(server.Deps{
		Auth:       auth,
		Products:   products,
		Carts:      services.NewCartService(store, logger),
		Checkouts:  checkouts,
		Payments:   services.NewPaymentService(store, gateway, checkouts, orders, m, logger),
		Orders:     orders,
		Profiles:   profiles,
		SessionTTL: cfg.SessionTTL,
		Storefront: cfg.StorefrontOrigin,
		Gatherer:   reg,
		Checks:     checks,
		Logger:     logger,
		AccessLog:  true,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.AppPort))
		listenErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
	return nil
}
