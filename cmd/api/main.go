package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/fairyhunter13/storefront-checkout/internal/config"
	"github.com/fairyhunter13/storefront-checkout/internal/event"
	"github.com/fairyhunter13/storefront-checkout/internal/handler"
	"github.com/fairyhunter13/storefront-checkout/internal/idempotency"
	"github.com/fairyhunter13/storefront-checkout/internal/repository"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	appvalidator "github.com/fairyhunter13/storefront-checkout/internal/validator"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("schema applied")
	}

	// Redis and Kafka are optional. Without them checkout runs without
	// idempotency keys and events are only logged.
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = idempotency.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.IdempotencyTTL).Msg("checkout idempotency enabled")
	}

	var publisher service.EventPublisher = event.LogPublisher{}
	var writer *kafka.Writer
	if cfg.Kafka.Enabled() {
		writer = event.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		publisher = event.NewKafkaPublisher(writer)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.OrderTopic).Msg("order events go to kafka")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Checkout",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := appvalidator.New()

	productRepo := repository.NewProductRepository(pool)
	voucherRepo := repository.NewVoucherRepository(pool)
	usageRepo := repository.NewVoucherUsageRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	loc := cfg.Checkout.Location()
	voucherService := service.NewVoucherService(pool, voucherRepo, usageRepo)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo)
	checkoutService := service.NewCheckoutService(pool, productRepo, orderRepo, cartRepo, voucherService).
		WithClock(time.Now, loc).
		WithPublisher(publisher)
	if rdb != nil {
		checkoutService.WithIdempotency(idempotency.NewRedisGuard(rdb, cfg.Redis.IdempotencyTTL))
	}
	orderService := service.NewOrderService(pool, orderRepo, productRepo).WithPublisher(publisher)
	reviewService := service.NewReviewService(reviewRepo, orderRepo)

	var healthDeps []handler.Dependency
	if rdb != nil {
		healthDeps = append(healthDeps, handler.Dependency{
			Name:   "redis",
			Pinger: handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		})
	}

	handler.RegisterRoutes(app, handler.Handlers{
		Health:   handler.NewHealthHandler(pool, healthDeps...),
		Product:  handler.NewProductHandler(productService, validate),
		Voucher:  handler.NewVoucherHandler(voucherService, validate),
		Cart:     handler.NewCartHandler(cartService, validate),
		Checkout: handler.NewCheckoutHandler(checkoutService, validate),
		Order:    handler.NewOrderHandler(orderService, validate),
		Review:   handler.NewReviewHandler(reviewService, validate),
	})

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("order_timezone", loc.String()).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// In-flight checkouts finish before their dependencies go away.
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			log.Error().Err(err).Msg("error closing kafka writer")
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}

	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
