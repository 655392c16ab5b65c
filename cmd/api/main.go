package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/refuel-storefront/internal/auth"
	"github.com/01moynul/refuel-storefront/internal/config"
	"github.com/01moynul/refuel-storefront/internal/database"
	"github.com/01moynul/refuel-storefront/internal/events"
	"github.com/01moynul/refuel-storefront/internal/handlers"
	"github.com/01moynul/refuel-storefront/internal/logger"
	"github.com/01moynul/refuel-storefront/internal/payment"
	"github.com/01moynul/refuel-storefront/internal/ratelimit"
	"github.com/01moynul/refuel-storefront/internal/repository"
	"github.com/01moynul/refuel-storefront/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// 0. --- Load Configuration (.env + environment) ---
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Database Connection ---
	client, db, err := database.OpenDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from database")
		}
	}()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to create indexes")
	}

	// 2. --- Order Events ---
	var publisher events.Publisher = events.Nop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.KafkaOrderTopic, log)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaOrderTopic).Msg("Publishing order events")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	// 3. --- Payment Gateway ---
	gateway := payment.NewGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	if !cfg.PaymentsEnabled() {
		log.Warn().Msg("Razorpay credentials not set; gateway orders are disabled")
	}

	// --- Application Setup ---
	users := repository.NewUserRepository(db)
	tokens := auth.NewTokenManager(cfg.JWTSecret)

	app := &handlers.Handlers{
		Users:     users,
		Products:  repository.NewProductRepository(db),
		Orders:    repository.NewOrderRepository(db),
		Tokens:    tokens,
		Payments:  gateway,
		Events:    publisher,
		Logger:    log,
		UploadDir: cfg.UploadDir,
		BaseURL:   cfg.BaseURL,
	}

	// --- Router Setup ---
	gin.SetMode(cfg.GinMode)
	router := routes.SetupRouter(app, routes.Deps{
		Tokens:         tokens,
		Limiter:        newLimiter(cfg, log),
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         log,
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting Refuel API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

// newLimiter throttles login, register and payment calls. A shared Redis
// window is used when REDIS_ADDR is set; otherwise each process keeps its own.
func newLimiter(cfg *config.Config, log zerolog.Logger) ratelimit.Limiter {
	if cfg.AuthRateLimit <= 0 {
		return nil
	}
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(cfg.AuthRateLimit, time.Minute)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable; using in-process rate limiter")
		_ = rdb.Close()
		return ratelimit.NewMemoryLimiter(cfg.AuthRateLimit, time.Minute)
	}
	return ratelimit.NewRedisLimiter(rdb, cfg.AuthRateLimit, time.Minute)
}
