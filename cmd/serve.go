package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"

	"ticketd/config"
	"ticketd/internal/breaker"
	"ticketd/internal/gateway"
	"ticketd/internal/handlers"
	"ticketd/internal/lock"
	"ticketd/internal/services"
	"ticketd/internal/store"
	"ticketd/monitoring"
	"ticketd/security"
	"ticketd/utils"
)

// Start wires the whole service together and blocks until a shutdown
// signal arrives.
func Start() error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	setupLogger(cfg.Server.Environment)

	redisClient, err := utils.NewRedisClient(utils.RedisOptions{
		Address:    cfg.Redis.Address,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()
	slog.Info("connected to redis", "address", cfg.Redis.Address)

	st, err := store.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer st.Close()
	slog.Info("connected to postgres")

	lockBreaker := breaker.New("redis-lock", cfg.Breaker.Options())
	lockBreaker.OnStateChange(func(name string, from, to breaker.State) {
		slog.Warn("circuit breaker state change", "name", name, "from", from, "to", to)
		monitoring.SetBreakerState(name, int(to))
	})
	locker := lock.NewRedisLock(redisClient, lockBreaker)

	paystack := gateway.NewPaystack(cfg.Paystack)
	events := services.NewRedisEventPublisher(redisClient)

	purchaseService := services.NewPurchaseService(st, locker, paystack, cfg.Purchase)
	resaleService := services.NewResaleService(st, locker, paystack, cfg.Purchase)
	webhookService := services.NewWebhookService(st, events, paystack)

	e := echo.New()
	limiter := security.NewRateLimiter(redisClient, 30, time.Minute)
	handlers.NewPurchaseHandler(purchaseService, resaleService).Register(e, limiter.PurchaseRateLimit())
	handlers.NewWebhookHandler(webhookService).Register(e)
	handlers.NewHealthHandler(st, redisClient).Register(e)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	listener := services.NewCompletionListener(redisClient)
	go listener.Run(ctx)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", monitoring.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}
	go func() {
		slog.Info("metrics server listening", "port", cfg.Server.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: e,
	}
	go func() {
		slog.Info("api server listening", "port", cfg.Server.Port)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("api server shutdown failed", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", "error", err)
	}
	return nil
}

func setupLogger(environment string) {
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
