package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"longmail-backend/config"
	"longmail-backend/internal/api"
	"longmail-backend/internal/auth"
	"longmail-backend/internal/db"
	"longmail-backend/internal/engine"
	"longmail-backend/internal/lock"
	"longmail-backend/internal/logger"
	"longmail-backend/internal/metrics"
	"longmail-backend/internal/mw"
	"longmail-backend/internal/notification"
	"longmail-backend/internal/store"
	"longmail-backend/internal/sweeper"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	if err := logger.Init(cfg.Logging.Environment, cfg.Logging.Level); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	lg := logger.Get()
	lg.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		lg.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		lg.Fatal("failed to set up train locks", zap.Error(err))
	}
	defer closeLocker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	eng := engine.New(appStore, appStore, locker, metrics.NewAssignment(reg), engine.Options{
		EnforceDestination: cfg.Assignment.EnforceDestination,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		notifier       api.Notifier
		webpushOptions *webpush.Options
	)
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		lg.Warn("VAPID keys not configured, push notifications are disabled")
	} else {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.Size*64, appStore, webpushOptions)
		pool.Start(ctx)
		notifier = pool
	}

	var responses *mw.ResponseCache
	if cfg.Server.CacheTTL > 0 {
		responses = mw.NewResponseCache(cfg.Server.CacheTTL)
	}
	go sweeper.NewService(cfg.Assignment.SweepInterval, appStore, eng).OnChange(responses.Invalidate).Run(ctx)

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go sweepLimiter(ctx, limiter)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	handler := api.NewHandler(appStore, eng, issuer, notifier, webpushOptions)
	router := api.NewRouter(handler, api.RouterOptions{
		Cache:    responses,
		Gatherer: reg,
		Limiter:  limiter,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	lg.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("HTTP server Shutdown", zap.Error(err))
	}
	lg.Info("server gracefully stopped")
}

func newLocker(cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.Assignment.LockBackend != config.LockBackendRedis {
		return lock.NewLocalLocker(), func() {}, nil
	}

	rl, err := lock.NewRedisLocker(cfg.Redis.URL, cfg.Assignment.LockTTL)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rl.Ping(pingCtx); err != nil {
		rl.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Get().Info("using redis train locks", zap.Duration("ttl", cfg.Assignment.LockTTL))
	return rl, func() { rl.Close() }, nil
}

// sweepLimiter drops rate limit state for clients idle longer than ten minutes.
func sweepLimiter(ctx context.Context, limiter *mw.IPRateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := limiter.Sweep(10 * time.Minute); n > 0 {
				logger.Get().Debug("rate limiter swept", zap.Int("clients", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
