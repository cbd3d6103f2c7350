package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loan-engine/config"
	httpLayer "loan-engine/http"
	"loan-engine/logging"
	"loan-engine/repository"
	"loan-engine/service"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Environment: logging.Environment(cfg.Environment),
		Level:       cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server exited")
}

func run(cfg config.Config, logger *zap.Logger) error {
	policy, err := config.LoadPolicyOrDefault(cfg.PolicyFile)
	if err != nil {
		return err
	}

	var loanRepo repository.LoanRepository
	if cfg.DBPath == "" {
		loanRepo = repository.NewLoanRepositoryMemory()
		logger.Info("using in-memory loan repository")
	} else {
		var db *sql.DB
		db, err = repository.InitDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		loanRepo = repository.NewLoanRepositorySQLite(db)
		logger.Info("using sqlite loan repository", zap.String("path", cfg.DBPath))
	}

	cache := newCache(cfg, logger)

	loanService := service.NewLoanService(loanRepo, cache, policy,
		service.WithLogger(logger),
		service.WithCacheTTL(cfg.CacheTTL),
	)
	loanHandler := httpLayer.NewLoanHandler(loanService, logger)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimitRPM, time.Minute)
	defer rateLimiter.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      httpLayer.NewRouter(loanHandler, rateLimiter, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
		logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}

// newCache connects to Redis when configured and falls back to the
// in-process cache if it is unreachable.
func newCache(cfg config.Config, logger *zap.Logger) repository.CacheRepository {
	if cfg.RedisAddr == "" {
		return repository.NewMockCache()
	}

	redisCache := repository.NewRedisCache(cfg.RedisAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-process cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = redisCache.Close()
		return repository.NewMockCache()
	}
	return redisCache
}
