// Package main runs the background worker: store health checks and their periodic sweep.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bufbuild/httplb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/merchant-ops/backend/config"
	"github.com/merchant-ops/backend/internal/healthcheck"
	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/live"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/internal/stores"
	"github.com/merchant-ops/backend/pkg/database"
	"github.com/merchant-ops/backend/pkg/logger"
	"github.com/merchant-ops/backend/pkg/querycache"
	"github.com/merchant-ops/backend/pkg/queue"
	"github.com/merchant-ops/backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, zl)
	if err != nil {
		zl.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	httpClient := httplb.NewClient(httplb.WithDefaultTimeout(cfg.Warehance.Timeout()))
	defer httpClient.Close()

	// Publish-only hub: server instances holding the sessions receive the invalidation.
	hub := live.NewHub(zl, live.NewRedisPubSub(rdb.Client, zl), nil)
	invalidator := listing.NewCacheInvalidator(querycache.New(rdb.Client, zl), hub, zl)

	checkers := healthcheck.NewRegistry()
	checkers.Register(models.PlatformWarehance, healthcheck.NewWarehanceChecker(cfg.Warehance.BaseURL, httpClient, zl))

	storeRepo := stores.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, zl)
	processor := healthcheck.NewProcessor(storeRepo, checkers, invalidator, jobQueue, zl)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(workerCtx)
	g.Go(func() error {
		processor.Run(gctx)
		return nil
	})
	g.Go(func() error {
		processor.RunSweeps(gctx, cfg.HealthCheck.Interval())
		return nil
	})
	zl.Info("worker started", zap.Duration("sweep_interval", cfg.HealthCheck.Interval()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		zl.Warn("worker did not stop in time")
	}
	zl.Info("worker stopped")
}
