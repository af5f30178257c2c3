package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"plantdiag/internal/config"
	"plantdiag/internal/events"
	"plantdiag/internal/metrics"
	"plantdiag/internal/models"
	"plantdiag/internal/router"
	"plantdiag/internal/storage"
	"plantdiag/internal/telemetry"
	"plantdiag/internal/utils"
	"plantdiag/pkg/inference"
	"plantdiag/pkg/redis_limiter"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// shutdownTimeout 优雅退出等待时间
const shutdownTimeout = 15 * time.Second

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := models.OpenDB(&cfg.Database)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 推理客户端与并发限制
	client, err := inference.New(inference.Options{
		Transport: cfg.Inference.Transport,
		Endpoint:  cfg.Inference.Endpoint,
		Model:     cfg.Inference.Model,
		Timeout:   cfg.Inference.GetTimeout(),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()
	detector := inference.NewLimitedDetector(client, limiter, "inference:"+cfg.Inference.Model)

	// 文件存储
	files, err := storage.New(&cfg.Storage)
	if err != nil {
		return err
	}

	// 事件发布
	publisher := events.New(&cfg.Events)
	defer publisher.Close()

	// 错误上报
	reporter, err := telemetry.NewReporter(&cfg.Sentry, logger)
	if err != nil {
		return err
	}
	defer reporter.Flush(2 * time.Second)

	// 指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return fmt.Errorf("注册指标失败: %w", err)
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.JWT.GetExpireDuration())
	r := router.SetupRouter(cfg, jwtManager, utils.NewValidator(), logger, db, router.Infrastructure{
		Detector:  detector,
		Files:     files,
		Publisher: publisher,
		Reporter:  reporter,
		Metrics:   pipelineMetrics,
		Gatherer:  registry,
	})

	srv := &http.Server{
		Addr:              cfg.Server.GetAddress(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":      srv.Addr,
			"transport": cfg.Inference.Transport,
			"storage":   cfg.Storage.Backend,
		}).Info("服务器启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("正在关闭服务器")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLimiter 按配置创建推理并发限制器
func newLimiter(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (inference.Limiter, func(), error) {
	if cfg.Inference.Limiter != "redis" {
		return inference.NewConcurrencyLimiter(cfg.Inference.MaxConcurrency), func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddress(),
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("连接 redis 失败: %w", err)
	}

	limiter := redis_limiter.NewRedisLimiter(
		redisClient,
		cfg.Inference.MaxConcurrency,
		"plantdiag:slots",
		cfg.Redis.GetSlotTTL(),
		logger.WithField("component", "redis_limiter"),
	)
	return limiter, func() { _ = redisClient.Close() }, nil
}
