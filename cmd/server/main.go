package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/linkmint/linkmint/config"
	appmodel "github.com/linkmint/linkmint/internal/app/model"
	apprepository "github.com/linkmint/linkmint/internal/app/repository"
	appserver "github.com/linkmint/linkmint/internal/app/server"
	appservice "github.com/linkmint/linkmint/internal/app/service"
	"github.com/linkmint/linkmint/internal/infra/logger"
	infraNATS "github.com/linkmint/linkmint/internal/infra/nats"
	infraPostgres "github.com/linkmint/linkmint/internal/infra/postgres"
	infraPrometheus "github.com/linkmint/linkmint/internal/infra/prometheus"
	infraRedis "github.com/linkmint/linkmint/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
		zap.String("base_url", cfg.App.BaseURL),
	)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set; the create API cannot run without the auth gate")
	}

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Link{}, &appmodel.ResolveEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	cachedRepo := apprepository.NewCachedLinkRepository(linkRepo, redisClient, parseDuration(cfg.App.CacheTTL, time.Hour))
	eventRepo := apprepository.NewResolveEventRepository(gormDB)

	codeFilter := appservice.NewCodeFilter()
	warmed, err := codeFilter.Warm(ctx, linkRepo)
	if err != nil {
		log.Fatal("Failed to warm code filter", zap.Error(err))
	}
	log.Info("Code filter warmed", zap.Int("codes", warmed))

	linkService := appservice.NewLinkService(appservice.LinkServiceDeps{
		Repo:   cachedRepo,
		Filter: codeFilter,
	})

	resolvePublisher := appservice.NewResolvePublisher(js)
	resolveConsumer := appservice.NewResolveConsumer(js, log, eventRepo)
	if err := resolveConsumer.Start(); err != nil {
		log.Fatal("Failed to start resolve event consumer", zap.Error(err))
	}

	sweeper := appservice.NewExpirySweeper(log, linkRepo, parseDuration(cfg.App.SweepInterval, 10*time.Minute))
	sweeper.Start()
	defer sweeper.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:           log,
		Postgres:         pool,
		Redis:            redisClient,
		NATS:             natsConn,
		JetStream:        js,
		LinkService:      linkService,
		ResolvePublisher: resolvePublisher,
		BaseURL:          cfg.App.BaseURL,
		JWTSecret:        []byte(cfg.Auth.JWTSecret),
	})

	port := cfg.App.Port
	if port == 0 {
		port = 8080
	}
	if err := server.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
