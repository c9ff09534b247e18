package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/velichkin/shorty/config"
	appmodel "github.com/velichkin/shorty/internal/app/model"
	apprepository "github.com/velichkin/shorty/internal/app/repository"
	appserver "github.com/velichkin/shorty/internal/app/server"
	appservice "github.com/velichkin/shorty/internal/app/service"
	"github.com/velichkin/shorty/internal/http/util"
	"github.com/velichkin/shorty/internal/infra/logger"
	infraNATS "github.com/velichkin/shorty/internal/infra/nats"
	infraPostgres "github.com/velichkin/shorty/internal/infra/postgres"
	infraPrometheus "github.com/velichkin/shorty/internal/infra/prometheus"
	infraRedis "github.com/velichkin/shorty/internal/infra/redis"
	"github.com/velichkin/shorty/internal/shortio"
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
		zap.Int("port", cfg.Server.Port),
		zap.String("shortio_domain", cfg.ShortIO.Domain),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.User{}, &appmodel.Link{}); err != nil {
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

	userRepo := apprepository.NewUserRepository(gormDB)
	linkRepo := apprepository.NewLinkRepository(gormDB)

	tokens := util.NewTokenSigner([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	authService := appservice.NewAuthService(userRepo, tokens)
	if err := authService.SeedEmailFilter(ctx); err != nil {
		log.Warn("Failed to seed email filter, signups fall back to lookups", zap.Error(err))
	}

	provider := shortio.NewClient(cfg.ShortIO, log)
	statsCache := appservice.NewRedisStatsCache(redisClient, 0, log)
	publisher := appservice.NewLinkEventPublisher(js)

	linkService := appservice.NewLinkService(appservice.LinkServiceDeps{
		Links:    linkRepo,
		Provider: provider,
		Cache:    statsCache,
		Events:   publisher,
		Logger:   log,
	})

	warmer := appservice.NewStatsWarmer(js, log, provider, statsCache)
	if err := warmer.Start(); err != nil {
		log.Warn("Failed to start stats warmer", zap.Error(err))
	}

	refresher := appservice.NewStatsRefresher(log, linkRepo, provider, statsCache, 100)
	refresher.Start()
	defer refresher.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:      log,
		Config:      cfg,
		Postgres:    pool,
		Redis:       redisClient,
		Tokens:      tokens,
		AuthService: authService,
		LinkService: linkService,
	})

	if err := server.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
