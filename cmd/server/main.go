package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/config"
	"github.com/ignatzorin/servicehub-backend/internal/db"
	"github.com/ignatzorin/servicehub-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/servicehub-backend/internal/http/handlers"
	"github.com/ignatzorin/servicehub-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/servicehub-backend/internal/http/router"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/service"
	"github.com/ignatzorin/servicehub-backend/internal/storage"
	"github.com/ignatzorin/servicehub-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if cfg.IsDevelopment() {
		logLevel = "debug"
	}
	logger.Init(logLevel, cfg.IsDevelopment())

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose("postgres", dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	healthChecks := map[string]httpHandlers.HealthCheck{
		"database": dbConn.PingContext,
	}

	// Redis нужен только для общего счётчика rate limit между инстансами.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("main: некорректный REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer safeClose("redis", redisClient)
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	limiterStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		logger.Log.Fatalf("main: не удалось создать стор rate limit: %v", err)
	}

	// Доставка OTP: kafka, если заданы брокеры, иначе в лог.
	var notifier service.Notifier = service.NewLogNotifier()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := service.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaOTPTopic)
		defer safeClose("kafka", kafkaNotifier)
		notifier = kafkaNotifier
	}

	imageStorage, err := storage.NewImageStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	cache := service.NewCacheService(ctx, time.Minute)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	otpRepo := repository.NewOTPRepository(dbConn)
	eventRepo := repository.NewSecurityEventRepository(dbConn)
	catalogRepo := repository.NewCatalogRepository(dbConn)
	providerRepo := repository.NewProviderRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGo(func() { hub.Run(ctx) })

	// Сервисы.
	authService := service.NewAuthService(userRepo, otpRepo, eventRepo, hasher, tokenManager, notifier, service.AuthConfig{OTPTTL: cfg.OTPTTL})
	profileService := service.NewProfileService(userRepo)
	catalogService := service.NewCatalogService(catalogRepo)
	providerService := service.NewProviderService(providerRepo, catalogRepo, reviewRepo, imageStorage, cache, cfg.CacheTTL)
	reviewService := service.NewReviewService(reviewRepo, providerRepo, hub, cache)

	handlers := httpRouter.Handlers{
		Auth:     httpHandlers.NewAuthHandler(authService),
		Profile:  httpHandlers.NewProfileHandler(profileService),
		Catalog:  httpHandlers.NewCatalogHandler(catalogService),
		Provider: httpHandlers.NewProviderHandler(providerService),
		Review:   httpHandlers.NewReviewHandler(reviewService),
		Feed:     httpHandlers.NewFeedHandler(hub, providerService, cfg.AllowedOrigins),
		Health:   httpHandlers.NewHealthHandler(healthChecks),
	}
	if cfg.SeedEnabled {
		seedService := service.NewSeedService(userRepo, catalogRepo, providerRepo, reviewRepo, hasher)
		handlers.Seed = httpHandlers.NewSeedHandler(seedService)
	}

	engine := httpRouter.SetupRouter(cfg, limiterStore, tokenManager, handlers)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":  cfg.HTTPPort,
		"env":   cfg.Env,
		"redis": redisClient != nil,
		"kafka": len(cfg.KafkaBrokers) > 0,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает ресурс и логирует ошибку.
func safeClose(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Log.Errorf("main: ошибка закрытия %s: %v", name, err)
	}
}
