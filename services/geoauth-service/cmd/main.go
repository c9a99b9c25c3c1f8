package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GeoAuthPlatform/pkg/config"
	"GeoAuthPlatform/pkg/database"
	"GeoAuthPlatform/pkg/health"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/pkg/metrics"
	"GeoAuthPlatform/pkg/rabbitmq"
	"GeoAuthPlatform/pkg/ratelimit"
	pkg_redis "GeoAuthPlatform/pkg/redis"
	"GeoAuthPlatform/pkg/validation"
	"GeoAuthPlatform/services/geoauth-service/internal/audit"
	"GeoAuthPlatform/services/geoauth-service/internal/geocoder"
	geoauth_http "GeoAuthPlatform/services/geoauth-service/internal/handler/http"
	"GeoAuthPlatform/services/geoauth-service/internal/pkg/password"
	"GeoAuthPlatform/services/geoauth-service/internal/pkg/token"
	"GeoAuthPlatform/services/geoauth-service/internal/repository/migrations"
	"GeoAuthPlatform/services/geoauth-service/internal/repository/postgres"
	"GeoAuthPlatform/services/geoauth-service/internal/repository/redis"
	"GeoAuthPlatform/services/geoauth-service/internal/service"
)

const serviceName = "geoauth-service"

func main() {
	// Инициализация конфигурации
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, serviceName)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		if err := appLogger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	// Инициализация трассировки
	if err := metrics.InitializeOpenTelemetry(serviceName); err != nil {
		appLogger.Warn("Failed to initialize tracing", logger.Error(err))
	}

	// Инициализация базы данных
	dbConfig := database.NewConfig()
	dbConfig.Host = cfg.Database.Host
	dbConfig.Port = cfg.Database.Port
	dbConfig.User = cfg.Database.User
	dbConfig.Password = cfg.Database.Password
	dbConfig.Database = cfg.Database.Name
	dbConfig.SSLMode = cfg.Database.SSLMode

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	postgresDB, err := database.Connect(ctx, dbConfig)
	if err != nil {
		appLogger.Error("Failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer postgresDB.Close()

	// Применение миграций через отдельное stdlib подключение
	if err := runMigrations(dbConfig); err != nil {
		appLogger.Error("Failed to run migrations", logger.Error(err))
		os.Exit(1)
	}

	// Инициализация Redis
	redisConfig := pkg_redis.NewConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize
	redisConfig.MinIdleConn = cfg.Redis.MinIdleConn

	redisCtx, redisCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer redisCancel()

	redisClient, err := pkg_redis.Connect(redisCtx, redisConfig)
	if err != nil {
		appLogger.Error("Failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Инициализация RabbitMQ для событий аудита
	rabbitConfig := rabbitmq.NewConfig()
	rabbitConfig.URL = cfg.RabbitMQ.URL
	rabbitConfig.Exchange = cfg.RabbitMQ.Exchange
	rabbitConfig.RoutingKey = cfg.RabbitMQ.RoutingKey
	rabbitConfig.Queue = cfg.RabbitMQ.Queue

	rabbitConn, err := rabbitmq.Connect(rabbitConfig)
	if err != nil {
		appLogger.Error("Failed to connect to rabbitmq", logger.Error(err))
		os.Exit(1)
	}
	defer rabbitConn.Close()

	producer := rabbitmq.NewProducer(rabbitConn, rabbitConfig)
	auditDispatcher := audit.NewDispatcher(producer, appLogger, 256)
	defer auditDispatcher.Close()

	// Инициализация репозиториев
	userRepo := postgres.NewUserRepository(postgresDB.Pool)
	sessionRepo := postgres.NewSessionRepository(postgresDB.Pool)
	searchRepo := postgres.NewSearchResultRepository(postgresDB.Pool)

	cacheTTL, err := time.ParseDuration(cfg.Cache.RedisTTL)
	if err != nil {
		appLogger.Error("Invalid cache.redis_ttl", logger.Error(err))
		os.Exit(1)
	}
	searchCache := redis.NewSearchCache(redisClient.Client, cacheTTL)

	// Инициализация геокодера
	geocoderTimeout, err := time.ParseDuration(cfg.Geocoder.Timeout)
	if err != nil {
		appLogger.Error("Invalid geocoder.timeout", logger.Error(err))
		os.Exit(1)
	}
	geoClient := geocoder.NewClient(geocoder.Config{
		BaseURL:       cfg.Geocoder.BaseURL,
		APIKey:        cfg.Geocoder.APIKey,
		Timeout:       geocoderTimeout,
		RetryAttempts: cfg.Geocoder.RetryAttempts,
	}, &http.Client{}, appLogger)

	// Инициализация сервисов
	validator := validation.NewValidator()
	metricCollector := metrics.NewMetrics("geoauth_service")

	sessionService := service.NewSessionManager(sessionRepo, token.NewRandomGenerator())
	authService := service.NewAuthService(
		userRepo,
		sessionService,
		password.NewBcryptHasher(0),
		validator,
		auditDispatcher,
		metricCollector,
		appLogger,
	)
	searchService := service.NewSearchService(
		searchRepo,
		searchCache,
		geoClient,
		validator,
		metricCollector,
		appLogger,
	)

	// Health probes для всех зависимостей
	healthChecker := health.NewDependencyHealthChecker("1.0.0")
	healthChecker.AddProbe("postgres", postgresDB.HealthCheck)
	healthChecker.AddProbe("redis", redisClient.HealthCheck)
	healthChecker.AddProbe("rabbitmq", func(ctx context.Context) error {
		if rabbitConn.Channel() == nil {
			return fmt.Errorf("rabbitmq channel is not initialized")
		}
		return nil
	})

	// Сборка маршрутов
	handler := geoauth_http.NewHandler(authService, searchService, geoauth_http.CookieConfig{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.CookieMaxAge,
		Secure: cfg.Environment != "dev",
	}, appLogger)

	router := geoauth_http.NewRouter(geoauth_http.RouterConfig{
		Handler:     handler,
		Sessions:    sessionService,
		RateLimiter: ratelimit.NewRedisRateLimiter(redisClient.Client),
		RateLimit:   cfg.RateLimiting.RequestsPerMinute,
		RateWindow:  time.Minute,
		CookieName:  cfg.Session.CookieName,
		CSRFHeader:  cfg.Session.CSRFHeader,
		Metrics:     metricCollector,
		Health:      healthChecker,
		Logger:      appLogger,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		appLogger.Info("Starting geoauth service server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", logger.Error(err))
		}
	}()

	// Обработка сигналов для graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown failed", logger.Error(err))
	}

	appLogger.Info("Server stopped")
}

// runMigrations применяет goose миграции через database/sql
func runMigrations(dbConfig *database.Config) error {
	db, err := database.OpenStdlib(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	return migrations.Run(ctx, db)
}
