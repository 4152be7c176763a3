package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/pkg/logger"
	"marketplace/reviews-service/internal/app/reviews/config"
	"marketplace/reviews-service/internal/app/reviews/events"
	"marketplace/reviews-service/internal/app/reviews/handler"
	"marketplace/reviews-service/internal/app/reviews/infrastructure/cache"
	"marketplace/reviews-service/internal/app/reviews/infrastructure/database"
	"marketplace/reviews-service/internal/app/reviews/infrastructure/messaging"
	"marketplace/reviews-service/internal/app/reviews/repository"
	"marketplace/reviews-service/internal/app/reviews/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("reviews-service", cfg.LogLevel)

	logstashAddr := os.Getenv("LOGSTASH_ADDR")
	if logstashAddr != "" {
		if err := logger.InitLogstash(logstashAddr, "reviews-service", cfg.LogLevel); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", logstashAddr).Msg("Connected to Logstash")
		}
	}

	// === POSTGRESQL ===
	db, err := database.ConnectPostgres(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	logger.Info().Str("database", cfg.Database.DBName).Msg("Connected to PostgreSQL")

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("Failed to migrate schema")
		}
		logger.Info().Msg("Schema migrated")
	}

	// === REDIS ===
	redisClient, err := cache.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Dur("ttl", cfg.Redis.TTL).Msg("Connected to Redis")

	// === KAFKA ===
	kafkaProducer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().
		Str("topic", cfg.Kafka.Topic).
		Msg("Initialized Kafka producer")

	// === СЕРВИСЫ ===
	store := repository.NewStore(db)

	// Рейтинг пересчитывается в той же транзакции, что и изменение отзывов
	dispatcher := events.NewDispatcher()
	dispatcher.Subscribe(service.NewRatingAggregator(store).HandleReviewSetChanged)

	reviewService := service.NewReviewService(
		store,
		dispatcher,
		cache.NewRedisReviewCache(redisClient, cfg.Redis.TTL),
		kafkaProducer,
	)

	authMiddleware := handler.NewAuthMiddleware(cfg.JWT.Secret)
	reviewHandler := handler.NewReviewHandler(reviewService)
	router := handler.SetupRoutes(reviewHandler, authMiddleware)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("Starting Reviews Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Reviews Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Reviews Service stopped gracefully")
}
