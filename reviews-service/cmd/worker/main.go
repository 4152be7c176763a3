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
	"marketplace/reviews-service/internal/app/reviews/handler"
	"marketplace/reviews-service/internal/app/reviews/infrastructure/database"
	"marketplace/reviews-service/internal/app/reviews/processor"
	"marketplace/reviews-service/internal/app/reviews/repository"
	"marketplace/reviews-service/internal/app/reviews/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("reviews-worker", cfg.LogLevel)
	logger.Info().Msg("Starting Reviews Worker...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	// Нужен для сверки рейтингов товаров
	db, err := database.ConnectPostgres(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	logger.Info().Msg("Connected to PostgreSQL")

	// === ПОДКЛЮЧЕНИЕ К MONGODB ===
	// Журнал аудита событий отзывов
	mongoClient, err := database.ConnectMongoDB(cfg.MongoDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
		}
	}()
	logger.Info().Str("database", cfg.MongoDB.Database).Msg("Connected to MongoDB")

	// === СЕРВИСЫ ===
	auditRepo := repository.NewAuditRepository(mongoClient.Database(cfg.MongoDB.Database))
	auditSvc := service.NewAuditService(auditRepo)
	aggregator := service.NewRatingAggregator(repository.NewStore(db))

	// === KAFKA CONSUMER ===
	kafkaConsumer := processor.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, auditSvc)
	kafkaConsumer.Start(ctx)
	defer kafkaConsumer.Stop()

	// === CRON SCHEDULER ===
	cronScheduler := processor.NewCronScheduler(aggregator)
	if err := cronScheduler.Start(ctx, cfg.Worker.ReconcileSchedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Worker.ReconcileSchedule).Msg("Failed to start cron scheduler")
	}
	defer cronScheduler.Stop()

	// === HEALTHCHECK HTTP СЕРВЕР ===
	healthHandler := handler.NewHealthCheckHandler()
	healthHandler.AddCheck("database", sqlDB.PingContext)
	healthHandler.AddCheck("mongodb", func(ctx context.Context) error {
		return mongoClient.Ping(ctx, readpref.Primary())
	})

	mux := http.NewServeMux()
	healthHandler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Worker.HealthAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("address", cfg.Worker.HealthAddr).Msg("Starting healthcheck HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("topic", cfg.Kafka.Topic).
		Str("group", cfg.Kafka.GroupID).
		Str("schedule", cfg.Worker.ReconcileSchedule).
		Msg("Reviews Worker is running")

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Reviews Worker...")
	stop()
}
