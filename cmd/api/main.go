package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/config"
	"github.com/Aphatheology/future-stack-assessment/internal/database"
	"github.com/Aphatheology/future-stack-assessment/internal/logger"
	"github.com/Aphatheology/future-stack-assessment/internal/repository"
	"github.com/Aphatheology/future-stack-assessment/internal/server"
	"github.com/Aphatheology/future-stack-assessment/internal/worker"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, stopWorkers context.CancelFunc, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Stop background workers first so they do not touch a closing pool
	stopWorkers()

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// Load environment variables from .env if present
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting marketplace API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database
	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	db := dbService.DB()

	// Check database health
	health := dbService.Health(context.Background())
	log.Info("Database health check", zap.Any("health", health))

	// Run migrations
	if err := database.Migrate(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unreachable; rate limiting and token blacklist degrade open", zap.Error(err))
	}

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	sweeper := worker.NewIdempotencySweeper(
		repository.NewIdempotencyRepository(db),
		cfg.Worker.IdempotencySweepInterval,
		log,
	)
	go sweeper.Start(workerCtx)

	// Create server
	srv := server.NewServer(cfg, log, db, redisClient)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, stopWorkers, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
