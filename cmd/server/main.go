package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/vpetrenko/lessonbook/internal/app"
	"github.com/vpetrenko/lessonbook/internal/config"
	"github.com/vpetrenko/lessonbook/internal/handler"
	"github.com/vpetrenko/lessonbook/internal/handoff"
	"github.com/vpetrenko/lessonbook/internal/payment"
	"github.com/vpetrenko/lessonbook/internal/repository"
	"github.com/vpetrenko/lessonbook/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create pgx pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	scheduleRepo := repository.NewScheduleRepository(pool)
	slotRepo := repository.NewBookedSlotRepository(pool)
	pointsRepo := repository.NewPointsRepository(pool)

	processor := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentSecretKey)
	handoffStore := handoff.NewStore(redisClient, time.Duration(cfg.HandoffTTLMinutes)*time.Minute)

	bookingService := service.NewBookingService(
		scheduleRepo,
		slotRepo,
		pointsRepo,
		processor,
		handoffStore,
		logger,
	)

	scheduleService := service.NewScheduleService(scheduleRepo, logger)

	mode := gin.ReleaseMode
	if cfg.Environment != "production" {
		mode = gin.DebugMode
	}
	router := handler.InitRouter(mode, logger, handler.NewHandler(bookingService, scheduleService))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("Starting booking engine",
			zap.String("environment", cfg.Environment),
			zap.String("addr", cfg.HTTPAddr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
