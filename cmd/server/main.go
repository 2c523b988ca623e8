package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fundportal/internal/config"
	"fundportal/internal/handler"
	"fundportal/internal/httpserver"
	"fundportal/internal/repository"
	"fundportal/internal/scheduler"
	"fundportal/internal/service/auth"
	"fundportal/internal/service/escalation"
	"fundportal/internal/service/notify"
	"fundportal/pkg/db"
	"fundportal/pkg/logger"
	"fundportal/pkg/mq"
	"fundportal/pkg/outbox"
	"fundportal/pkg/redis"
	"fundportal/pkg/sweeplock"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting fund portal server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ Publisher (used by the outbox dispatcher)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	store := repository.NewEngineStore(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	outboxRepo := outbox.NewRepository(dbConn)

	// Services
	notifier := notify.NewDispatcher(dbConn, notificationRepo, outboxRepo, log)
	engine := escalation.NewService(store, notifier, log).
		WithWaitThreshold(cfg.Escalation.WaitThreshold())
	authService := auth.NewAuthService(store.Users, cfg.JWT.Secret)

	// Escalation scheduler
	sweepInterval := cfg.Escalation.SweepIntervalDuration()
	lock := sweeplock.New(rdb, sweepInterval/2, log)
	sched := scheduler.New(engine, lock, sweepInterval, log)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	sched.Start(rootCtx)

	// Outbox dispatcher pushes queued notification events to MQ
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(1 * time.Second)
	go dispatcher.Start(rootCtx)

	// HTTP server
	authHandler := handler.NewAuthHandler(authService, log)
	escalationHandler := handler.NewEscalationHandler(engine, store.Escalations, sched, log)
	notificationHandler := handler.NewNotificationHandler(notificationRepo, log)

	router := httpserver.NewRouter(authHandler, escalationHandler, notificationHandler, cfg.JWT.Secret, dbConn)

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("Fund portal server is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	sched.Stop()
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("Server shutdown complete")
}
