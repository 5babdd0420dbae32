package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheredis "github.com/Corey-Yule/caravan-site/internal/adapter/cache/redis"
	eventnats "github.com/Corey-Yule/caravan-site/internal/adapter/messaging/nats"
	"github.com/Corey-Yule/caravan-site/internal/adapter/mongo"
	miniostorage "github.com/Corey-Yule/caravan-site/internal/adapter/storage/minio"
	"github.com/Corey-Yule/caravan-site/internal/config"
	"github.com/Corey-Yule/caravan-site/internal/handler"
	"github.com/Corey-Yule/caravan-site/internal/mailer"
	"github.com/Corey-Yule/caravan-site/internal/middleware"
	"github.com/Corey-Yule/caravan-site/internal/platform/metrics"
	"github.com/Corey-Yule/caravan-site/internal/port/cache"
	"github.com/Corey-Yule/caravan-site/internal/store"
	"github.com/Corey-Yule/caravan-site/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	mongoClient, err := mongo.NewMongoDBConnection(&cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Warn("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	logger.Info("Connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	listingRepo := mongo.NewListingMongoRepository(mongoClient, cfg.Mongo.Database, logger)
	profileRepo := mongo.NewProfileMongoRepository(mongoClient, cfg.Mongo.Database, logger)

	objectStorage, err := miniostorage.NewMinioStorage(&cfg.MinIO, logger)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Redis is optional: without it the featured pointer and sessions live
	// only in memory and JWTs are accepted until expiry.
	var cacheRepo cache.CacheRepository
	if redisClient, err := cacheredis.NewRedisClient(&cfg.Redis, logger); err != nil {
		logger.Warn("Redis unavailable, running without cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = cacheredis.NewRedisCacheRepository(redisClient, logger)
	}

	listingView := store.NewListingStore(listingRepo, cacheRepo, logger)

	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := listingView.Refresh(startCtx); err != nil {
		logger.Warn("Initial listing refresh failed, starting with empty snapshot", zap.Error(err))
	}
	if err := listingView.LoadFeatured(startCtx); err != nil {
		logger.Warn("Initial featured load failed", zap.Error(err))
	}
	startCancel()

	// NATS is optional too: without it mutations still refresh the local
	// snapshot, other instances just go unnotified.
	var publisher usecase.EventPublisher
	if natsConn, err := eventnats.Connect(cfg.NATS.URL, logger); err != nil {
		logger.Warn("NATS unavailable, running without change events", zap.Error(err))
	} else {
		p := eventnats.NewPublisher(natsConn, logger)
		defer p.Close()
		publisher = p

		subscriber := eventnats.NewSubscriber(natsConn, logger)
		unsubscribe, err := subscriber.SubscribeListingEvents(func(subject string, event eventnats.ListingEvent) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := listingView.Refresh(ctx); err == nil {
				if err := listingView.LoadFeatured(ctx); err != nil {
					logger.Warn("Failed to reload featured pointer after event", zap.Error(err))
				}
			}
		})
		if err != nil {
			logger.Warn("Failed to subscribe to listing events", zap.Error(err))
		} else {
			defer unsubscribe()
		}
	}

	smtpMailer := mailer.NewSMTPMailer(&cfg.SMTP, logger)

	authUC := usecase.NewAuthUsecase(profileRepo, cacheRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	profileUC := usecase.NewProfileUsecase(profileRepo, logger)
	listingUC := usecase.NewListingUsecase(listingRepo, objectStorage, publisher, listingView, smtpMailer, logger)

	jwtAuth := middleware.NewJWTAuth(cfg.Auth.JWTSecret, authUC, logger)
	mm := metrics.NewMetricsManager()

	if cfg.Metrics.Port != "" {
		go func() {
			if err := metrics.StartMetricsServer(cfg.Metrics.Port, logger); err != nil {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	handlers := handler.NewHandlers(authUC, profileUC, listingUC, listingView, jwtAuth, mm, cfg.HTTP.MaxUploadSize, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      handlers.Router(logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
