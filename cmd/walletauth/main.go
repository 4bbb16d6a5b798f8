package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cleardesk/walletauth/adapters/events"
	"github.com/cleardesk/walletauth/adapters/store"
	"github.com/cleardesk/walletauth/adapters/tokenizer"
	"github.com/cleardesk/walletauth/internal/config"
	"github.com/cleardesk/walletauth/internal/logging"
	"github.com/cleardesk/walletauth/ports"
	"github.com/cleardesk/walletauth/service"
	transport "github.com/cleardesk/walletauth/transport/http"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	pgStore := store.NewPostgresStore(db)
	memStore := store.NewMemoryStore()

	// Redis is optional. Without it the consumed-nonce ledger is local to
	// this instance and auth events are not published.
	var nonces ports.NonceStore = memStore
	var eventPub ports.EventPublisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to parse Redis URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		nonces = store.NewRedisNonceStore(redisClient)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			logger.Fatal("failed to create Redis publisher", zap.Error(err))
		}
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		logger.Warn("REDIS_URL not set: nonce ledger is instance-local and auth events are disabled")
	}

	authService := service.NewAuthService(
		service.Config{
			Domain:       cfg.SIWEDomain,
			URI:          cfg.SIWEURI,
			Statement:    cfg.SIWEStatement,
			ChainID:      cfg.ChainID,
			ChallengeTTL: cfg.ChallengeTTL,
			SessionTTL:   cfg.SessionTTL,
		},
		tokenizer.NewJWTTokenizer([]byte(cfg.JWTSecret)),
		pgStore,
		pgStore,
		nonces,
		eventPub,
		logger,
	)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go service.NewSweeper(authService, cfg.SweepInterval, logger).Run(sweepCtx)

	router := transport.SetupRouter(authService, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
