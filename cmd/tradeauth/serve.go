package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/credentials"
	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/events"
	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/hasher"
	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/store"
	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/tokenizer"
	"github.com/Gladiston-Porto/Trading-APP-sub001/config"
	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
	"github.com/Gladiston-Porto/Trading-APP-sub001/service"
	"github.com/Gladiston-Porto/Trading-APP-sub001/transport/http"
)

func newLogger(cfg *config.Config) *slog.Logger {
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return logger
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	passwordHasher, err := hasher.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	tk, err := newTokenizer(cfg, logger)
	if err != nil {
		return err
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	var rotation ports.Store
	if redisClient != nil {
		rotation = store.NewRedisStore(redisClient)
		logger.Info("Using redis rotation store")
	} else {
		rotation = store.NewMemoryStore()
		logger.Warn("Using in-memory rotation store; rotated refresh tokens are forgotten on restart")
	}

	opts := []service.Option{service.WithLogger(logger)}
	if cfg.Events.Enabled {
		publisher, err := newEventPublisher(cfg, redisClient, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, service.WithEventPublisher(publisher))
	}

	authService := service.NewAuthService(credentials.NewBunStore(db), passwordHasher, tk, rotation, opts...)

	gin.SetMode(gin.ReleaseMode)
	router := http.SetupRouter(authService,
		http.WithRequestLogger(logger),
		http.WithMetrics(http.NewMetrics()),
	)

	server := &nethttp.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tradeauth listening", slog.String("addr", server.Addr), slog.String("version", Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("tradeauth stopped")
	return nil
}

func migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Schema is up to date", slog.String("dsn", cfg.Database.DSN))
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bun.DB, error) {
	db, err := credentials.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	if err := credentials.NewBunStore(db).CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("Credential store ready", slog.String("dsn", cfg.Database.DSN))
	return db, nil
}

func newTokenizer(cfg *config.Config, logger *slog.Logger) (*tokenizer.JWTTokenizer, error) {
	opts := []tokenizer.Option{
		tokenizer.WithIssuer(cfg.Auth.Issuer),
		tokenizer.WithRefreshTTL(cfg.Auth.RefreshTTL),
	}

	if cfg.Auth.SigningSecret != "" {
		return tokenizer.NewHMACTokenizer([]byte(cfg.Auth.SigningSecret), opts...)
	}

	logger.Warn("No auth.signing_secret configured; signing with an ephemeral ES256 key. Tokens will not survive a restart.")
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return tokenizer.NewECDSATokenizer(privateKey, opts...)
}

func newEventPublisher(cfg *config.Config, redisClient redis.UniversalClient, logger *slog.Logger) (*events.WatermillPublisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	var publisher message.Publisher
	if redisClient != nil {
		p, err := events.NewRedisStreamPublisher(redisClient, wmLogger)
		if err != nil {
			return nil, err
		}
		publisher = p
		logger.Info("Publishing auth events to redis streams", slog.String("prefix", cfg.Events.TopicPrefix))
	} else {
		publisher = events.NewInProcessPubSub(wmLogger)
		logger.Info("Publishing auth events in process", slog.String("prefix", cfg.Events.TopicPrefix))
	}

	return events.NewWatermillPublisher(publisher, cfg.Events.TopicPrefix), nil
}
