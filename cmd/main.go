package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/basket-client/internal/api"
	h "github.com/fjod/go_cart/basket-client/internal/http"
	"github.com/fjod/go_cart/basket-client/internal/keystore"
	"github.com/fjod/go_cart/basket-client/internal/poller"
	"github.com/fjod/go_cart/basket-client/internal/service"
	"github.com/fjod/go_cart/basket-client/internal/store"
)

type Config struct {
	HTTPPort           string
	BasketAPIURL       string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	KeyStore      string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string

	KafkaBrokers []string
}

func loadConfig() (*Config, error) {
	requestTimeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	maxFailures, err := strconv.ParseUint(getEnv("BREAKER_MAX_FAILURES", "5"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid BREAKER_MAX_FAILURES: %w", err)
	}

	var brokers []string
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		brokers = strings.Split(v, ",")
	}

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		BasketAPIURL:       getEnv("BASKET_API_URL", "http://localhost:3000"),
		RequestTimeout:     requestTimeout,
		ShutdownTimeout:    10 * time.Second,
		BreakerMaxFailures: uint32(maxFailures),
		BreakerOpenTimeout: 30 * time.Second,
		KeyStore:           getEnv("KEY_STORE", "memory"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "basketdb"),
		KafkaBrokers:       brokers,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// openKeyStore returns the configured access key store and a close func.
func openKeyStore(ctx context.Context, cfg *Config, logger *zap.Logger) (keystore.AccessKeyStore, func(), error) {
	switch cfg.KeyStore {
	case "memory":
		return keystore.NewMemoryStore(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		logger.Info("redis key store ready", zap.String("addr", cfg.RedisAddr))
		return keystore.NewRedisStore(client), func() { client.Close() }, nil
	case "mongo":
		db, err := keystore.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("mongo key store ready", zap.String("db", cfg.MongoDBName))
		return keystore.NewMongoStore(db), func() { disconnect(db.Client(), logger) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown KEY_STORE %q", cfg.KeyStore)
	}
}

func disconnect(client *mongo.Client, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Error("mongo disconnect failed", zap.Error(err))
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys, closeKeys, err := openKeyStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open key store", zap.Error(err))
	}
	defer closeKeys()

	client, err := api.New(api.Config{
		BaseURL:     cfg.BasketAPIURL,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("failed to create baskets client", zap.Error(err))
	}

	cartService := service.NewCartService(store.NewStore(), client, keys, logger)
	if err := cartService.RestoreAccessKey(ctx); err != nil {
		logger.Warn("could not restore access key", zap.Error(err))
	}
	cartService.LoadCart(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(cartService, logger, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(ctx)
		logger.Info("checkout poller started", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(cartHandler, logger, cfg.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("basket gateway starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
