// Command secretpages runs the anonymous secret-sharing site.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	sp "github.com/secretpages/secretpages"
	gormstore "github.com/secretpages/secretpages/stores/gorm"
	"github.com/secretpages/secretpages/stores/memory"
	mongostore "github.com/secretpages/secretpages/stores/mongo"
	"github.com/secretpages/secretpages/stores/redisstore"
	"github.com/secretpages/secretpages/web"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found")
	}

	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := sp.LoadConfig()
	if err != nil {
		return err
	}

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	sessionStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}

	sessions := sp.NewSessions(store, sessionStore)
	tokens := &sp.AuthTokens{Issuer: "secretpages", SecretKey: cfg.SessionSecret}
	local := &sp.LocalAuth{Store: store}

	server := web.NewServer(web.Options{
		Store:              store,
		Local:              local,
		Sessions:           sessions,
		Tokens:             tokens,
		Logger:             logger,
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GoogleCallback:     cfg.GoogleCallback,
		FacebookAppID:      cfg.FacebookAppID,
		FacebookAppSecret:  cfg.FacebookAppSecret,
		FacebookCallback:   cfg.FacebookCallback,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "store", cfg.StoreBackend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *sp.Config) (sp.UserStore, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return memory.New(), nil, nil
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres: %w: %w", sp.ErrStoreUnavailable, err)
		}
		store, err := gormstore.New(db)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "mongo":
		db, disconnect, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		store := mongostore.New(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = disconnect(context.Background())
			return nil, nil, err
		}
		cleanup := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = disconnect(dctx)
		}
		return store, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// openSessionStore returns a redis-backed session store when REDIS_ADDR
// is configured, nil otherwise (scs then keeps sessions in memory).
func openSessionStore(ctx context.Context, cfg *sp.Config) (scs.Store, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w: %w", sp.ErrStoreUnavailable, err)
	}
	return redisstore.New(client), nil
}
