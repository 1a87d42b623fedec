package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wondermap/wondermap-api/internal/api"
	"github.com/wondermap/wondermap-api/internal/cache"
	"github.com/wondermap/wondermap-api/internal/config"
	"github.com/wondermap/wondermap-api/internal/files"
	"github.com/wondermap/wondermap-api/internal/genai"
	"github.com/wondermap/wondermap-api/internal/metrics"
	"github.com/wondermap/wondermap-api/internal/places"
	"github.com/wondermap/wondermap-api/internal/storage"
	"github.com/wondermap/wondermap-api/internal/suggest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool, log); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied")

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Wire dependencies.
	repo := storage.NewRepository(pool)
	cacheLayer := cache.NewCache(redisClient)

	var hours api.HoursLookup
	if cfg.PlacesAPIKey != "" {
		hours = places.NewCachedLookup(places.NewClient(cfg.PlacesAPIKey, cfg.PlacesLanguage), cacheLayer, log)
	} else {
		log.Warn("PLACES_API_KEY not set; opening hours lookups disabled")
	}

	gen := genai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiRPS)
	if !gen.Configured() {
		log.Warn("GEMINI_API_KEY not set; AI endpoints will answer 503")
	}

	advisor := suggest.NewService(repo, hours, gen, cfg.Location, log)
	fileService := files.NewService(repo, files.NewSigner(cfg.FileSigningKey, cfg.PublicBaseURL), cfg.MaxUploadBytes)

	switch {
	case len(cfg.CORSOrigins) == 0:
		log.Warn("CORS_ORIGINS is empty; cross-origin requests are denied")
	case slices.Contains(cfg.CORSOrigins, "*"):
		log.Warn("CORS_ORIGINS allows any origin")
	}

	metrics.Register()
	handlers := api.NewHandlers(api.Deps{
		Users:   repo,
		Posts:   repo,
		Trips:   repo,
		Feed:    cacheLayer,
		Hours:   hours,
		Advisor: advisor,
		Text:    gen,
		Files:   fileService,
	}, log)

	// Build router with pingers adapted for health check.
	dbPinger := &pgxPoolPinger{pool: pool}
	redisPinger := &redisPingerAdapter{client: redisClient}

	router := api.NewRouter(handlers, api.RouterConfig{
		Token:              cfg.BearerToken,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxBodyBytes:       cfg.MaxUploadBytes,
	}, dbPinger, redisPinger, log)

	// WriteTimeout has to outlast a slow text generation call.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port, "timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// parseLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// pgxPoolPinger adapts pgxpool.Pool to the api.dbPinger interface.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to the api.redisPinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
