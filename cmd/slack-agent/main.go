package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/insightpulseai/slack-agent/internal/config"
	"github.com/insightpulseai/slack-agent/internal/handlers"
	"github.com/insightpulseai/slack-agent/internal/logging"
	"github.com/insightpulseai/slack-agent/internal/ratelimit"
	"github.com/insightpulseai/slack-agent/internal/server"
	"github.com/insightpulseai/slack-agent/internal/service"
	"github.com/insightpulseai/slack-agent/internal/taskbus"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The verifier accepts any secret; refusing an empty one is this
	// layer's responsibility.
	if cfg.Slack.SigningSecret == "" {
		log.Fatal("slack.signing_secret is not configured")
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("slack-agent"))
	logging.SetDefault(logger)

	slog.Info("Starting slack-agent",
		slog.Int("port", cfg.Server.Port),
		slog.String("taskbus_backend", cfg.Taskbus.Backend),
		slog.String("log_level", cfg.Logging.Level),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Initialize rate limiter
	var rateLimiter ratelimit.RateLimiter
	if cfg.Redis.Enabled {
		limiter, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Redis.RateLimitRequests,
			cfg.Redis.RateLimitWindow,
		)
		if err != nil {
			log.Printf("WARNING: Failed to initialize Redis rate limiter: %v", err)
			log.Println("Continuing without rate limiting")
			rateLimiter = &ratelimit.NoOpRateLimiter{}
		} else {
			rateLimiter = limiter
			log.Printf("Rate limiting enabled: %d requests per %s", cfg.Redis.RateLimitRequests, cfg.Redis.RateLimitWindow)
		}
	} else {
		rateLimiter = &ratelimit.NoOpRateLimiter{}
		log.Println("Redis disabled - rate limiting not available")
	}
	defer rateLimiter.Close()

	// Initialize the run ledger client
	ledger, err := newLedgerClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize taskbus backend %q: %v", cfg.Taskbus.Backend, err)
	}
	defer ledger.Close()
	log.Printf("Taskbus backend initialized: %s", cfg.Taskbus.Backend)

	// Initialize dispatch pipeline and HTTP handlers
	bus := taskbus.New(ledger)
	dispatcher := service.NewDispatcher(bus, logger)
	handler := handlers.NewSlackHandler(cfg.Slack.SigningSecret, dispatcher, rateLimiter, logger)
	router := server.NewRouter(handler)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("slack-agent listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// newLedgerClient builds the configured taskbus backend. The postgres
// backend owns its schema and runs migrations before accepting traffic.
func newLedgerClient(cfg *config.Config) (taskbus.Client, error) {
	switch cfg.Taskbus.Backend {
	case "http", "":
		return taskbus.NewHTTPClient(
			cfg.Taskbus.HTTP.URL,
			"slack-agent",
			cfg.Taskbus.HTTP.TokenSecret,
			cfg.Taskbus.HTTP.Timeout,
		), nil

	case "postgres":
		connString := cfg.Taskbus.Postgres.ConnString()

		log.Println("Running database migrations...")
		m, err := migrate.New("file://migrations", connString)
		if err != nil {
			return nil, fmt.Errorf("initialize migrations: %w", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Println("Database migrations completed")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return taskbus.NewPostgresClient(ctx, connString)

	case "jetstream":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return taskbus.NewJetStreamClient(ctx, cfg.Taskbus.NatsURL)

	default:
		return nil, fmt.Errorf("unknown backend (supported: http, postgres, jetstream)")
	}
}
