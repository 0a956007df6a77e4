package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/org/authgate/internal/api"
	"github.com/org/authgate/internal/engine"
	"github.com/org/authgate/internal/storage"
)

type config struct {
	ListenAddr    string            `yaml:"listen_addr"`
	TLSCertFile   string            `yaml:"tls_cert"`
	TLSKeyFile    string            `yaml:"tls_key"`
	DBUrl         string            `yaml:"db_url"`
	MigrationsDir string            `yaml:"migrations_dir"`
	LogLevel      string            `yaml:"log_level"`
	AdminToken    string            `yaml:"admin_token"`
	JWTSecret     string            `yaml:"jwt_secret"`
	JWTIssuer     string            `yaml:"jwt_issuer"`
	SessionTTL    time.Duration     `yaml:"session_ttl"`
	RouteClasses  map[string]string `yaml:"route_classes"`
	Engine        engine.Config     `yaml:"engine"`
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	cfgFile := "config.yaml"
	if v := os.Getenv("AUTHGATE_CONFIG"); v != "" {
		cfgFile = v
	}

	cfg := config{
		ListenAddr:    ":8300",
		MigrationsDir: "migrations",
		LogLevel:      "info",
		SessionTTL:    24 * time.Hour,
	}

	if data, err := os.ReadFile(cfgFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to parse config")
		}
	} else {
		log.Warn().Str("file", cfgFile).Msg("config file not found, using defaults")
	}

	// Env overrides
	if v := os.Getenv("AUTHGATE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DBUrl = v
	}
	if v := os.Getenv("AUTHGATE_ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
	if v := os.Getenv("AUTHGATE_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("jwt_secret must be configured (or AUTHGATE_JWT_SECRET env var)")
	}

	ctx := context.Background()

	// Connect storage: Postgres when configured, in-memory for dev mode.
	var store storage.Backend
	if cfg.DBUrl != "" {
		pg, err := storage.NewPostgresBackend(ctx, cfg.DBUrl)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := storage.RunMigrations(cfg.DBUrl, cfg.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Msg("migrations applied")
		store = pg
	} else {
		log.Warn().Msg("no db_url configured, using in-memory storage (dev mode)")
		store = storage.NewMemoryBackend()
	}
	defer store.Close()

	// Create server
	srv, err := api.NewServer(store, api.Config{
		ListenAddr:   cfg.ListenAddr,
		TLSCertFile:  cfg.TLSCertFile,
		TLSKeyFile:   cfg.TLSKeyFile,
		AdminToken:   cfg.AdminToken,
		JWTSecret:    cfg.JWTSecret,
		JWTIssuer:    cfg.JWTIssuer,
		SessionTTL:   cfg.SessionTTL,
		RouteClasses: cfg.RouteClasses,
		Engine:       cfg.Engine,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Expired sessions accumulate without traffic touching them; sweep
	// periodically.
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				n, err := store.DeleteExpiredSessions(janitorCtx)
				if err != nil {
					log.Warn().Err(err).Msg("session sweep failed")
				} else if n > 0 {
					log.Debug().Int64("deleted", n).Msg("swept expired sessions")
				}
			}
		}
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("server started")
	<-quit

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}
