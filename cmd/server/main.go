package main

import (
	"database/sql"
	"log/slog"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"lingua/config"
	"lingua/internal/api"
	"lingua/internal/auth"
	"lingua/internal/chat"
	"lingua/internal/database"
	"lingua/pkg/jwt"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	log.Info("database ready")

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open sql connection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Error("failed to close sql connection", "error", err)
		}
	}()

	tokens := jwt.NewJWT(cfg.JWTSecret)
	authService := auth.NewService(db, tokens, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authHandler := auth.NewHandler(authService)
	resolver := auth.NewResolver(auth.NewGormUserProvider(db), tokens)

	// One registry per process, owned here and injected downward.
	registry := chat.NewRegistry()
	broadcaster := chat.NewBroadcaster(registry, log)
	store := chat.NewPostgresStore(sqlDB)
	service := chat.NewService(store, broadcaster, log)
	supervisor := chat.NewSupervisor(resolver, registry, service, log)

	server := api.NewServer(authHandler, supervisor, log, cfg.RateLimitRPS)

	log.Info("starting server", "addr", cfg.Addr())
	if err := server.Run(cfg.Addr()); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
