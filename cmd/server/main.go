package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/rosca/internal/api"
	"github.com/mmynk/rosca/internal/auth"
	"github.com/mmynk/rosca/internal/config"
	"github.com/mmynk/rosca/internal/service"
	"github.com/mmynk/rosca/internal/storage/sqlite"
	"github.com/mmynk/rosca/pkg/logging"
)

func main() {
	// Local development reads .env; the file is optional.
	_ = godotenv.Load()

	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	scores := service.NewScoreService(store)
	payouts := service.NewPayoutCalculator(store)
	engine := service.NewRoundEngine(store, payouts)
	contributions := service.NewContributionService(store, scores, engine, cfg.OverdueGraceDays)
	groups := service.NewGroupService(store, scores)

	authenticator := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	server := api.NewServer(groups, contributions, scores, store, authenticator, jwtManager, cfg.AdminToken)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	slog.Info("Server starting", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
