package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/tutorlink/live/internal/adapters/http"
	"github.com/tutorlink/live/internal/app"
	"github.com/tutorlink/live/internal/auth"
	"github.com/tutorlink/live/internal/config"
	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/store/memory"
	"github.com/tutorlink/live/internal/store/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var store core.SessionStore
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer db.Close()
		store = postgres.NewSessionStore(db)
		log.Info().Msg("postgres session store connected")
	} else {
		store = memory.NewSessionStore()
		log.Warn().Msg("no postgres dsn configured, chat transcript is volatile")
	}

	reg := app.NewRegistry()
	rooms := app.NewRoomManager()
	coord := app.NewCoordinator(reg, rooms, store)
	if cfg.PersistTimeout > 0 {
		coord.PersistTimeout = cfg.PersistTimeout
	}

	verifier := auth.NewVerifier(cfg.Secret, cfg.TokenIssuer)

	r := router.SetupRouter(ctx, cfg, coord, verifier)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("TutorLink Live server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
