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

	router "github.com/dkeye/roundtable/internal/adapters/http"
	wsignal "github.com/dkeye/roundtable/internal/adapters/signal"
	"github.com/dkeye/roundtable/internal/app"
	"github.com/dkeye/roundtable/internal/config"
	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/stats"
	"github.com/dkeye/roundtable/internal/topic"
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
		log.Error().Err(err).Msg("failed to load config")
	}

	settings := core.Settings{
		MinParticipants: cfg.MinParticipants,
		MaxSpeakers:     cfg.MaxSpeakers,
		TurnSeconds:     cfg.TurnSeconds,
		MaxRounds:       cfg.MaxRounds,
		TickInterval:    time.Second,
	}

	topics := topic.NewClient(cfg.TopicURL, cfg.TopicTimeout)
	sink := stats.New(cfg.RedisAddr, cfg.RedisPrefix)

	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRooms(settings, topics, sink),
	}
	ctl := wsignal.NewController(orch, cfg)

	r := router.SetupRouter(ctx, cfg, orch, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Roundtable server started")
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
