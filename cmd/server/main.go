package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bluffparty/bluffparty/internal/config"
	"github.com/bluffparty/bluffparty/internal/hub"
	"github.com/bluffparty/bluffparty/internal/questions"
	"github.com/bluffparty/bluffparty/internal/registry"
	"github.com/bluffparty/bluffparty/internal/scheduler"
	"github.com/bluffparty/bluffparty/internal/server"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(os.Getenv("SERVER_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	catalog := questions.NewCatalog()
	catalog.LoadDefault(cfg.DefaultQuestionsCSV)

	connections := hub.New(hub.DefaultConfig())
	sched := scheduler.New(catalog, connections)
	reg := registry.New(sched, cfg.Timers)
	srv := server.New(reg, catalog, connections, sched)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(cfg.AllowedOrigins),
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
