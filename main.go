package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"artillery-planner/api"
	"artillery-planner/catalog"
	"artillery-planner/config"
	"artillery-planner/logging"
	"artillery-planner/service"
	"artillery-planner/session"
	"artillery-planner/store"
)

var cfg = config.Load("config.json")

func setupApp(log zerolog.Logger, st store.Store) (*fiber.App, error) {
	cat, err := catalog.Load(cfg.AssetsDir)
	if err != nil {
		return nil, err
	}
	svc := service.New(cat, st, logging.Component(log, "service"))
	sessions := session.NewManager(cfg, svc, logging.Component(log, "session"))
	return api.New(svc, sessions, logging.Component(log, "api")), nil
}

func main() {
	log := logging.New(cfg.LogLevel, os.Stdout)

	st, err := store.Open(cfg.DatabaseURL, cfg.SQLitePath, logging.Component(log, "store"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open plan store")
	}
	defer st.Close()

	app, err := setupApp(log, st)
	if err != nil {
		log.Error().Err(err).Msg("failed to load catalog")
		return
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
