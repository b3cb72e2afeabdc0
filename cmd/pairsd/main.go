package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go-pairs/internal/config"
	"go-pairs/internal/levels"
	"go-pairs/internal/server"
	"go-pairs/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	var levelPaths string
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Address to listen on")
	flag.StringVar(&levelPaths, "levels", "", "Comma separated level files or directories (default: built-in levels)")
	flag.Parse()

	closer, err := cfg.SetupLogging(os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("setup logging")
	}
	defer closer.Close()

	catalogue := levels.Default()
	if levelPaths != "" {
		if catalogue, err = levels.Load(strings.Split(levelPaths, ",")); err != nil {
			log.Fatal().Err(err).Msg("load levels")
		}
	}

	backend, err := storage.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("open store")
	}
	defer backend.Close()

	srv := server.New(server.Config{
		Levels:  catalogue,
		Unlocks: backend.Unlocks,
		Results: backend.Results,
		Round:   cfg.RoundOptions(),
		Tick:    cfg.Tick,

		IdleTimeout: cfg.IdleTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("addr", cfg.Addr).
		Str("store", cfg.Store).
		Int("levels", len(catalogue)).
		Msg("starting pairsd")
	if err := srv.Run(ctx, cfg.Addr, nil); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
}
