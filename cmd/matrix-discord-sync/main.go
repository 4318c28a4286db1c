// Copyright 2026 UF Open Source Club

// Command matrix-discord-sync watches a Discord server for channel
// lifecycle events, keeps a registry of bridged channels, and maintains an
// index message in a Matrix room listing every known bridge. Subscribed
// Matrix users are invited into newly bridged rooms automatically.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/exzerolog"

	"github.com/ufosc/matrix-discord-sync/pkg/mdsync"
	"github.com/ufosc/matrix-discord-sync/pkg/mdsync/store"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	writeExample := flag.Bool("example-config", false, "print the example config and exit")
	version := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *writeExample {
		fmt.Print(mdsync.ExampleConfig)
		return
	}
	if *version {
		fmt.Printf("matrix-discord-sync %s (%s, built %s)\n", Tag, Commit, BuildTime)
		return
	}

	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.TimeFormat = time.RFC3339
	})).With().Timestamp().Logger()
	exzerolog.SetupDefaults(&log)

	if err := run(log, *configPath); err != nil {
		log.Fatal().Err(err).Msg("Fatal error")
	}
}

func run(log zerolog.Logger, configPath string) error {
	cfg, err := mdsync.LoadConfig(configPath)
	if err != nil {
		return err
	}

	registry, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close registry")
		}
	}()

	queue := mdsync.NewEventQueue()

	matrix, err := mdsync.NewMatrixClient(cfg, registry, log)
	if err != nil {
		return err
	}
	engine := mdsync.NewEngine(registry, matrix, queue, cfg, log)

	watcher, err := mdsync.NewDiscordWatcher(cfg, queue, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watcher.Open(); err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close discord gateway")
		}
	}()

	go func() {
		if err := matrix.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Matrix sync loop exited")
			stop()
		}
	}()

	// The engine blocks here; cancellation lets the in-flight cycle finish.
	engine.Run(ctx)
	queue.Close()

	log.Info().Msg("Shutdown complete")
	return nil
}
