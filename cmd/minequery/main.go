// main is the entry point of the Minequery application.
// It initializes the configuration, logger, optional GeoIP and history database,
// then runs the query server and heartbeat until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/minequery/internal/config"
	"github.com/woozymasta/minequery/internal/fake"
	"github.com/woozymasta/minequery/internal/game"
	"github.com/woozymasta/minequery/internal/geoip"
	"github.com/woozymasta/minequery/internal/logger"
	"github.com/woozymasta/minequery/internal/maintenance"
	"github.com/woozymasta/minequery/internal/server"
	"github.com/woozymasta/minequery/internal/source"
	"github.com/woozymasta/minequery/internal/storage"
	"github.com/woozymasta/minequery/internal/vars"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Str("version", vars.Version).Msg("Starting minequery service...")
	if cfg.Created() {
		log.Info().Str("path", cfg.ConfigFile).Msg("Configuration file created with defaults")
	}

	// Database
	var store *storage.Repository
	if cfg.Storage.Path != "" {
		var err error
		store, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to initialize database")
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing database")
			}
		}()
	}

	// database maintenance
	var maintStore maintenance.Store
	if store != nil {
		maintStore = store
	}
	if maintenance.Run(cfg, maintStore, os.Stdout) {
		return
	}

	opts := server.Options{}
	if store != nil {
		opts.Recorder = store
	}

	// GeoIP
	if cfg.GeoIP.Path != "" {
		log.Info().Msg("Checking GeoIP database...")
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := geoip.EnsureDB(ctx, cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
			log.Error().Err(err).Msg("Failed to download GeoIP database")
		}
		cancel()

		geoProvider, err := geoip.Open(cfg.GeoIP.Path, cfg.GeoIP.CacheTTL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		} else {
			opts.Locator = geoProvider
			defer func() {
				if err := geoProvider.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing GeoIP provider")
				}
			}()
		}
	}

	// A2S liveness probe
	if cfg.A2S.Port > 0 {
		opts.Prober = game.NewProber(cfg.Game.IP, cfg.A2S)
	}

	// Metrics source
	var src source.Source
	if cfg.Game.FakePlayers > 0 {
		log.Warn().Int("max_players", cfg.Game.FakePlayers).Msg("Serving fake player data")
		src = fake.New(cfg.Details.ServerName, cfg.Game.Port, cfg.Game.FakePlayers)
	} else {
		src = source.NewFile(cfg.Game.StatusFile, cfg.Details.ServerName, cfg.Game.Port)
	}
	src = source.WithPortOverride(src, cfg.Server.PortOutside)

	state := server.New(cfg, src, opts)
	state.Enable()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	state.Disable()

	log.Info().Msg("Server exited")
}
