// Package server controls the lifecycle of the query listener and the directory heartbeat.
package server

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/minequery/internal/config"
	"github.com/woozymasta/minequery/internal/query"
	"github.com/woozymasta/minequery/internal/source"
	"github.com/woozymasta/minequery/internal/updater"
)

// shutdownGrace bounds how long Disable waits for in-flight queries.
const shutdownGrace = 5 * time.Second

// New creates a disabled State answering queries from src.
func New(cfg *config.Config, src source.Source, opts Options) *State {
	return &State{
		cfg:    cfg,
		source: src,
		opts:   opts,
		bind:   query.BindConfig{Host: cfg.QueryHost(), Port: cfg.Server.Port},
		grace:  shutdownGrace,
	}
}

// Enable binds and serves the query listener and starts the heartbeat, each
// when configured and not already running. Failures are logged, never returned.
// A bind failure leaves the host process running without a query server.
func (s *State) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Failed to enable query server")
		}
	}()

	if s.cfg.Server.Disable {
		log.Info().Msg("Query server disabled by configuration")
	} else if s.listener == nil {
		s.enableListener()
	}

	if s.cfg.Updater.Enable && s.scheduler == nil {
		s.enableUpdater()
	}
}

// Disable closes the listener and stops the heartbeat. In-flight queries get
// the shutdown grace period, connections still open after it are dropped.
// Calling it on a disabled State does nothing.
func (s *State) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Failed to disable query server")
		}
	}()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close query listener")
		}
		<-s.serveDone
		s.listener.Drain(s.grace)

		s.listener = nil
		s.serveDone = nil
		log.Info().Msg("Query server stopped")
	}

	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler.Wait()
		s.scheduler = nil
	}
}

// Addr returns the query listener address, or nil while no listener is active.
func (s *State) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

func (s *State) enableListener() {
	handler := query.NewHandler(s.source, query.HandlerOptions{
		Locator:     s.opts.Locator,
		ReadTimeout: s.cfg.Server.ReadTimeout,
		Verbose:     s.cfg.Logger.Verbose,
	})

	ln, err := query.Bind(s.bind, handler)
	if err != nil {
		if errors.Is(err, query.ErrPortInUse) {
			log.Error().
				Err(err).
				Int("port", s.bind.Port).
				Msgf("Could not bind to the port %d. Perhaps it's already in use?", s.bind.Port)
			return
		}

		log.Error().
			Err(err).
			Str("address", s.bind.Address()).
			Msg("Failed to start query server")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ln.Serve(); err != nil {
			log.Error().Err(err).Msg("Query server stopped unexpectedly")
		}
	}()

	s.listener = ln
	s.serveDone = done
}

func (s *State) enableUpdater() {
	services, err := s.cfg.Services()
	if err != nil {
		log.Error().Err(err).Msg("Invalid updater directories, heartbeat not started")
		return
	}
	if len(services) == 0 {
		log.Warn().Msg("Updater enabled but no directories configured")
		return
	}

	dirs := make([]updater.Directory, 0, len(services))
	for _, svc := range services {
		dirs = append(dirs, updater.Directory{
			Name:        svc.Name,
			URL:         svc.URL,
			Key:         svc.Key,
			MinInterval: svc.MinInterval,
		})
	}

	submitter := s.opts.Submitter
	if submitter == nil {
		submitter = updater.NewHTTPSubmitter(s.cfg.Updater.Timeout)
	}

	serverIP := strings.TrimSpace(s.cfg.Game.IP)
	if strings.EqualFold(serverIP, config.AnyHost) {
		serverIP = ""
	}

	s.scheduler = updater.New(s.source, dirs, updater.Options{
		Submitter: submitter,
		Recorder:  s.opts.Recorder,
		Prober:    s.opts.Prober,
		ServerIP:  serverIP,
	})
	s.scheduler.Start(s.cfg.Updater.Interval)
}
