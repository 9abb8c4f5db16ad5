// Package updater periodically pushes server status to external directory services.
package updater

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/minequery/internal/game"
	"github.com/woozymasta/minequery/internal/models"
	"github.com/woozymasta/minequery/internal/source"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// Recorder persists submission outcomes.
type Recorder interface {
	RecordSubmission(ctx context.Context, s models.Submission) error
}

// Prober reports game server liveness.
type Prober interface {
	Probe() (game.Status, error)
}

// Options holds the optional collaborators of a Scheduler.
type Options struct {
	Submitter Submitter
	Recorder  Recorder
	Prober    Prober

	// ServerIP is announced to directories when not blank.
	ServerIP string
}

// Scheduler runs heartbeat rounds on a fixed period.
type Scheduler struct {
	// source provides the snapshot submitted in every round.
	source source.Source

	// targets are the deduplicated directories, each with an optional pacing limiter.
	targets []target

	submitter Submitter
	recorder  Recorder
	prober    Prober
	serverIP  string

	// rounds counts completed rounds.
	rounds *atomic.Int64

	// mu guards cancel and done across Start and Stop.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type target struct {
	limiter *rate.Limiter
	dir     Directory
}

// New creates a scheduler for dirs. Directories sharing URL and key are submitted to once.
func New(src source.Source, dirs []Directory, opts Options) *Scheduler {
	seen := make(map[uint64]struct{}, len(dirs))
	targets := make([]target, 0, len(dirs))

	for _, dir := range dirs {
		hash := xxhash.Sum64String(dir.URL + "\x00" + dir.Key)
		if _, dup := seen[hash]; dup {
			log.Warn().
				Str("service", dir.Name).
				Str("url", dir.URL).
				Msg("Duplicate directory ignored")
			continue
		}
		seen[hash] = struct{}{}

		t := target{dir: dir}
		if dir.MinInterval > 0 {
			t.limiter = rate.NewLimiter(rate.Every(dir.MinInterval), 1)
		}
		targets = append(targets, t)
	}

	submitter := opts.Submitter
	if submitter == nil {
		submitter = NewHTTPSubmitter(10 * time.Second)
	}

	return &Scheduler{
		source:    src,
		targets:   targets,
		submitter: submitter,
		recorder:  opts.Recorder,
		prober:    opts.Prober,
		serverIP:  opts.ServerIP,
		rounds:    atomic.NewInt64(0),
	}
}

// Start runs a round immediately and then every interval until Stop.
// Calling Start on a running scheduler does nothing, a non-positive interval
// is logged and ignored.
func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		log.Error().Dur("interval", interval).Msg("Heartbeat not started, interval must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	log.Info().
		Dur("interval", interval).
		Int("directories", len(s.targets)).
		Msg("Heartbeat started")

	go s.loop(ctx, interval, s.done)
}

// Stop prevents future rounds. A round already running completes.
// Safe on a nil scheduler and when called repeatedly.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}

	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		log.Info().Msg("Heartbeat stopped")
	}
}

// Wait blocks until the loop started by the last Start has exited.
func (s *Scheduler) Wait() {
	if s == nil {
		return
	}

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Rounds returns the number of completed rounds.
func (s *Scheduler) Rounds() int64 {
	return s.rounds.Load()
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// a started round is never cut short by Stop
		s.RunOnce(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce captures one snapshot and submits it to every directory.
// Directories are attempted concurrently and independently; failures are logged and recorded.
func (s *Scheduler) RunOnce(ctx context.Context) {
	defer s.rounds.Inc()

	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Heartbeat skipped, failed to capture server snapshot")
		return
	}

	var probe *game.Status
	if s.prober != nil {
		st, err := s.prober.Probe()
		if err != nil {
			log.Debug().Err(err).Msg("Game server probe failed")
		}
		probe = &st
	}

	round := uuid.NewString()

	var wg sync.WaitGroup
	for _, t := range s.targets {
		if t.limiter != nil && !t.limiter.Allow() {
			log.Trace().
				Str("service", t.dir.Name).
				Msg("Directory submission paced, skipped this round")
			continue
		}

		wg.Add(1)
		go func(dir Directory) {
			defer wg.Done()
			s.submit(ctx, round, dir, snap, probe)
		}(t.dir)
	}
	wg.Wait()
}

func (s *Scheduler) submit(ctx context.Context, round string, dir Directory, snap models.Snapshot, probe *game.Status) {
	form := Form(dir, s.serverIP, snap, probe)

	status, err := s.submitter.Submit(ctx, dir, form)

	sub := models.Submission{
		Round:       round,
		Service:     dir.Name,
		URL:         dir.URL,
		Status:      status,
		PayloadHash: xxhash.Sum64String(form.Encode()),
		PlayerCount: snap.PlayerCount,
		At:          time.Now(),
	}

	if err != nil {
		sub.Error = err.Error()
		log.Warn().
			Err(err).
			Str("service", dir.Name).
			Int("status", status).
			Msg("Directory submission failed")
	} else {
		log.Debug().
			Str("service", dir.Name).
			Int("status", status).
			Int("players", snap.PlayerCount).
			Msg("Directory submission accepted")
	}

	if s.recorder != nil {
		if err := s.recorder.RecordSubmission(ctx, sub); err != nil {
			log.Error().Err(err).Str("service", dir.Name).Msg("Failed to record submission")
		}
	}
}
