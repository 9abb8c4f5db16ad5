// Package maintenance provides one-shot tools for the submission history database.
package maintenance

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/minequery/internal/config"
	"github.com/woozymasta/minequery/internal/models"
)

// Store is the part of the history database used by maintenance tasks.
type Store interface {
	PruneSubmissions(ctx context.Context, before time.Time) (int64, error)
	RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error)
}

// Run checks if any maintenance flags are set and executes the corresponding task.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(cfg *config.Config, store Store, out io.Writer) bool {
	if cfg.Storage.Prune <= 0 && cfg.Storage.History <= 0 {
		return false
	}

	if store == nil {
		log.Error().Msg("Maintenance requested but no history database is configured, set --db-path")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.Storage.Prune > 0 {
		before := time.Now().Add(-cfg.Storage.Prune)
		log.Info().Time("before", before).Msg("Pruning submission history...")

		count, err := store.PruneSubmissions(ctx, before)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune submission history")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}

		return true
	}

	subs, err := store.RecentSubmissions(ctx, cfg.Storage.History)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read submission history")
		return true
	}

	if len(subs) == 0 {
		log.Info().Msg("Submission history is empty")
		return true
	}

	printHistory(out, subs)

	return true
}

func printHistory(w io.Writer, subs []models.Submission) {
	for _, s := range subs {
		result := "ok"
		if !s.OK() {
			result = "failed"
			if s.Error != "" {
				result += ": " + s.Error
			}
		}

		_, _ = fmt.Fprintf(w, "%s  %-16s  %3d  players=%-3d  round=%s  %s\n",
			s.At.Local().Format(time.DateTime), s.Service, s.Status, s.PlayerCount, s.Round, result)
	}
}
