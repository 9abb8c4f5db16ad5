// Package fake provides a randomized game server facade for testing and development purposes.
package fake

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/woozymasta/minequery/internal/models"
)

var (
	prefixes = []string{"Steve", "Alex", "Notch", "Creeper", "Miner", "Builder", "Herobrine", "Ender"}
	suffixes = []string{"", "_", "42", "1337", "XD", "_pro", "2011", "MC"}
)

// Source simulates a server whose population fluctuates around a maximum.
type Source struct {
	label      string
	port       int
	maxPlayers int
}

// New returns a fake source reporting between zero and maxPlayers players.
func New(label string, port, maxPlayers int) *Source {
	if maxPlayers < 0 {
		maxPlayers = 0
	}

	return &Source{label: label, port: port, maxPlayers: maxPlayers}
}

// Snapshot generates a fresh random player list.
func (s *Source) Snapshot(ctx context.Context) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}

	count := 0
	if s.maxPlayers > 0 {
		count = rand.Intn(s.maxPlayers + 1)
	}

	// names are unique within one snapshot
	seen := make(map[string]struct{}, count)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rand.Intn(len(prefixes))] + suffixes[rand.Intn(len(suffixes))]
		if _, dup := seen[name]; dup {
			name = fmt.Sprintf("%s.%d", name, len(names))
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return models.NewSnapshot(s.label, s.port, names), nil
}
