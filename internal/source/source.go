// Package source provides the read-only game server facade the query server and the heartbeat take snapshots from.
package source

import (
	"context"

	"github.com/woozymasta/minequery/internal/models"
)

// Source captures the current game server state.
// Implementations must be safe for concurrent use; callers add no locking.
type Source interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context) (models.Snapshot, error)

// Snapshot calls f.
func (f Func) Snapshot(ctx context.Context) (models.Snapshot, error) {
	return f(ctx)
}

type portOverride struct {
	next Source
	port int
}

// WithPortOverride reports port as the listen port of every snapshot taken from next.
// A non-positive port returns next unchanged.
func WithPortOverride(next Source, port int) Source {
	if port <= 0 {
		return next
	}

	return &portOverride{next: next, port: port}
}

func (p *portOverride) Snapshot(ctx context.Context) (models.Snapshot, error) {
	snap, err := p.next.Snapshot(ctx)
	if err != nil {
		return snap, err
	}
	snap.ListenPort = p.port

	return snap, nil
}
