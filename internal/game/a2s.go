// Package game probes the host game server using the Source Engine Query (A2S) protocol.
package game

import (
	"strings"

	"github.com/woozymasta/a2s/pkg/a2s"
	"github.com/woozymasta/minequery/internal/config"
)

// Status is the liveness information attached to heartbeat submissions.
type Status struct {
	Name       string
	Players    int
	MaxPlayers int
	Online     bool
}

// Prober queries A2S_INFO of one game server.
type Prober struct {
	host    string
	port    int
	options config.A2S
}

// NewProber returns a prober for host:options.Port. A blank or ANY host means the local machine.
func NewProber(host string, options config.A2S) *Prober {
	host = strings.TrimSpace(host)
	if host == "" || strings.EqualFold(host, config.AnyHost) {
		host = "127.0.0.1"
	}

	return &Prober{host: host, port: options.Port, options: options}
}

// Probe connects via UDP and requests A2S_INFO.
// An unreachable server returns an offline Status together with the error.
func (p *Prober) Probe() (Status, error) {
	client, err := a2s.New(p.host, p.port)
	if err != nil {
		return Status{}, err
	}
	defer func() { _ = client.Close() }()

	client.BufferSize = p.options.BufferSize
	client.Timeout = p.options.Timeout

	info, err := client.GetInfo()
	if err != nil {
		return Status{}, err
	}

	return Status{
		Online:     true,
		Name:       info.Name,
		Players:    int(info.Players),
		MaxPlayers: int(info.MaxPlayers),
	}, nil
}
