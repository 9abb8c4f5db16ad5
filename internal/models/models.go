// Package models defines the data structures shared by the query server, the heartbeat and storage.
package models

import "time"

// Snapshot is a point-in-time read of the game server state.
// PlayerNames always holds exactly PlayerCount entries.
type Snapshot struct {
	ServerLabel string   `json:"server_label"`
	PlayerNames []string `json:"player_names"`
	ListenPort  int      `json:"listen_port"`
	PlayerCount int      `json:"player_count"`
}

// NewSnapshot builds a Snapshot whose count is derived from the names it was given.
// The names slice is copied so later changes by the caller are not observed.
func NewSnapshot(label string, port int, names []string) Snapshot {
	list := make([]string, len(names))
	copy(list, names)

	return Snapshot{
		ServerLabel: label,
		ListenPort:  port,
		PlayerCount: len(list),
		PlayerNames: list,
	}
}

// Submission is the outcome of one heartbeat delivery to one directory service.
type Submission struct {
	At          time.Time `json:"at"`
	Round       string    `json:"round"`
	Service     string    `json:"service"`
	URL         string    `json:"url"`
	Error       string    `json:"error,omitempty"`
	PayloadHash uint64    `json:"payload_hash"`
	Status      int       `json:"status"`
	PlayerCount int       `json:"player_count"`
}

// OK reports whether the directory accepted the submission.
func (s Submission) OK() bool {
	return s.Error == "" && s.Status >= 200 && s.Status < 300
}
