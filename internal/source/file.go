package source

import (
	"context"
	"fmt"
	"os"

	"github.com/woozymasta/minequery/internal/models"
	"gopkg.in/yaml.v3"
)

// status is the document the game server keeps up to date, e.g.
//
//	name: My Server
//	port: 25565
//	players:
//	  - Alice
//	  - Bob
type status struct {
	Name    string   `yaml:"name"`
	Players []string `yaml:"players"`
	Port    int      `yaml:"port"`
}

// File reads the game server status document on every call.
// Nothing is cached: the player list changes continuously.
type File struct {
	path  string
	label string
	port  int
}

// NewFile returns a File source. label and port are used when the document omits them.
func NewFile(path, label string, port int) *File {
	return &File{path: path, label: label, port: port}
}

// Snapshot parses the status document into a snapshot.
func (f *File) Snapshot(ctx context.Context) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read status file: %w", err)
	}

	var st status
	if err := yaml.Unmarshal(data, &st); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to parse status file %s: %w", f.path, err)
	}

	label := st.Name
	if label == "" {
		label = f.label
	}

	port := st.Port
	if port == 0 {
		port = f.port
	}
	if port < 1 || port > 65535 {
		return models.Snapshot{}, fmt.Errorf("status file %s: invalid port %d", f.path, port)
	}

	return models.NewSnapshot(label, port, st.Players), nil
}
