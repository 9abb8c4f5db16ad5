package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/woozymasta/minequery/internal/models"
)

func writeStatus(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write status: %v", err)
	}
}

func TestFileSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.yml")
	writeStatus(t, path, "name: Survival\nport: 25570\nplayers:\n  - Alice\n  - Bob\n")

	snap, err := NewFile(path, "My Server", 25565).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() err=%v", err)
	}

	want := models.Snapshot{
		ServerLabel: "Survival",
		ListenPort:  25570,
		PlayerCount: 2,
		PlayerNames: []string{"Alice", "Bob"},
	}
	if !reflect.DeepEqual(snap, want) {
		t.Errorf("Snapshot() = %+v, want %+v", snap, want)
	}
}

func TestFileSnapshotDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.yml")
	writeStatus(t, path, "players: []\n")

	snap, err := NewFile(path, "My Server", 25565).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() err=%v", err)
	}
	if snap.ServerLabel != "My Server" || snap.ListenPort != 25565 {
		t.Errorf("defaults not applied: %+v", snap)
	}
	if snap.PlayerCount != 0 || len(snap.PlayerNames) != 0 {
		t.Errorf("expected no players, got %+v", snap)
	}
}

func TestFileSnapshotRereadsEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.yml")
	src := NewFile(path, "My Server", 25565)

	writeStatus(t, path, "players: [Alice]\n")
	first, err := src.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("first Snapshot() err=%v", err)
	}

	writeStatus(t, path, "players: [Alice, Bob, Carol]\n")
	second, err := src.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("second Snapshot() err=%v", err)
	}

	if first.PlayerCount != 1 || second.PlayerCount != 3 {
		t.Errorf("counts = %d, %d, want 1, 3", first.PlayerCount, second.PlayerCount)
	}
}

func TestFileSnapshotErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewFile(filepath.Join(dir, "missing.yml"), "x", 25565).Snapshot(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want os.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.yml")
	writeStatus(t, bad, "players: {broken")
	if _, err := NewFile(bad, "x", 25565).Snapshot(context.Background()); err == nil {
		t.Error("expected parse error")
	}

	badPort := filepath.Join(dir, "port.yml")
	writeStatus(t, badPort, "port: 70000\n")
	if _, err := NewFile(badPort, "x", 25565).Snapshot(context.Background()); err == nil {
		t.Error("expected port range error")
	}
}

func TestWithPortOverride(t *testing.T) {
	base := Func(func(context.Context) (models.Snapshot, error) {
		return models.NewSnapshot("s", 25565, []string{"Alice"}), nil
	})

	snap, err := WithPortOverride(base, 40000).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() err=%v", err)
	}
	if snap.ListenPort != 40000 {
		t.Errorf("ListenPort = %d, want 40000", snap.ListenPort)
	}
	if snap.PlayerCount != 1 {
		t.Errorf("PlayerCount = %d, want 1", snap.PlayerCount)
	}

	if _, ok := WithPortOverride(base, 0).(Func); !ok {
		t.Error("zero override should return the wrapped source unchanged")
	}
}

func TestWithPortOverridePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	base := Func(func(context.Context) (models.Snapshot, error) {
		return models.Snapshot{}, boom
	})

	if _, err := WithPortOverride(base, 40000).Snapshot(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
