package fake

import (
	"context"
	"testing"
)

func TestSnapshotInvariant(t *testing.T) {
	src := New("Fake", 25565, 20)

	for i := 0; i < 50; i++ {
		snap, err := src.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() err=%v", err)
		}
		if snap.PlayerCount != len(snap.PlayerNames) {
			t.Fatalf("PlayerCount = %d, names = %d", snap.PlayerCount, len(snap.PlayerNames))
		}
		if snap.PlayerCount > 20 {
			t.Fatalf("PlayerCount = %d exceeds max 20", snap.PlayerCount)
		}
		if snap.ListenPort != 25565 || snap.ServerLabel != "Fake" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	}
}

func TestSnapshotEmptyServer(t *testing.T) {
	snap, err := New("Empty", 25565, 0).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() err=%v", err)
	}
	if snap.PlayerCount != 0 || len(snap.PlayerNames) != 0 {
		t.Errorf("expected empty server, got %+v", snap)
	}
}
