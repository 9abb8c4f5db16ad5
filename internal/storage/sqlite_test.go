package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/woozymasta/minequery/internal/models"
)

func openRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	for i := 0; i < 2; i++ {
		repo, err := New(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = repo.Close()
	}
}

func TestRecordAndRecentSubmissions(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	subs := []models.Submission{
		{Round: "r1", Service: "minestatus", URL: "http://a", Status: 200, PayloadHash: 1, PlayerCount: 2, At: now.Add(-2 * time.Hour)},
		{Round: "r2", Service: "myserverlist", URL: "http://b", Error: "timeout", PayloadHash: math.MaxUint64, PlayerCount: 3, At: now.Add(-time.Hour)},
		{Round: "r3", Service: "minestatus", URL: "http://a", Status: 500, PlayerCount: 4, At: now},
	}
	for _, s := range subs {
		if err := repo.RecordSubmission(ctx, s); err != nil {
			t.Fatalf("RecordSubmission() err=%v", err)
		}
	}

	got, err := repo.RecentSubmissions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSubmissions() err=%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(got))
	}
	if got[0].Round != "r3" || got[1].Round != "r2" {
		t.Errorf("order = %s, %s, want r3, r2", got[0].Round, got[1].Round)
	}
	if got[1].PayloadHash != math.MaxUint64 {
		t.Errorf("PayloadHash = %d, want %d", got[1].PayloadHash, uint64(math.MaxUint64))
	}
	if got[1].Error != "timeout" || got[1].PlayerCount != 3 {
		t.Errorf("unexpected row %+v", got[1])
	}
}

func TestPruneSubmissions(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		s := models.Submission{Round: "r", Service: "s", URL: "u", Status: 200, At: now.Add(-age)}
		if err := repo.RecordSubmission(ctx, s); err != nil {
			t.Fatalf("RecordSubmission() err=%v", err)
		}
	}

	deleted, err := repo.PruneSubmissions(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneSubmissions() err=%v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	left, err := repo.RecentSubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSubmissions() err=%v", err)
	}
	if len(left) != 1 {
		t.Errorf("left = %d, want 1", len(left))
	}
}
