package maintenance

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/woozymasta/minequery/internal/config"
	"github.com/woozymasta/minequery/internal/models"
)

type fakeStore struct {
	pruneErr   error
	subs       []models.Submission
	pruneCalls int
	limit      int
	before     time.Time
}

func (f *fakeStore) PruneSubmissions(_ context.Context, before time.Time) (int64, error) {
	f.pruneCalls++
	f.before = before

	return 3, f.pruneErr
}

func (f *fakeStore) RecentSubmissions(_ context.Context, limit int) ([]models.Submission, error) {
	f.limit = limit

	return f.subs, nil
}

func TestRunNothingRequested(t *testing.T) {
	store := &fakeStore{}
	if Run(&config.Config{}, store, &bytes.Buffer{}) {
		t.Fatal("Run() = true without maintenance flags")
	}
	if store.pruneCalls != 0 {
		t.Error("store must not be touched")
	}
}

func TestRunPrune(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Prune = 48 * time.Hour
	store := &fakeStore{}

	if !Run(cfg, store, &bytes.Buffer{}) {
		t.Fatal("Run() = false with --db-prune")
	}
	if store.pruneCalls != 1 {
		t.Fatalf("prune calls = %d, want 1", store.pruneCalls)
	}

	age := time.Since(store.before)
	if age < 47*time.Hour || age > 49*time.Hour {
		t.Errorf("prune cutoff age = %s, want about 48h", age)
	}
}

func TestRunPruneErrorStillExits(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Prune = time.Hour

	if !Run(cfg, &fakeStore{pruneErr: errors.New("disk I/O error")}, &bytes.Buffer{}) {
		t.Fatal("Run() = false on prune failure")
	}
}

func TestRunHistory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.History = 5
	store := &fakeStore{subs: []models.Submission{
		{Round: "r2", Service: "minestatus", Status: 200, PlayerCount: 4, At: time.Now()},
		{Round: "r1", Service: "serverlist", Error: "timeout", At: time.Now().Add(-time.Minute)},
	}}

	var out bytes.Buffer
	if !Run(cfg, store, &out) {
		t.Fatal("Run() = false with --db-history")
	}
	if store.limit != 5 {
		t.Errorf("limit = %d, want 5", store.limit)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	if !strings.Contains(lines[0], "minestatus") || !strings.HasSuffix(lines[0], "ok") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "failed: timeout") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestRunWithoutStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.History = 1

	if !Run(cfg, nil, &bytes.Buffer{}) {
		t.Fatal("Run() = false with --db-history and no database")
	}
}
