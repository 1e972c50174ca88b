package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/storage"
)

var now = time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	store := storage.NewMemoryStorage()
	ages := map[string]int{"old-1": 10, "old-2": 8, "recent-1": 5, "recent-2": 3}
	for id, days := range ages {
		err := store.Store(context.Background(), &audit.Record{
			ID:        id,
			EventType: audit.EventDecisionLogged,
			Timestamp: now.AddDate(0, 0, -days),
			SubjectID: id,
		})
		if err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}
	return store
}

func TestPruner_PruneByAge(t *testing.T) {
	store := seeded(t)
	p := NewPruner(store, &Config{RetentionDays: 7}, nil).WithClock(func() time.Time { return now })

	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	left, _ := store.Query(context.Background(), &audit.Query{SortOrder: "asc"})
	if len(left) != 2 || left[0].ID != "recent-1" || left[1].ID != "recent-2" {
		t.Errorf("remaining = %+v", left)
	}
}

func TestPruner_PruneByCountWithArchive(t *testing.T) {
	store := seeded(t)
	dir := filepath.Join(t.TempDir(), "archive")
	p := NewPruner(store, &Config{MaxRecords: 1, ArchiveBeforeDelete: true, ArchivePath: dir}, nil).
		WithClock(func() time.Time { return now })

	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	left, _ := store.Query(context.Background(), &audit.Query{})
	if len(left) != 1 || left[0].ID != "recent-2" {
		t.Errorf("remaining = %+v, want newest only", left)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("archive dir = %v, %v", entries, err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if len(data) == 0 {
		t.Error("archive file is empty")
	}
}

func TestPruner_KeepForever(t *testing.T) {
	store := seeded(t)
	p := NewPruner(store, &Config{}, nil)
	deleted, err := p.Prune(context.Background())
	if err != nil || deleted != 0 {
		t.Errorf("Prune() = %d, %v, want 0", deleted, err)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := NewPruner(store, &Config{RetentionDays: 1, PruneSchedule: "0 3 * * *"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !p.scheduler.IsRunning() {
		t.Error("scheduler not running after Start()")
	}
	next := p.NextPruning()
	if next == nil || next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextPruning() = %v", next)
	}

	p.Stop()
	if p.scheduler.IsRunning() {
		t.Error("scheduler still running after Stop()")
	}
}

func TestScheduler_InvalidAndEmptySchedule(t *testing.T) {
	store := storage.NewMemoryStorage()

	bad := NewPruner(store, &Config{PruneSchedule: "every tuesday"}, nil)
	if err := bad.Start(context.Background()); err == nil {
		t.Error("Start() with invalid schedule should fail")
	}

	none := NewPruner(store, &Config{}, nil)
	if err := none.Start(context.Background()); err != nil {
		t.Errorf("Start() with empty schedule error = %v", err)
	}
	if none.NextPruning() != nil {
		t.Error("NextPruning() should be nil without a schedule")
	}
}
