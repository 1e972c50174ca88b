package recorder

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/storage"
)

func TestRecorder_RecordAndDrain(t *testing.T) {
	store := storage.NewMemoryStorage()
	fixed := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	var writes atomic.Int32

	config := DefaultConfig()
	config.AsyncBuffer = 10
	config.MaxFieldLength = 20
	r := NewRecorder(store, config, nil,
		WithClock(func() time.Time { return fixed }),
		WithWriteHook(func(*audit.Record, error) { writes.Add(1) }),
	)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := r.Record(ctx, &audit.Record{
			EventType: audit.EventDecisionLogged,
			Actor:     "alice",
			SubjectID: "d1",
			Action:    strings.Repeat("x", 50),
		})
		if err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if store.Size() != 5 {
		t.Fatalf("stored %d records, want 5", store.Size())
	}
	if writes.Load() != 5 {
		t.Errorf("write hook called %d times, want 5", writes.Load())
	}

	records, _ := store.Query(ctx, &audit.Query{})
	seen := map[string]bool{}
	for _, rec := range records {
		if rec.ID == "" || seen[rec.ID] {
			t.Errorf("record id %q is empty or duplicated", rec.ID)
		}
		seen[rec.ID] = true
		if !rec.RecordedAt.Equal(fixed) || !rec.Timestamp.Equal(fixed) {
			t.Errorf("timestamps = %v / %v, want %v", rec.Timestamp, rec.RecordedAt, fixed)
		}
		if len(rec.Action) != 20 || !strings.HasSuffix(rec.Action, "...") {
			t.Errorf("Action not truncated: %q", rec.Action)
		}
	}
}

func TestRecorder_KeepsExplicitTimestamp(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := NewRecorder(store, nil, nil)

	when := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Record(context.Background(), &audit.Record{ID: "fixed", Timestamp: when, EventType: audit.EventPolicyUpdated})
	r.Close()

	got, _ := store.Query(context.Background(), &audit.Query{})
	if len(got) != 1 || got[0].ID != "fixed" || !got[0].Timestamp.Equal(when) {
		t.Errorf("records = %+v", got)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := NewRecorder(store, &Config{Enabled: false}, nil)
	if err := r.Record(context.Background(), &audit.Record{EventType: audit.EventDecisionLogged}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	r.Close()
	if store.Size() != 0 {
		t.Error("disabled recorder stored a record")
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	r := NewRecorder(storage.NewMemoryStorage(), nil, nil)
	r.Close()
	r.Close()

	err := r.Record(context.Background(), &audit.Record{EventType: audit.EventDecisionLogged})
	var recErr *audit.RecorderError
	if !errors.As(err, &recErr) || !errors.Is(err, context.Canceled) {
		t.Errorf("Record() after Close error = %v", err)
	}
}

func TestHashPayload(t *testing.T) {
	a := HashPayload(map[string]int{"x": 1})
	b := HashPayload(map[string]int{"x": 1})
	c := HashPayload(map[string]int{"x": 2})
	if a == "" || a != b || a == c {
		t.Errorf("HashPayload() = %q %q %q", a, b, c)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if HashPayload(nil) != "" || HashContent(nil) != "" {
		t.Error("empty payload should hash to empty string")
	}
	if HashPayload(make(chan int)) != "" {
		t.Error("unencodable payload should hash to empty string")
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"unlimited", 0, "unlimited"},
	}
	for _, tt := range tests {
		if got := TruncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
