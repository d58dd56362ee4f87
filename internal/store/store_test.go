package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/elonfeng/xpulse/pkg/producer"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecords() []producer.RawRecord {
	return []producer.RawRecord{
		{"id": "1", "likes": float64(100)},
		{"id": "2", "likes": float64(200)},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "apify", "elonmusk", sampleRecords()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get(ctx, "apify", "elonmusk", time.Hour)
	if !ok {
		t.Fatal("Get: cache miss after Put")
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0]["id"] != "1" || got[0]["likes"] != float64(100) {
		t.Errorf("first record = %v", got[0])
	}
}

func TestGetMissesUnknownKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "apify", "elonmusk", sampleRecords()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, ok := s.Get(ctx, "apify", "someoneelse", time.Hour); ok {
		t.Error("hit for a handle that was never cached")
	}
	// Same handle fetched by a different producer is a different entry.
	if _, ok := s.Get(ctx, "nitter", "elonmusk", time.Hour); ok {
		t.Error("hit across producer sources")
	}
}

func TestGetRespectsMaxAge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "apify", "elonmusk", sampleRecords()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, ok := s.Get(ctx, "apify", "elonmusk", time.Nanosecond); ok {
		t.Error("entry older than maxAge must miss")
	}
	if _, ok := s.Get(ctx, "apify", "elonmusk", 0); ok {
		t.Error("zero maxAge must disable reads")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "apify", "elonmusk", sampleRecords()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "apify", "elonmusk", []producer.RawRecord{{"id": "9"}}); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, ok := s.Get(ctx, "apify", "elonmusk", time.Hour)
	if !ok {
		t.Fatal("cache miss after replace")
	}
	if len(got) != 1 || got[0]["id"] != "9" {
		t.Errorf("got %v, want the replacement entry", got)
	}
}

func TestPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "apify", "old", sampleRecords()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Nothing is older than an hour yet.
	n, err := s.Purge(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d entries, want 0", n)
	}

	// A negative age moves the cutoff into the future, sweeping everything.
	n, err = s.Purge(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d entries, want 1", n)
	}
	if _, ok := s.Get(ctx, "apify", "old", time.Hour); ok {
		t.Error("entry still readable after purge")
	}
}
