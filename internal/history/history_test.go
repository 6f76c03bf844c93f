package history

import (
	"bytes"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryPutListGet(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Minute)
	older := Record{
		ID: "id-1", FileName: "a.txt", Path: "/tmp/a.txt",
		Direction: DirectionReceived, Peer: "127.0.0.1:50000",
		Bytes: 3, Total: 3, Status: StatusCompleted,
		StartedAt: base, FinishedAt: base.Add(time.Second),
	}
	newer := Record{
		ID: "id-2", FileName: "b.txt",
		Direction: DirectionSent, Peer: "127.0.0.1:8888",
		Bytes: 1, Total: 10, Status: StatusFailed, Error: "connection closed",
		StartedAt: base.Add(2 * time.Second), FinishedAt: base.Add(3 * time.Second),
	}

	if err := store.Put(older); err != nil {
		t.Fatalf("failed to put record: %v", err)
	}
	if err := store.Put(newer); err != nil {
		t.Fatalf("failed to put record: %v", err)
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "id-2" || records[1].ID != "id-1" {
		t.Errorf("records not newest-first: %s, %s", records[0].ID, records[1].ID)
	}

	got, err := store.Get("id-1")
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if got.FileName != "a.txt" || got.Status != StatusCompleted || got.Bytes != 3 {
		t.Errorf("retrieved record does not match: %+v", got)
	}

	if _, err := store.Get("missing"); err == nil {
		t.Errorf("expected error for missing record")
	}
}

func TestKeyOrderFixedWidth(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 5, 0, time.UTC)
	cases := []struct {
		name         string
		older, newer time.Time
	}{
		{"trimmed fraction", base.Add(500 * time.Millisecond), base.Add(510 * time.Millisecond)},
		{"whole vs fractional second", base, base.Add(100 * time.Millisecond)},
		{"nanosecond apart", base, base.Add(time.Nanosecond)},
	}
	for _, tc := range cases {
		older := key(Record{ID: "older", FinishedAt: tc.older})
		newer := key(Record{ID: "newer", FinishedAt: tc.newer})
		if bytes.Compare(older, newer) >= 0 {
			t.Errorf("%s: key %q does not sort before %q", tc.name, older, newer)
		}
	}
}

func TestListNewestFirstWithinSecond(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 28, 12, 0, 5, 0, time.UTC)
	finishes := []struct {
		id string
		at time.Time
	}{
		{"id-whole", base},
		{"id-tenth", base.Add(100 * time.Millisecond)},
		{"id-half", base.Add(500 * time.Millisecond)},
		{"id-half-plus", base.Add(510 * time.Millisecond)},
	}
	for _, f := range finishes {
		rec := Record{
			ID: f.id, FileName: f.id + ".txt",
			Direction: DirectionReceived, Peer: "127.0.0.1:50000",
			Bytes: 1, Total: 1, Status: StatusCompleted,
			StartedAt: f.at.Add(-time.Second), FinishedAt: f.at,
		}
		if err := store.Put(rec); err != nil {
			t.Fatalf("failed to put record %s: %v", f.id, err)
		}
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	want := []string{"id-half-plus", "id-half", "id-tenth", "id-whole"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, id := range want {
		if records[i].ID != id {
			t.Errorf("records[%d].ID = %s, want %s", i, records[i].ID, id)
		}
	}
}
