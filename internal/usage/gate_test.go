package usage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ankitjc/prompt-polish/internal/domain"
	"github.com/ankitjc/prompt-polish/internal/kv"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestGate(t *testing.T) (*Gate, *fakeClock, *kv.MemoryStore) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	store := kv.NewMemoryStore()
	return NewGate(store, WithClock(clock.Now), WithLocation(time.UTC)), clock, store
}

var ada = domain.Identity{Name: "Ada", Email: "ada@example.com"}

func TestGateCeilingReached(t *testing.T) {
	ctx := context.Background()
	gate, _, _ := newTestGate(t)

	for i := 1; i <= DailyCeiling; i++ {
		ok, err := gate.CanProceed(ctx, ada)
		if err != nil {
			t.Fatalf("CanProceed error: %v", err)
		}
		if !ok {
			t.Fatalf("CanProceed = false before call %d", i)
		}
		if err := gate.RecordUsage(ctx, ada); err != nil {
			t.Fatalf("RecordUsage error: %v", err)
		}
	}
	snap, err := gate.Usage(ctx, ada)
	if err != nil {
		t.Fatalf("Usage error: %v", err)
	}
	if snap.Used != DailyCeiling || snap.Remaining != 0 {
		t.Fatalf("snapshot = %+v, want used=%d remaining=0", snap, DailyCeiling)
	}
	for i := 0; i < 3; i++ {
		if ok, _ := gate.CanProceed(ctx, ada); ok {
			t.Fatal("CanProceed = true after ceiling reached")
		}
	}
	// Recording past the ceiling never drives remaining below zero.
	_ = gate.RecordUsage(ctx, ada)
	if rem, _ := gate.RemainingQuota(ctx, ada); rem != 0 {
		t.Fatalf("RemainingQuota = %d, want 0", rem)
	}
}

func TestGateRemainingMonotonicAndCanProceedAgrees(t *testing.T) {
	ctx := context.Background()
	gate, _, _ := newTestGate(t)
	prev := DailyCeiling + 1
	for i := 0; i < DailyCeiling+5; i++ {
		rem, err := gate.RemainingQuota(ctx, ada)
		if err != nil {
			t.Fatalf("RemainingQuota error: %v", err)
		}
		if rem > prev {
			t.Fatalf("remaining increased from %d to %d", prev, rem)
		}
		ok, err := gate.CanProceed(ctx, ada)
		if err != nil {
			t.Fatalf("CanProceed error: %v", err)
		}
		if ok != (rem > 0) {
			t.Fatalf("CanProceed = %v with remaining %d", ok, rem)
		}
		prev = rem
		if err := gate.RecordUsage(ctx, ada); err != nil {
			t.Fatalf("RecordUsage error: %v", err)
		}
	}
}

func TestGateResetsOnNewDay(t *testing.T) {
	ctx := context.Background()
	gate, clock, _ := newTestGate(t)
	for i := 0; i < DailyCeiling; i++ {
		_ = gate.RecordUsage(ctx, ada)
	}
	if ok, _ := gate.CanProceed(ctx, ada); ok {
		t.Fatal("expected gate closed")
	}
	clock.t = clock.t.Add(24 * time.Hour)
	rem, err := gate.RemainingQuota(ctx, ada)
	if err != nil {
		t.Fatalf("RemainingQuota error: %v", err)
	}
	if rem != DailyCeiling {
		t.Fatalf("RemainingQuota on new day = %d, want %d", rem, DailyCeiling)
	}
}

func TestGateDayFollowsLocation(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC+9", 9*60*60)
	clock := &fakeClock{t: time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)}
	gate := NewGate(kv.NewMemoryStore(), WithClock(clock.Now), WithLocation(loc))
	snap, err := gate.Usage(ctx, ada)
	if err != nil {
		t.Fatalf("Usage error: %v", err)
	}
	if snap.Day != "2026-10-19" {
		t.Fatalf("Day = %q, want 2026-10-19", snap.Day)
	}
}

func TestGateIdentitiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	gate, _, _ := newTestGate(t)
	bob := domain.Identity{Name: "Bob", Email: "bob@example.com"}
	_ = gate.RecordUsage(ctx, ada)
	_ = gate.RecordUsage(ctx, domain.Identity{Email: " ADA@example.com "})
	adaRem, _ := gate.RemainingQuota(ctx, ada)
	bobRem, _ := gate.RemainingQuota(ctx, bob)
	if adaRem != DailyCeiling-2 {
		t.Fatalf("ada remaining = %d, want %d", adaRem, DailyCeiling-2)
	}
	if bobRem != DailyCeiling {
		t.Fatalf("bob remaining = %d, want %d", bobRem, DailyCeiling)
	}
}

func TestGateRejectsIdentityWithoutEmail(t *testing.T) {
	gate, _, _ := newTestGate(t)
	if err := gate.RecordUsage(context.Background(), domain.Identity{Name: "nobody"}); !errors.Is(err, domain.ErrInvalidIdentity) {
		t.Fatalf("RecordUsage error = %v, want %v", err, domain.ErrInvalidIdentity)
	}
}

func TestGateCorruptCounter(t *testing.T) {
	ctx := context.Background()
	gate, _, store := newTestGate(t)
	if err := store.Put(ctx, "usage:ada@example.com:2026-10-18", []byte("lots")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, err := gate.CanProceed(ctx, ada); !errors.Is(err, ErrCorruptCounter) {
		t.Fatalf("CanProceed error = %v, want %v", err, ErrCorruptCounter)
	}
	if err := gate.RecordUsage(ctx, ada); !errors.Is(err, ErrCorruptCounter) {
		t.Fatalf("RecordUsage error = %v, want %v", err, ErrCorruptCounter)
	}
}

func TestGateConcurrentRecordsAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	clock := func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	var gates []*Gate
	for i := 0; i < 2; i++ {
		store, err := kv.OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite error: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		gates = append(gates, NewGate(store, WithClock(clock), WithLocation(time.UTC)))
	}

	var wg sync.WaitGroup
	for _, g := range gates {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < DailyCeiling/2; i++ {
				if err := g.RecordUsage(ctx, ada); err != nil {
					t.Errorf("RecordUsage error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	snap, err := gates[1].Usage(ctx, ada)
	if err != nil {
		t.Fatalf("Usage error: %v", err)
	}
	if snap.Used != DailyCeiling || snap.Remaining != 0 {
		t.Fatalf("snapshot = %+v, want used %d remaining 0", snap, DailyCeiling)
	}
	if ok, _ := gates[0].CanProceed(ctx, ada); ok {
		t.Fatal("CanProceed = true after both handles filled the ceiling")
	}
}

func TestGatePruneRemovesPastDaysOnly(t *testing.T) {
	ctx := context.Background()
	gate, clock, store := newTestGate(t)
	for _, day := range []time.Time{clock.t.Add(-48 * time.Hour), clock.t.Add(-24 * time.Hour), clock.t} {
		clock.t = day
		_ = gate.RecordUsage(ctx, ada)
	}
	_ = store.Put(ctx, "session", []byte("{}"))
	_ = store.Put(ctx, "usage:odd-key", []byte("1"))

	removed, err := gate.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Prune removed %d, want 2", removed)
	}
	keys, _ := store.Keys(ctx, "")
	want := map[string]bool{"session": true, "usage:odd-key": true, "usage:ada@example.com:2026-10-18": true}
	if len(keys) != len(want) {
		t.Fatalf("keys after prune = %v", keys)
	}
	for _, k := range keys {
		if !want[k] {
			t.Fatalf("unexpected key %q after prune", k)
		}
	}
	if used, _ := gate.Usage(ctx, ada); used.Used != 1 {
		t.Fatalf("today's counter = %d, want 1", used.Used)
	}
}
