package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/testutil"
)

func TestKeyNormalizesProvider(t *testing.T) {
	if got := Key(" Stripe ", "evt_1 "); got != "stripe:evt_1" {
		t.Fatalf("unexpected key %q", got)
	}
}

func storesUnderTest(t *testing.T, clk clock.Clock) map[string]Store {
	t.Helper()
	db := testutil.OpenDB(t, &Reservation{})
	return map[string]Store{
		"memory": NewMemoryStore(clk),
		"gorm":   NewGormStore(db, clk),
	}
}

func TestReserveOncePerWindow(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	for name, store := range storesUnderTest(t, clk) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ok, err := store.Reserve(ctx, "stripe", "evt_"+name, time.Hour)
			if err != nil || !ok {
				t.Fatalf("expected first reservation, got ok=%v err=%v", ok, err)
			}
			ok, err = store.Reserve(ctx, "stripe", "evt_"+name, time.Hour)
			if err != nil || ok {
				t.Fatalf("expected duplicate reservation to fail, got ok=%v err=%v", ok, err)
			}
			ok, err = store.Reserve(ctx, "paypal", "evt_"+name, time.Hour)
			if err != nil || !ok {
				t.Fatalf("expected other provider to reserve, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestReserveAfterExpiry(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	for name, store := range storesUnderTest(t, clk) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			eventID := "evt_exp_" + name
			if ok, err := store.Reserve(ctx, "mercadopago", eventID, time.Minute); err != nil || !ok {
				t.Fatalf("expected first reservation, got ok=%v err=%v", ok, err)
			}
			clk.Advance(30 * time.Second)
			if ok, _ := store.Reserve(ctx, "mercadopago", eventID, time.Minute); ok {
				t.Fatalf("expected reservation to still be live")
			}
			clk.Advance(31 * time.Second)
			if ok, err := store.Reserve(ctx, "mercadopago", eventID, time.Minute); err != nil || !ok {
				t.Fatalf("expected reservation after expiry, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestReserveRejectsEmptyKey(t *testing.T) {
	store := NewMemoryStore(nil)
	_, err := store.Reserve(context.Background(), "stripe", " ", time.Minute)
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestMemoryReserveConcurrent(t *testing.T) {
	store := NewMemoryStore(nil)
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Reserve(context.Background(), "paypal", "WH-1", time.Hour); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected one winner, got %d", wins)
	}
}

func TestGormReserveConcurrent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	store := NewGormStore(testutil.OpenDB(t, &Reservation{}), clk)

	var wins, failures int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Reserve(context.Background(), "stripe", "evt_race", time.Hour)
			if err != nil {
				atomic.AddInt32(&failures, 1)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if failures != 0 {
		t.Fatalf("expected no reservation errors, got %d", failures)
	}
	if wins != 1 {
		t.Fatalf("expected one winner, got %d", wins)
	}

	var rows int64
	if err := store.db.Model(&Reservation{}).Count(&rows).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected one reservation row, got %d", rows)
	}
}

func TestGormPurgeExpired(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	db := testutil.OpenDB(t, &Reservation{})
	store := NewGormStore(db, clk)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "conekta", "a", time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := store.Reserve(ctx, "conekta", "b", time.Hour); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	clk.Advance(2 * time.Minute)

	removed, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged reservation, got %d", removed)
	}
}
