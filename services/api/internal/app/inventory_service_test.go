package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/clock"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
	"github.com/V1nSky/key-bot/services/api/internal/keygen"
)

type sequenceGenerator struct {
	values []string
	next   int
}

func (g *sequenceGenerator) Generate() (string, error) {
	if g.next >= len(g.values) {
		return "", errors.New("exhausted")
	}
	v := g.values[g.next]
	g.next++
	return v, nil
}

func TestInventoryService_AddKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	t.Run("adds unused key", func(t *testing.T) {
		store := newFakeStore()
		svc := NewInventoryService(store, clock.NewFixed(now))

		key, err := svc.AddKey(context.Background(), "  AAAA-BBBB-CCCC-DDDD \n")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if key.Value != "AAAA-BBBB-CCCC-DDDD" || key.Used || key.ID == 0 {
			t.Fatalf("unexpected key: %+v", key)
		}
		n, err := svc.AvailableKeyCount(context.Background())
		if err != nil || n != 1 {
			t.Fatalf("expected 1 available key, got %d (%v)", n, err)
		}
		if len(store.activity) != 1 || store.activity[0].Action != domain.ActionKeyAdded {
			t.Fatalf("unexpected activity: %+v", store.activity)
		}
	})

	t.Run("duplicate leaves inventory unchanged", func(t *testing.T) {
		store := newFakeStore()
		svc := NewInventoryService(store, clock.NewFixed(now))

		if _, err := svc.AddKey(context.Background(), "DUP"); err != nil {
			t.Fatalf("first add: %v", err)
		}
		if _, err := svc.AddKey(context.Background(), "DUP"); err != domain.ErrDuplicateKey {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
		if len(store.keys) != 1 || len(store.activity) != 1 {
			t.Fatalf("expected one key and one activity entry, got %d and %d", len(store.keys), len(store.activity))
		}
	})

	t.Run("blank value is rejected", func(t *testing.T) {
		svc := NewInventoryService(newFakeStore(), clock.NewFixed(now))
		if _, err := svc.AddKey(context.Background(), "   "); err != domain.ErrInvalidKeyValue {
			t.Fatalf("expected ErrInvalidKeyValue, got %v", err)
		}
	})

	t.Run("activity failure rolls back the key", func(t *testing.T) {
		store := newFakeStore()
		store.failOn["AppendActivity"] = errors.New("log table locked")
		svc := NewInventoryService(store, clock.NewFixed(now))

		if _, err := svc.AddKey(context.Background(), "K1"); err == nil {
			t.Fatalf("expected error")
		}
		if len(store.keys) != 0 {
			t.Fatalf("expected no key persisted, got %+v", store.keys)
		}
	})
}

func TestInventoryService_GenerateKeys(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	t.Run("skips values already in inventory", func(t *testing.T) {
		store := newFakeStore()
		store.addKeys("K2")
		svc := NewInventoryService(store, clock.NewFixed(now))

		added, err := svc.GenerateKeys(context.Background(), 3, &sequenceGenerator{values: []string{"K1", "K2", "K3"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if added != 2 {
			t.Fatalf("expected 2 added, got %d", added)
		}
		if len(store.keys) != 3 {
			t.Fatalf("expected 3 keys, got %d", len(store.keys))
		}
	})

	t.Run("generates pattern keys", func(t *testing.T) {
		store := newFakeStore()
		svc := NewInventoryService(store, clock.NewFixed(now))
		added, err := svc.GenerateKeys(context.Background(), 10, keygen.NewPattern(""))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if added != 10 {
			t.Fatalf("expected 10 added, got %d", added)
		}
		keys, _ := svc.ListKeys(context.Background())
		for _, k := range keys {
			if len(k.Value) != len(keygen.DefaultPattern) {
				t.Fatalf("unexpected key shape %q", k.Value)
			}
		}
	})

	t.Run("rejects out of range counts", func(t *testing.T) {
		svc := NewInventoryService(newFakeStore(), clock.NewFixed(now))
		for _, n := range []int{0, -1, MaxGenerateBatch + 1} {
			if _, err := svc.GenerateKeys(context.Background(), n, &sequenceGenerator{}); err != domain.ErrInvalidCount {
				t.Fatalf("count %d: expected ErrInvalidCount, got %v", n, err)
			}
		}
	})
}

func TestInventoryService_NextAvailableKey(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addKeys("K1", "K2")
	svc := NewInventoryService(store, clock.NewSystem())
	ctx := context.Background()

	next, err := svc.NextAvailableKey(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.Value != "K1" {
		t.Fatalf("expected K1, got %s", next.Value)
	}
	if n, _ := svc.AvailableKeyCount(ctx); n != 2 {
		t.Fatalf("peeking must not consume a key, got %d available", n)
	}

	store.keys[0].Used = true
	next, err = svc.NextAvailableKey(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.Value != "K2" {
		t.Fatalf("expected K2 once K1 is issued, got %s", next.Value)
	}

	store.keys[1].Used = true
	if _, err := svc.NextAvailableKey(ctx); err != domain.ErrNoKeyAvailable {
		t.Fatalf("expected ErrNoKeyAvailable, got %v", err)
	}
}
