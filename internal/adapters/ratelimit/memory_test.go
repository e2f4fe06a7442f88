package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemory_BurstThenRefill(t *testing.T) {
	m := NewMemory(3, time.Minute)
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := m.Allow(ctx, "ip-1"); !ok {
			t.Fatalf("request %d rejected inside burst", i)
		}
	}
	if ok, _ := m.Allow(ctx, "ip-1"); ok {
		t.Fatalf("4th request should be limited")
	}
	if ok, _ := m.Allow(ctx, "ip-2"); !ok {
		t.Fatalf("other key should have its own bucket")
	}

	// one token every 20s
	at = at.Add(20 * time.Second)
	if ok, _ := m.Allow(ctx, "ip-1"); !ok {
		t.Fatalf("expected a refilled token")
	}
}

func TestMemory_SweepsIdleBuckets(t *testing.T) {
	m := NewMemory(1, time.Second)
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }

	_, _ = m.Allow(context.Background(), "a")
	_, _ = m.Allow(context.Background(), "b")
	if m.size() != 2 {
		t.Fatalf("want 2 buckets, got %d", m.size())
	}
	at = at.Add(5 * time.Second)
	_, _ = m.Allow(context.Background(), "c")
	if m.size() != 1 {
		t.Fatalf("idle buckets not swept, have %d", m.size())
	}
}
