package api

import (
	"context"
	"testing"
	"time"
)

func TestRedisDeduperLifecycle(t *testing.T) {
	mr, d := newTestDeduper(t)
	ctx := context.Background()

	owned, err := d.Claim(ctx, "org1", "k")
	if err != nil || !owned {
		t.Fatalf("first claim: %v %v", owned, err)
	}
	if owned, _ := d.Claim(ctx, "org1", "k"); owned {
		t.Fatalf("second claim must fail")
	}
	if owned, _ := d.Claim(ctx, "org2", "k"); !owned {
		t.Fatalf("keys are scoped per organization")
	}
	if id, err := d.Lookup(ctx, "org1", "k"); err != nil || id != "" {
		t.Fatalf("pending key must look up empty, got %q %v", id, err)
	}

	if err := d.Remember(ctx, "org1", "k", "card-1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if id, _ := d.Lookup(ctx, "org1", "k"); id != "card-1" {
		t.Fatalf("expected card-1, got %q", id)
	}
	if ttl := mr.TTL(d.key("org1", "k")); ttl != time.Hour {
		t.Fatalf("expected ttl kept at one hour, got %v", ttl)
	}

	if err := d.Release(ctx, "org1", "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if id, err := d.Lookup(ctx, "org1", "k"); err != nil || id != "" {
		t.Fatalf("released key must look up empty, got %q %v", id, err)
	}
}
