package readcache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(DefaultMemoryConfig())
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !IsMiss(err) {
		t.Fatalf("Expected ErrMiss, got %v", err)
	}

	if err := c.Set(ctx, "k1", []byte("hello"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Expected hello, got %s", got)
	}

	// Returned bytes are copies.
	got[0] = 'X'
	again, _ := c.Get(ctx, "k1")
	if string(again) != "hello" {
		t.Error("Mutating a returned value leaked into the cache")
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache(MemoryConfig{DefaultTTL: time.Minute, SweepInterval: time.Hour})
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "k1"); !IsMiss(err) {
		t.Errorf("Expected ErrMiss after expiration, got %v", err)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(DefaultMemoryConfig())
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "k1"); !IsMiss(err) {
		t.Errorf("Expected ErrMiss after delete, got %v", err)
	}

	// Deleting an absent key is not an error.
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(DefaultMemoryConfig())
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}
