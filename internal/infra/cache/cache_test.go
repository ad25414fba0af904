package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/bankapp-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_SetIfAbsent(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	if v, stored := c.SetIfAbsent("k", 1); !stored || v != 1 {
		t.Fatalf("expected first call to store 1, got %d (stored=%v)", v, stored)
	}
	if v, stored := c.SetIfAbsent("k", 2); stored || v != 1 {
		t.Fatalf("expected second call to keep 1, got %d (stored=%v)", v, stored)
	}

	c.Delete("k")
	if _, stored := c.SetIfAbsent("k", 3); !stored {
		t.Fatal("expected store after delete")
	}
}
