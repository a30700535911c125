package botcheck

import (
	"fmt"
	"testing"
)

func TestCacheNeverExceedsBound(t *testing.T) {
	cache := NewCache(10)

	for i := 0; i < 500; i++ {
		cache.Put(fmt.Sprintf("agent-%d", i), Result{IsBot: i%2 == 0})
		if cache.Len() > 10 {
			t.Fatalf("cache grew to %d entries, bound is 10", cache.Len())
		}
	}

	if cache.Len() != 10 {
		t.Fatalf("cache ended with %d entries, want 10", cache.Len())
	}
}

func TestCacheEvictsOldestInsertion(t *testing.T) {
	cache := NewCache(3)

	cache.Put("first", Result{})
	cache.Put("second", Result{})
	cache.Put("third", Result{})

	// A read must not refresh insertion order; this is not an LRU.
	if _, ok := cache.Get("first"); !ok {
		t.Fatal("first entry missing before eviction")
	}

	cache.Put("fourth", Result{})

	if _, ok := cache.Get("first"); ok {
		t.Fatal("oldest-inserted entry should have been evicted")
	}
	for _, key := range []string{"second", "third", "fourth"} {
		if _, ok := cache.Get(key); !ok {
			t.Fatalf("entry %q unexpectedly evicted", key)
		}
	}
}

func TestCacheOverwriteDoesNotEvict(t *testing.T) {
	cache := NewCache(2)

	cache.Put("a", Result{IsBot: false})
	cache.Put("b", Result{})
	cache.Put("a", Result{IsBot: true, Reason: "updated"})

	if cache.Len() != 2 {
		t.Fatalf("overwrite changed entry count to %d, want 2", cache.Len())
	}
	got, ok := cache.Get("a")
	if !ok || !got.IsBot {
		t.Fatal("overwritten entry should hold the new value")
	}
	if _, ok := cache.Get("b"); !ok {
		t.Fatal("overwrite should not evict the other entry")
	}
}

func TestCacheReset(t *testing.T) {
	cache := NewCache(5)
	cache.Put("a", Result{})
	cache.Put("b", Result{})

	cache.Reset()

	if cache.Len() != 0 {
		t.Fatalf("cache holds %d entries after reset, want 0", cache.Len())
	}
	if _, ok := cache.Get("a"); ok {
		t.Fatal("entry survived reset")
	}
}
