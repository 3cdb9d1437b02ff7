package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetReturnsLatestSet(t *testing.T) {
	c := New[string](time.Minute)

	if _, ok := c.Get("id:1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("id:1", "first")
	c.Set("id:1", "second")

	v, ok := c.Get("id:1")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if v != "second" {
		t.Errorf("expected latest value %q, got %q", "second", v)
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New[string](30 * time.Millisecond)

	c.Set("id:1", "value")
	if _, ok := c.Get("id:1"); !ok {
		t.Fatal("expected hit before TTL elapsed")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get("id:1"); ok {
		t.Error("expected miss after TTL elapsed")
	}
}

func TestSetResetsTTL(t *testing.T) {
	c := New[string](50 * time.Millisecond)

	c.Set("id:1", "old")
	time.Sleep(30 * time.Millisecond)
	c.Set("id:1", "new")
	time.Sleep(30 * time.Millisecond)

	// 60ms after the first set but only 30ms after the second.
	v, ok := c.Get("id:1")
	if !ok {
		t.Fatal("expected hit: TTL should be measured from the latest set")
	}
	if v != "new" {
		t.Errorf("expected %q, got %q", "new", v)
	}
}

func TestInvalidatePrefix(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		removed  []string
		retained []string
	}{
		{
			name:     "exact id prefix",
			prefix:   "id:1",
			removed:  []string{"id:1"},
			retained: []string{"id:2", "event:1"},
		},
		{
			name:     "scope prefix drops all derived keys",
			prefix:   "event:",
			removed:  []string{"event:1", "event:2"},
			retained: []string{"id:1", "id:2"},
		},
		{
			name:     "empty prefix clears everything",
			prefix:   "",
			removed:  []string{"id:1", "id:2", "event:1", "event:2"},
			retained: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New[int](time.Minute)
			for i, k := range []string{"id:1", "id:2", "event:1", "event:2"} {
				c.Set(k, i)
			}

			c.Invalidate(tt.prefix)

			for _, k := range tt.removed {
				if _, ok := c.Get(k); ok {
					t.Errorf("expected %q to be invalidated", k)
				}
			}
			for _, k := range tt.retained {
				if _, ok := c.Get(k); !ok {
					t.Errorf("expected %q to survive invalidation", k)
				}
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("id:%d", j%10)
				c.Set(key, n)
				c.Get(key)
				if j%25 == 0 {
					c.Invalidate("id:")
				}
			}
		}(i)
	}
	wg.Wait()
}
