package utils

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := GetCache()

	c.Set("k1", "v1", time.Minute)
	if got := c.Get("k1"); got != "v1" {
		t.Errorf("Get(k1) = %v, want v1", got)
	}

	if got := c.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := GetCache()

	c.Set("short", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if got := c.Get("short"); got != nil {
		t.Errorf("expected expired entry to be nil, got %v", got)
	}
}

func TestCacheDelete(t *testing.T) {
	c := GetCache()

	c.Set("gone", 42, time.Minute)
	c.Delete("gone")
	if got := c.Get("gone"); got != nil {
		t.Errorf("expected nil after Delete, got %v", got)
	}
}

func TestCacheSingleton(t *testing.T) {
	if GetCache() != GetCache() {
		t.Error("GetCache should return the same instance")
	}
}
