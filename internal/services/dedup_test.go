package services

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"lanting/internal/models"
)

var errTestBoom = errors.New("boom")

func newTestRedisCache(t *testing.T) (*RedisDedupCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := NewRedisDedupCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("connect to miniredis: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisDedupCacheRoundTrip(t *testing.T) {
	cache, _ := newTestRedisCache(t)

	key := "notify:dedup:like_milestone:10:2:article:1:1"
	if cache.Has(key) {
		t.Error("fresh cache should miss")
	}

	cache.Remember(key, time.Hour)
	if !cache.Has(key) {
		t.Error("expected hit after Remember")
	}
}

func TestRedisDedupCacheExpiry(t *testing.T) {
	cache, mr := newTestRedisCache(t)

	key := "notify:dedup:like_milestone:10:2:article:1:1"
	cache.Remember(key, time.Hour)

	mr.FastForward(2 * time.Hour)

	if cache.Has(key) {
		t.Error("expected miss after TTL expiry")
	}
}

func TestNewRedisDedupCacheBadURL(t *testing.T) {
	if _, err := NewRedisDedupCache("not a url"); err == nil {
		t.Error("expected error for malformed redis url")
	}
}

func TestMemoryDedupCache(t *testing.T) {
	cache := NewMemoryDedupCache()

	key := "notify:dedup:test:memory"
	if cache.Has(key) {
		t.Error("fresh key should miss")
	}
	cache.Remember(key, time.Hour)
	if !cache.Has(key) {
		t.Error("expected hit after Remember")
	}
}

// 缓存命中时不应落到存储查询
func TestDeduplicatorCacheShortCircuit(t *testing.T) {
	store := &fakeNotificationStore{failFind: errTestBoom}
	cache := NewMemoryDedupCache()
	dedup := NewNotificationDeduplicator(store, cache)

	target := TargetRef{Kind: TargetArticle, ID: 1}
	dedup.Remember(10, 2, models.NotificationTypeLikeMilestone, target, 5)

	if !dedup.Exists(10, 2, models.NotificationTypeLikeMilestone, target, 5) {
		t.Error("expected cache hit to short-circuit before the failing store")
	}
}

// 阈值 1 只回溯一小时，高阈值不限时间
func TestDeduplicatorWindowByThreshold(t *testing.T) {
	store := &fakeNotificationStore{}
	dedup := NewNotificationDeduplicator(store, nil)
	target := TargetRef{Kind: TargetArticle, ID: 1}

	threshold := 1
	old := &models.Notification{
		UserID:     10,
		ActorID:    uintPtr(2),
		Type:       models.NotificationTypeLikeMilestone,
		TargetKind: string(TargetArticle),
		TargetID:   1,
		Threshold:  &threshold,
		CreatedAt:  time.Now().Add(-2 * time.Hour),
	}
	store.rows = append(store.rows, old)

	if dedup.Exists(10, 2, models.NotificationTypeLikeMilestone, target, 1) {
		t.Error("2h-old first-like notification should fall outside the window")
	}

	five := 5
	oldFive := &models.Notification{
		UserID:     10,
		ActorID:    uintPtr(2),
		Type:       models.NotificationTypeLikeMilestone,
		TargetKind: string(TargetArticle),
		TargetID:   1,
		Threshold:  &five,
		CreatedAt:  time.Now().Add(-365 * 24 * time.Hour),
	}
	store.rows = append(store.rows, oldFive)

	if !dedup.Exists(10, 2, models.NotificationTypeLikeMilestone, target, 5) {
		t.Error("threshold-5 dedup must be unbounded in time")
	}
}

func uintPtr(v uint) *uint { return &v }
