package services

import (
	"sync"
	"testing"
	"time"
)

func TestReconcilerProcessesScheduledTargets(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[TargetRef]int)
	done := make(chan struct{}, 10)

	r := NewReconciler(func(target TargetRef) error {
		mu.Lock()
		seen[target]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	target := TargetRef{Kind: TargetArticle, ID: 1}
	r.Schedule(target)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not process scheduled target")
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[target] != 1 {
		t.Errorf("expected target processed once, got %d", seen[target])
	}
}

// 已在队列中的目标不重复入队
func TestReconcilerDeduplicatesPending(t *testing.T) {
	block := make(chan struct{})
	var mu sync.Mutex
	calls := 0

	r := NewReconciler(func(target TargetRef) error {
		<-block
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	target := TargetRef{Kind: TargetComment, ID: 7}
	r.Schedule(target)
	r.Schedule(target)
	r.Schedule(target)

	if !r.Pending(target) {
		t.Error("target should be pending while queued")
	}

	close(block)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !r.Pending(target) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 recompute for deduplicated schedules, got %d", calls)
	}
}

// 不同目标各排各的
func TestReconcilerSeparateTargets(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[TargetRef]bool)
	done := make(chan struct{}, 2)

	r := NewReconciler(func(target TargetRef) error {
		mu.Lock()
		seen[target] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	a := TargetRef{Kind: TargetArticle, ID: 1}
	b := TargetRef{Kind: TargetComment, ID: 1}
	r.Schedule(a)
	r.Schedule(b)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for reconciler")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if !seen[a] || !seen[b] {
		t.Errorf("expected both targets processed, got %v", seen)
	}
}
