package services

import (
	"log"
	"sync"
	"time"
)

// Reconciler 异步把目标的冗余计数重算一遍。
// React 自己已经同步重算过，但 count 和回写之间落进来的并发操作
// 可能让写入的值瞬间过期；这里再排一次重算，把计数收敛到真实行数。
type Reconciler struct {
	queue   chan TargetRef // 待重算队列
	pending map[TargetRef]bool
	mu      sync.Mutex

	recompute func(TargetRef) error
}

const (
	reconcileQueueSize = 1000
	reconcileBatchSize = 50
	reconcileInterval  = 500 * time.Millisecond
)

// NewReconciler recompute 由引擎注入，启动后台 worker
func NewReconciler(recompute func(TargetRef) error) *Reconciler {
	r := &Reconciler{
		queue:     make(chan TargetRef, reconcileQueueSize), // 缓冲队列，防止阻塞
		pending:   make(map[TargetRef]bool),
		recompute: recompute,
	}
	go r.worker()
	return r
}

// Schedule 将目标加入重算队列（异步）。
// 短时间内同一目标只排一次，避免重复计算。
func (r *Reconciler) Schedule(target TargetRef) {
	r.mu.Lock()
	if r.pending[target] {
		r.mu.Unlock()
		return
	}
	r.pending[target] = true
	r.mu.Unlock()

	// 非阻塞发送
	select {
	case r.queue <- target:
	default:
		// 队列满了，移除 pending 标记；计数下一次操作时还会重算
		r.mu.Lock()
		delete(r.pending, target)
		r.mu.Unlock()
		log.Printf("计数重算队列已满，跳过 %s", target)
	}
}

// Sweep 把一批目标全部排进队列，用于启动时的兜底重算
func (r *Reconciler) Sweep(targets []TargetRef) {
	for _, target := range targets {
		r.Schedule(target)
	}
}

// Pending 目标当前是否已在队列中（测试用）
func (r *Reconciler) Pending(target TargetRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[target]
}

// worker 批量消费队列
func (r *Reconciler) worker() {
	batch := make([]TargetRef, 0, reconcileBatchSize)
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case target := <-r.queue:
			batch = append(batch, target)
			if len(batch) >= reconcileBatchSize {
				r.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Reconciler) processBatch(targets []TargetRef) {
	for _, target := range targets {
		if err := r.recompute(target); err != nil {
			log.Printf("重算 %s 计数失败: %v", target, err)
		}

		r.mu.Lock()
		delete(r.pending, target)
		r.mu.Unlock()
	}
}
