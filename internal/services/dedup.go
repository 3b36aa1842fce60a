package services

import (
	"fmt"
	"log"
	"time"

	"lanting/internal/models"
)

// 阈值 1（"第一个赞"）的去重窗口。刚发布的内容常被同一个人
// 反复点/取消，一小时内只提醒一次；更高的阈值一旦通知过就
// 永远不再重复（窗口无限），免得计数在阈值附近来回抖动刷屏。
const FirstLikeDedupWindow = time.Hour

// DedupCache 带 TTL 的键值能力，进程启动时选定 redis 或内存实现。
// 只是查询捷径：真正的判定以 NotificationStore 的查询为准。
type DedupCache interface {
	Has(key string) bool
	Remember(key string, ttl time.Duration)
}

// NotificationDeduplicator 判断候选通知在回溯窗口内是否已存在
type NotificationDeduplicator struct {
	store NotificationStore
	cache DedupCache // 可为 nil
}

func NewNotificationDeduplicator(store NotificationStore, cache DedupCache) *NotificationDeduplicator {
	return &NotificationDeduplicator{store: store, cache: cache}
}

func dedupKey(recipient, actor uint, typ models.NotificationType, target TargetRef, threshold int) string {
	return fmt.Sprintf("notify:dedup:%s:%d:%d:%s:%d", typ, recipient, actor, target, threshold)
}

// Exists 是否已有同 (收件人, 触发者, 类型, 目标, 阈值) 的通知。
// 存储查询出错时放行（返回 false）：通知是尽力而为，
// 宁可偶尔重复一条，也不能因为查重失败把通知整个卡死。
func (d *NotificationDeduplicator) Exists(recipient, actor uint, typ models.NotificationType, target TargetRef, threshold int) bool {
	key := dedupKey(recipient, actor, typ, target, threshold)
	if d.cache != nil && d.cache.Has(key) {
		return true
	}

	var since time.Time
	if threshold == 1 {
		since = time.Now().Add(-FirstLikeDedupWindow)
	}
	// 高于 1 的阈值 since 保持零值，即不限时间

	found, err := d.store.FindMatching(recipient, actor, typ, target, &threshold, since)
	if err != nil {
		log.Printf("通知查重失败（按不重复处理）: %v", err)
		return false
	}
	return found
}

// Remember 发出通知后登记，后续同键的候选走缓存快速路径。
// 高阈值的条目存里也永远查得到，这里的 TTL 只决定捷径失效多快。
func (d *NotificationDeduplicator) Remember(recipient, actor uint, typ models.NotificationType, target TargetRef, threshold int) {
	if d.cache == nil {
		return
	}
	ttl := 24 * time.Hour
	if threshold == 1 {
		ttl = FirstLikeDedupWindow
	}
	d.cache.Remember(dedupKey(recipient, actor, typ, target, threshold), ttl)
}
