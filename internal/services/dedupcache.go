package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"lanting/internal/utils"

	"github.com/redis/go-redis/v9"
)

// RedisDedupCache 多实例部署时用 Redis 共享去重标记
type RedisDedupCache struct {
	client *redis.Client
}

// NewRedisDedupCache 连接失败直接报错，由调用方决定是否回退内存实现
func NewRedisDedupCache(redisURL string) (*RedisDedupCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisDedupCache{client: client}, nil
}

func (c *RedisDedupCache) Has(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		// 缓存只是捷径，出错当 miss，让存储查询兜底
		log.Printf("redis dedup exists failed: %v", err)
		return false
	}
	return n > 0
}

func (c *RedisDedupCache) Remember(key string, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		log.Printf("redis dedup remember failed: %v", err)
	}
}

func (c *RedisDedupCache) Close() error {
	return c.client.Close()
}

// MemoryDedupCache 单实例部署的默认选择，复用进程内 LRU 缓存
type MemoryDedupCache struct {
	cache *utils.GlobalCache
}

func NewMemoryDedupCache() *MemoryDedupCache {
	return &MemoryDedupCache{cache: utils.GetCache()}
}

func (c *MemoryDedupCache) Has(key string) bool {
	return c.cache.Get(key) != nil
}

func (c *MemoryDedupCache) Remember(key string, ttl time.Duration) {
	c.cache.Set(key, true, ttl)
}
