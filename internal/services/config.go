package services

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
)

// 默认里程碑阈值，文章和评论共用；可分别用
// ARTICLE_LIKE_THRESHOLDS / COMMENT_LIKE_THRESHOLDS 覆盖（逗号分隔）。
var DefaultLikeThresholds = []int{1, 5, 10, 25, 50, 100}

// ThresholdsFromEnv 读取两类目标各自的阈值配置
func ThresholdsFromEnv() map[TargetKind][]int {
	return map[TargetKind][]int{
		TargetArticle: thresholdsFromEnv("ARTICLE_LIKE_THRESHOLDS"),
		TargetComment: thresholdsFromEnv("COMMENT_LIKE_THRESHOLDS"),
	}
}

func thresholdsFromEnv(key string) []int {
	raw := os.Getenv(key)
	if raw == "" {
		return DefaultLikeThresholds
	}
	parsed, err := ParseThresholds(raw)
	if err != nil {
		log.Printf("非法的 %s=%q: %v，使用默认值", key, raw, err)
		return DefaultLikeThresholds
	}
	return parsed
}

// ParseThresholds 解析逗号分隔的阈值列表，去重并升序排列
func ParseThresholds(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	seen := make(map[int]bool)
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", p)
		}
		if n < 1 {
			return nil, fmt.Errorf("threshold must be positive: %d", n)
		}
		if !seen[n] {
			seen[n] = true
			result = append(result, n)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty threshold list")
	}
	sort.Ints(result)
	return result, nil
}
