package services

// CrossedThreshold 判断计数从 prev 涨到 now 是否跨过了某个里程碑。
// thresholds 必须升序。规则：
//   - 0 -> 1 永远算跨过阈值 1（"第一个赞"），不管列表里有没有 1
//   - 其余情况返回满足 prev < t <= now 的最小 t；一次涨多个阈值
//     （并发点赞一起重算时会出现）也只报最小的那个，不连发多条通知
//   - 没跨过返回 (0, false)
func CrossedThreshold(prev, now int64, thresholds []int) (int, bool) {
	if prev == 0 && now == 1 {
		return 1, true
	}
	for _, t := range thresholds {
		if int64(t) > prev && int64(t) <= now {
			return t, true
		}
	}
	return 0, false
}
