package services

import (
	"fmt"

	"lanting/internal/models"
)

// Recompute 从 Reaction 表重算目标的两个计数并回写。
// 永远不读旧计数、不做加减——哪怕上一次写入断在半路，
// 下一次重算也会把计数拉回真实行数（自愈）。
func (e *ReactionEngine) Recompute(target TargetRef) (likeCount, dislikeCount int64, err error) {
	likeCount, err = e.reactions.CountByKind(target, models.ReactionKindLike)
	if err != nil {
		return 0, 0, fmt.Errorf("count likes for %s: %w", target, err)
	}
	dislikeCount, err = e.reactions.CountByKind(target, models.ReactionKindDislike)
	if err != nil {
		return 0, 0, fmt.Errorf("count dislikes for %s: %w", target, err)
	}

	if err = e.targets.SaveCounts(target, likeCount, dislikeCount); err != nil {
		return 0, 0, fmt.Errorf("save counts for %s: %w", target, err)
	}

	return likeCount, dislikeCount, nil
}
