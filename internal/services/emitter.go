package services

import (
	"fmt"
	"log"

	"lanting/internal/models"
)

// maybeNotifyMilestone 点赞数跨过里程碑时给作者发通知，一个里程碑最多一条。
// 整条路径尽力而为：任何失败只记日志，绝不影响点赞本身的返回。
func (e *ReactionEngine) maybeNotifyMilestone(target TargetRef, info *TargetInfo, actorID uint, prev, now int64) {
	// 自己赞自己不通知
	if info.OwnerID == 0 || info.OwnerID == actorID {
		return
	}

	threshold, ok := CrossedThreshold(prev, now, e.thresholdsFor(target.Kind))
	if !ok {
		return
	}

	if e.dedup.Exists(info.OwnerID, actorID, models.NotificationTypeLikeMilestone, target, threshold) {
		return
	}

	n := &models.Notification{
		UserID:     info.OwnerID,
		ActorID:    &actorID,
		Type:       models.NotificationTypeLikeMilestone,
		Reason:     milestoneReason(target, info, threshold, now),
		TargetKind: string(target.Kind),
		TargetID:   target.ID,
		Threshold:  &threshold,
		LikeCount:  int(now),
	}
	if err := e.notifications.Create(n); err != nil {
		log.Printf("创建里程碑通知失败 (target=%s threshold=%d): %v", target, threshold, err)
		return
	}
	e.dedup.Remember(info.OwnerID, actorID, models.NotificationTypeLikeMilestone, target, threshold)

	if e.mailer != nil && info.OwnerEmail != "" {
		link := fmt.Sprintf("/a/%s", info.Aid)
		if target.Kind == TargetComment {
			link = fmt.Sprintf("/a/%s#comment-%d", info.Aid, target.ID)
		}
		e.mailer.SendMilestoneNotification(info.OwnerEmail, info.Title, target.Kind, threshold, link)
	}
}

func milestoneReason(target TargetRef, info *TargetInfo, threshold int, likeCount int64) string {
	link := fmt.Sprintf("/a/%s", info.Aid)
	if target.Kind == TargetComment {
		link = fmt.Sprintf("/a/%s#comment-%d", info.Aid, target.ID)
	}

	what := fmt.Sprintf("您的文章 <a href=\"%s\" target=\"_blank\" class=\"text-ink font-medium hover:underline\">《%s》</a>", link, info.Title)
	if target.Kind == TargetComment {
		what = fmt.Sprintf("您在 <a href=\"%s\" target=\"_blank\" class=\"text-ink font-medium hover:underline\">《%s》</a> 下的评论", link, info.Title)
	}

	if threshold == 1 {
		return what + " 收到了第一个赞"
	}
	return fmt.Sprintf("%s 点赞数达到了 %d（当前 %d 个赞）", what, threshold, likeCount)
}
