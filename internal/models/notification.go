package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeLikeMilestone  NotificationType = "like_milestone" // 点赞里程碑
	NotificationTypeCommentArticle NotificationType = "comment_article"
	NotificationTypeReplyComment   NotificationType = "reply_comment"
	NotificationTypeNewFollower    NotificationType = "new_follower"
	NotificationTypeSystem         NotificationType = "system"
)

type Notification struct {
	ID      uint             `gorm:"primaryKey" json:"id"`
	UserID  uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User    User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ActorID *uint            `gorm:"index" json:"actor_id"` // Sender
	Actor   User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type    NotificationType `gorm:"type:varchar(20);not null;index" json:"type"`
	Reason  string           `gorm:"type:text" json:"reason"` // 通知详细内容 (支持 HTML)

	// 通知指向的目标，like_milestone 必填，其余类型按需填写
	TargetKind string `gorm:"type:varchar(10);index:idx_notify_target" json:"target_kind"`
	TargetID   uint   `gorm:"index:idx_notify_target" json:"target_id"`

	// like_milestone 元数据：跨过的阈值和发出时刻的点赞数
	Threshold *int `json:"threshold"`
	LikeCount int  `gorm:"default:0" json:"like_count"`

	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
