package models

import (
	"time"
)

type ReactionKind string

const (
	ReactionKindLike    ReactionKind = "like"
	ReactionKindDislike ReactionKind = "dislike"
)

// Reaction 一个用户对一个目标（文章或评论）的态度，每人每目标最多一行。
// "无态度"即没有这一行，不存在第三种取值。
type Reaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;index;uniqueIndex:idx_user_article;uniqueIndex:idx_user_comment" json:"user_id"`
	ArticleID *uint        `gorm:"uniqueIndex:idx_user_article" json:"article_id"`
	CommentID *uint        `gorm:"uniqueIndex:idx_user_comment" json:"comment_id"`
	Kind      ReactionKind `gorm:"type:varchar(10);not null" json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// PG 下 (user_id, article_id) 的唯一索引对 article_id 为 NULL 的行不生效，
// 所以评论反应不会和文章反应互相冲突；并发首赞靠这两个唯一索引兜底。
