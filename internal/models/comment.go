package models

import (
	"time"
)

type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Cid          string    `gorm:"uniqueIndex;size:8;not null" json:"cid"`
	ArticleID    uint      `gorm:"not null;index" json:"article_id"`
	Article      Article   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"article"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentID     *uint     `gorm:"index" json:"parent_id"` // Nullable for top-level comments
	Parent       *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"parent"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	LikeCount    int       `gorm:"default:0" json:"like_count"`    // 冗余计数，由 Reaction 表重算得出
	DislikeCount int       `gorm:"default:0" json:"dislike_count"` // 同上
	CreatedAt    time.Time `json:"created_at"`
}
