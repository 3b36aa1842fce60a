package models

import (
	"time"
)

type Article struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Aid          string    `gorm:"uniqueIndex;size:8;not null" json:"aid"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Title        string    `gorm:"not null" json:"title"`
	Content      string    `gorm:"type:text" json:"content"`
	LikeCount    int       `gorm:"default:0" json:"like_count"`    // 冗余计数，始终由 Reaction 表重算得出
	DislikeCount int       `gorm:"default:0" json:"dislike_count"` // 同上
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}
