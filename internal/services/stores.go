package services

import (
	"errors"
	"fmt"
	"time"

	"lanting/internal/db"
	"lanting/internal/models"

	"gorm.io/gorm"
)

// GORM 实现的三个存储协作方。全部跑在服务级 DB 连接上，
// 不做行级权限检查（见 ReactionStore 注释）。

type GormReactionStore struct{}

func NewGormReactionStore() *GormReactionStore {
	return &GormReactionStore{}
}

func (s *GormReactionStore) scope(target TargetRef) (*gorm.DB, error) {
	switch target.Kind {
	case TargetArticle:
		return db.DB.Model(&models.Reaction{}).Where("article_id = ?", target.ID), nil
	case TargetComment:
		return db.DB.Model(&models.Reaction{}).Where("comment_id = ?", target.ID), nil
	default:
		return nil, fmt.Errorf("unknown target kind %q", target.Kind)
	}
}

func (s *GormReactionStore) FindOne(target TargetRef, userID uint) (*models.Reaction, error) {
	query, err := s.scope(target)
	if err != nil {
		return nil, err
	}

	var r models.Reaction
	if err := query.Where("user_id = ?", userID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *GormReactionStore) Create(r *models.Reaction) error {
	return db.DB.Create(r).Error
}

func (s *GormReactionStore) UpdateKind(id uint, kind models.ReactionKind) error {
	return db.DB.Model(&models.Reaction{}).Where("id = ?", id).UpdateColumn("kind", kind).Error
}

func (s *GormReactionStore) Delete(id uint) error {
	return db.DB.Delete(&models.Reaction{}, id).Error
}

// RecentlyReacted 返回 since 之后有过反应的所有目标（去重）。
// 启动时的兜底重算用：上次进程挂掉时没来得及收敛的计数借此补上。
func (s *GormReactionStore) RecentlyReacted(since time.Time) ([]TargetRef, error) {
	var rows []models.Reaction
	if err := db.DB.Where("created_at >= ?", since).Find(&rows).Error; err != nil {
		return nil, err
	}

	seen := make(map[TargetRef]bool)
	targets := make([]TargetRef, 0, len(rows))
	for _, r := range rows {
		var t TargetRef
		switch {
		case r.ArticleID != nil:
			t = TargetRef{Kind: TargetArticle, ID: *r.ArticleID}
		case r.CommentID != nil:
			t = TargetRef{Kind: TargetComment, ID: *r.CommentID}
		default:
			continue
		}
		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}
	return targets, nil
}

func (s *GormReactionStore) CountByKind(target TargetRef, kind models.ReactionKind) (int64, error) {
	query, err := s.scope(target)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := query.Where("kind = ?", kind).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type GormTargetStore struct{}

func NewGormTargetStore() *GormTargetStore {
	return &GormTargetStore{}
}

func (s *GormTargetStore) Find(target TargetRef) (*TargetInfo, error) {
	switch target.Kind {
	case TargetArticle:
		var article models.Article
		if err := db.DB.Preload("User").First(&article, target.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
			}
			return nil, err
		}
		return &TargetInfo{
			OwnerID:      article.UserID,
			OwnerEmail:   article.User.Email,
			Aid:          article.Aid,
			Title:        article.Title,
			LikeCount:    int64(article.LikeCount),
			DislikeCount: int64(article.DislikeCount),
		}, nil
	case TargetComment:
		var comment models.Comment
		if err := db.DB.Preload("Article").Preload("User").First(&comment, target.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
			}
			return nil, err
		}
		return &TargetInfo{
			OwnerID:      comment.UserID,
			OwnerEmail:   comment.User.Email,
			Aid:          comment.Article.Aid,
			Title:        comment.Article.Title,
			LikeCount:    int64(comment.LikeCount),
			DislikeCount: int64(comment.DislikeCount),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrTargetNotFound, target.Kind)
	}
}

func (s *GormTargetStore) SaveCounts(target TargetRef, likeCount, dislikeCount int64) error {
	counts := map[string]interface{}{
		"like_count":    likeCount,
		"dislike_count": dislikeCount,
	}
	switch target.Kind {
	case TargetArticle:
		return db.DB.Model(&models.Article{}).Where("id = ?", target.ID).UpdateColumns(counts).Error
	case TargetComment:
		return db.DB.Model(&models.Comment{}).Where("id = ?", target.ID).UpdateColumns(counts).Error
	default:
		return fmt.Errorf("unknown target kind %q", target.Kind)
	}
}

type GormNotificationStore struct{}

func NewGormNotificationStore() *GormNotificationStore {
	return &GormNotificationStore{}
}

func (s *GormNotificationStore) FindMatching(recipient uint, actor uint, typ models.NotificationType, target TargetRef, threshold *int, since time.Time) (bool, error) {
	query := db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND actor_id = ? AND type = ?", recipient, actor, typ).
		Where("target_kind = ? AND target_id = ?", string(target.Kind), target.ID)
	if threshold != nil {
		query = query.Where("threshold = ?", *threshold)
	}
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormNotificationStore) Create(n *models.Notification) error {
	return db.DB.Create(n).Error
}
