package services

import (
	"errors"
	"fmt"
	"time"

	"lanting/internal/models"
)

// 目标类型：文章或评论。点赞引擎对两者走同一套流程，
// 差异（比如各自的里程碑阈值）只是配置。
type TargetKind string

const (
	TargetArticle TargetKind = "article"
	TargetComment TargetKind = "comment"
)

// TargetRef 指向一个可以被点赞/点踩的对象
type TargetRef struct {
	Kind TargetKind
	ID   uint
}

func (t TargetRef) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// 用户对目标的最终态度，"none" 表示没有任何态度（无记录）
const ReactionNone models.ReactionKind = "none"

var (
	ErrInvalidReactionKind = errors.New("invalid reaction kind")
	ErrTargetNotFound      = errors.New("target not found")
)

// TargetInfo 目标的归属和当前存储的计数
type TargetInfo struct {
	OwnerID      uint
	OwnerEmail   string // 里程碑邮件用，可为空
	Aid          string // 文章短 ID（评论目标为所属文章的短 ID），用于拼通知链接
	Title        string
	LikeCount    int64
	DislikeCount int64
}

// ReactionStore 反应行的持久化协作方。实现方持有服务级 DB 凭证，
// 不做任何行级权限检查；"谁能点"由上层会话中间件决定。
type ReactionStore interface {
	// FindOne 返回 (target, userID) 的现有反应，不存在时返回 (nil, nil)
	FindOne(target TargetRef, userID uint) (*models.Reaction, error)
	Create(r *models.Reaction) error
	UpdateKind(id uint, kind models.ReactionKind) error
	Delete(id uint) error
	CountByKind(target TargetRef, kind models.ReactionKind) (int64, error)
}

// TargetStore 解析目标归属并回写冗余计数
type TargetStore interface {
	// Find 目标不存在时返回 ErrTargetNotFound
	Find(target TargetRef) (*TargetInfo, error)
	SaveCounts(target TargetRef, likeCount, dislikeCount int64) error
}

// NotificationStore 通知行的持久化协作方
type NotificationStore interface {
	// FindMatching 查找 since 之后是否已存在同 (收件人, 触发者, 类型, 目标, 阈值) 的通知。
	// since 为零值表示不限时间。threshold 为 nil 表示不按阈值过滤。
	FindMatching(recipient uint, actor uint, typ models.NotificationType, target TargetRef, threshold *int, since time.Time) (bool, error)
	Create(n *models.Notification) error
}

// ReactionResult React 的返回值，调用方拿它直接渲染，无需二次查询
type ReactionResult struct {
	UserReaction models.ReactionKind `json:"user_reaction"` // like / dislike / none
	LikeCount    int64               `json:"like_count"`
	DislikeCount int64               `json:"dislike_count"`
}

// ReactionEngine 点赞/点踩与里程碑通知的唯一实现。
// 历史上这套逻辑在文章和评论两条路径里各写了一份，计数靠增量加减，
// 并发下会和真实行数漂移；现在统一走这里，计数一律从 Reaction 表重算。
type ReactionEngine struct {
	reactions     ReactionStore
	targets       TargetStore
	notifications NotificationStore
	dedup         *NotificationDeduplicator
	thresholds    map[TargetKind][]int
	reconciler    *Reconciler  // 可选，异步兜底重算
	cache         Invalidator  // 可选，计数变化后失效详情缓存
	mailer        *MailService // 可选，里程碑邮件
}

// Invalidator 详情缓存失效钩子
type Invalidator interface {
	Delete(key string)
}

func NewReactionEngine(reactions ReactionStore, targets TargetStore, notifications NotificationStore,
	dedup *NotificationDeduplicator, thresholds map[TargetKind][]int) *ReactionEngine {
	return &ReactionEngine{
		reactions:     reactions,
		targets:       targets,
		notifications: notifications,
		dedup:         dedup,
		thresholds:    thresholds,
	}
}

// AttachReconciler 挂上异步兜底重算（可选）
func (e *ReactionEngine) AttachReconciler(r *Reconciler) {
	e.reconciler = r
}

// AttachCacheInvalidator 挂上详情缓存失效钩子（可选）
func (e *ReactionEngine) AttachCacheInvalidator(inv Invalidator) {
	e.cache = inv
}

// AttachMailer 挂上里程碑邮件通道（可选）
func (e *ReactionEngine) AttachMailer(m *MailService) {
	e.mailer = m
}

// React 处理一次点赞/点踩请求：
//  1. 校验 kind
//  2. 解析目标（拿到作者和点击前的存储计数）
//  3. 切换反应行（见 toggle 状态机）
//  4. 从 Reaction 表重算两个计数并回写
//  5. 本次结果是"新增的赞"时，尝试给作者发里程碑通知（尽力而为）
//
// 通知路径的任何失败都不会影响返回值；反应写入和计数重算的失败会原样上抛。
func (e *ReactionEngine) React(target TargetRef, userID uint, kind models.ReactionKind) (*ReactionResult, error) {
	if kind != models.ReactionKindLike && kind != models.ReactionKindDislike {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReactionKind, kind)
	}

	info, err := e.targets.Find(target)
	if err != nil {
		return nil, err
	}
	// 点击前页面上展示的点赞数。读到略旧的值没关系：
	// 阈值判断只会少报不会错报，且计数本身马上会被重算纠正
	prevLikes := info.LikeCount

	final, err := e.toggle(target, userID, kind)
	if err != nil {
		return nil, err
	}

	likeCount, dislikeCount, err := e.Recompute(target)
	if err != nil {
		return nil, err
	}

	// 计数变了，所属文章的详情缓存作废
	if e.cache != nil && info.Aid != "" {
		e.cache.Delete("article:detail:" + info.Aid)
	}

	// 只有"这次操作产生了一个生效的赞"才可能触发里程碑：
	// 取消赞、点踩都不算。previousCount 用的是点击前存的计数，
	// 读到旧值也没关系，下一次重算会把一切纠正过来。
	if kind == models.ReactionKindLike && final == models.ReactionKindLike {
		e.maybeNotifyMilestone(target, info, userID, prevLikes, likeCount)
	}

	// 异步再排一次重算，兜底并发窗口里落在 count 和写回之间的其他操作
	if e.reconciler != nil {
		e.reconciler.Schedule(target)
	}

	return &ReactionResult{
		UserReaction: final,
		LikeCount:    likeCount,
		DislikeCount: dislikeCount,
	}, nil
}

// toggle 反应行状态机。对 (target, user) 的现有行：
//
//	无行   + like/dislike -> 建行，结果为所点的 kind
//	同向   + 再点一次     -> 删行，结果为 none（取消）
//	反向   + 点另一个     -> 改 kind，结果为新 kind
//
// 恰好一次对 ReactionStore 的写。计数不在这里动，交给 Recompute。
func (e *ReactionEngine) toggle(target TargetRef, userID uint, kind models.ReactionKind) (models.ReactionKind, error) {
	existing, err := e.reactions.FindOne(target, userID)
	if err != nil {
		return ReactionNone, err
	}

	if existing == nil {
		r := &models.Reaction{UserID: userID, Kind: kind}
		switch target.Kind {
		case TargetArticle:
			r.ArticleID = &target.ID
		case TargetComment:
			r.CommentID = &target.ID
		}
		createErr := e.reactions.Create(r)
		if createErr == nil {
			return kind, nil
		}
		// 大概率是并发首赞撞上唯一索引，重读一次走更新/删除分支
		existing, err = e.reactions.FindOne(target, userID)
		if err != nil || existing == nil {
			return ReactionNone, createErr
		}
	}

	if existing.Kind == kind {
		if err := e.reactions.Delete(existing.ID); err != nil {
			return ReactionNone, err
		}
		return ReactionNone, nil
	}

	if err := e.reactions.UpdateKind(existing.ID, kind); err != nil {
		return ReactionNone, err
	}
	return kind, nil
}

func (e *ReactionEngine) thresholdsFor(kind TargetKind) []int {
	return e.thresholds[kind]
}
