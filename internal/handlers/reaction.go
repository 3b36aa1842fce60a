package handlers

import (
	"errors"
	"net/http"

	"lanting/internal/db"
	"lanting/internal/middleware"
	"lanting/internal/models"
	"lanting/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReactionHandler struct {
	engine *services.ReactionEngine
}

func NewReactionHandler(engine *services.ReactionEngine) *ReactionHandler {
	return &ReactionHandler{engine: engine}
}

type reactRequest struct {
	Reaction string `json:"reaction" form:"reaction"`
}

// ReactArticle 对文章点赞/点踩。
// POST /a/:aid/react  body: {"reaction": "like"|"dislike"}
func (h *ReactionHandler) ReactArticle(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	aid := c.Param("aid")

	var article models.Article
	if err := db.DB.Where("aid = ?", aid).First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			JSONError(c, http.StatusNotFound, "文章不存在")
			return
		}
		JSONError(c, http.StatusInternalServerError, "查询文章失败")
		return
	}

	h.react(c, services.TargetRef{Kind: services.TargetArticle, ID: article.ID}, user.ID)
}

// ReactComment 对评论点赞/点踩，同一个引擎，同一套流程
func (h *ReactionHandler) ReactComment(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	cid := c.Param("cid")

	var comment models.Comment
	if err := db.DB.Where("cid = ?", cid).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			JSONError(c, http.StatusNotFound, "评论不存在")
			return
		}
		JSONError(c, http.StatusInternalServerError, "查询评论失败")
		return
	}

	h.react(c, services.TargetRef{Kind: services.TargetComment, ID: comment.ID}, user.ID)
}

func (h *ReactionHandler) react(c *gin.Context, target services.TargetRef, userID uint) {
	var req reactRequest
	if err := c.ShouldBind(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "参数错误")
		return
	}

	result, err := h.engine.React(target, userID, models.ReactionKind(req.Reaction))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReactionKind):
			JSONError(c, http.StatusBadRequest, "reaction 只能是 like 或 dislike")
		case errors.Is(err, services.ErrTargetNotFound):
			JSONError(c, http.StatusNotFound, "目标不存在")
		default:
			JSONError(c, http.StatusInternalServerError, "操作失败，请重试")
		}
		return
	}

	JSONOK(c, http.StatusOK, gin.H{
		"user_reaction": result.UserReaction,
		"like_count":    result.LikeCount,
		"dislike_count": result.DislikeCount,
	})
}
