package handlers

import (
	"fmt"
	"net/http"
	"time"

	"lanting/internal/db"
	"lanting/internal/middleware"
	"lanting/internal/models"
	"lanting/internal/services"
	"lanting/internal/utils"

	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	mailService *services.MailService
}

func NewArticleHandler(mailService *services.MailService) *ArticleHandler {
	return &ArticleHandler{mailService: mailService}
}

type createArticleRequest struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

func (h *ArticleHandler) Create(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var req createArticleRequest
	if err := c.ShouldBind(&req); err != nil || req.Title == "" {
		JSONError(c, http.StatusBadRequest, "标题不能为空")
		return
	}

	article := models.Article{
		Aid:     utils.RandStringBytesMaskImpr(8),
		UserID:  user.ID,
		Title:   req.Title,
		Content: req.Content, // 原样存储，不做格式化
	}

	if err := db.DB.Create(&article).Error; err != nil {
		JSONError(c, http.StatusInternalServerError, "发布失败")
		return
	}

	JSONOK(c, http.StatusCreated, gin.H{"article": article})
}

// List 最新文章，带分页
func (h *ArticleHandler) List(c *gin.Context) {
	page := utils.StringToInt(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	const pageSize = 20

	var articles []models.Article
	db.DB.Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&articles)

	// 填充评论数
	for i := range articles {
		var count int64
		db.DB.Model(&models.Comment{}).Where("article_id = ?", articles[i].ID).Count(&count)
		articles[i].CommentCount = int(count)
	}

	JSONOK(c, http.StatusOK, gin.H{"articles": articles, "page": page})
}

// articleDetail 详情页的共享部分（所有访客相同），整体进缓存
type articleDetail struct {
	Article  models.Article   `json:"article"`
	Comments []models.Comment `json:"comments"`
}

// Detail 文章详情。共享部分缓存 5 分钟，计数变化时由引擎主动失效；
// 当前用户自己的反应状态不进缓存，单独查。
func (h *ArticleHandler) Detail(c *gin.Context) {
	aid := c.Param("aid")
	cacheKey := fmt.Sprintf("article:detail:%s", aid)

	var detail *articleDetail
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		detail = cached.(*articleDetail)
	} else {
		var article models.Article
		if err := db.DB.Preload("User").Where("aid = ?", aid).First(&article).Error; err != nil {
			JSONError(c, http.StatusNotFound, "文章不存在")
			return
		}

		var comments []models.Comment
		db.DB.Preload("User").Where("article_id = ?", article.ID).Order("created_at ASC").Find(&comments)
		article.CommentCount = len(comments)

		detail = &articleDetail{Article: article, Comments: comments}
		utils.GetCache().Set(cacheKey, detail, 5*time.Minute)
	}

	resp := gin.H{"article": detail.Article, "comments": detail.Comments}

	// 登录用户附带自己对文章和各评论的反应状态
	if u, exists := c.Get(middleware.CheckUserKey); exists {
		user := u.(*models.User)

		userReaction := string(services.ReactionNone)
		var r models.Reaction
		if err := db.DB.Where("user_id = ? AND article_id = ?", user.ID, detail.Article.ID).First(&r).Error; err == nil {
			userReaction = string(r.Kind)
		}
		resp["user_reaction"] = userReaction

		commentReactions := make(map[uint]string)
		var rs []models.Reaction
		db.DB.Where("user_id = ? AND comment_id IN (?)", user.ID,
			db.DB.Model(&models.Comment{}).Select("id").Where("article_id = ?", detail.Article.ID)).
			Find(&rs)
		for _, cr := range rs {
			if cr.CommentID != nil {
				commentReactions[*cr.CommentID] = string(cr.Kind)
			}
		}
		resp["comment_reactions"] = commentReactions
	}

	JSONOK(c, http.StatusOK, resp)
}

func (h *ArticleHandler) Delete(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	aid := c.Param("aid")

	var article models.Article
	if err := db.DB.Where("aid = ?", aid).First(&article).Error; err != nil {
		JSONError(c, http.StatusNotFound, "文章不存在")
		return
	}

	// 只允许删除自己的文章
	if article.UserID != user.ID {
		JSONError(c, http.StatusForbidden, "无权删除")
		return
	}

	db.DB.Delete(&article)
	utils.GetCache().Delete(fmt.Sprintf("article:detail:%s", aid))

	JSONOK(c, http.StatusOK, gin.H{"message": "已删除"})
}

type createCommentRequest struct {
	Content  string `json:"content" form:"content"`
	ParentID *uint  `json:"parent_id" form:"parent_id"`
}

func (h *ArticleHandler) CreateComment(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	aid := c.Param("aid")

	var article models.Article
	if err := db.DB.Where("aid = ?", aid).First(&article).Error; err != nil {
		JSONError(c, http.StatusNotFound, "文章不存在")
		return
	}

	var req createCommentRequest
	if err := c.ShouldBind(&req); err != nil || req.Content == "" {
		JSONError(c, http.StatusBadRequest, "评论内容不能为空")
		return
	}

	comment := models.Comment{
		Cid:       utils.RandStringBytesMaskImpr(8),
		ArticleID: article.ID,
		UserID:    user.ID,
		Content:   req.Content,
		ParentID:  req.ParentID,
	}

	if err := db.DB.Create(&comment).Error; err != nil {
		JSONError(c, http.StatusInternalServerError, "评论失败")
		return
	}

	// 主动失效详情页缓存
	utils.GetCache().Delete(fmt.Sprintf("article:detail:%s", article.Aid))

	// Create Notifications
	go func() {
		// 如果是回复评论，只通知被回复者
		if comment.ParentID != nil {
			var parentComment models.Comment
			if err := db.DB.Preload("User").First(&parentComment, *comment.ParentID).Error; err == nil {
				// 不要通知自己
				if parentComment.UserID != user.ID {
					notification := models.Notification{
						UserID:  parentComment.UserID,
						ActorID: &user.ID,
						Type:    models.NotificationTypeReplyComment,
						Reason: fmt.Sprintf("在文章 <a href=\"/a/%s#comment-%d\" target=\"_blank\" class=\"text-ink font-medium hover:underline\">《%s》</a> 中回复了您的评论",
							article.Aid, comment.ID, article.Title),
						TargetKind: string(services.TargetComment),
						TargetID:   comment.ID,
					}
					db.DB.Create(&notification)

					// Send Email Notification
					link := fmt.Sprintf("/a/%s#comment-%d", article.Aid, comment.ID)
					h.mailService.SendReplyNotification(
						parentComment.User.Email,
						user.Username,
						article.Title,
						req.Content,
						parentComment.Content,
						link,
					)
				}
			}
		} else {
			// 如果是直接评论文章，通知文章作者
			if article.UserID != user.ID {
				notification := models.Notification{
					UserID:  article.UserID,
					ActorID: &user.ID,
					Type:    models.NotificationTypeCommentArticle,
					Reason: fmt.Sprintf("在您的文章 <a href=\"/a/%s#comment-%d\" target=\"_blank\" class=\"text-ink font-medium hover:underline\">《%s》</a> 中发布了新的评论",
						article.Aid, comment.ID, article.Title),
					TargetKind: string(services.TargetArticle),
					TargetID:   article.ID,
				}
				db.DB.Create(&notification)
			}
		}
	}()

	JSONOK(c, http.StatusCreated, gin.H{"comment": comment})
}

// DeleteComment 软删除评论（只替换内容，保留楼层）
func (h *ArticleHandler) DeleteComment(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	cid := c.Param("cid")

	var comment models.Comment
	if err := db.DB.Where("cid = ?", cid).First(&comment).Error; err != nil {
		JSONError(c, http.StatusNotFound, "评论不存在")
		return
	}

	// 只允许删除自己的评论
	if comment.UserID != user.ID {
		JSONError(c, http.StatusForbidden, "无权删除")
		return
	}

	comment.Content = "该评论已删除。"
	db.DB.Save(&comment)

	var article models.Article
	if err := db.DB.First(&article, comment.ArticleID).Error; err == nil {
		utils.GetCache().Delete(fmt.Sprintf("article:detail:%s", article.Aid))
	}

	JSONOK(c, http.StatusOK, gin.H{"message": "已删除"})
}
