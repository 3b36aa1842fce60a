package handlers

import (
	"net/http"
	"strconv"

	"lanting/internal/db"
	"lanting/internal/middleware"
	"lanting/internal/models"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Profile 用户主页：基本信息 + 最近文章 + 关注数
func (h *UserHandler) Profile(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		JSONError(c, http.StatusBadRequest, "参数错误")
		return
	}

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		JSONError(c, http.StatusNotFound, "用户不存在")
		return
	}

	var articles []models.Article
	db.DB.Where("user_id = ?", user.ID).Order("created_at DESC").Limit(20).Find(&articles)

	var followerCount, followingCount int64
	db.DB.Model(&models.Follow{}).Where("followee_id = ?", user.ID).Count(&followerCount)
	db.DB.Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&followingCount)

	resp := gin.H{
		"user":            user,
		"articles":        articles,
		"follower_count":  followerCount,
		"following_count": followingCount,
	}

	// 当前登录用户是否已关注此人
	if u, exists := c.Get(middleware.CheckUserKey); exists {
		viewer := u.(*models.User)
		var count int64
		db.DB.Model(&models.Follow{}).Where("follower_id = ? AND followee_id = ?", viewer.ID, user.ID).Count(&count)
		resp["is_following"] = count > 0
	}

	JSONOK(c, http.StatusOK, resp)
}

type updateSettingsRequest struct {
	Username string `json:"username" form:"username"`
	Bio      string `json:"bio" form:"bio"`
	Avatar   string `json:"avatar" form:"avatar"`
}

// UpdateSettings 修改个人资料
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var req updateSettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "参数错误")
		return
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	user.Bio = req.Bio
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}

	if err := db.DB.Save(user).Error; err != nil {
		JSONError(c, http.StatusInternalServerError, "保存失败")
		return
	}

	JSONOK(c, http.StatusOK, gin.H{"user": user})
}
