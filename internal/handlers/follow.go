package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"lanting/internal/db"
	"lanting/internal/middleware"
	"lanting/internal/models"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct{}

func NewFollowHandler() *FollowHandler {
	return &FollowHandler{}
}

// Toggle 关注/取消关注
func (h *FollowHandler) Toggle(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		JSONError(c, http.StatusBadRequest, "参数错误")
		return
	}
	followeeID := uint(id)

	if followeeID == user.ID {
		JSONError(c, http.StatusBadRequest, "不能关注自己")
		return
	}

	var followee models.User
	if err := db.DB.First(&followee, followeeID).Error; err != nil {
		JSONError(c, http.StatusNotFound, "用户不存在")
		return
	}

	// 已关注则取消
	var existing models.Follow
	if err := db.DB.Where("follower_id = ? AND followee_id = ?", user.ID, followeeID).First(&existing).Error; err == nil {
		db.DB.Delete(&existing)
		JSONOK(c, http.StatusOK, gin.H{"following": false})
		return
	}

	follow := models.Follow{
		FollowerID: user.ID,
		FolloweeID: followeeID,
	}
	if err := db.DB.Create(&follow).Error; err != nil {
		// 唯一索引兜住并发的重复关注
		JSONOK(c, http.StatusOK, gin.H{"following": true})
		return
	}

	// 异步通知被关注者。关注/取关事件不走里程碑的去重窗口
	go func() {
		notification := models.Notification{
			UserID:  followeeID,
			ActorID: &user.ID,
			Type:    models.NotificationTypeNewFollower,
			Reason: fmt.Sprintf("<a href=\"/u/%d\" class=\"text-ink font-medium hover:underline\">%s</a> 关注了您",
				user.ID, user.Username),
		}
		db.DB.Create(&notification)
	}()

	JSONOK(c, http.StatusOK, gin.H{"following": true})
}

// Following 我关注的人
func (h *FollowHandler) Following(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var follows []models.Follow
	db.DB.Preload("Followee").Where("follower_id = ?", user.ID).Order("created_at DESC").Find(&follows)

	users := make([]models.User, 0, len(follows))
	for _, f := range follows {
		users = append(users, f.Followee)
	}

	JSONOK(c, http.StatusOK, gin.H{"following": users})
}

// Followers 关注我的人
func (h *FollowHandler) Followers(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var follows []models.Follow
	db.DB.Preload("Follower").Where("followee_id = ?", user.ID).Order("created_at DESC").Find(&follows)

	users := make([]models.User, 0, len(follows))
	for _, f := range follows {
		users = append(users, f.Follower)
	}

	JSONOK(c, http.StatusOK, gin.H{"followers": users})
}
