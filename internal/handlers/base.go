package handlers

import (
	"lanting/internal/middleware"

	"github.com/gin-gonic/gin"
)

func JSONError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// JSONOK 统一出口，登录用户的响应顺带捎上未读通知数
func JSONOK(c *gin.Context, code int, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	if count, exists := c.Get(middleware.UnreadCountKey); exists {
		if _, taken := obj["unread_count"]; !taken {
			obj["unread_count"] = count
		}
	}
	c.JSON(code, obj)
}
