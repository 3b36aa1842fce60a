package handlers

import (
	"net/http"
	"strings"

	"lanting/internal/db"
	"lanting/internal/models"
	"lanting/internal/services"
	"lanting/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	mailService    *services.MailService
	captchaService *services.CaptchaService
}

func NewAuthHandler(mailService *services.MailService) *AuthHandler {
	return &AuthHandler{
		mailService:    mailService,
		captchaService: services.NewCaptchaService(),
	}
}

// Captcha 下发注册用的算术验证码，答案存 session
func (h *AuthHandler) Captcha(c *gin.Context) {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set("captcha_answer", answer)
	session.Save()
	JSONOK(c, http.StatusOK, gin.H{"captcha": question})
}

// createUser 创建新用户的通用函数
func (h *AuthHandler) createUser(username, email, password string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: username,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: hash,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type registerRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Captcha  int    `json:"captcha" form:"captcha"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "参数错误")
		return
	}

	if req.Username == "" || req.Email == "" || len(req.Password) < 6 {
		JSONError(c, http.StatusBadRequest, "用户名、邮箱不能为空，密码至少 6 位")
		return
	}

	session := sessions.Default(c)
	answer := session.Get("captcha_answer")
	if answer == nil || answer.(int) != req.Captcha {
		JSONError(c, http.StatusBadRequest, "验证码错误")
		return
	}
	session.Delete("captcha_answer")

	var existing models.User
	if err := db.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&existing).Error; err == nil {
		JSONError(c, http.StatusConflict, "该邮箱已注册")
		return
	}

	user, err := h.createUser(req.Username, req.Email, req.Password)
	if err != nil {
		JSONError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	session.Set("user_id", user.ID)
	session.Save()

	JSONOK(c, http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "参数错误")
		return
	}

	var user models.User
	if err := db.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		JSONError(c, http.StatusUnauthorized, "邮箱或密码错误")
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		JSONError(c, http.StatusUnauthorized, "邮箱或密码错误")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	JSONOK(c, http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	JSONOK(c, http.StatusOK, gin.H{"message": "已退出登录"})
}
