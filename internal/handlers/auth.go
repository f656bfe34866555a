package handlers

import (
	"net/http"
	"uptree/internal/db"
	"uptree/internal/models"
	"uptree/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "username and password are required")
		return
	}

	var user models.User
	if err := db.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		Fail(c, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if !utils.CheckPasswordHash(req.Password, user.Password) {
		Fail(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Status(http.StatusNoContent)
}

// Me returns the session user plus the unread notification badge count.
func (h *AuthHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	var unread int64
	db.DB.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", user.ID, false).Count(&unread)
	c.JSON(http.StatusOK, gin.H{"user": user, "unread_count": unread})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := CurrentUser(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "old_password and new_password are required")
		return
	}
	if len(req.NewPassword) < 6 {
		Fail(c, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	if !utils.CheckPasswordHash(req.OldPassword, user.Password) {
		Fail(c, http.StatusUnauthorized, "old password is incorrect")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "failed to hash password")
		return
	}
	db.DB.Model(user).Update("password", hash)

	c.Status(http.StatusNoContent)
}
