package handler

import (
	"errors"
	"net/http"
	"strconv"

	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/internal/service"
	"meslek-atlasi/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理所有与管理员相关的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// LoginRequest 定义了管理员登录的请求体。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理管理员登录。
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid request payload", "data": nil})
		return
	}
	tokenString, err := h.adminService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warnf("Admin login failed for '%s'", req.Username)
			c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid credentials", "data": nil})
			return
		}
		log.Error("Login: failed to issue admin token", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "login failed", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"token": tokenString}})
}

// Logout 注销当前管理员 token。
func (h *AdminHandler) Logout(c *gin.Context) {
	if err := h.adminService.Logout(c.Request.Context(), c.GetString("token")); err != nil {
		log.Error("Logout: failed to revoke token", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "logout failed", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}

// ListUsers 分页列出用户，q 按 ID 检索。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, size := pageParams(c)
	resp, err := h.adminService.ListUsers(c.Query("q"), page, size)
	if err != nil {
		log.Error("ListUsers: failed to list users", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to list users", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": resp})
}

// DeleteUser 删除用户及其消息。
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	err := h.adminService.DeleteUser(c.Param("id"))
	if errors.Is(err, service.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "user not found", "data": nil})
		return
	}
	if err != nil {
		log.Error("DeleteUser: failed to delete user", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to delete user", "data": nil})
		return
	}
	log.Infof("Admin deleted user '%s'", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}

// ListMessages 分页列出消息，支持 q、role、feedback、user_id 过滤。
func (h *AdminHandler) ListMessages(c *gin.Context) {
	filter := repository.MessageFilter{
		Query:  c.Query("q"),
		Role:   model.Role(c.Query("role")),
		UserID: c.Query("user_id"),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid role", "data": nil})
		return
	}
	if fb := c.Query("feedback"); fb != "" {
		v, err := strconv.Atoi(fb)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid feedback", "data": nil})
			return
		}
		filter.Feedback = &v
	}

	page, size := pageParams(c)
	resp, err := h.adminService.ListMessages(filter, page, size)
	if err != nil {
		log.Error("ListMessages: failed to list messages", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to list messages", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": resp})
}

// UpdateMessageRequest 定义了编辑消息的请求体，缺省字段保持不变。
type UpdateMessageRequest struct {
	Role     *model.Role `json:"role"`
	Content  *string     `json:"content"`
	Feedback *int        `json:"feedback"`
}

// UpdateMessage 编辑一条消息。
func (h *AdminHandler) UpdateMessage(c *gin.Context) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}
	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid request payload", "data": nil})
		return
	}

	msg, err := h.adminService.UpdateMessage(id, service.MessageUpdate{Role: req.Role, Content: req.Content, Feedback: req.Feedback})
	switch {
	case errors.Is(err, service.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "message not found", "data": nil})
	case errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid role", "data": nil})
	case err != nil:
		log.Error("UpdateMessage: failed to update message", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to update message", "data": nil})
	default:
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": msg})
	}
}

// DeleteMessage 删除一条消息。
func (h *AdminHandler) DeleteMessage(c *gin.Context) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}
	err := h.adminService.DeleteMessage(id)
	if errors.Is(err, service.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "message not found", "data": nil})
		return
	}
	if err != nil {
		log.Error("DeleteMessage: failed to delete message", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to delete message", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}

func messageIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid message id", "data": nil})
		return 0, false
	}
	return uint(id), true
}
