package handler

import (
	"errors"
	"net/http"

	"meslek-atlasi/internal/middleware"
	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/internal/service"
	"meslek-atlasi/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理历史记录与消息反馈请求。
type ConversationHandler struct {
	identityService     service.IdentityService
	conversationService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(identityService service.IdentityService, conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		identityService:     identityService,
		conversationService: conversationService,
	}
}

// GetHistory 按 ID 升序返回当前会话用户的全部消息；没有身份时返回空列表。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	user, err := h.identityService.GetUser(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if !errors.Is(err, service.ErrUserNotFound) {
			log.Error("GetHistory: 查询用户失败", err)
		}
		c.JSON(http.StatusOK, []model.HistoryItem{})
		return
	}

	messages, err := h.conversationService.History(c.Request.Context(), user.ID, 0, repository.Ascending)
	if err != nil {
		log.Error("GetHistory: 读取历史记录失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	history := make([]model.HistoryItem, 0, len(messages))
	for _, m := range messages {
		history = append(history, m.ToHistoryItem())
	}
	c.JSON(http.StatusOK, history)
}

// FeedbackRequest 定义了提交反馈的请求体。
type FeedbackRequest struct {
	MessageID     *flexInt `json:"message_id"`
	FeedbackValue *flexInt `json:"feedback_value"`
}

// Feedback 修改当前用户自己消息的 feedback。
// 消息不存在与不属于当前用户返回同样的 404。
func (h *ConversationHandler) Feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedbackValue == nil {
		log.Warnf("Feedback: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
		return
	}
	if req.MessageID == nil || *req.MessageID < 0 {
		c.JSON(http.StatusNotFound, gin.H{"status": "error"})
		return
	}

	err := h.conversationService.SetFeedback(
		c.Request.Context(),
		uint(*req.MessageID),
		middleware.UserIDFromContext(c),
		int(*req.FeedbackValue),
	)
	if err != nil {
		if !errors.Is(err, service.ErrMessageNotFound) {
			log.Error("Feedback: 更新反馈失败", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"status": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
