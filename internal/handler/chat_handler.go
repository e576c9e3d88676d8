package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"meslek-atlasi/internal/middleware"
	"meslek-atlasi/internal/service"
	"meslek-atlasi/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 处理一轮对话请求，支持普通 HTTP 与 WebSocket 两种方式。
type ChatHandler struct {
	chatService     service.ChatService
	identityService service.IdentityService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, identityService service.IdentityService) *ChatHandler {
	return &ChatHandler{chatService: chatService, identityService: identityService}
}

// ChatRequest 定义了聊天请求体。
type ChatRequest struct {
	Message *string `json:"message" binding:"required"`
}

// ChatResponse 是一轮对话成功后的响应，ID 为新建的回复消息 ID。
type ChatResponse struct {
	ID    uint   `json:"id"`
	Reply string `json:"reply"`
}

// Chat 处理 POST /chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	user, err := h.identityService.GetUser(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if !errors.Is(err, service.ErrUserNotFound) {
			log.Error("Chat: 查询用户失败", err)
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Chat: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	result, err := h.chatService.HandleTurn(c.Request.Context(), user, *req.Message)
	if err != nil {
		log.Error("Chat: 处理对话失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI service is temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, ChatResponse{ID: result.Reply.ID, Reply: result.Reply.Content})
}

// Handle 处理 GET /chat/ws：每个文本帧是一轮对话，
// 帧内容为 {"message": "..."} 或纯文本，回复帧格式与 POST /chat 相同。
func (h *ChatHandler) Handle(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	// 握手响应由 websocket 库自行写出，会话中间件下发的 cookie 需要显式带上
	var respHeader http.Header
	if cookies := c.Writer.Header().Values("Set-Cookie"); len(cookies) > 0 {
		respHeader = http.Header{"Set-Cookie": cookies}
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", userID)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		content := string(frame)
		var req ChatRequest
		if len(frame) > 0 && frame[0] == '{' {
			if err := json.Unmarshal(frame, &req); err == nil && req.Message != nil {
				content = *req.Message
			}
		}

		// 每一轮重新解析用户，管理员可能已在两轮之间删除该用户
		user, err := h.identityService.GetUser(c.Request.Context(), userID)
		if err != nil {
			_ = conn.WriteJSON(gin.H{"error": "user not found"})
			continue
		}

		result, err := h.chatService.HandleTurn(c.Request.Context(), user, content)
		if err != nil {
			log.Errorf("处理对话失败: %v", err)
			_ = conn.WriteJSON(gin.H{"error": "AI service is temporarily unavailable"})
			continue
		}
		if err := conn.WriteJSON(ChatResponse{ID: result.Reply.ID, Reply: result.Reply.Content}); err != nil {
			log.Warnf("写入 WebSocket 消息失败: %v", err)
			return
		}
	}
}
