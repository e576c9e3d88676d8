package handler

import (
	"meslek-atlasi/internal/config"
	"meslek-atlasi/internal/middleware"
	"meslek-atlasi/internal/service"
	"meslek-atlasi/pkg/token"

	"github.com/gin-gonic/gin"
)

// Services 汇总路由需要的全部业务服务。
type Services struct {
	Identity     service.IdentityService
	Conversation service.ConversationService
	Chat         service.ChatService
	Admin        service.AdminService
}

// NewRouter 创建路由引擎并注册所有路由。
func NewRouter(cfg config.Config, jwtManager *token.JWTManager, svc Services) *gin.Engine {
	r := gin.New() // 不带默认中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	chatHandler := NewChatHandler(svc.Chat, svc.Identity)
	conversationHandler := NewConversationHandler(svc.Identity, svc.Conversation)
	adminHandler := NewAdminHandler(svc.Admin)

	// 面向访客的路由：每个请求先绑定匿名身份
	sessionMaxAge := int(jwtManager.SessionDuration().Seconds())
	public := r.Group("/")
	public.Use(middleware.SessionMiddleware(svc.Identity, cfg.Session, sessionMaxAge))
	{
		if cfg.Server.IndexPath != "" {
			public.StaticFile("/", cfg.Server.IndexPath)
		}
		public.POST("/get_history", conversationHandler.GetHistory)
		public.POST("/chat", chatHandler.Chat)
		public.POST("/feedback", conversationHandler.Feedback)
		public.GET("/chat/ws", chatHandler.Handle)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/login", adminHandler.Login)

		authed := admin.Group("/")
		authed.Use(middleware.AdminAuthMiddleware(jwtManager, svc.Admin))
		{
			authed.POST("/logout", adminHandler.Logout)
			authed.GET("/users", adminHandler.ListUsers)
			authed.DELETE("/users/:id", adminHandler.DeleteUser)
			authed.GET("/messages", adminHandler.ListMessages)
			authed.PUT("/messages/:id", adminHandler.UpdateMessage)
			authed.DELETE("/messages/:id", adminHandler.DeleteMessage)
		}
	}

	return r
}
