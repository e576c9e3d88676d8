package middleware

import (
	"net/http"

	"meslek-atlasi/internal/config"
	"meslek-atlasi/internal/service"
	"meslek-atlasi/pkg/log"

	"github.com/gin-gonic/gin"
)

// ContextUserID 是会话中间件写入 gin.Context 的键。
const ContextUserID = "userID"

// SessionMiddleware 确保每个请求都绑定一个匿名身份。
// 会话 cookie 缺失或无效时创建新用户并下发新的 cookie；
// 创建失败时不中止请求，由后续处理函数按“用户不存在”处理。
func SessionMiddleware(identityService service.IdentityService, cfg config.SessionConfig, maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken, _ := c.Cookie(cfg.CookieName)

		identity, err := identityService.EnsureIdentity(c.Request.Context(), sessionToken)
		if err != nil {
			log.Error("SessionMiddleware: 无法为会话分配身份", err)
			c.Next()
			return
		}

		if identity.SessionToken != "" {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, identity.SessionToken, maxAgeSeconds, "/", "", cfg.Secure, true)
		}
		c.Set(ContextUserID, identity.UserID)
		c.Next()
	}
}

// UserIDFromContext 返回会话中间件解析出的用户 ID，可能为空。
func UserIDFromContext(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
