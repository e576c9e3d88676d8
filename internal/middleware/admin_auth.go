package middleware

import (
	"net/http"
	"strings"

	"meslek-atlasi/internal/service"
	"meslek-atlasi/pkg/log"
	"meslek-atlasi/pkg/token"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 校验 Authorization 头中的管理员 token，
// 并拒绝已注销的 token。
func AdminAuthMiddleware(jwtManager *token.JWTManager, adminService service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString, token.SubjectAdmin)
		if err != nil || claims.Role != "ADMIN" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		revoked, err := adminService.IsRevoked(c.Request.Context(), tokenString)
		if err != nil {
			log.Error("AdminAuthMiddleware: 黑名单查询失败", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to verify token"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
			return
		}

		c.Set("claims", claims)
		c.Set("token", tokenString)
		c.Next()
	}
}
