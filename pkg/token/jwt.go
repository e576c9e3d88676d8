// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
// 匿名会话 cookie 与管理后台的访问令牌都由它签发。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SubjectSession 标识匿名会话令牌。
	SubjectSession = "session"
	// SubjectAdmin 标识管理员令牌。
	SubjectAdmin = "admin"
)

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey  []byte        // secretKey 用于签名和验证 token 的密钥
	sessionDur time.Duration // sessionDur 定义了会话 token 的有效期
	adminDur   time.Duration // adminDur 定义了管理员 token 的有效期
}

// CustomClaims 定义了我们想要在 JWT 中存储的自定义数据。
type CustomClaims struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
// 非正数的有效期分别回退为 30 天与 8 小时。
func NewJWTManager(secret string, sessionExpireDays, adminExpireHours int) *JWTManager {
	if sessionExpireDays <= 0 {
		sessionExpireDays = 30
	}
	if adminExpireHours <= 0 {
		adminExpireHours = 8
	}
	return &JWTManager{
		secretKey:  []byte(secret),
		sessionDur: time.Duration(sessionExpireDays) * 24 * time.Hour,
		adminDur:   time.Duration(adminExpireHours) * time.Hour,
	}
}

// SessionDuration 返回会话 token 的有效期，用于设置 cookie 的 Max-Age。
func (m *JWTManager) SessionDuration() time.Duration {
	return m.sessionDur
}

// GenerateSessionToken 把匿名用户 ID 绑定到一个签名的会话 token 中。
func (m *JWTManager) GenerateSessionToken(userID string) (string, error) {
	return m.sign(CustomClaims{UserID: userID}, SubjectSession, m.sessionDur)
}

// GenerateAdminToken 为通过认证的管理员签发访问 token。
func (m *JWTManager) GenerateAdminToken(username string) (string, error) {
	return m.sign(CustomClaims{Username: username, Role: "ADMIN"}, SubjectAdmin, m.adminDur)
}

func (m *JWTManager) sign(claims CustomClaims, subject string, dur time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(dur)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        GenerateRandomString(8),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证给定的 token 字符串，并要求其 subject 与 expected 一致。
func (m *JWTManager) VerifyToken(tokenString, expected string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject != expected {
		return nil, fmt.Errorf("unexpected token subject %q", claims.Subject)
	}
	return claims, nil
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
