package service

import (
	"context"
	"errors"
	"fmt"

	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/pkg/log"
	"meslek-atlasi/pkg/token"

	"gorm.io/gorm"
)

// Identity 是会话解析后的结果。
type Identity struct {
	UserID string
	// SessionToken 仅在本次调用新建了用户时非空，调用方需要把它写回会话。
	SessionToken string
}

// IdentityService 负责把浏览器会话绑定到一个匿名用户。
type IdentityService interface {
	// EnsureIdentity 在会话没有有效身份时创建新用户；同一会话重复调用返回同一用户。
	EnsureIdentity(ctx context.Context, sessionToken string) (*Identity, error)
	// GetUser 返回已持久化的用户，不存在时返回 ErrUserNotFound。
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

type identityService struct {
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
}

// NewIdentityService 创建一个新的 IdentityService 实例。
func NewIdentityService(userRepo repository.UserRepository, jwtManager *token.JWTManager) IdentityService {
	return &identityService{userRepo: userRepo, jwtManager: jwtManager}
}

func (s *identityService) EnsureIdentity(ctx context.Context, sessionToken string) (*Identity, error) {
	if sessionToken != "" {
		claims, err := s.jwtManager.VerifyToken(sessionToken, token.SubjectSession)
		if err == nil && claims.UserID != "" {
			return &Identity{UserID: claims.UserID}, nil
		}
		log.Warnf("[IdentityService] 会话 token 无效，重新分配身份: %v", err)
	}

	user := &model.User{}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	signed, err := s.jwtManager.GenerateSessionToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	log.Infof("[IdentityService] 新建匿名用户: %s", user.ID)
	return &Identity{UserID: user.ID, SessionToken: signed}, nil
}

func (s *identityService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	user, err := s.userRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
