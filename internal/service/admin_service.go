package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meslek-atlasi/internal/config"
	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/pkg/hash"
	"meslek-atlasi/pkg/token"

	"gorm.io/gorm"
)

// PageResponse 定义了分页列表 API 的响应结构。
type PageResponse struct {
	Content       interface{} `json:"content"`
	TotalElements int64       `json:"totalElements"`
	TotalPages    int         `json:"totalPages"`
	Size          int         `json:"size"`
	Number        int         `json:"number"`
}

// MessageUpdate 描述管理员对消息的修改，nil 字段保持不变。
type MessageUpdate struct {
	Role     *model.Role
	Content  *string
	Feedback *int
}

// AdminService 接口定义了管理后台的业务操作。
type AdminService interface {
	Login(username, password string) (string, error)
	Logout(ctx context.Context, tokenString string) error
	IsRevoked(ctx context.Context, tokenString string) (bool, error)

	ListUsers(query string, page, size int) (*PageResponse, error)
	DeleteUser(userID string) error

	ListMessages(filter repository.MessageFilter, page, size int) (*PageResponse, error)
	UpdateMessage(id uint, update MessageUpdate) (*model.Message, error)
	DeleteMessage(id uint) error
}

type adminService struct {
	cfg         config.AdminConfig
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	blacklist   repository.TokenBlacklist
	jwtManager  *token.JWTManager
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(
	cfg config.AdminConfig,
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
	blacklist repository.TokenBlacklist,
	jwtManager *token.JWTManager,
) AdminService {
	return &adminService{
		cfg:         cfg,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		blacklist:   blacklist,
		jwtManager:  jwtManager,
	}
}

// Login 校验配置中的管理员账号，成功后签发管理员 token。
func (s *adminService) Login(username, password string) (string, error) {
	if s.cfg.PasswordHash == "" || username != s.cfg.Username {
		return "", ErrInvalidCredentials
	}
	if !hash.CheckPasswordHash(password, s.cfg.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return s.jwtManager.GenerateAdminToken(username)
}

// Logout 把 token 加入黑名单，直到其自然过期。
func (s *adminService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString, token.SubjectAdmin)
	if err != nil {
		return err
	}
	return s.blacklist.Add(ctx, tokenString, time.Until(claims.ExpiresAt.Time))
}

func (s *adminService) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	return s.blacklist.Contains(ctx, tokenString)
}

func (s *adminService) ListUsers(query string, page, size int) (*PageResponse, error) {
	page, size = normalizePage(page, size)
	users, total, err := s.userRepo.FindWithPagination(query, (page-1)*size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return newPage(users, total, page, size), nil
}

// DeleteUser 删除用户，其消息随之级联删除。
func (s *adminService) DeleteUser(userID string) error {
	err := s.userRepo.Delete(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *adminService) ListMessages(filter repository.MessageFilter, page, size int) (*PageResponse, error) {
	page, size = normalizePage(page, size)
	filter.Offset = (page - 1) * size
	filter.Limit = size
	messages, total, err := s.messageRepo.Search(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return newPage(messages, total, page, size), nil
}

func (s *adminService) UpdateMessage(id uint, update MessageUpdate) (*model.Message, error) {
	msg, err := s.messageRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if update.Role != nil {
		if !update.Role.Valid() {
			return nil, ErrInvalidRole
		}
		msg.Role = *update.Role
	}
	if update.Content != nil {
		msg.Content = *update.Content
	}
	if update.Feedback != nil {
		msg.Feedback = *update.Feedback
	}
	if err := s.messageRepo.Update(msg); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	return msg, nil
}

func (s *adminService) DeleteMessage(id uint) error {
	err := s.messageRepo.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMessageNotFound
	}
	return err
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

func newPage(content interface{}, total int64, page, size int) *PageResponse {
	return &PageResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
		Size:          size,
		Number:        page,
	}
}
