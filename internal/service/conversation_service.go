package service

import (
	"context"
	"errors"
	"fmt"

	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/pkg/kafka"

	"gorm.io/gorm"
)

// ConversationService 定义了会话消息存储的业务接口。
type ConversationService interface {
	// Append 持久化一条新消息，ID 由数据库分配。
	Append(ctx context.Context, userID string, role model.Role, content string) (*model.Message, error)
	// History 按指定顺序返回用户的消息；倒序时 limit 限定为最近的 N 条。
	History(ctx context.Context, userID string, limit int, order repository.Order) ([]model.Message, error)
	// SetFeedback 仅当消息属于请求者时修改 feedback，否则返回 ErrMessageNotFound。
	SetFeedback(ctx context.Context, messageID uint, requesterID string, value int) error
}

type conversationService struct {
	messageRepo repository.MessageRepository
	publisher   kafka.Publisher
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(messageRepo repository.MessageRepository, publisher kafka.Publisher) ConversationService {
	return &conversationService{messageRepo: messageRepo, publisher: publisher}
}

func (s *conversationService) Append(ctx context.Context, userID string, role model.Role, content string) (*model.Message, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	msg := &model.Message{UserID: userID, Role: role, Content: content}
	if err := s.messageRepo.Create(msg); err != nil {
		return nil, fmt.Errorf("failed to save %s message: %w", role, err)
	}
	return msg, nil
}

func (s *conversationService) History(ctx context.Context, userID string, limit int, order repository.Order) ([]model.Message, error) {
	messages, err := s.messageRepo.FindByUser(userID, limit, order)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return messages, nil
}

func (s *conversationService) SetFeedback(ctx context.Context, messageID uint, requesterID string, value int) error {
	msg, err := s.messageRepo.FindByID(messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if requesterID == "" || msg.UserID != requesterID {
		return ErrMessageNotFound
	}
	if err := s.messageRepo.UpdateFeedback(messageID, value); err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	publish(ctx, s.publisher, requesterID, FeedbackEvent{
		Type:      EventMessageFeedback,
		UserID:    requesterID,
		MessageID: messageID,
		Feedback:  value,
	})
	return nil
}
