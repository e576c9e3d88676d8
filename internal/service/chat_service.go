package service

import (
	"context"
	"fmt"

	"meslek-atlasi/internal/catalog"
	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/pkg/kafka"
	"meslek-atlasi/pkg/log"
)

// HistoryWindow 是构建提示词时读取的最近消息条数。
const HistoryWindow = 8

// TurnResult 是一轮对话的结果。
type TurnResult struct {
	UserMessage *model.Message
	Reply       *model.Message
	Professions []model.Profession
}

// ChatService 协调身份、消息存储、检索与生成，完成一轮对话。
type ChatService interface {
	// HandleTurn 依次持久化用户消息、检索相关职业、生成回复并持久化回复。
	// 生成失败时用户消息保持已提交状态，不会回滚。
	HandleTurn(ctx context.Context, user *model.User, content string) (*TurnResult, error)
}

type chatService struct {
	conversations ConversationService
	searchService SearchService
	advisor       AdvisorService
	professions   *catalog.Catalog
	prompts       Prompts
	publisher     kafka.Publisher
}

// NewChatService 创建一个新的 ChatService 实例。professions 在进程生命周期内只读。
func NewChatService(
	conversations ConversationService,
	searchService SearchService,
	advisor AdvisorService,
	professions *catalog.Catalog,
	prompts Prompts,
	publisher kafka.Publisher,
) ChatService {
	return &chatService{
		conversations: conversations,
		searchService: searchService,
		advisor:       advisor,
		professions:   professions,
		prompts:       prompts,
		publisher:     publisher,
	}
}

func (s *chatService) HandleTurn(ctx context.Context, user *model.User, content string) (*TurnResult, error) {
	// 1. 身份必须已解析
	if user == nil || user.ID == "" {
		return nil, ErrUserNotFound
	}

	// 2. 持久化用户消息
	userMsg, err := s.conversations.Append(ctx, user.ID, model.RoleUser, content)
	if err != nil {
		return nil, err
	}

	// 3. 构建上下文：最近 8 条，新消息在前
	recent, err := s.conversations.History(ctx, user.ID, HistoryWindow, repository.Descending)
	if err != nil {
		return nil, err
	}
	historyText := s.prompts.FormatHistory(recent)

	// 4. 检索相关职业（失败时为空列表）
	relevant := s.searchService.Filter(ctx, historyText, s.professions)

	// 5. 生成回复，错误直接返回
	replyText, err := s.advisor.Reply(ctx, content, historyText, relevant)
	if err != nil {
		log.Errorf("[ChatService] 回复生成失败, user=%s, messageID=%d: %v", user.ID, userMsg.ID, err)
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	// 6. 持久化模型回复
	botMsg, err := s.conversations.Append(ctx, user.ID, model.RoleModel, replyText)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, user.ID, TurnEvent{
		Type:           EventChatTurn,
		UserID:         user.ID,
		UserMessageID:  userMsg.ID,
		ReplyMessageID: botMsg.ID,
		Professions:    len(relevant),
	})

	return &TurnResult{UserMessage: userMsg, Reply: botMsg, Professions: relevant}, nil
}
