package service

import (
	"context"

	"meslek-atlasi/pkg/kafka"
	"meslek-atlasi/pkg/log"
)

const (
	EventChatTurn        = "chat.turn"
	EventMessageFeedback = "message.feedback"
)

// TurnEvent 在一轮对话完整结束后发布。
type TurnEvent struct {
	Type           string `json:"type"`
	UserID         string `json:"user_id"`
	UserMessageID  uint   `json:"user_message_id"`
	ReplyMessageID uint   `json:"reply_message_id"`
	Professions    int    `json:"professions"`
}

// FeedbackEvent 在用户为消息打分后发布。
type FeedbackEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	MessageID uint   `json:"message_id"`
	Feedback  int    `json:"feedback"`
}

// publish 尽力发布事件，失败只记录日志。
func publish(ctx context.Context, publisher kafka.Publisher, key string, event interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, key, event); err != nil {
		log.Warnf("事件发布失败: key=%s, err=%v", key, err)
	}
}
