package service

import (
	"context"
	"strings"

	"meslek-atlasi/internal/catalog"
	"meslek-atlasi/internal/model"
	"meslek-atlasi/pkg/llm"
	"meslek-atlasi/pkg/log"
)

// AdvisorService 生成面向用户的回复。
type AdvisorService interface {
	// Reply 调用一次模型并原样返回生成的文本。模型错误不在此处理，直接返回给调用方。
	Reply(ctx context.Context, userMessage, recentHistory string, professions []model.Profession) (string, error)
}

type advisorService struct {
	llmClient llm.Client
	prompts   Prompts
}

// NewAdvisorService 创建一个新的 AdvisorService 实例。
func NewAdvisorService(llmClient llm.Client, prompts Prompts) AdvisorService {
	return &advisorService{llmClient: llmClient, prompts: prompts}
}

func (s *advisorService) Reply(ctx context.Context, userMessage, recentHistory string, professions []model.Profession) (string, error) {
	return s.llmClient.Generate(ctx, s.buildPrompt(userMessage, recentHistory, professions))
}

func (s *advisorService) buildPrompt(userMessage, recentHistory string, professions []model.Profession) string {
	var b strings.Builder
	b.WriteString(s.prompts.AdvisorRules)

	b.WriteString("\n\nMESLEK BİLGİLERİ:\n")
	if len(professions) == 0 {
		b.WriteString(s.prompts.NoResultText)
	} else {
		text, err := catalog.EncodeJSON(professions)
		if err != nil {
			log.Warnf("[AdvisorService] 职业信息序列化失败: %v", err)
			b.WriteString(s.prompts.NoResultText)
		} else {
			b.WriteString(text)
		}
	}

	b.WriteString("\n\nSOHBET GEÇMİŞİ:\n")
	b.WriteString(recentHistory)

	b.WriteString("\n")
	b.WriteString(s.prompts.UserLabel)
	b.WriteString(": ")
	b.WriteString(userMessage)
	return b.String()
}
