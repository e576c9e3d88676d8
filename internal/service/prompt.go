package service

import (
	"strings"

	"meslek-atlasi/internal/config"
	"meslek-atlasi/internal/model"
)

const (
	defaultSearchInstruction = "Bir sohbet geçmişi ve meslek veritabanı analizi yap. " +
		"Kullanıcının son isteğiyle en alakalı en fazla 5 mesleğin TÜM BİLGİLERİNİ, " +
		"verilen JSON veritabanından bul ve yeni bir JSON listesi olarak döndür."
	defaultAdvisorRules = "Bir kariyer danışmanısın. Kullanıcının ilgi alanlarını, yeteneklerini ve " +
		"hedeflerini dikkate alarak ona uygun meslekleri öner. Önerilerini yalnızca aşağıda verilen " +
		"meslek bilgilerine dayandır, bilgileri uydurma ve samimi, anlaşılır bir dille yanıt ver."
	defaultUserLabel    = "Kullanıcı"
	defaultModelLabel   = "Bot"
	defaultNoResultText = "İlgili meslek bulunamadı."
)

// Prompts 汇总两个模型调用阶段使用的提示词。
type Prompts struct {
	SearchInstruction string
	AdvisorRules      string
	UserLabel         string
	ModelLabel        string
	NoResultText      string
}

// NewPrompts 以配置覆盖内置默认值。
func NewPrompts(cfg config.LLMPromptConfig) Prompts {
	return Prompts{
		SearchInstruction: orDefault(cfg.SearchInstruction, defaultSearchInstruction),
		AdvisorRules:      orDefault(cfg.AdvisorRules, defaultAdvisorRules),
		UserLabel:         orDefault(cfg.UserLabel, defaultUserLabel),
		ModelLabel:        orDefault(cfg.ModelLabel, defaultModelLabel),
		NoResultText:      orDefault(cfg.NoResultText, defaultNoResultText),
	}
}

// FormatHistory 把消息逐条格式化为 "标签: 内容" 行，保持传入顺序。
func (p Prompts) FormatHistory(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role == model.RoleUser {
			b.WriteString(p.UserLabel)
		} else {
			b.WriteString(p.ModelLabel)
		}
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
